package scanner

import (
	"context"
	"path/filepath"

	"golang.org/x/sync/semaphore"

	"github.com/lumipallolabs/shr/internal/event"
	"github.com/lumipallolabs/shr/internal/paths"
)

// AsyncWalker scans with a single scheduler goroutine. The scheduler owns
// all fold state; only the blocking Lstat and ReadDir calls leave it, run on
// an auxiliary pool whose size is bounded by a weighted semaphore.
type AsyncWalker struct {
	opts Options
}

// NewAsyncWalker creates a single-scheduler walker
func NewAsyncWalker(opts Options) *AsyncWalker {
	return &AsyncWalker{opts: opts}
}

// asyncDir is a directory being folded. Only the scheduler touches it.
type asyncDir struct {
	id      paths.ID
	parent  *asyncDir // nil only for the sentinel above the root
	report  bool
	pending int
	files   uint64
	size    uint64
}

type asyncOp uint8

const (
	opClassify asyncOp = iota
	opList
)

type asyncTask struct {
	op       asyncOp
	path     string
	id       paths.ID
	parentID paths.ID
	parent   *asyncDir
	parents  *ancestry // directories enclosing path; includes path for opList
	depth    int
	dir      *asyncDir // set for opList
}

type asyncResult struct {
	task  asyncTask
	entry entry    // opClassify
	names []string // opList
}

// Scan starts the scheduler and returns immediately
func (w *AsyncWalker) Scan(ctx context.Context, root string) (*Session, error) {
	sess, err := newSession(root, w.opts)
	if err != nil {
		return nil, err
	}

	s := &asyncScheduler{
		ctx:     ctx,
		state:   sess.state,
		sem:     semaphore.NewWeighted(int64(w.opts.workers())),
		results: make(chan asyncResult, w.opts.workers()),
		outer:   outerAncestry(sess.RootPath),
	}

	top := &asyncDir{pending: 1}
	s.ready = append(s.ready, asyncTask{
		op:     opClassify,
		path:   sess.RootPath,
		id:     sess.Root,
		parent: top,
		depth:  w.opts.rootDepth(),
	})

	go func() {
		totals := s.run()
		sess.finish(totals, ctx.Err())
	}()
	return sess, nil
}

type asyncScheduler struct {
	ctx      context.Context
	state    *scanState
	sem      *semaphore.Weighted
	results  chan asyncResult
	ready    []asyncTask
	inflight int
	outer    *ancestry // directories above the root

	done   bool
	totals Totals
}

func (s *asyncScheduler) run() Totals {
	for !s.done {
		s.dispatch()
		if s.inflight == 0 {
			// Nothing running and nothing dispatchable means the fold is
			// broken; bail out rather than block forever
			break
		}
		res := <-s.results
		s.inflight--
		s.handle(res)
	}
	return s.totals
}

// dispatch starts as many ready tasks as the semaphore admits without
// blocking the scheduler
func (s *asyncScheduler) dispatch() {
	for len(s.ready) > 0 && s.sem.TryAcquire(1) {
		last := len(s.ready) - 1
		task := s.ready[last]
		s.ready[last] = asyncTask{}
		s.ready = s.ready[:last]

		s.inflight++
		go func() {
			res := s.perform(task)
			// Release before reporting so the scheduler can dispatch again as
			// soon as it sees the result
			s.sem.Release(1)
			s.results <- res
		}()
	}
}

// perform runs on the auxiliary pool
func (s *asyncScheduler) perform(task asyncTask) asyncResult {
	res := asyncResult{task: task}
	switch task.op {
	case opClassify:
		res.entry = s.state.classify(task.path, task.parents)
	case opList:
		if s.ctx.Err() == nil {
			res.names, _ = s.state.readDir(task.path)
		}
	}
	return res
}

func (s *asyncScheduler) handle(res asyncResult) {
	task := res.task
	if task.op == opList {
		s.expand(task, res.names)
		return
	}

	e := res.entry
	report := task.depth > 0
	switch e.kind {
	case kindFile:
		if report {
			s.state.emit(event.FileDone(task.id, task.parentID, e.size))
		}
		s.finish(task.parent, 1, e.size)
	case kindSkip:
		s.finish(task.parent, 0, 0)
	case kindDir:
		if report {
			s.state.emit(event.Entered(task.id, task.parentID))
		}
		task.op = opList
		if task.parentID == paths.None {
			task.parents = s.outer
		}
		task.parents = task.parents.child(e.key)
		task.dir = &asyncDir{id: task.id, parent: task.parent, report: report, pending: 1}
		s.ready = append(s.ready, task)
	}
}

// expand queues the children of a listed directory
func (s *asyncScheduler) expand(task asyncTask, names []string) {
	dir := task.dir
	depth := childDepth(task.depth)
	for _, name := range names {
		childPath := filepath.Join(task.path, name)
		s.ready = append(s.ready, asyncTask{
			op:       opClassify,
			path:     childPath,
			id:       s.state.paths.Intern(childPath),
			parentID: task.id,
			parent:   dir,
			parents:  task.parents,
			depth:    depth,
		})
	}
	dir.pending += len(names)
	s.finish(dir, 0, 0)
}

func (s *asyncScheduler) finish(d *asyncDir, files, size uint64) {
	for {
		d.files += files
		d.size += size
		d.pending--
		if d.pending != 0 {
			return
		}

		files, size = d.files, d.size
		if d.parent == nil {
			s.totals = Totals{Files: files, Size: size}
			s.done = true
			return
		}
		if d.report {
			s.state.emit(event.DirDone(d.id, size, files))
		}
		d = d.parent
	}
}

// Ensure AsyncWalker implements Scanner
var _ Scanner = (*AsyncWalker)(nil)
