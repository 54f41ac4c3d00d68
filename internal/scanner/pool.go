package scanner

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/lumipallolabs/shr/internal/event"
	"github.com/lumipallolabs/shr/internal/paths"
)

// PoolWalker scans with a fixed pool of workers. Every entry is a job; each
// directory counts down its outstanding children and the worker that
// finishes the last one folds the directory and moves up to its parent.
type PoolWalker struct {
	opts Options
}

// NewPoolWalker creates a bounded fork-join walker
func NewPoolWalker(opts Options) *PoolWalker {
	return &PoolWalker{opts: opts}
}

// dirTask is the shared fold state of one directory. pending counts the
// children still running plus one token held by the worker enumerating it.
type dirTask struct {
	id      paths.ID
	parent  *dirTask // nil only for the sentinel above the root
	report  bool
	pending atomic.Int64
	files   atomic.Uint64
	size    atomic.Uint64
}

type poolJob struct {
	path     string
	id       paths.ID
	parentID paths.ID
	parent   *dirTask
	parents  *ancestry // directories enclosing path
	depth    int
}

// jobQueue is an unbounded LIFO of jobs. Popping the newest job keeps the
// walk close to depth-first, which bounds the number of open directories.
type jobQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []poolJob
	closed bool
}

func newJobQueue() *jobQueue {
	q := &jobQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *jobQueue) push(jobs ...poolJob) {
	q.mu.Lock()
	q.items = append(q.items, jobs...)
	q.mu.Unlock()
	if len(jobs) == 1 {
		q.cond.Signal()
	} else {
		q.cond.Broadcast()
	}
}

func (q *jobQueue) pop() (poolJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return poolJob{}, false
	}
	last := len(q.items) - 1
	job := q.items[last]
	q.items[last] = poolJob{}
	q.items = q.items[:last]
	return job, true
}

func (q *jobQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

type poolRun struct {
	ctx    context.Context
	state  *scanState
	queue  *jobQueue
	outer  *ancestry // directories above the root
	totals Totals
}

// Scan starts the walk and returns immediately
func (w *PoolWalker) Scan(ctx context.Context, root string) (*Session, error) {
	sess, err := newSession(root, w.opts)
	if err != nil {
		return nil, err
	}

	run := &poolRun{
		ctx:   ctx,
		state: sess.state,
		queue: newJobQueue(),
		outer: outerAncestry(sess.RootPath),
	}
	top := &dirTask{}
	top.pending.Store(1)
	run.queue.push(poolJob{
		path:   sess.RootPath,
		id:     sess.Root,
		parent: top,
		depth:  w.opts.rootDepth(),
	})

	var g errgroup.Group
	for i := 0; i < w.opts.workers(); i++ {
		g.Go(run.work)
	}

	go func() {
		g.Wait()
		sess.finish(run.totals, ctx.Err())
	}()
	return sess, nil
}

func (r *poolRun) work() error {
	for {
		job, ok := r.queue.pop()
		if !ok {
			return nil
		}
		r.process(job)
	}
}

func (r *poolRun) process(job poolJob) {
	e := r.state.classify(job.path, job.parents)
	report := job.depth > 0

	switch e.kind {
	case kindFile:
		if report {
			r.state.emit(event.FileDone(job.id, job.parentID, e.size))
		}
		r.finish(job.parent, 1, e.size)
		return
	case kindSkip:
		r.finish(job.parent, 0, 0)
		return
	}

	if report {
		r.state.emit(event.Entered(job.id, job.parentID))
	}
	dir := &dirTask{id: job.id, parent: job.parent, report: report}

	var names []string
	if r.ctx.Err() == nil {
		names, _ = r.state.readDir(e.path)
	}
	dir.pending.Store(int64(len(names)) + 1)

	if len(names) > 0 {
		depth := childDepth(job.depth)
		parents := job.parents
		if job.parentID == paths.None {
			parents = r.outer
		}
		parents = parents.child(e.key)
		jobs := make([]poolJob, len(names))
		for i, name := range names {
			childPath := filepath.Join(e.path, name)
			jobs[i] = poolJob{
				path:     childPath,
				id:       r.state.paths.Intern(childPath),
				parentID: job.id,
				parent:   dir,
				parents:  parents,
				depth:    depth,
			}
		}
		r.queue.push(jobs...)
	}

	// Release the enumeration token
	r.finish(dir, 0, 0)
}

// finish adds a child's contribution to d and, when it was the last one,
// completes d and continues with its parent
func (r *poolRun) finish(d *dirTask, files, size uint64) {
	for {
		d.files.Add(files)
		d.size.Add(size)
		if d.pending.Add(-1) != 0 {
			return
		}

		files, size = d.files.Load(), d.size.Load()
		if d.parent == nil {
			r.totals = Totals{Files: files, Size: size}
			r.queue.close()
			return
		}
		if d.report {
			r.state.emit(event.DirDone(d.id, size, files))
		}
		d = d.parent
	}
}

// Ensure PoolWalker implements Scanner
var _ Scanner = (*PoolWalker)(nil)
