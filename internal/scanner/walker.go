package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"

	"github.com/lumipallolabs/shr/internal/event"
	"github.com/lumipallolabs/shr/internal/logging"
	"github.com/lumipallolabs/shr/internal/paths"
)

// FlatWalker collects the whole tree with fastwalk, folds it bottom-up and
// then replays the events parent-first. Events only start once the walk is
// over, so it suits batch output more than the live viewer.
type FlatWalker struct {
	opts Options
}

// NewFlatWalker creates a fastwalk based walker
func NewFlatWalker(opts Options) *FlatWalker {
	return &FlatWalker{opts: opts}
}

// nodeEntry is a temporary structure for building the tree
type nodeEntry struct {
	path  string
	size  uint64
	isDir bool
}

type flatNode struct {
	path     string
	isDir    bool
	size     uint64
	files    uint64
	children []*flatNode
}

// Scan walks root in the background and returns immediately
func (w *FlatWalker) Scan(ctx context.Context, root string) (*Session, error) {
	sess, err := newSession(root, w.opts)
	if err != nil {
		return nil, err
	}

	go func() {
		entries, err := w.collect(ctx, sess)
		top := buildTree(sess.RootPath, entries)

		var totals Totals
		if top != nil {
			fold(top)
			totals = Totals{Files: top.files, Size: top.size}
			replay(sess.state, top, sess.Root, paths.None, w.opts.rootDepth())
		}
		sess.finish(totals, err)
	}()
	return sess, nil
}

func (w *FlatWalker) collect(ctx context.Context, sess *Session) ([]nodeEntry, error) {
	state := sess.state

	// Use channels for lock-free entry collection
	entryChan := make(chan nodeEntry, 4096)
	var entries []nodeEntry
	var entriesWg sync.WaitGroup

	entriesWg.Add(1)
	go func() {
		defer entriesWg.Done()
		for e := range entryChan {
			entries = append(entries, e)
		}
	}()

	conf := &fastwalk.Config{
		Follow:     w.opts.FollowLinks,
		NumWorkers: w.opts.workers(),
	}

	walkErr := fastwalk.Walk(conf, sess.RootPath, func(path string, d fs.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err != nil {
			// Either the root could not be read or a directory failed to
			// list; the directory itself is already recorded
			state.fail("walk", path, err)
			return nil
		}

		info, err := d.Info()
		if err != nil {
			state.fail("lstat", path, err)
			return nil
		}
		linked := info.Mode()&os.ModeSymlink != 0
		if linked {
			if !w.opts.FollowLinks {
				return nil
			}
			// fastwalk caches the target's stat for its own traversal check
			if fd, ok := d.(fastwalk.DirEntry); ok {
				info, err = fd.Stat()
			} else {
				info, err = os.Stat(path)
			}
			if err != nil {
				state.fail("stat", path, err)
				return nil
			}
		}

		switch {
		case info.Mode().IsRegular():
			size := uint64(info.Size())
			state.progress.files.Add(1)
			state.progress.bytes.Add(int64(size))
			entryChan <- nodeEntry{path: path, size: size}
		case info.IsDir():
			// SkipDir on a symlink keeps fastwalk from following it
			if linked && enclosedBy(sess.RootPath, path, info) {
				logging.Scanner.WithField("path", path).Debug("link points at an enclosing directory")
				return fs.SkipDir
			}
			state.progress.dirs.Add(1)
			entryChan <- nodeEntry{path: path, isDir: true}
		}
		return nil
	})

	// Close channel and wait for collector to finish
	close(entryChan)
	entriesWg.Wait()

	if walkErr != nil && walkErr != ctx.Err() {
		state.fail("walk", sess.RootPath, walkErr)
		walkErr = nil
	}
	return entries, walkErr
}

// enclosedBy reports whether the directory link at path resolves to one of
// its lexical parents. fastwalk refuses to follow such a link; checking here
// keeps it out of the collected tree too.
func enclosedBy(root, path string, info fs.FileInfo) bool {
	if path == root {
		return false
	}
	key := dirKey(path, info)
	for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
		if di, err := os.Stat(dir); err == nil && dirKey(dir, di) == key {
			return true
		}
		if dir == filepath.Dir(dir) {
			return false
		}
	}
}

// buildTree constructs the tree structure from flat entries. Entries whose
// parent was never recorded are dropped with their subtree.
func buildTree(rootPath string, entries []nodeEntry) *flatNode {
	nodes := make(map[string]*flatNode, len(entries))
	for i := range entries {
		e := &entries[i]
		nodes[e.path] = &flatNode{path: e.path, isDir: e.isDir, size: e.size}
	}

	root, ok := nodes[rootPath]
	if !ok {
		return nil
	}

	for path, node := range nodes {
		if path == rootPath {
			continue
		}
		if parent, ok := nodes[filepath.Dir(path)]; ok && parent.isDir {
			parent.children = append(parent.children, node)
		}
	}
	return root
}

// fold computes recursive totals; fastwalk visits siblings in any order, so
// children are sorted by path for a stable replay
func fold(n *flatNode) {
	if !n.isDir {
		n.files = 1
		return
	}
	slices.SortFunc(n.children, func(a, b *flatNode) int {
		return strings.Compare(a.path, b.path)
	})
	n.size, n.files = 0, 0
	for _, c := range n.children {
		fold(c)
		n.size += c.size
		n.files += c.files
	}
}

func replay(state *scanState, n *flatNode, id, parent paths.ID, depth int) {
	if depth <= 0 {
		return
	}
	if !n.isDir {
		state.emit(event.FileDone(id, parent, n.size))
		return
	}

	state.emit(event.Entered(id, parent))
	for _, c := range n.children {
		replay(state, c, state.paths.Intern(c.path), id, depth-1)
	}
	state.emit(event.DirDone(id, n.size, n.files))
}

// Ensure FlatWalker implements Scanner
var _ Scanner = (*FlatWalker)(nil)
