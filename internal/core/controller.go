package core

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lumipallolabs/shr/internal/event"
	"github.com/lumipallolabs/shr/internal/logging"
	"github.com/lumipallolabs/shr/internal/paths"
	"github.com/lumipallolabs/shr/internal/scanner"
	"github.com/lumipallolabs/shr/internal/units"
)

// batchSize bounds how many events are applied per lock acquisition
const batchSize = 512

// Controller feeds a scan session into a Tree and serves views of it to the
// UI. Observers wait on Changed instead of polling a dirty flag.
type Controller struct {
	mu sync.Mutex

	tree     *Tree
	resolver event.Resolver
	units    units.Mode
	scan     ScanState

	changed chan struct{}
}

// Snapshot is a consistent copy of everything the viewer renders
type Snapshot struct {
	View View
	Scan ScanState
}

// NewController creates a controller with an empty tree
func NewController(mode units.Mode) *Controller {
	return &Controller{
		tree:     NewTree(),
		resolver: paths.NewInterner(),
		units:    mode,
		changed:  make(chan struct{}, 1),
	}
}

// NewControllerFromTree serves an already complete tree, such as one loaded
// from a snapshot
func NewControllerFromTree(tree *Tree, resolver event.Resolver, root string, mode units.Mode) *Controller {
	c := NewController(mode)
	c.tree = tree
	c.resolver = resolver
	c.scan = ScanState{
		Phase:          PhaseComplete,
		Root:           root,
		TotalEntries:   tree.TotalEntries,
		InProgressDirs: tree.InProgressDirs,
	}
	if n, ok := tree.Node(paths.None); ok {
		c.scan.Totals = scanner.Totals{Files: n.Files, Size: n.Size}
	}
	return c
}

// Changed delivers a notification whenever the focused view may have
// changed. Notifications coalesce; read Snapshot after each one.
func (c *Controller) Changed() <-chan struct{} {
	return c.changed
}

func (c *Controller) notify() {
	select {
	case c.changed <- struct{}{}:
	default:
	}
}

// Run consumes the session's events until the scan ends or ctx is done and
// returns the scan's totals
func (c *Controller) Run(ctx context.Context, sess *scanner.Session) (scanner.Totals, error) {
	log := logging.Debug.WithFields(logrus.Fields{"root": sess.RootPath})
	log.Debug("controller: consuming scan")

	c.mu.Lock()
	c.tree = NewTree()
	c.resolver = sess
	c.scan = ScanState{
		Phase:     PhaseScanning,
		Root:      sess.RootPath,
		StartTime: time.Now(),
	}
	c.mu.Unlock()
	c.notify()

	buf := make([]event.Event, 0, batchSize)
	for {
		batch, ok := sess.Events.RecvBatch(ctx, buf[:0], batchSize)
		if len(batch) > 0 {
			c.apply(batch, sess.Progress())
		}
		if !ok {
			break
		}
	}

	if ctx.Err() != nil {
		// Producers keep measuring until they observe the cancellation
		sess.Events.Drop()
	}

	totals, err := sess.Wait()

	c.mu.Lock()
	c.scan.Phase = PhaseComplete
	c.scan.EndTime = time.Now()
	c.scan.Progress = sess.Progress()
	c.scan.Totals = totals
	c.scan.Err = err
	elapsed := c.scan.Elapsed()
	applied := c.scan.EventsApplied
	c.mu.Unlock()
	c.notify()

	log.WithFields(logrus.Fields{
		"files":   totals.Files,
		"bytes":   totals.Size,
		"events":  applied,
		"elapsed": elapsed,
	}).Debug("controller: scan complete")
	return totals, err
}

func (c *Controller) apply(batch []event.Event, progress scanner.Progress) {
	c.mu.Lock()
	for _, ev := range batch {
		c.tree.Apply(ev)
	}
	c.scan.Progress = progress
	c.scan.EventsApplied = c.tree.EventsApplied
	c.scan.TotalEntries = c.tree.TotalEntries
	c.scan.InProgressDirs = c.tree.InProgressDirs
	affected := c.tree.FocusAffected
	c.mu.Unlock()

	if affected {
		c.notify()
	}
}

// Send applies a navigation command
func (c *Controller) Send(cmd Command) {
	c.mu.Lock()
	switch cmd := cmd.(type) {
	case GotoParent:
		c.tree.GotoParent()
	case GotoPath:
		c.tree.GotoPath(cmd.Raw)
	}
	c.mu.Unlock()
	c.notify()
}

// Snapshot computes the current view
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		View: c.tree.View(c.resolver, c.units),
		Scan: c.scan,
	}
}

// ScanState returns the current scan state
func (c *Controller) ScanState() ScanState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scan
}

// Resolve returns the path for id as known to the current session
func (c *Controller) Resolve(id paths.ID) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolver.Resolve(id)
}

// WithTree runs fn with exclusive access to the tree
func (c *Controller) WithTree(fn func(t *Tree, r event.Resolver)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.tree, c.resolver)
}
