package scanner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/lumipallolabs/shr/internal/event"
	"github.com/lumipallolabs/shr/internal/paths"
)

// Strategy selects how the tree is traversed
type Strategy int

const (
	// StrategyPool fans entries out over a fixed worker pool
	StrategyPool Strategy = iota
	// StrategyAsync runs one scheduler goroutine that hands blocking I/O to
	// a bounded auxiliary pool
	StrategyAsync
	// StrategyFlat walks with fastwalk first and replays events afterwards
	StrategyFlat
)

// ErrUnknownStrategy is returned by ParseStrategy for unrecognized names
var ErrUnknownStrategy = errors.New("unknown scan strategy")

// String returns the strategy name accepted by ParseStrategy
func (s Strategy) String() string {
	switch s {
	case StrategyPool:
		return "pool"
	case StrategyAsync:
		return "async"
	case StrategyFlat:
		return "flat"
	default:
		return "unknown"
	}
}

// ParseStrategy parses a strategy name
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "pool":
		return StrategyPool, nil
	case "async":
		return StrategyAsync, nil
	case "flat", "fastwalk":
		return StrategyFlat, nil
	}
	return StrategyPool, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// Options controls a scan
type Options struct {
	// MaxDepth is the reporting depth: events are only emitted for paths
	// fewer than MaxDepth levels below the root. Negative means unlimited.
	// Measurement always covers the whole tree.
	MaxDepth    int
	FollowLinks bool
	// Workers bounds concurrent filesystem operations. Zero or less means
	// runtime.NumCPU().
	Workers  int
	Strategy Strategy
}

// DefaultOptions returns unlimited reporting with symlink following
func DefaultOptions() Options {
	return Options{
		MaxDepth:    -1,
		FollowLinks: true,
		Workers:     runtime.NumCPU(),
		Strategy:    StrategyPool,
	}
}

func (o Options) workers() int {
	if o.Workers < 1 {
		return runtime.NumCPU()
	}
	return o.Workers
}

func (o Options) rootDepth() int {
	if o.MaxDepth < 0 {
		return math.MaxInt
	}
	return o.MaxDepth
}

// Totals is the aggregate contribution of a subtree
type Totals struct {
	Files uint64
	Size  uint64
}

// Add folds two contributions
func (t Totals) Add(o Totals) Totals {
	return Totals{Files: t.Files + o.Files, Size: t.Size + o.Size}
}

// Progress reports scanning progress
type Progress struct {
	FilesScanned int64
	DirsScanned  int64
	BytesFound   int64
	Errors       int64
}

// Scanner defines the interface for filesystem scanning
type Scanner interface {
	// Scan starts scanning root in the background and returns the session
	// that carries its events
	Scan(ctx context.Context, root string) (*Session, error)
}

// New returns the scanner for opts.Strategy
func New(opts Options) Scanner {
	switch opts.Strategy {
	case StrategyAsync:
		return NewAsyncWalker(opts)
	case StrategyFlat:
		return NewFlatWalker(opts)
	default:
		return NewPoolWalker(opts)
	}
}

// Session is one running scan. Events are produced until the whole tree has
// been measured, then the stream is closed.
type Session struct {
	Root     paths.ID
	RootPath string
	Paths    *paths.Interner
	Events   *event.Stream

	state  *scanState
	done   chan struct{}
	totals Totals
	err    error
}

func newSession(root string, opts Options) (*Session, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}

	interner := paths.NewInterner()
	stream := event.NewStream()
	return &Session{
		Root:     interner.Intern(absRoot),
		RootPath: absRoot,
		Paths:    interner,
		Events:   stream,
		state:    newScanState(interner, stream, opts.FollowLinks),
		done:     make(chan struct{}),
	}, nil
}

// finish records the result and closes the event stream. Called once, after
// every producer has exited.
func (s *Session) finish(totals Totals, err error) {
	s.totals = totals
	s.err = err
	s.Events.CloseSend()
	close(s.done)
}

// Wait blocks until the scan has finished and returns the root's totals.
// Totals are available even when the reporting depth suppressed every event.
func (s *Session) Wait() (Totals, error) {
	<-s.done
	return s.totals, s.err
}

// Done is closed when the scan has finished
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Progress returns a snapshot of the scan counters
func (s *Session) Progress() Progress {
	return s.state.progress.snapshot()
}

// Resolve returns the path for an interned handle
func (s *Session) Resolve(id paths.ID) (string, bool) {
	return s.Paths.Resolve(id)
}

type progressCounters struct {
	files  atomic.Int64
	dirs   atomic.Int64
	bytes  atomic.Int64
	errors atomic.Int64
}

func (p *progressCounters) snapshot() Progress {
	return Progress{
		FilesScanned: p.files.Load(),
		DirsScanned:  p.dirs.Load(),
		BytesFound:   p.bytes.Load(),
		Errors:       p.errors.Load(),
	}
}

func childDepth(depth int) int {
	if depth <= 0 {
		return 0
	}
	return depth - 1
}
