package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/lumipallolabs/shr/internal/cache"
	"github.com/lumipallolabs/shr/internal/config"
	"github.com/lumipallolabs/shr/internal/core"
	"github.com/lumipallolabs/shr/internal/event"
	"github.com/lumipallolabs/shr/internal/history"
	"github.com/lumipallolabs/shr/internal/logging"
	"github.com/lumipallolabs/shr/internal/report"
	"github.com/lumipallolabs/shr/internal/scanner"
	"github.com/lumipallolabs/shr/internal/ui/tui"
	"github.com/lumipallolabs/shr/internal/units"
)

var version = "0.1.0"

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

type options struct {
	cfg        *config.Config
	root       string
	browse     bool
	save       bool
	load       string
	history    bool
	showVer    bool
	format     report.Format
	units      units.Mode
	scanOpts   scanner.Options
	configPath string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	// Enable CPU profiling if CPUPROFILE env var is set
	if cpuProfile := os.Getenv("CPUPROFILE"); cpuProfile != "" {
		f, err := os.Create(cpuProfile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
		log.Printf("CPU profiling enabled, writing to %s", cpuProfile)
	}

	opts, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	if opts.showVer {
		fmt.Fprintf(stdout, "shr %s\n", version)
		return exitOK
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case opts.history:
		err = listHistory(opts, stdout)
	case opts.load != "":
		err = browseSnapshot(opts)
	case opts.browse:
		err = browseScan(ctx, opts)
	default:
		err = printScan(ctx, opts, stdout)
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			err = errors.New("interrupted")
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	return exitOK
}

// parseArgs layers the config file and environment under the flags. Only
// flags given on the command line override the configuration.
func parseArgs(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("shr", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: shr [flags] <dir>\n\n")
		fs.PrintDefaults()
	}

	var (
		opts     options
		format   string
		unitName string
		strategy string
		depth    int
		workers  int
		follow   bool
		record   bool
	)
	fs.StringVar(&format, "format", "du", "output format: du or json")
	fs.StringVar(&unitName, "units", "si", "size units: si, binary or bytes")
	fs.IntVar(&depth, "depth", -1, "reporting depth; -1 for unlimited")
	fs.StringVar(&strategy, "strategy", "pool", "scan strategy: pool, async or flat")
	fs.IntVar(&workers, "workers", 0, "number of scan workers")
	fs.BoolVar(&follow, "follow", true, "follow symbolic links")
	fs.BoolVar(&opts.browse, "browse", false, "open the interactive viewer")
	fs.BoolVar(&opts.save, "save", false, "save a snapshot of the scanned tree")
	fs.StringVar(&opts.load, "load", "", "browse a saved snapshot `file`")
	fs.BoolVar(&record, "record", false, "record this scan in the history database (viewer scans always are)")
	fs.BoolVar(&opts.history, "history", false, "list recorded scans")
	fs.StringVar(&opts.configPath, "config", "", "configuration `file` (default "+config.DefaultPath()+")")
	fs.BoolVar(&opts.showVer, "version", false, "print the version")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	path, required := opts.configPath, true
	if path == "" {
		path, required = config.DefaultPath(), false
	}
	cfg, err := config.Load(path, required)
	if err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "format":
			cfg.Format = format
		case "units":
			cfg.Units = unitName
		case "depth":
			cfg.MaxDepth = depth
		case "strategy":
			cfg.Strategy = strategy
		case "workers":
			cfg.Workers = workers
		case "follow":
			cfg.FollowLinks = follow
		case "record":
			cfg.RecordHistory = record
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts.cfg = cfg
	opts.format, _ = report.ParseFormat(cfg.Format)
	opts.units, _ = units.ParseMode(cfg.Units)
	opts.scanOpts, _ = cfg.ScanOptions()

	switch {
	case fs.NArg() == 1:
		opts.root = fs.Arg(0)
	case fs.NArg() == 0 && (opts.history || opts.load != "" || opts.showVer):
	default:
		fs.Usage()
		return nil, fmt.Errorf("expected exactly one directory, got %d arguments", fs.NArg())
	}
	return &opts, nil
}

// printScan streams the scan to stdout in the selected format
func printScan(ctx context.Context, opts *options, stdout io.Writer) error {
	sess, err := scanner.New(opts.scanOpts).Scan(ctx, opts.root)
	if err != nil {
		return err
	}
	started := time.Now()

	w := report.New(opts.format, stdout, sess, opts.units)
	var tree *core.Tree
	if opts.save {
		tree = core.NewTree()
		w = &treeWriter{Writer: w, tree: tree}
	}

	copyErr := report.Copy(ctx, w, sess.Events)
	if copyErr != nil {
		// Drain the producers before reporting
		sess.Events.Drop()
	}
	totals, scanErr := sess.Wait()
	if opts.cfg.RecordHistory {
		recordRun(opts, sess, started, totals, scanErr)
	}

	if copyErr != nil && !errors.Is(copyErr, context.Canceled) {
		return copyErr
	}
	if scanErr != nil {
		return scanErr
	}
	if tree != nil {
		return saveSnapshot(opts, sess.RootPath, tree, sess)
	}
	return nil
}

// treeWriter rebuilds the tree from the events it forwards so a snapshot can
// be saved without the viewer
type treeWriter struct {
	report.Writer
	tree *core.Tree
}

func (t *treeWriter) Write(ev event.Event) error {
	t.tree.Apply(ev)
	return t.Writer.Write(ev)
}

// browseScan runs the scan behind the interactive viewer
func browseScan(ctx context.Context, opts *options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess, err := scanner.New(opts.scanOpts).Scan(ctx, opts.root)
	if err != nil {
		return err
	}
	started := time.Now()

	ctrl := core.NewController(opts.units)
	type result struct {
		totals scanner.Totals
		err    error
	}
	done := make(chan result, 1)
	go func() {
		totals, err := ctrl.Run(ctx, sess)
		done <- result{totals, err}
	}()

	p := tea.NewProgram(
		tui.NewApp(ctrl, version, opts.units),
		tea.WithAltScreen(),
	)
	_, uiErr := p.Run()

	// Quitting early cancels the scan
	cancel()
	res := <-done
	recordRun(opts, sess, started, res.totals, res.err)

	if uiErr != nil {
		return uiErr
	}
	if opts.save && res.err == nil {
		var saveErr error
		ctrl.WithTree(func(t *core.Tree, r event.Resolver) {
			saveErr = saveSnapshot(opts, sess.RootPath, t, r)
		})
		return saveErr
	}
	return nil
}

// browseSnapshot opens the viewer on a saved tree
func browseSnapshot(opts *options) error {
	loaded, err := cache.Load(config.ExpandPath(opts.load))
	if err != nil {
		return fmt.Errorf("load snapshot %s: %w", opts.load, err)
	}
	logging.Debug.WithFields(logrus.Fields{
		"root":    loaded.Root,
		"created": loaded.Created,
	}).Debug("main: browsing snapshot")

	ctrl := core.NewControllerFromTree(loaded.Tree, loaded.Paths, loaded.Root, opts.units)
	p := tea.NewProgram(
		tui.NewApp(ctrl, version, opts.units),
		tea.WithAltScreen(),
	)
	_, err = p.Run()
	return err
}

func saveSnapshot(opts *options, root string, tree *core.Tree, r event.Resolver) error {
	path, err := cache.New(opts.cfg.CacheDir).Save(root, tree, r)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Snapshot saved to %s\n", path)
	return nil
}

// recordRun appends the scan to the history database. History is best
// effort and never fails the command. Plain du/json runs only record when
// asked to.
func recordRun(opts *options, sess *scanner.Session, started time.Time, totals scanner.Totals, scanErr error) {
	logger := logging.Debug.WithField("db", opts.cfg.HistoryDB)

	store, err := history.Open(opts.cfg.HistoryDB)
	if err != nil {
		logger.WithError(err).Warn("main: history unavailable")
		return
	}
	defer store.Close()

	run := &history.Run{
		Root:      sess.RootPath,
		Strategy:  opts.scanOpts.Strategy.String(),
		StartedAt: started,
		Duration:  time.Since(started),
		Files:     totals.Files,
		Bytes:     totals.Size,
		Errors:    sess.Progress().Errors,
		Cancelled: scanErr != nil,
	}
	if err := store.Record(run); err != nil {
		logger.WithError(err).Warn("main: could not record run")
	}
}

// listHistory prints recorded runs, newest first
func listHistory(opts *options, stdout io.Writer) error {
	store, err := history.Open(opts.cfg.HistoryDB)
	if err != nil {
		return err
	}
	defer store.Close()

	root := opts.root
	if root != "" {
		root = config.ExpandPath(root)
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
	}
	runs, err := store.List(root, 20)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "No scans recorded")
		return nil
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tROOT\tSTRATEGY\tFILES\tSIZE\tTOOK\tERRORS")
	for _, r := range runs {
		when := humanize.Time(r.StartedAt)
		if r.Cancelled {
			when += " (cancelled)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			when,
			r.Root,
			r.Strategy,
			humanize.Comma(int64(r.Files)),
			units.Format(r.Bytes, opts.units),
			r.Duration.Round(time.Millisecond),
			r.Errors,
		)
	}
	return tw.Flush()
}
