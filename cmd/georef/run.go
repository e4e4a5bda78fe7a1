package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/banshee-data/georef/internal/config"
	"github.com/banshee-data/georef/internal/fsutil"
	"github.com/banshee-data/georef/internal/lidar/georef"
	"github.com/banshee-data/georef/internal/lidar/lidarerr"
	"github.com/banshee-data/georef/internal/lidar/ply"
	"github.com/banshee-data/georef/internal/lidar/trajectory"
	"github.com/banshee-data/georef/internal/monitoring"
	"github.com/banshee-data/georef/internal/report"
	"github.com/banshee-data/georef/internal/rundb"
	"github.com/banshee-data/georef/internal/timeutil"
)

// Exit codes.
const (
	exitFailure  = 1
	exitUsage    = 2
	exitCoverage = 3
	exitInput    = 4
)

var errUsage = errors.New("usage error")

func exitCode(err error) int {
	switch {
	case errors.Is(err, errUsage):
		return exitUsage
	case errors.Is(err, lidarerr.ErrCoverageViolation):
		return exitCoverage
	case errors.Is(err, lidarerr.ErrMalformedHeader),
		errors.Is(err, lidarerr.ErrTruncatedRecord),
		errors.Is(err, lidarerr.ErrNonMonotonicInput),
		errors.Is(err, lidarerr.ErrDegeneratePoseInterval):
		return exitInput
	}
	return exitFailure
}

// runFlags are the flags shared by run and check.
type runFlags struct {
	points, poses, out string
	configPath         string
	outOfCoverage      string
	nonMonotonic       string
	mode               string
	compression        string
	header             bool
	plotDir            string
	runDB              string
	debug              bool
}

func (f *runFlags) register(fs *flag.FlagSet, withOutput bool) {
	fs.StringVar(&f.points, "points", "", "Input PLY point file (required)")
	fs.StringVar(&f.poses, "poses", "", "Input pose text file (required)")
	fs.StringVar(&f.configPath, "config", "", "JSON or YAML configuration file")
	fs.BoolVar(&f.debug, "debug", false, "Log header and probe details to stderr")
	if !withOutput {
		return
	}
	fs.StringVar(&f.out, "out", "", "Output file (required)")
	fs.StringVar(&f.outOfCoverage, "out-of-coverage", "", "Out-of-coverage policy: skip | passthrough | stop")
	fs.StringVar(&f.nonMonotonic, "non-monotonic", "", "Non-monotonic point policy: fail | skip")
	fs.StringVar(&f.mode, "mode", "", "Output mode: delta | absolute | raw")
	fs.StringVar(&f.compression, "compression", "", "Output compression: none | zstd | lz4")
	fs.BoolVar(&f.header, "header", false, "Prefix the output with a PLY header")
	fs.StringVar(&f.plotDir, "plot-dir", "", "Directory for PNG and HTML plots")
	fs.StringVar(&f.runDB, "run-db", "", "SQLite run ledger path")
}

// loadConfig reads the config file, if any, and layers flags on top.
func (f *runFlags) loadConfig(fsys fsutil.FileSystem, fs *flag.FlagSet) (*config.GeorefConfig, error) {
	cfg := config.EmptyConfig()
	if f.configPath != "" {
		var err error
		cfg, err = config.LoadConfig(fsys, f.configPath)
		if err != nil {
			return nil, err
		}
	}

	config.SetString(&cfg.OutOfCoverage, f.outOfCoverage)
	config.SetString(&cfg.NonMonotonic, f.nonMonotonic)
	config.SetString(&cfg.OutputMode, f.mode)
	config.SetString(&cfg.Compression, f.compression)
	config.SetString(&cfg.PlotDir, f.plotDir)
	config.SetString(&cfg.RunDB, f.runDB)
	fs.Visit(func(fl *flag.Flag) {
		if fl.Name == "header" {
			cfg.WriteHeader = &f.header
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	return cfg, nil
}

func newPipeline(fsys fsutil.FileSystem, clock timeutil.Clock, cfg *config.GeorefConfig) *georef.Pipeline {
	return &georef.Pipeline{
		FS:    fsys,
		Clock: clock,
		Options: georef.Options{
			OutOfCoverage: georef.CoveragePolicy(cfg.GetOutOfCoverage()),
			NonMonotonic:  georef.MonotonicPolicy(cfg.GetNonMonotonic()),
			Mode:          georef.OutputMode(cfg.GetOutputMode()),
		},
		ProbeCount:       int64(cfg.GetProbeCount()),
		PoseSkipLines:    trajectory.Skip(cfg.GetPoseSkipLines()),
		WriteHeader:      cfg.GetWriteHeader(),
		Compression:      cfg.GetCompression(),
		ProgressEvery:    cfg.GetProgressEvery(),
		ProgressInterval: cfg.GetProgressInterval(),
		SampleEvery:      cfg.GetSampleEvery(),
	}
}

func handleRun(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	var f runFlags
	f.register(fs, true)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if f.points == "" || f.poses == "" || f.out == "" {
		fs.Usage()
		return fmt.Errorf("%w: --points, --poses and --out are required", errUsage)
	}
	if f.debug {
		ply.SetDebugLogger(os.Stderr)
	}

	fsys := fsutil.OSFileSystem{}
	cfg, err := f.loadConfig(fsys, fs)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return runPipeline(ctx, fsys, timeutil.RealClock{}, cfg,
		georef.Inputs{Points: f.points, Poses: f.poses, Output: f.out}, stdout)
}

// runPipeline executes one run, records it in the ledger when configured and
// writes plots when requested.
func runPipeline(ctx context.Context, fsys fsutil.FileSystem, clock timeutil.Clock, cfg *config.GeorefConfig, in georef.Inputs, stdout io.Writer) error {
	p := newPipeline(fsys, clock, cfg)
	if codec := ply.CodecForPath(in.Output); codec != p.Compression {
		monitoring.Warnf("%s: extension implies %s compression but %s is configured", in.Output, codec, p.Compression)
	}

	var ledger *runLedger
	if path := cfg.GetRunDB(); path != "" {
		var err error
		ledger, err = openLedger(path, clock, cfg, in)
		if err != nil {
			return err
		}
		defer ledger.Close()
	}

	res, runErr := p.Run(ctx, in)
	if ledger != nil {
		if err := ledger.finish(res, runErr); err != nil {
			monitoring.Warnf("run ledger: %v", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	if dir := cfg.GetPlotDir(); dir != "" {
		series := res.Poses.Series
		paths, err := report.WritePlots(fsys, dir, series, res.Samples)
		if err != nil {
			monitoring.Warnf("plots: %v", err)
		}
		html, err := report.WriteHTMLFile(fsys, dir, series, res.Samples, res.Summary, report.HTMLOptions{Title: "georef " + in.Output})
		if err != nil {
			monitoring.Warnf("html report: %v", err)
		} else {
			paths = append(paths, html)
		}
		for _, path := range paths {
			fmt.Fprintf(stdout, "plot: %s\n", path)
		}
	}

	fmt.Fprintf(stdout, "wrote %d records to %s (%d bytes, xxh64 %016x)\n",
		res.Stats.Written, in.Output, res.Bytes, res.Digest)
	if n := res.Stats.Skipped(); n > 0 {
		fmt.Fprintf(stdout, "skipped %d points (%d out of coverage, %d out of order)\n",
			n, res.Stats.SkippedCoverage, res.Stats.SkippedNonMonotonic)
	}
	if res.Stats.Stopped {
		fmt.Fprintf(stdout, "stopped at record %d: no pose brackets it\n", res.Stats.StoppedAt)
	}
	return nil
}

func handleCheck(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	var f runFlags
	f.register(fs, false)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if f.points == "" || f.poses == "" {
		fs.Usage()
		return fmt.Errorf("%w: --points and --poses are required", errUsage)
	}
	if f.debug {
		ply.SetDebugLogger(os.Stderr)
	}

	fsys := fsutil.OSFileSystem{}
	cfg, err := f.loadConfig(fsys, fs)
	if err != nil {
		return err
	}
	return checkCoverage(context.Background(), fsys, cfg, georef.Inputs{Points: f.points, Poses: f.poses}, stdout)
}

func checkCoverage(ctx context.Context, fsys fsutil.FileSystem, cfg *config.GeorefConfig, in georef.Inputs, stdout io.Writer) error {
	res, err := newPipeline(fsys, timeutil.RealClock{}, cfg).Prepare(ctx, in)
	if err != nil {
		return err
	}
	series := res.Poses.Series
	fmt.Fprintf(stdout, "points: %s, t=[%.6f, %.6f]\n", res.Consistency, res.Span.First, res.Span.Last)
	fmt.Fprintf(stdout, "poses:  %d (%d lines skipped), t=[%.6f, %.6f]\n",
		series.Len(), len(res.Poses.Skipped), series.First().Time, series.Last().Time)
	fmt.Fprintln(stdout, "coverage: ok")
	return nil
}

// runLedger ties a pipeline run to its rundb row.
type runLedger struct {
	db    *rundb.DB
	store *rundb.RunStore
	clock timeutil.Clock
	runID string
}

func openLedger(path string, clock timeutil.Clock, cfg *config.GeorefConfig, in georef.Inputs) (*runLedger, error) {
	db, err := rundb.Open(path)
	if err != nil {
		return nil, err
	}
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("encode config: %w", err)
	}

	store := rundb.NewRunStore(db.DB)
	run := &rundb.Run{
		PointsPath:  in.Points,
		PosesPath:   in.Poses,
		OutputPath:  in.Output,
		ConfigJSON:  cfgJSON,
		StartedAtNs: clock.Now().UnixNano(),
	}
	if err := store.InsertRun(run); err != nil {
		db.Close()
		return nil, err
	}
	monitoring.Logf("georef: run %s recorded in %s", run.RunID, path)
	return &runLedger{db: db, store: store, clock: clock, runID: run.RunID}, nil
}

func (l *runLedger) finish(res *georef.Result, runErr error) error {
	o := rundb.Outcome{
		Status:       rundb.StatusSucceeded,
		FinishedAtNs: l.clock.Now().UnixNano(),
	}
	if res != nil {
		if res.Header != nil {
			o.DeclaredPoints = res.Header.VertexCount
		}
		if res.Poses != nil {
			o.PoseCount = res.Poses.Series.Len()
			o.PoseLinesSkipped = len(res.Poses.Skipped)
		}
		o.PointsRead = res.Stats.Read
		o.RecordsWritten = res.Stats.Written
		o.PointsSkipped = res.Stats.Skipped()
		o.PointsPassthrough = res.Stats.Passthrough
	}
	if runErr != nil {
		o.Status = rundb.StatusFailed
		o.ErrorKind = lidarerr.KindOf(runErr).String()
		o.ErrorMessage = runErr.Error()
	} else {
		o.OutputBytes = res.Bytes
		o.OutputDigest = fmt.Sprintf("%016x", res.Digest)
		summary, err := json.Marshal(res.Summary)
		if err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}
		o.SummaryJSON = summary
	}
	return l.store.FinishRun(l.runID, o)
}

func (l *runLedger) Close() error { return l.db.Close() }
