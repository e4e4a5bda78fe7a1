package georef

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/banshee-data/georef/internal/fsutil"
	"github.com/banshee-data/georef/internal/lidar/lidarerr"
	"github.com/banshee-data/georef/internal/lidar/ply"
	"github.com/banshee-data/georef/internal/lidar/trajectory"
	"github.com/banshee-data/georef/internal/monitoring"
	"github.com/banshee-data/georef/internal/timeutil"
)

const (
	partialSuffix = ".partial"
	bodySuffix    = ".body.partial"
)

// DefaultSampleEvery is the correction sampling stride used when
// Pipeline.SampleEvery is unset.
const DefaultSampleEvery = 1000

// Pipeline runs a complete correction pass from input files to an output file.
// The zero value is not usable; FS and Clock are required.
type Pipeline struct {
	FS    fsutil.FileSystem
	Clock timeutil.Clock

	Options Options
	// ProbeCount is how many records the coverage probes read from each end.
	ProbeCount int64
	// PoseSkipLines is passed to trajectory.Load; nil selects
	// trajectory.DefaultSkipLines.
	PoseSkipLines *int
	// WriteHeader prefixes the output with a PLY header.
	WriteHeader bool
	// Compression is one of the ply codec names.
	Compression string

	ProgressEvery    int64
	ProgressInterval time.Duration
	// SampleEvery retains one correction in every SampleEvery for the summary.
	// Zero selects DefaultSampleEvery.
	SampleEvery int64

	// Observer, if set, receives events alongside the built-in observers.
	Observer Observer
}

// Inputs names the files of one run.
type Inputs struct {
	Points string
	Poses  string
	Output string
}

// Result describes a finished run.
type Result struct {
	Header      *ply.Header
	Consistency ply.Consistency
	Poses       *trajectory.LoadResult
	Span        *PointSpan
	Stats       Stats
	Summary     Summary
	Samples     []Sample
	// Digest is the xxhash64 of the output file bytes as written.
	Digest uint64
	Bytes  int64

	Started  time.Time
	Finished time.Time
}

// Prepare runs every check that precedes output: header parsing, pose
// loading and the coverage probe. It creates no files.
func (p *Pipeline) Prepare(ctx context.Context, in Inputs) (*Result, error) {
	res := &Result{Started: p.Clock.Now()}

	hdr, err := ply.ReadHeaderFile(p.FS, in.Points)
	if err != nil {
		return res, err
	}
	if hdr.VertexCount == 0 {
		return res, lidarerr.New(lidarerr.KindMalformedHeader, "read header",
			fmt.Errorf("%s: vertex count is missing, zero or unparseable", in.Points))
	}
	for _, issue := range hdr.Validate() {
		monitoring.Warnf("%s: %s", in.Points, issue)
	}
	res.Header = hdr

	c, err := ply.CheckConsistency(p.FS, in.Points, hdr)
	if err != nil {
		return res, err
	}
	if !c.OK() {
		monitoring.Warnf("%s: %s", in.Points, c)
	}
	res.Consistency = c

	loaded, err := trajectory.LoadFile(p.FS, in.Poses, trajectory.LoadOptions{SkipLines: p.PoseSkipLines})
	if err != nil {
		return res, err
	}
	res.Poses = loaded
	series := loaded.Series
	if len(loaded.Skipped) > 0 {
		monitoring.Warnf("%s: skipped %d malformed pose lines", in.Poses, len(loaded.Skipped))
	}
	if dups := series.DuplicateTimes(); len(dups) > 0 {
		monitoring.Warnf("%s: %d pose pairs share a timestamp", in.Poses, len(dups))
	}
	monitoring.Logf("georef: %d poses over %.3fs, median interval %.4fs", series.Len(), series.Span(), series.MedianInterval())

	span, err := ProbeCoverage(ctx, p.FS, in.Points, hdr, p.ProbeCount)
	if err != nil {
		return res, err
	}
	res.Span = span
	if err := ValidateCoverage(series, span.First, span.Last); err != nil {
		return res, err
	}
	return res, nil
}

// Run executes Prepare and then the synchronisation pass. On any error the
// output path is left untouched and temporary files are removed.
func (p *Pipeline) Run(ctx context.Context, in Inputs) (*Result, error) {
	res, err := p.Prepare(ctx, in)
	if err != nil {
		res.Finished = p.Clock.Now()
		return res, err
	}

	every := p.SampleEvery
	if every <= 0 {
		every = DefaultSampleEvery
	}
	sampler := NewCorrectionSampler(every)
	obs := Observers(
		NewLogObserver(p.Clock, p.ProgressEvery, p.ProgressInterval),
		sampler,
		p.Observer,
	)
	syncer, err := NewSynchronizer(res.Poses.Series, p.Options, obs)
	if err != nil {
		res.Finished = p.Clock.Now()
		return res, err
	}

	err = p.emit(ctx, in, res, syncer)
	res.Finished = p.Clock.Now()
	if err != nil {
		return res, err
	}

	res.Samples = sampler.Samples()
	res.Summary = Summarize(res.Samples)
	monitoring.Logf("georef: wrote %d records to %s (%d skipped, %d passthrough) in %s",
		res.Stats.Written, in.Output, res.Stats.Skipped(), res.Stats.Passthrough, res.Finished.Sub(res.Started))
	monitoring.Logf("georef: %s", res.Summary)
	return res, nil
}

func (p *Pipeline) emit(ctx context.Context, in Inputs, res *Result, syncer *Synchronizer) (err error) {
	tmp := in.Output + partialSuffix
	body := in.Output + bodySuffix
	defer func() {
		if err != nil {
			p.FS.Remove(tmp)
			p.FS.Remove(body)
		}
	}()

	scanner, err := ply.OpenScanner(p.FS, in.Points, res.Header)
	if err != nil {
		return err
	}
	defer scanner.Close()

	pass := func(w io.Writer) error {
		rw := ply.NewWriter(w)
		stats, err := syncer.Run(ctx, scanner, rw)
		res.Stats = stats
		if err != nil {
			return err
		}
		if err := rw.Flush(); err != nil {
			return err
		}
		if rw.Count() != stats.Written {
			return lidarerr.New(lidarerr.KindWriteFailure, "write records",
				fmt.Errorf("writer accepted %d records, synchronizer emitted %d", rw.Count(), stats.Written))
		}
		return nil
	}

	if !p.WriteHeader {
		res.Digest, res.Bytes, err = p.writeFile(tmp, p.Compression, pass)
		if err != nil {
			return err
		}
		return p.commit(tmp, in.Output)
	}

	// The header carries the record count, which is known only after the pass.
	if _, _, err = p.writeFile(body, ply.CodecNone, pass); err != nil {
		return err
	}
	res.Digest, res.Bytes, err = p.writeFile(tmp, p.Compression, func(w io.Writer) error {
		if err := ply.WriteOutputHeader(w, res.Stats.Written, "georef corrected points", "source "+in.Points); err != nil {
			return err
		}
		f, err := p.FS.Open(body)
		if err != nil {
			return lidarerr.New(lidarerr.KindIOFailure, "reopen body", err)
		}
		defer f.Close()
		if _, err := io.Copy(w, f); err != nil {
			return lidarerr.New(lidarerr.KindWriteFailure, "copy body", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := p.FS.Remove(body); err != nil {
		monitoring.Warnf("removing %s: %v", body, err)
	}
	return p.commit(tmp, in.Output)
}

// writeFile creates path, runs fill against a compressing, hashing writer and
// closes everything. It returns the digest and size of the bytes on disk.
func (p *Pipeline) writeFile(path, codec string, fill func(io.Writer) error) (uint64, int64, error) {
	f, err := p.FS.Create(path)
	if err != nil {
		return 0, 0, lidarerr.New(lidarerr.KindWriteFailure, "create output", err)
	}

	digest := xxhash.New()
	cw := &countingWriter{w: io.MultiWriter(f, digest)}
	zw, err := ply.NewCompressor(cw, codec)
	if err != nil {
		f.Close()
		return 0, 0, err
	}

	err = fill(zw)
	if cerr := zw.Close(); err == nil && cerr != nil {
		err = lidarerr.New(lidarerr.KindWriteFailure, "close compressor", cerr)
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = lidarerr.New(lidarerr.KindWriteFailure, "close output", cerr)
	}
	if err != nil {
		return 0, 0, err
	}
	return digest.Sum64(), cw.n, nil
}

func (p *Pipeline) commit(tmp, dst string) error {
	if err := p.FS.Rename(tmp, dst); err != nil {
		return lidarerr.New(lidarerr.KindWriteFailure, "rename output", err)
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += int64(n)
	return n, err
}
