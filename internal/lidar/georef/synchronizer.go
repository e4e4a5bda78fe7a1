package georef

import (
	"context"
	"fmt"
	"math"

	"github.com/banshee-data/georef/internal/lidar/lidarerr"
	"github.com/banshee-data/georef/internal/lidar/ply"
	"github.com/banshee-data/georef/internal/lidar/trajectory"
)

// ctxCheckMask controls how often Run polls its context.
const ctxCheckMask = 4096 - 1

// PointSource yields points in storage order. *ply.Scanner satisfies it.
type PointSource interface {
	Scan() bool
	Point() ply.Point
	Err() error
}

// RecordSink accepts corrected records. *ply.Writer satisfies it.
type RecordSink interface {
	Write(ply.CorrectedPoint) error
}

// Stats counts what a synchronisation pass did with its input.
type Stats struct {
	Read                int64 `json:"read"`
	Written             int64 `json:"written"`
	Passthrough         int64 `json:"passthrough"`
	SkippedCoverage     int64 `json:"skipped_coverage"`
	SkippedNonMonotonic int64 `json:"skipped_non_monotonic"`
	Advances            int64 `json:"advances"`
	// Stopped is set when the stop policy ended the pass early at StoppedAt.
	Stopped   bool  `json:"stopped"`
	StoppedAt int64 `json:"stopped_at"`
}

// Skipped returns the total number of dropped points.
func (s Stats) Skipped() int64 { return s.SkippedCoverage + s.SkippedNonMonotonic }

// Synchronizer walks a point stream against a pose series in one forward
// pass. It is not safe for concurrent use and cannot be rewound.
type Synchronizer struct {
	poses *trajectory.Series
	opts  Options
	obs   Observer

	cursor  int
	prev    float64
	started bool
	next    int64
	stats   Stats
}

// NewSynchronizer returns a Synchronizer positioned on the first pose pair.
// The series must hold at least two poses. A nil obs is allowed.
func NewSynchronizer(poses *trajectory.Series, opts Options, obs Observer) (*Synchronizer, error) {
	if poses == nil || poses.Len() < 2 {
		n := 0
		if poses != nil {
			n = poses.Len()
		}
		return nil, lidarerr.New(lidarerr.KindCoverageViolation, "new synchronizer",
			fmt.Errorf("need at least 2 poses to bracket points, have %d", n))
	}
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	if obs == nil {
		obs = NopObserver{}
	}
	return &Synchronizer{poses: poses, opts: opts, obs: obs}, nil
}

// Cursor returns the index i of the current bracket (pose[i], pose[i+1]).
func (s *Synchronizer) Cursor() int { return s.cursor }

// Stats returns the counters accumulated so far.
func (s *Synchronizer) Stats() Stats { return s.stats }

// Done reports whether the stop policy has ended the pass.
func (s *Synchronizer) Done() bool { return s.stats.Stopped }

// Process consumes the next point in storage order. ok is false when the
// point produced no record, either because a policy dropped it or because
// the pass has stopped.
func (s *Synchronizer) Process(p ply.Point) (cp ply.CorrectedPoint, ok bool, err error) {
	if s.stats.Stopped {
		return cp, false, nil
	}
	idx := s.next
	s.next++
	s.stats.Read++

	if s.started && p.Time < s.prev {
		if s.opts.NonMonotonic == MonotonicSkip {
			s.stats.SkippedNonMonotonic++
			s.obs.OnSkip(idx, p, SkipNonMonotonic)
			return cp, false, nil
		}
		return cp, false, lidarerr.At(lidarerr.KindNonMonotonicInput, "synchronize", idx,
			fmt.Errorf("point time %v precedes %v", p.Time, s.prev))
	}
	if !math.IsNaN(p.Time) {
		s.prev = p.Time
		s.started = true
	}

	last := s.poses.Len() - 1
	for s.cursor+1 < last && p.Time > s.poses.At(s.cursor+1).Time {
		s.cursor++
		s.stats.Advances++
		s.obs.OnAdvance(s.cursor, s.poses.At(s.cursor))
	}
	a, b := s.poses.At(s.cursor), s.poses.At(s.cursor+1)

	if math.IsNaN(p.Time) || p.Time > b.Time {
		return s.outOfCoverage(idx, p)
	}
	ref, err := Interpolate(a, b, p.Time)
	if err != nil {
		return cp, false, lidarerr.At(lidarerr.KindDegeneratePoseInterval, "synchronize", idx,
			fmt.Errorf("bracket %d: %w", s.cursor, err))
	}
	// Only reachable on the first bracket.
	if p.Time < a.Time {
		return s.outOfCoverage(idx, p)
	}

	cp = s.correct(p, ref.X, ref.Y, ref.Z)
	s.stats.Written++
	s.obs.OnRecord(idx, p, cp)
	return cp, true, nil
}

func (s *Synchronizer) outOfCoverage(idx int64, p ply.Point) (ply.CorrectedPoint, bool, error) {
	switch s.opts.OutOfCoverage {
	case CoveragePassthrough:
		cp := p.Passthrough()
		s.stats.Passthrough++
		s.stats.Written++
		s.obs.OnRecord(idx, p, cp)
		return cp, true, nil
	case CoverageStop:
		s.stats.Stopped = true
		s.stats.StoppedAt = idx
		return ply.CorrectedPoint{}, false, nil
	default:
		s.stats.SkippedCoverage++
		s.obs.OnSkip(idx, p, SkipOutOfCoverage)
		return ply.CorrectedPoint{}, false, nil
	}
}

func (s *Synchronizer) correct(p ply.Point, rx, ry, rz float64) ply.CorrectedPoint {
	cp := p.Passthrough()
	switch s.opts.Mode {
	case OutputRaw:
	case OutputAbsolute:
		cp.X, cp.Y, cp.Z = rx, ry, rz
		cp.NX, cp.NY, cp.NZ = rx-p.X, ry-p.Y, rz-p.Z
	default:
		cp.NX, cp.NY, cp.NZ = rx-p.X, ry-p.Y, rz-p.Z
	}
	return cp
}

// Run pulls every point from src through Process and writes emitted records
// to sink. It returns early with ctx.Err() when ctx is cancelled, and stops
// reading src once the stop policy fires.
func (s *Synchronizer) Run(ctx context.Context, src PointSource, sink RecordSink) (Stats, error) {
	for n := 0; src.Scan(); n++ {
		if n&ctxCheckMask == 0 {
			if err := ctx.Err(); err != nil {
				return s.stats, err
			}
		}
		cp, ok, err := s.Process(src.Point())
		if err != nil {
			return s.stats, err
		}
		if s.stats.Stopped {
			break
		}
		if !ok {
			continue
		}
		if err := sink.Write(cp); err != nil {
			return s.stats, err
		}
	}
	if err := src.Err(); err != nil {
		return s.stats, err
	}
	return s.stats, nil
}
