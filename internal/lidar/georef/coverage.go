package georef

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/georef/internal/fsutil"
	"github.com/banshee-data/georef/internal/lidar/lidarerr"
	"github.com/banshee-data/georef/internal/lidar/ply"
	"github.com/banshee-data/georef/internal/lidar/trajectory"
)

// PointSpan is the time range of a point file as seen by the head and tail
// probes.
type PointSpan struct {
	First float64
	Last  float64
	Head  []ply.Point
	Tail  []ply.Point
}

// ValidateCoverage checks that poses span [first, last].
func ValidateCoverage(poses *trajectory.Series, first, last float64) error {
	if poses == nil || poses.Len() == 0 {
		return lidarerr.New(lidarerr.KindCoverageViolation, "validate coverage", fmt.Errorf("pose series is empty"))
	}
	if pf := poses.First().Time; !(pf <= first) {
		return lidarerr.New(lidarerr.KindCoverageViolation, "validate coverage",
			fmt.Errorf("first pose at %v is after first point at %v", pf, first))
	}
	if pl := poses.Last().Time; !(pl >= last) {
		return lidarerr.New(lidarerr.KindCoverageViolation, "validate coverage",
			fmt.Errorf("last pose at %v is before last point at %v", pl, last))
	}
	return nil
}

// ProbeCoverage reads up to k records from each end of the point file
// concurrently, each on its own file handle. First is the earliest head
// timestamp and Last the latest tail timestamp.
func ProbeCoverage(ctx context.Context, fsys fsutil.FileSystem, path string, h *ply.Header, k int64) (*PointSpan, error) {
	if k < 1 {
		k = 1
	}
	if h.VertexCount == 0 {
		return nil, lidarerr.New(lidarerr.KindMalformedHeader, "probe coverage",
			fmt.Errorf("%s declares no vertices", path))
	}

	span := &PointSpan{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		head, err := ply.ReadHead(fsys, path, h, k)
		if err != nil {
			return fmt.Errorf("head probe: %w", err)
		}
		span.Head = head
		return ctx.Err()
	})
	g.Go(func() error {
		tail, err := ply.ReadTail(fsys, path, h, k)
		if err != nil {
			return fmt.Errorf("tail probe: %w", err)
		}
		span.Tail = tail
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	span.First = span.Head[0].Time
	for _, p := range span.Head[1:] {
		span.First = min(span.First, p.Time)
	}
	span.Last = span.Tail[len(span.Tail)-1].Time
	for _, p := range span.Tail {
		span.Last = max(span.Last, p.Time)
	}
	return span, nil
}
