package trajectory

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/georef/internal/lidar/lidarerr"
)

// Series is an immutable, time-ordered sequence of poses.
type Series struct {
	poses []Pose
}

// NewSeries validates that poses are in non-decreasing time order and takes
// ownership of the slice. Equal adjacent timestamps are allowed here; they
// only become an error if a point falls inside the zero-length interval.
func NewSeries(poses []Pose) (*Series, error) {
	for i := 1; i < len(poses); i++ {
		if poses[i].Time < poses[i-1].Time {
			return nil, lidarerr.At(lidarerr.KindNonMonotonicInput, "build pose series", int64(i),
				fmt.Errorf("pose time %v precedes %v", poses[i].Time, poses[i-1].Time))
		}
	}
	return &Series{poses: poses}, nil
}

// Len returns the number of poses.
func (s *Series) Len() int { return len(s.poses) }

// At returns the pose at index i. It panics if i is out of range.
func (s *Series) At(i int) Pose { return s.poses[i] }

// First returns the earliest pose. It panics on an empty series.
func (s *Series) First() Pose { return s.poses[0] }

// Last returns the latest pose. It panics on an empty series.
func (s *Series) Last() Pose { return s.poses[len(s.poses)-1] }

// Poses returns a copy of the underlying poses.
func (s *Series) Poses() []Pose { return slices.Clone(s.poses) }

// Span returns the covered time range in seconds, or 0 for fewer than two poses.
func (s *Series) Span() float64 {
	if len(s.poses) < 2 {
		return 0
	}
	return s.Last().Time - s.First().Time
}

// MedianInterval returns the median spacing between consecutive poses, or 0
// for fewer than two poses.
func (s *Series) MedianInterval() float64 {
	if len(s.poses) < 2 {
		return 0
	}
	gaps := make([]float64, len(s.poses)-1)
	for i := range gaps {
		gaps[i] = s.poses[i+1].Time - s.poses[i].Time
	}
	slices.Sort(gaps)
	return stat.Quantile(0.5, stat.Empirical, gaps, nil)
}

// DuplicateTimes returns the indices i for which pose i+1 shares pose i's
// timestamp.
func (s *Series) DuplicateTimes() []int {
	var dups []int
	for i := 0; i+1 < len(s.poses); i++ {
		if s.poses[i+1].Time == s.poses[i].Time {
			dups = append(dups, i)
		}
	}
	return dups
}
