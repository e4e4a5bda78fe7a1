package georef

import (
	"fmt"
)

// CoveragePolicy decides what happens to a point outside the pose time span.
type CoveragePolicy string

const (
	// CoverageSkip drops the point and counts it.
	CoverageSkip CoveragePolicy = "skip"
	// CoveragePassthrough emits the point with its raw position and a zero correction.
	CoveragePassthrough CoveragePolicy = "passthrough"
	// CoverageStop ends the pass at the first uncovered point.
	CoverageStop CoveragePolicy = "stop"
)

// MonotonicPolicy decides what happens to a point whose timestamp is earlier
// than its predecessor's.
type MonotonicPolicy string

const (
	MonotonicFail MonotonicPolicy = "fail"
	MonotonicSkip MonotonicPolicy = "skip"
)

// OutputMode selects how the corrected record carries the correction.
type OutputMode string

const (
	// OutputDelta writes the raw position with n = reference - raw. x, y, z
	// are therefore not the corrected position; a consumer obtains it as
	// x+nx, y+ny, z+nz. Use OutputAbsolute to store it directly.
	OutputDelta OutputMode = "delta"
	// OutputAbsolute writes the reference position with n = reference - raw.
	OutputAbsolute OutputMode = "absolute"
	// OutputRaw writes the raw position with n = 0.
	OutputRaw OutputMode = "raw"
)

// Options configures a Synchronizer. The zero value selects the defaults.
type Options struct {
	OutOfCoverage CoveragePolicy
	NonMonotonic  MonotonicPolicy
	Mode          OutputMode
}

// DefaultOptions returns skip / fail / delta.
func DefaultOptions() Options {
	return Options{
		OutOfCoverage: CoverageSkip,
		NonMonotonic:  MonotonicFail,
		Mode:          OutputDelta,
	}
}

// withDefaults fills empty fields and rejects unknown values.
func (o Options) withDefaults() (Options, error) {
	d := DefaultOptions()
	if o.OutOfCoverage == "" {
		o.OutOfCoverage = d.OutOfCoverage
	}
	if o.NonMonotonic == "" {
		o.NonMonotonic = d.NonMonotonic
	}
	if o.Mode == "" {
		o.Mode = d.Mode
	}

	switch o.OutOfCoverage {
	case CoverageSkip, CoveragePassthrough, CoverageStop:
	default:
		return o, fmt.Errorf("unknown out-of-coverage policy %q", o.OutOfCoverage)
	}
	switch o.NonMonotonic {
	case MonotonicFail, MonotonicSkip:
	default:
		return o, fmt.Errorf("unknown non-monotonic policy %q", o.NonMonotonic)
	}
	switch o.Mode {
	case OutputDelta, OutputAbsolute, OutputRaw:
	default:
		return o, fmt.Errorf("unknown output mode %q", o.Mode)
	}
	return o, nil
}
