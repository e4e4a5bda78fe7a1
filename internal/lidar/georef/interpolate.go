package georef

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/georef/internal/lidar/lidarerr"
	"github.com/banshee-data/georef/internal/lidar/trajectory"
)

// Interpolate returns the rig position at time t between poses a and b.
//
// A t equal to either endpoint returns that pose's position exactly with no
// arithmetic. Otherwise a and b must have distinct timestamps. t is not
// required to lie between them; callers bracket it first.
func Interpolate(a, b trajectory.Pose, t float64) (r3.Vec, error) {
	switch {
	case t == a.Time:
		return a.Position(), nil
	case t == b.Time:
		return b.Position(), nil
	case a.Time == b.Time:
		return r3.Vec{}, lidarerr.New(lidarerr.KindDegeneratePoseInterval, "interpolate",
			fmt.Errorf("poses share time %v, point at %v", a.Time, t))
	}

	f := (t - a.Time) / (b.Time - a.Time)
	pa := a.Position()
	return r3.Add(pa, r3.Scale(f, r3.Sub(b.Position(), pa))), nil
}
