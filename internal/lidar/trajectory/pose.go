// Package trajectory loads and queries the time-ordered pose series that
// describes where the sensor rig was while points were captured.
package trajectory

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// QuaternionNormTolerance is how far |q| may stray from 1 before a pose's
// orientation is reported as non-unit.
const QuaternionNormTolerance = 0.01

// Pose is the rig position and orientation at one instant.
// Orientation is carried through for completeness and is not interpolated.
type Pose struct {
	Time           float64
	X, Y, Z        float64
	QW, QX, QY, QZ float64
}

// Position returns the pose's translation as a vector.
func (p Pose) Position() r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// Finite reports whether the time and position are all finite.
func (p Pose) Finite() bool {
	for _, v := range []float64{p.Time, p.X, p.Y, p.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Issues returns human-readable problems with p. An empty result means the
// pose is usable.
func (p Pose) Issues() []string {
	var issues []string
	if !p.Finite() {
		issues = append(issues, "time or position is not finite")
	}
	norm := math.Sqrt(p.QW*p.QW + p.QX*p.QX + p.QY*p.QY + p.QZ*p.QZ)
	if math.Abs(norm-1) > QuaternionNormTolerance {
		issues = append(issues, fmt.Sprintf("orientation quaternion has norm %.4f", norm))
	}
	return issues
}
