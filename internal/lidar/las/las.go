// Package las summarises LAS point cloud files so they can be sized up
// before conversion to the PLY layout the georef pipeline consumes.
package las

import (
	"fmt"
	"math"

	"github.com/edaniels/lidario"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/georef/internal/lidar/lidarerr"
)

// Summary describes a LAS file.
type Summary struct {
	Version     string
	PointFormat byte
	// Declared is the point count from the public header block.
	Declared int
	// Readable is how many point records decoded before the first failure.
	Readable int
	// Min and Max bound the decoded points.
	Min, Max r3.Vec
}

// Inspect opens the LAS file at path and decodes every declared point.
// A point that fails to decode ends the walk with a TruncatedRecord error;
// the returned Summary still describes what was read.
func Inspect(path string) (*Summary, error) {
	lf, err := lidario.NewLasFile(path, "r")
	if err != nil {
		return nil, lidarerr.New(lidarerr.KindIOFailure, "open las file", err)
	}
	defer lf.Close()

	s := &Summary{
		Version:     fmt.Sprintf("%d.%d", lf.Header.VersionMajor, lf.Header.VersionMinor),
		PointFormat: lf.Header.PointFormatID,
		Declared:    lf.Header.NumberPoints,
		Min:         r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)},
		Max:         r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)},
	}
	for i := 0; i < s.Declared; i++ {
		p, err := lf.LasPoint(i)
		if err != nil {
			return s, lidarerr.At(lidarerr.KindTruncatedRecord, "read las point", int64(i), err)
		}
		d := p.PointData()
		s.Min = r3.Vec{X: math.Min(s.Min.X, d.X), Y: math.Min(s.Min.Y, d.Y), Z: math.Min(s.Min.Z, d.Z)}
		s.Max = r3.Vec{X: math.Max(s.Max.X, d.X), Y: math.Max(s.Max.Y, d.Y), Z: math.Max(s.Max.Z, d.Z)}
		s.Readable++
	}
	return s, nil
}
