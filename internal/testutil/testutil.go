// Package testutil provides shared test utilities and fixtures.
//
// Fixture builders produce point and pose files in the on-disk formats the
// georef pipeline reads, so tests can describe inputs as plain values.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/banshee-data/georef/internal/fsutil"
	"github.com/banshee-data/georef/internal/lidar/ply"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// PointHeader returns a PLY header declaring count points with the standard
// raw point layout.
func PointHeader(count int64) string {
	return fmt.Sprintf(`ply
format binary_little_endian 1.0
comment generated by testutil
element vertex %d
property double time
property double x
property double y
property double z
property float intensity
property uchar ring
property uchar return_num
property float range
end_header
`, count)
}

// PointFile encodes points behind a header declaring len(points) records.
func PointFile(points ...ply.Point) []byte {
	return PointFileDeclaring(int64(len(points)), points...)
}

// PointFileDeclaring encodes points behind a header declaring count records,
// which may disagree with len(points).
func PointFileDeclaring(count int64, points ...ply.Point) []byte {
	buf := []byte(PointHeader(count))
	for _, p := range points {
		buf = ply.AppendPoint(buf, p)
	}
	return buf
}

// PointsAt returns one point per timestamp, positioned at (t, 2t, 3t) with
// ring and return number derived from the index.
func PointsAt(times ...float64) []ply.Point {
	points := make([]ply.Point, len(times))
	for i, ts := range times {
		points[i] = ply.Point{
			Time:      ts,
			X:         ts,
			Y:         2 * ts,
			Z:         3 * ts,
			Intensity: float32(i),
			Ring:      uint8(i % 32),
			ReturnNum: 1,
			Range:     float32(10 + i),
		}
	}
	return points
}

// PoseRow is one row of a pose file.
type PoseRow struct {
	Time           float64
	X, Y, Z        float64
	QW, QX, QY, QZ float64
}

// PoseFile renders rows as a pose text file with the usual two header lines.
func PoseFile(rows ...PoseRow) []byte {
	var b strings.Builder
	b.WriteString("# trajectory export\n")
	b.WriteString("time x y z qw qx qy qz\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%g %g %g %g %g %g %g %g\n", r.Time, r.X, r.Y, r.Z, r.QW, r.QX, r.QY, r.QZ)
	}
	return []byte(b.String())
}

// LinearPoses returns poses at each timestamp moving along x at one unit per
// second with an identity orientation.
func LinearPoses(times ...float64) []PoseRow {
	rows := make([]PoseRow, len(times))
	for i, ts := range times {
		rows[i] = PoseRow{Time: ts, X: ts, QW: 1}
	}
	return rows
}

// Inputs holds the paths of fixture files written by WriteInputs.
type Inputs struct {
	FS     *fsutil.MemoryFileSystem
	Points string
	Poses  string
}

// WriteInputs stores a point file and a pose file in a fresh memory
// filesystem.
func WriteInputs(points []byte, poses []byte) Inputs {
	in := Inputs{
		FS:     fsutil.NewMemoryFileSystem(),
		Points: "/in/points.ply",
		Poses:  "/in/poses.txt",
	}
	in.FS.WriteFile(in.Points, points)
	in.FS.WriteFile(in.Poses, poses)
	return in
}
