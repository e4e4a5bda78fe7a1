package ply_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/georef/internal/fsutil"
	"github.com/banshee-data/georef/internal/lidar/lidarerr"
	"github.com/banshee-data/georef/internal/lidar/ply"
	"github.com/banshee-data/georef/internal/testutil"
)

func writePoints(t *testing.T, data []byte) (*fsutil.MemoryFileSystem, *ply.Header) {
	t.Helper()
	fsys := fsutil.NewMemoryFileSystem()
	fsys.WriteFile("/points.ply", data)
	h, err := ply.ReadHeaderFile(fsys, "/points.ply")
	testutil.AssertNoError(t, err)
	return fsys, h
}

func TestScanner_ReadsAllRecords(t *testing.T) {
	points := testutil.PointsAt(1, 2, 3, 4, 5)
	fsys, h := writePoints(t, testutil.PointFile(points...))

	s, err := ply.OpenScanner(fsys, "/points.ply", h)
	testutil.AssertNoError(t, err)
	defer s.Close()

	var got []ply.Point
	for s.Scan() {
		got = append(got, s.Point())
	}
	testutil.AssertNoError(t, s.Err())
	if diff := cmp.Diff(points, got); diff != "" {
		t.Errorf("scanned points mismatch (-want +got):\n%s", diff)
	}
	if s.Scan() {
		t.Error("Scan after end returned true")
	}
}

func TestScanner_TruncatedTail(t *testing.T) {
	data := testutil.PointFile(testutil.PointsAt(1, 2, 3)...)
	fsys, h := writePoints(t, data[:len(data)-10])

	s, err := ply.OpenScanner(fsys, "/points.ply", h)
	testutil.AssertNoError(t, err)
	defer s.Close()

	n := 0
	for s.Scan() {
		n++
	}
	if n != 2 {
		t.Errorf("scanned %d whole records, want 2", n)
	}
	if !errors.Is(s.Err(), lidarerr.ErrTruncatedRecord) {
		t.Fatalf("expected TruncatedRecord, got %v", s.Err())
	}
	if idx := lidarerr.IndexOf(s.Err()); idx != 2 {
		t.Errorf("error index = %d, want 2", idx)
	}
}

func TestReadHeadTail(t *testing.T) {
	points := testutil.PointsAt(10, 11, 12, 13, 14, 15)
	fsys, h := writePoints(t, testutil.PointFile(points...))

	head, err := ply.ReadHead(fsys, "/points.ply", h, 2)
	testutil.AssertNoError(t, err)
	if diff := cmp.Diff(points[:2], head); diff != "" {
		t.Errorf("head mismatch (-want +got):\n%s", diff)
	}

	tail, err := ply.ReadTail(fsys, "/points.ply", h, 2)
	testutil.AssertNoError(t, err)
	if diff := cmp.Diff(points[4:], tail); diff != "" {
		t.Errorf("tail mismatch (-want +got):\n%s", diff)
	}

	all, err := ply.ReadTail(fsys, "/points.ply", h, 100)
	testutil.AssertNoError(t, err)
	if len(all) != len(points) {
		t.Errorf("oversized tail returned %d records, want %d", len(all), len(points))
	}
}

func TestReadTail_OverstatedCount(t *testing.T) {
	fsys, h := writePoints(t, testutil.PointFileDeclaring(10, testutil.PointsAt(1, 2, 3)...))

	_, err := ply.ReadTail(fsys, "/points.ply", h, 1)
	if !errors.Is(err, lidarerr.ErrTruncatedRecord) {
		t.Errorf("expected TruncatedRecord, got %v", err)
	}

	c, err := ply.CheckConsistency(fsys, "/points.ply", h)
	testutil.AssertNoError(t, err)
	if c.OK() || c.Declared != 10 || c.Actual != 3 {
		t.Errorf("unexpected consistency %+v", c)
	}
}

func TestCheckConsistency_Remainder(t *testing.T) {
	data := testutil.PointFile(testutil.PointsAt(1, 2)...)
	fsys, h := writePoints(t, append(data, 0, 0, 0))

	c, err := ply.CheckConsistency(fsys, "/points.ply", h)
	testutil.AssertNoError(t, err)
	want := ply.Consistency{Declared: 2, Actual: 2, Remainder: 3}
	if c != want {
		t.Errorf("got %+v, want %+v", c, want)
	}
	if c.OK() {
		t.Error("expected trailing bytes to fail the check")
	}
}
