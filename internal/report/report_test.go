package report

import (
	"bytes"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/georef/internal/fsutil"
	"github.com/banshee-data/georef/internal/lidar/georef"
	"github.com/banshee-data/georef/internal/lidar/trajectory"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func testSeries(t *testing.T) *trajectory.Series {
	t.Helper()
	var poses []trajectory.Pose
	for i := 0; i < 20; i++ {
		f := float64(i)
		poses = append(poses, trajectory.Pose{Time: f * 0.1, X: f, Y: f * f / 10, QW: 1})
	}
	s, err := trajectory.NewSeries(poses)
	if err != nil {
		t.Fatalf("NewSeries failed: %v", err)
	}
	return s
}

func testSamples() []georef.Sample {
	var samples []georef.Sample
	for i := 0; i < 50; i++ {
		d := r3.Vec{X: 0.01 * float64(i%7), Y: -0.02, Z: 0.005}
		samples = append(samples, georef.Sample{
			Time:      float64(i) * 0.03,
			Raw:       r3.Vec{X: float64(i) / 3, Y: 1},
			Delta:     d,
			Magnitude: r3.Norm(d),
		})
	}
	return samples
}

func TestWritePlots(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()

	paths, err := WritePlots(fsys, "/plots/run", testSeries(t), testSamples())
	if err != nil {
		t.Fatalf("WritePlots failed: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("got %d plots, want 2: %v", len(paths), paths)
	}
	for _, p := range paths {
		data, err := fsys.ReadFile(p)
		if err != nil {
			t.Fatalf("ReadFile(%s) failed: %v", p, err)
		}
		if !bytes.HasPrefix(data, pngMagic) {
			t.Errorf("%s is not a PNG", p)
		}
	}
}

func TestWritePlots_NoSamples(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()

	paths, err := WritePlots(fsys, "/plots", testSeries(t), nil)
	if err != nil {
		t.Fatalf("WritePlots failed: %v", err)
	}
	if len(paths) != 1 || !strings.HasSuffix(paths[0], TrajectoryPlotFile) {
		t.Errorf("expected only the trajectory plot, got %v", paths)
	}
}

func TestWriteHTMLFile(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	samples := testSamples()

	path, err := WriteHTMLFile(fsys, "/report", testSeries(t), samples, georef.Summarize(samples), HTMLOptions{Title: "run 42"})
	if err != nil {
		t.Fatalf("WriteHTMLFile failed: %v", err)
	}
	data, err := fsys.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	html := string(data)
	for _, want := range []string{"<html", "run 42", "Correction magnitude", "Trajectory"} {
		if !strings.Contains(html, want) {
			t.Errorf("report missing %q", want)
		}
	}
}
