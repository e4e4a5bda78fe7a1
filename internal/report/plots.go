// Package report renders diagnostic plots for a georef run: the rig
// trajectory and how large the applied corrections were over time.
package report

import (
	"fmt"
	"image/color"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/georef/internal/fsutil"
	"github.com/banshee-data/georef/internal/lidar/georef"
	"github.com/banshee-data/georef/internal/lidar/trajectory"
)

// Plot file names written by WritePlots.
const (
	TrajectoryPlotFile = "trajectory_xy.png"
	CorrectionPlotFile = "correction_vs_time.png"
)

var poseColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}

// axisColors colour the x, y and z components in that order.
var axisColors = []color.Color{
	color.RGBA{R: 214, G: 39, B: 40, A: 255},
	color.RGBA{R: 44, G: 160, B: 44, A: 255},
	color.RGBA{R: 148, G: 103, B: 189, A: 255},
}

var magnitudeColor = color.Black

// WritePlots renders the trajectory and correction plots as PNG files into
// dir and returns their paths. Samples may be empty, in which case only the
// trajectory plot is written.
func WritePlots(fsys fsutil.FileSystem, dir string, poses *trajectory.Series, samples []georef.Sample) ([]string, error) {
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create plot dir: %w", err)
	}

	var written []string
	p, err := trajectoryPlot(poses, samples)
	if err != nil {
		return nil, fmt.Errorf("trajectory plot: %w", err)
	}
	path := filepath.Join(dir, TrajectoryPlotFile)
	if err := savePNG(fsys, p, 8*vg.Inch, 8*vg.Inch, path); err != nil {
		return nil, err
	}
	written = append(written, path)

	if len(samples) == 0 {
		return written, nil
	}
	p, err = correctionPlot(samples)
	if err != nil {
		return nil, fmt.Errorf("correction plot: %w", err)
	}
	path = filepath.Join(dir, CorrectionPlotFile)
	if err := savePNG(fsys, p, 14*vg.Inch, 6*vg.Inch, path); err != nil {
		return nil, err
	}
	return append(written, path), nil
}

func trajectoryPlot(poses *trajectory.Series, samples []georef.Sample) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Rig trajectory (%d poses, %.1fs)", poses.Len(), poses.Span())
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	pts := make(plotter.XYs, poses.Len())
	for i := range pts {
		pose := poses.At(i)
		pts[i] = plotter.XY{X: pose.X, Y: pose.Y}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = poseColor
	line.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add("poses", line)

	if len(samples) > 0 {
		raw := make(plotter.XYs, len(samples))
		for i, s := range samples {
			raw[i] = plotter.XY{X: s.Raw.X, Y: s.Raw.Y}
		}
		scatter, err := plotter.NewScatter(raw)
		if err != nil {
			return nil, err
		}
		scatter.Color = axisColors[0]
		scatter.Radius = vg.Points(1)
		p.Add(scatter)
		p.Legend.Add("sampled points (raw)", scatter)
	}

	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

func correctionPlot(samples []georef.Sample) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Correction vector over time (%d samples)", len(samples))
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Correction (m)"

	series := [4]plotter.XYs{}
	for i := range series {
		series[i] = make(plotter.XYs, len(samples))
	}
	for i, s := range samples {
		series[0][i] = plotter.XY{X: s.Time, Y: s.Delta.X}
		series[1][i] = plotter.XY{X: s.Time, Y: s.Delta.Y}
		series[2][i] = plotter.XY{X: s.Time, Y: s.Delta.Z}
		series[3][i] = plotter.XY{X: s.Time, Y: s.Magnitude}
	}

	labels := [4]string{"nx", "ny", "nz", "|n|"}
	for i, pts := range series {
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		if i < len(axisColors) {
			line.Color = axisColors[i]
			line.Width = vg.Points(1)
		} else {
			line.Color = magnitudeColor
			line.Width = vg.Points(1.5)
		}
		p.Add(line)
		p.Legend.Add(labels[i], line)
	}

	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

func savePNG(fsys fsutil.FileSystem, p *plot.Plot, w, h vg.Length, path string) error {
	wt, err := p.WriterTo(w, h, "png")
	if err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
