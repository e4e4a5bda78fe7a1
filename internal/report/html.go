package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/georef/internal/fsutil"
	"github.com/banshee-data/georef/internal/lidar/georef"
	"github.com/banshee-data/georef/internal/lidar/trajectory"
)

// HTMLReportFile is the file name written by WriteHTMLFile.
const HTMLReportFile = "report.html"

// HTMLOptions configures the interactive report.
type HTMLOptions struct {
	Title string
	// AssetsHost overrides where the echarts scripts load from. Empty uses
	// the go-echarts default.
	AssetsHost string
}

// WriteHTML renders an interactive page with the correction magnitude over
// time and the trajectory in plan view.
func WriteHTML(w io.Writer, poses *trajectory.Series, samples []georef.Sample, summary georef.Summary, o HTMLOptions) error {
	if o.Title == "" {
		o.Title = "georef run"
	}
	initOpts := opts.Initialization{PageTitle: o.Title, Width: "100%", Height: "480px"}
	if o.AssetsHost != "" {
		initOpts.AssetsHost = o.AssetsHost
	}

	xs := make([]string, len(samples))
	mags := make([]opts.LineData, len(samples))
	for i, s := range samples {
		xs[i] = strconv.FormatFloat(s.Time, 'f', 3, 64)
		mags[i] = opts.LineData{Value: s.Magnitude}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts),
		charts.WithTitleOpts(opts.Title{Title: "Correction magnitude", Subtitle: summary.String()}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "time (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "|n| (m)"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	line.SetXAxis(xs).AddSeries("|n|", mags)

	track := make([]opts.ScatterData, poses.Len())
	for i := range track {
		pose := poses.At(i)
		track[i] = opts.ScatterData{Value: []interface{}{pose.X, pose.Y, pose.Time}}
	}
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts),
		charts.WithTitleOpts(opts.Title{Title: "Trajectory", Subtitle: fmt.Sprintf("poses=%d span=%.1fs", poses.Len(), poses.Span())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("poses", track, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))

	page := components.NewPage()
	if o.AssetsHost != "" {
		page.SetAssetsHost(o.AssetsHost)
	}
	page.PageTitle = o.Title
	page.AddCharts(line, scatter)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// WriteHTMLFile writes the report to dir/report.html and returns the path.
func WriteHTMLFile(fsys fsutil.FileSystem, dir string, poses *trajectory.Series, samples []georef.Sample, summary georef.Summary, o HTMLOptions) (string, error) {
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(dir, HTMLReportFile)
	f, err := fsys.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteHTML(f, poses, samples, summary, o); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}
