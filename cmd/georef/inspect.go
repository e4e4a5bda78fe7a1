package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/banshee-data/georef/internal/fsutil"
	"github.com/banshee-data/georef/internal/lidar/las"
	"github.com/banshee-data/georef/internal/lidar/ply"
)

func handleInspect(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	count := fs.Int64("n", 3, "Number of records to print from each end")
	corrected := fs.Bool("corrected", false, "Treat the file as georef run output")
	debug := fs.Bool("debug", false, "Log header parsing details to stderr")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: usage: georef inspect [-n N] [--corrected] <file>", errUsage)
	}
	if *debug {
		ply.SetDebugLogger(os.Stderr)
	}
	path := fs.Arg(0)
	switch {
	case *corrected:
		return inspectOutput(fsutil.OSFileSystem{}, path, *count, stdout)
	case strings.EqualFold(filepath.Ext(path), ".las"):
		return inspectLAS(path, stdout)
	}
	return inspect(fsutil.OSFileSystem{}, path, *count, stdout)
}

func inspectLAS(path string, stdout io.Writer) error {
	s, err := las.Inspect(path)
	if s != nil {
		fmt.Fprintf(stdout, "file:        %s\n", path)
		fmt.Fprintf(stdout, "las version: %s\n", s.Version)
		fmt.Fprintf(stdout, "format:      %d\n", s.PointFormat)
		fmt.Fprintf(stdout, "points:      %d declared, %d readable\n", s.Declared, s.Readable)
		if s.Readable > 0 {
			fmt.Fprintf(stdout, "bounds:      [%.3f %.3f %.3f] to [%.3f %.3f %.3f]\n",
				s.Min.X, s.Min.Y, s.Min.Z, s.Max.X, s.Max.Y, s.Max.Z)
		}
	}
	return err
}

// inspectOutput reads back a corrected-record file and prints its size and
// the first and last n records.
func inspectOutput(fsys fsutil.FileSystem, path string, n int64, stdout io.Writer) error {
	o, err := ply.OpenOutput(fsys, path)
	if err != nil {
		return err
	}
	defer o.Close()

	var head, tail []ply.CorrectedPoint
	total, err := o.Scan(func(i int64, cp ply.CorrectedPoint) {
		if i < n {
			head = append(head, cp)
			return
		}
		if n > 0 {
			tail = append(tail, cp)
			if int64(len(tail)) > n {
				tail = tail[1:]
			}
		}
	})

	fmt.Fprintf(stdout, "file:        %s\n", path)
	fmt.Fprintf(stdout, "compression: %s\n", o.Codec)
	if o.Header != nil {
		fmt.Fprintf(stdout, "header:      %d vertices declared\n", o.Header.VertexCount)
		if o.Header.VertexCount != total && err == nil {
			fmt.Fprintf(stdout, "issue:       header declares %d records, file holds %d\n", o.Header.VertexCount, total)
		}
	} else {
		fmt.Fprintf(stdout, "header:      none\n")
	}
	fmt.Fprintf(stdout, "records:     %d\n", total)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "index\ttime\tx\ty\tz\tnx\tny\tnz\t")
	printCorrected(tw, 0, head)
	if len(tail) > 0 {
		start := total - int64(len(tail))
		if start > int64(len(head)) {
			fmt.Fprintln(tw, "...\t\t\t\t\t\t\t\t")
		}
		printCorrected(tw, start, tail)
	}
	return tw.Flush()
}

func printCorrected(w io.Writer, start int64, records []ply.CorrectedPoint) {
	for i, cp := range records {
		fmt.Fprintf(w, "%d\t%.6f\t%.3f\t%.3f\t%.3f\t%.4f\t%.4f\t%.4f\t\n",
			start+int64(i), cp.Time, cp.X, cp.Y, cp.Z, cp.NX, cp.NY, cp.NZ)
	}
}

func inspect(fsys fsutil.FileSystem, path string, n int64, stdout io.Writer) error {
	h, err := ply.ReadHeaderFile(fsys, path)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "file:        %s\n", path)
	fmt.Fprintf(stdout, "format:      %s\n", h.Format)
	fmt.Fprintf(stdout, "vertices:    %d\n", h.VertexCount)
	fmt.Fprintf(stdout, "data offset: %d\n", h.DataOffset)
	fmt.Fprintf(stdout, "record size: %d\n", h.RecordSize())
	for _, c := range h.Comments {
		fmt.Fprintf(stdout, "comment:     %s\n", c)
	}
	for _, issue := range h.Validate() {
		fmt.Fprintf(stdout, "issue:       %s\n", issue)
	}

	c, err := ply.CheckConsistency(fsys, path, h)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "size check:  %s\n", c)

	if h.VertexCount == 0 || n <= 0 {
		return nil
	}
	head, err := ply.ReadHead(fsys, path, h, n)
	if err != nil {
		return err
	}
	tail, err := ply.ReadTail(fsys, path, h, n)
	if err != nil {
		fmt.Fprintf(stdout, "tail:        %v\n", err)
		tail = nil
	}

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "index\ttime\tx\ty\tz\tintensity\tring\treturn\trange\t")
	printRows(tw, 0, head)
	if len(tail) > 0 {
		start := h.VertexCount - int64(len(tail))
		if start < int64(len(head)) {
			tail = tail[int64(len(head))-start:]
			start = int64(len(head))
		} else if start > int64(len(head)) {
			fmt.Fprintln(tw, "...\t\t\t\t\t\t\t\t\t")
		}
		printRows(tw, start, tail)
	}
	return tw.Flush()
}

func printRows(w io.Writer, start int64, points []ply.Point) {
	for i, p := range points {
		fmt.Fprintf(w, "%d\t%.6f\t%.3f\t%.3f\t%.3f\t%.1f\t%d\t%d\t%.3f\t\n",
			start+int64(i), p.Time, p.X, p.Y, p.Z, p.Intensity, p.Ring, p.ReturnNum, p.Range)
	}
}
