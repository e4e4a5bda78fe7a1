package trajectory

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/georef/internal/fsutil"
	"github.com/banshee-data/georef/internal/lidar/lidarerr"
	"github.com/banshee-data/georef/internal/monitoring"
)

// DefaultSkipLines is the number of leading lines a pose file carries before
// its first pose row.
const DefaultSkipLines = 2

// MaxLineBytes bounds a single pose row. Longer rows are reported and
// skipped like any other malformed row.
const MaxLineBytes = 64 * 1024

// LoadOptions controls pose file parsing. The zero value skips
// DefaultSkipLines leading lines.
type LoadOptions struct {
	// SkipLines, if set, overrides DefaultSkipLines. Use Skip(0) to read
	// from the first line.
	SkipLines *int
}

// Skip returns a SkipLines value of n.
func Skip(n int) *int { return &n }

// LineError describes a pose row that could not be parsed.
type LineError struct {
	Line   int // one-based line number in the file
	Text   string
	Reason string
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// LoadResult is the outcome of loading a pose file.
type LoadResult struct {
	Series  *Series
	Skipped []LineError
	// Lines is the total number of lines read, header lines included.
	Lines int
}

// ParseLine parses one whitespace-separated `time x y z qw qx qy qz` row.
func ParseLine(line string) (Pose, error) {
	fields := strings.Fields(line)
	if len(fields) != 8 {
		return Pose{}, fmt.Errorf("expected 8 fields, got %d", len(fields))
	}
	var v [8]float64
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Pose{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		v[i] = x
	}
	return Pose{
		Time: v[0],
		X:    v[1], Y: v[2], Z: v[3],
		QW: v[4], QX: v[5], QY: v[6], QZ: v[7],
	}, nil
}

// Load reads a pose file. Malformed, oversized or non-finite rows are logged
// as warnings, recorded in the result and skipped; blank rows are skipped
// silently. A non-unit orientation is only warned about. The surviving poses
// must be in non-decreasing time order.
func Load(r io.Reader, opts LoadOptions) (*LoadResult, error) {
	skip := DefaultSkipLines
	if opts.SkipLines != nil {
		skip = max(*opts.SkipLines, 0)
	}

	res := &LoadResult{}
	var poses []Pose

	br := bufio.NewReaderSize(r, MaxLineBytes)
	for {
		raw, tooLong, err := readLine(br)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, lidarerr.At(lidarerr.KindIOFailure, "read pose file", int64(res.Lines+1), err)
		}
		if raw == "" && !tooLong {
			break
		}
		res.Lines++

		if res.Lines > skip {
			if p, ok := parseRow(res, raw, tooLong); ok {
				poses = append(poses, p)
			}
		}
		if err != nil {
			break
		}
	}

	series, err := NewSeries(poses)
	if err != nil {
		return nil, err
	}
	res.Series = series
	return res, nil
}

// parseRow parses one line, recording and warning about it if it is unusable.
func parseRow(res *LoadResult, raw string, tooLong bool) (Pose, bool) {
	text := strings.TrimSpace(raw)
	if text == "" && !tooLong {
		return Pose{}, false
	}

	var p Pose
	var err error
	switch {
	case tooLong:
		text = text[:min(len(text), 64)] + "..."
		err = fmt.Errorf("row exceeds %d bytes", MaxLineBytes)
	default:
		p, err = ParseLine(text)
		if err == nil && !p.Finite() {
			err = errors.New("time or position is not finite")
		}
	}
	if err != nil {
		le := LineError{Line: res.Lines, Text: text, Reason: err.Error()}
		monitoring.Warnf("pose file %s, skipping", le)
		res.Skipped = append(res.Skipped, le)
		return Pose{}, false
	}
	if issues := p.Issues(); len(issues) > 0 {
		monitoring.Warnf("pose file line %d: %s", res.Lines, strings.Join(issues, "; "))
	}
	return p, true
}

// readLine returns the next line including its terminator. A line longer
// than the reader's buffer is drained to its end; only its first buffer's
// worth is returned, with tooLong set.
func readLine(br *bufio.Reader) (line string, tooLong bool, err error) {
	frag, err := br.ReadSlice('\n')
	line = string(frag)
	for errors.Is(err, bufio.ErrBufferFull) {
		tooLong = true
		_, err = br.ReadSlice('\n')
	}
	return line, tooLong, err
}

// LoadFile opens path and calls Load.
func LoadFile(fsys fsutil.FileSystem, path string, opts LoadOptions) (*LoadResult, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, lidarerr.New(lidarerr.KindIOFailure, "open pose file", err)
	}
	defer f.Close()

	res, err := Load(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}
