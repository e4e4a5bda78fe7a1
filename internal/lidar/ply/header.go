package ply

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/georef/internal/fsutil"
	"github.com/banshee-data/georef/internal/lidar/lidarerr"
)

// Property is one `property <type> <name>` declaration of the vertex element.
type Property struct {
	Type string
	Name string
}

// Header is the parsed ASCII header of a PLY file.
type Header struct {
	// Format is the value of the format line, e.g. "binary_little_endian 1.0".
	Format string
	// VertexCount is the declared number of vertex records. It is zero when
	// the count is missing or unparseable; callers must check for zero.
	VertexCount int64
	// Properties lists the vertex properties in declaration order.
	Properties []Property
	Comments   []string
	// DataOffset is the byte length of the header including every line
	// terminator, i.e. the file offset of the first binary record.
	DataOffset int64
}

// pointLayout is the property list matching Point.
var pointLayout = []Property{
	{"double", "time"},
	{"double", "x"},
	{"double", "y"},
	{"double", "z"},
	{"float", "intensity"},
	{"uchar", "ring"},
	{"uchar", "return_num"},
	{"float", "range"},
}

// correctedLayout is the property list matching CorrectedPoint.
var correctedLayout = []Property{
	{"double", "x"},
	{"double", "y"},
	{"double", "z"},
	{"double", "time"},
	{"double", "nx"},
	{"double", "ny"},
	{"double", "nz"},
	{"float", "intensity"},
	{"uchar", "ring"},
	{"uchar", "return_num"},
	{"float", "range"},
}

// typeSize returns the byte width of a PLY scalar type, or 0 if unknown.
func typeSize(t string) int {
	switch t {
	case "char", "uchar", "int8", "uint8":
		return 1
	case "short", "ushort", "int16", "uint16":
		return 2
	case "int", "uint", "float", "int32", "uint32", "float32":
		return 4
	case "double", "float64":
		return 8
	}
	return 0
}

// ReadHeader parses a PLY header from r, which must be positioned at the
// start of the file. It stops at the end_header line and never reads the
// binary payload on purpose, although buffering may consume some of it.
func ReadHeader(r io.Reader) (*Header, error) {
	br := bufio.NewReader(r)
	h := &Header{}
	inVertex := false

	for lineNo := 1; ; lineNo++ {
		raw, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, lidarerr.New(lidarerr.KindIOFailure, "read header", err)
		}
		if raw == "" && errors.Is(err, io.EOF) {
			return nil, lidarerr.New(lidarerr.KindMalformedHeader, "read header",
				fmt.Errorf("no end_header line after %d bytes", h.DataOffset))
		}
		h.DataOffset += int64(len(raw))

		line := strings.TrimSpace(raw)
		fields := strings.Fields(line)
		switch {
		case line == "end_header":
			debugf("header: %d vertices, %d properties, data offset %d", h.VertexCount, len(h.Properties), h.DataOffset)
			return h, nil
		case len(fields) == 0:
		case fields[0] == "format":
			h.Format = strings.TrimSpace(strings.TrimPrefix(line, "format"))
		case fields[0] == "comment" || fields[0] == "obj_info":
			h.Comments = append(h.Comments, strings.TrimSpace(strings.TrimPrefix(line, fields[0])))
		case fields[0] == "element":
			inVertex = len(fields) >= 2 && fields[1] == "vertex"
			if inVertex {
				h.VertexCount = parseCount(fields, lineNo)
			}
		case fields[0] == "property":
			if inVertex && len(fields) >= 3 {
				h.Properties = append(h.Properties, Property{Type: fields[1], Name: fields[len(fields)-1]})
			}
		}

		if errors.Is(err, io.EOF) {
			return nil, lidarerr.New(lidarerr.KindMalformedHeader, "read header",
				fmt.Errorf("input ended at line %d without end_header", lineNo))
		}
	}
}

// parseCount extracts N from `element vertex N`. An unparseable or negative
// count yields zero rather than an error.
func parseCount(fields []string, lineNo int) int64 {
	if len(fields) != 3 {
		debugf("header line %d: element vertex without a count", lineNo)
		return 0
	}
	n, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil || n < 0 {
		debugf("header line %d: unparseable vertex count %q", lineNo, fields[2])
		return 0
	}
	return n
}

// ReadHeaderFile opens path, parses its header and closes the file.
func ReadHeaderFile(fsys fsutil.FileSystem, path string) (*Header, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, lidarerr.New(lidarerr.KindIOFailure, "open point file", err)
	}
	defer f.Close()

	h, err := ReadHeader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}

// RecordSize returns the sum of the declared property widths, or 0 if any
// property has an unknown or list type.
func (h *Header) RecordSize() int {
	total := 0
	for _, p := range h.Properties {
		n := typeSize(p.Type)
		if n == 0 {
			return 0
		}
		total += n
	}
	return total
}

// Validate compares the declared header against the layout Point decodes.
// It returns human-readable issues; an empty result means the header
// matches. Issues are advisory since many producers name fields loosely.
func (h *Header) Validate() []string {
	var issues []string

	if !strings.HasPrefix(h.Format, "binary_little_endian") {
		issues = append(issues, fmt.Sprintf("format %q is not binary_little_endian", h.Format))
	}
	if h.VertexCount == 0 {
		issues = append(issues, "vertex count is zero or unparseable")
	}
	if size := h.RecordSize(); size != PointSize {
		issues = append(issues, fmt.Sprintf("declared record size %d bytes, expected %d", size, PointSize))
	}

	for i, want := range pointLayout {
		if i >= len(h.Properties) {
			issues = append(issues, fmt.Sprintf("missing property %d (%s %s)", i, want.Type, want.Name))
			continue
		}
		got := h.Properties[i]
		if typeSize(got.Type) != typeSize(want.Type) {
			issues = append(issues, fmt.Sprintf("property %d %q is %s, expected %s", i, got.Name, got.Type, want.Type))
		}
		if got.Name != want.Name {
			issues = append(issues, fmt.Sprintf("property %d is named %q, expected %q", i, got.Name, want.Name))
		}
	}
	if len(h.Properties) > len(pointLayout) {
		issues = append(issues, fmt.Sprintf("%d unexpected trailing properties", len(h.Properties)-len(pointLayout)))
	}

	return issues
}

// WriteOutputHeader writes a PLY header describing count CorrectedPoint
// records. The corrected output does not need a header; it is written only
// when the output should open directly in PLY tools.
func WriteOutputHeader(w io.Writer, count int64, comments ...string) error {
	var b strings.Builder
	b.WriteString("ply\n")
	b.WriteString("format binary_little_endian 1.0\n")
	for _, c := range comments {
		fmt.Fprintf(&b, "comment %s\n", c)
	}
	fmt.Fprintf(&b, "element vertex %d\n", count)
	for _, p := range correctedLayout {
		fmt.Fprintf(&b, "property %s %s\n", p.Type, p.Name)
	}
	b.WriteString("end_header\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return lidarerr.New(lidarerr.KindWriteFailure, "write output header", err)
	}
	return nil
}
