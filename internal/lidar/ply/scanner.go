package ply

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/banshee-data/georef/internal/fsutil"
	"github.com/banshee-data/georef/internal/lidar/lidarerr"
)

const scanBufferSize = 1 << 20

// Scanner decodes the records of a point file sequentially, one per call to
// Scan. It owns the underlying file handle until Close. A Scanner cannot be
// rewound; open a new one to restart.
type Scanner struct {
	f     fsutil.File
	r     *bufio.Reader
	buf   [PointSize]byte
	point Point
	next  int64
	err   error
	done  bool
}

// OpenScanner opens path and positions a Scanner at the header's data offset.
func OpenScanner(fsys fsutil.FileSystem, path string, h *Header) (*Scanner, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, lidarerr.New(lidarerr.KindIOFailure, "open point file", err)
	}
	if _, err := f.Seek(h.DataOffset, io.SeekStart); err != nil {
		f.Close()
		return nil, lidarerr.New(lidarerr.KindIOFailure, "seek to data offset", err)
	}
	return &Scanner{f: f, r: bufio.NewReaderSize(f, scanBufferSize)}, nil
}

// Scan decodes the next record. It returns false at a clean end of stream
// (no bytes left at a record boundary) or on error; Err distinguishes the two.
func (s *Scanner) Scan() bool {
	if s.done {
		return false
	}
	n, err := io.ReadFull(s.r, s.buf[:])
	switch {
	case err == nil:
		s.point = DecodePoint(s.buf[:])
		s.next++
		return true
	case errors.Is(err, io.EOF):
	case errors.Is(err, io.ErrUnexpectedEOF):
		s.err = lidarerr.At(lidarerr.KindTruncatedRecord, "scan", s.next,
			fmt.Errorf("%d of %d bytes remain", n, PointSize))
	default:
		s.err = lidarerr.At(lidarerr.KindIOFailure, "scan", s.next, err)
	}
	s.done = true
	return false
}

// Point returns the record decoded by the last successful Scan.
func (s *Scanner) Point() Point { return s.point }

// Err returns the first error encountered, or nil after a clean end.
func (s *Scanner) Err() error { return s.err }

// Close releases the file handle. It is safe to call more than once.
func (s *Scanner) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	s.done = true
	return err
}

// ReadHead decodes the first min(k, h.VertexCount) records.
func ReadHead(fsys fsutil.FileSystem, path string, h *Header, k int64) ([]Point, error) {
	n := min(k, h.VertexCount)
	return readRange(fsys, path, h, 0, n)
}

// ReadTail decodes the last min(k, h.VertexCount) records by seeking
// directly to them. It trusts the declared vertex count; use
// CheckConsistency to find out whether that trust is warranted.
func ReadTail(fsys fsutil.FileSystem, path string, h *Header, k int64) ([]Point, error) {
	n := min(k, h.VertexCount)
	return readRange(fsys, path, h, h.VertexCount-n, n)
}

func readRange(fsys fsutil.FileSystem, path string, h *Header, start, n int64) ([]Point, error) {
	if n <= 0 {
		return nil, nil
	}

	f, err := fsys.Open(path)
	if err != nil {
		return nil, lidarerr.New(lidarerr.KindIOFailure, "open point file", err)
	}
	defer f.Close()

	pos := h.DataOffset + start*PointSize
	debugf("reading %d records from index %d at byte %d", n, start, pos)
	if _, err := f.Seek(pos, io.SeekStart); err != nil {
		return nil, lidarerr.New(lidarerr.KindIOFailure, "seek", err)
	}

	buf := make([]byte, n*PointSize)
	got, err := io.ReadFull(f, buf)
	if err != nil {
		idx := start + int64(got)/PointSize
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, lidarerr.At(lidarerr.KindTruncatedRecord, "read records", idx,
				fmt.Errorf("wanted %d records, file holds %d bytes past byte %d", n, got, pos))
		}
		return nil, lidarerr.At(lidarerr.KindIOFailure, "read records", idx, err)
	}

	points := make([]Point, n)
	for i := range points {
		points[i] = DecodePoint(buf[int64(i)*PointSize:])
	}
	return points, nil
}

// Consistency compares a header's declared vertex count with the number of
// records the file can actually hold.
type Consistency struct {
	Declared int64
	Actual   int64
	// Remainder is the number of trailing bytes that do not form a whole record.
	Remainder int64
}

// OK reports whether the declared count matches the file size exactly.
func (c Consistency) OK() bool {
	return c.Declared == c.Actual && c.Remainder == 0
}

func (c Consistency) String() string {
	if c.OK() {
		return fmt.Sprintf("%d records", c.Declared)
	}
	return fmt.Sprintf("header declares %d records, file holds %d (+%d trailing bytes)",
		c.Declared, c.Actual, c.Remainder)
}

// CheckConsistency stats path and computes how many whole records follow the
// header.
func CheckConsistency(fsys fsutil.FileSystem, path string, h *Header) (Consistency, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		return Consistency{}, lidarerr.New(lidarerr.KindIOFailure, "stat point file", err)
	}
	payload := info.Size() - h.DataOffset
	if payload < 0 {
		payload = 0
	}
	return Consistency{
		Declared:  h.VertexCount,
		Actual:    payload / PointSize,
		Remainder: payload % PointSize,
	}, nil
}
