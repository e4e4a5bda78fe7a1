package ply

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/banshee-data/georef/internal/fsutil"
	"github.com/banshee-data/georef/internal/lidar/lidarerr"
)

// CodecForPath infers the compression codec from path's extension.
// Unrecognised extensions mean CodecNone.
func CodecForPath(path string) string {
	ext := filepath.Ext(path)
	for _, codec := range []string{CodecZstd, CodecLZ4} {
		if ext == FileExtension(codec) {
			return codec
		}
	}
	return CodecNone
}

// OutputReader reads back a corrected-record file. The file may be
// compressed, with the codec taken from its extension, and may start with a
// PLY header.
type OutputReader struct {
	f  fsutil.File
	dc io.ReadCloser
	r  *bufio.Reader

	Codec string
	// Header is nil for a headerless output.
	Header *Header
}

// OpenOutput opens path and consumes its PLY header, if any.
func OpenOutput(fsys fsutil.FileSystem, path string) (*OutputReader, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, lidarerr.New(lidarerr.KindIOFailure, "open output", err)
	}
	codec := CodecForPath(path)
	dc, err := NewDecompressor(f, codec)
	if err != nil {
		f.Close()
		return nil, lidarerr.New(lidarerr.KindIOFailure, "open output", err)
	}
	o := &OutputReader{f: f, dc: dc, r: bufio.NewReaderSize(dc, scanBufferSize), Codec: codec}

	magic, err := o.r.Peek(4)
	if err != nil && !errors.Is(err, io.EOF) {
		o.Close()
		return nil, lidarerr.New(lidarerr.KindIOFailure, "read output", err)
	}
	if string(magic) == "ply\n" || string(magic) == "ply\r" {
		// ReadHeader reuses o.r rather than buffering past end_header.
		h, err := ReadHeader(o.r)
		if err != nil {
			o.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		o.Header = h
	}
	return o, nil
}

// Scan decodes the remaining records, calling fn for each, and returns how
// many were decoded.
func (o *OutputReader) Scan(fn func(i int64, cp CorrectedPoint)) (int64, error) {
	return ScanCorrected(o.r, fn)
}

// Close releases the decoder and the file.
func (o *OutputReader) Close() error {
	o.dc.Close()
	return o.f.Close()
}

// ScanCorrected decodes consecutive CorrectedPoint records from r until EOF.
// A trailing partial record is a TruncatedRecord error.
func ScanCorrected(r io.Reader, fn func(i int64, cp CorrectedPoint)) (int64, error) {
	var buf [CorrectedPointSize]byte
	var n int64
	for {
		got, err := io.ReadFull(r, buf[:])
		switch {
		case err == nil:
			fn(n, DecodeCorrectedPoint(buf[:]))
			n++
		case errors.Is(err, io.EOF):
			return n, nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			return n, lidarerr.At(lidarerr.KindTruncatedRecord, "scan corrected", n,
				fmt.Errorf("%d of %d bytes remain", got, CorrectedPointSize))
		default:
			return n, lidarerr.At(lidarerr.KindIOFailure, "scan corrected", n, err)
		}
	}
}
