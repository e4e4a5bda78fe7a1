package ply

import (
	"bufio"
	"io"

	"github.com/banshee-data/georef/internal/lidar/lidarerr"
)

const writeBufferSize = 1 << 20

// Writer encodes CorrectedPoint records to an underlying writer in
// encounter order. The first error is sticky: every later call returns it.
// Bytes already handed to the underlying writer are not rolled back, so a
// caller that sees an error must treat the destination as invalid.
type Writer struct {
	bw    *bufio.Writer
	buf   []byte
	count int64
	err   error
}

// NewWriter returns a Writer buffering into w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		bw:  bufio.NewWriterSize(w, writeBufferSize),
		buf: make([]byte, 0, CorrectedPointSize),
	}
}

// Write encodes one record.
func (w *Writer) Write(cp CorrectedPoint) error {
	if w.err != nil {
		return w.err
	}
	w.buf = AppendCorrectedPoint(w.buf[:0], cp)
	if _, err := w.bw.Write(w.buf); err != nil {
		w.err = lidarerr.At(lidarerr.KindWriteFailure, "write record", w.count, err)
		return w.err
	}
	w.count++
	return nil
}

// Flush writes any buffered records to the underlying writer.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	if err := w.bw.Flush(); err != nil {
		w.err = lidarerr.New(lidarerr.KindWriteFailure, "flush", err)
	}
	return w.err
}

// Count returns the number of records accepted so far.
func (w *Writer) Count() int64 { return w.count }
