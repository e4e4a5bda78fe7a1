package ply

import (
	"bytes"
	"errors"
	"testing"

	"github.com/banshee-data/georef/internal/lidar/lidarerr"
)

type failingWriter struct{ after int }

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.after <= 0 {
		return 0, errors.New("disk full")
	}
	w.after--
	return len(p), nil
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	records := []CorrectedPoint{
		{X: 1, Time: 0.1, NX: 0.5},
		{X: 2, Time: 0.2, NY: -0.5, Ring: 4},
	}
	for _, r := range records {
		if err := w.Write(r); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	if w.Count() != 2 {
		t.Errorf("Count = %d, want 2", w.Count())
	}
	if buf.Len() != 2*CorrectedPointSize {
		t.Fatalf("wrote %d bytes, want %d", buf.Len(), 2*CorrectedPointSize)
	}
	if got := DecodeCorrectedPoint(buf.Bytes()[CorrectedPointSize:]); got != records[1] {
		t.Errorf("second record = %+v, want %+v", got, records[1])
	}
}

func TestWriter_StickyFailure(t *testing.T) {
	w := NewWriter(&failingWriter{})
	if err := w.Write(CorrectedPoint{}); err != nil {
		t.Fatalf("buffered Write should not fail yet: %v", err)
	}

	err := w.Flush()
	if !errors.Is(err, lidarerr.ErrWriteFailure) {
		t.Fatalf("expected WriteFailure, got %v", err)
	}
	if err2 := w.Write(CorrectedPoint{}); !errors.Is(err2, lidarerr.ErrWriteFailure) {
		t.Errorf("expected sticky WriteFailure, got %v", err2)
	}
	if w.Count() != 1 {
		t.Errorf("Count = %d, want 1", w.Count())
	}
}
