package ply

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/georef/internal/fsutil"
	"github.com/banshee-data/georef/internal/lidar/lidarerr"
)

func encodeOutput(t *testing.T, codec string, header bool, records []CorrectedPoint) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw, err := NewCompressor(&buf, codec)
	if err != nil {
		t.Fatalf("NewCompressor failed: %v", err)
	}
	if header {
		if err := WriteOutputHeader(zw, int64(len(records))); err != nil {
			t.Fatalf("WriteOutputHeader failed: %v", err)
		}
	}
	w := NewWriter(zw)
	for _, r := range records {
		if err := w.Write(r); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return buf.Bytes()
}

func TestCodecForPath(t *testing.T) {
	tests := map[string]string{
		"/out/scan.corrected":     CodecNone,
		"/out/scan.ply.zst":       CodecZstd,
		"/out/scan.lz4":           CodecLZ4,
		"/out/scan.zst.partial":   CodecNone,
		"relative/name.bin.zst":   CodecZstd,
		"/out/no-extension-at-al": CodecNone,
	}
	for path, want := range tests {
		if got := CodecForPath(path); got != want {
			t.Errorf("CodecForPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestOpenOutput(t *testing.T) {
	records := []CorrectedPoint{
		{X: 1, Time: 0.1, NX: 0.5, Intensity: 7},
		{X: 2, Time: 0.2, NY: -0.5, Ring: 4},
		{X: 3, Time: 0.3, NZ: 0.125, ReturnNum: 2, Range: 12.5},
	}

	for _, codec := range []string{CodecNone, CodecZstd, CodecLZ4} {
		for _, header := range []bool{false, true} {
			name := codec
			if header {
				name += "+header"
			}
			t.Run(name, func(t *testing.T) {
				fsys := fsutil.NewMemoryFileSystem()
				path := "/out/scan.bin" + FileExtension(codec)
				fsys.WriteFile(path, encodeOutput(t, codec, header, records))

				o, err := OpenOutput(fsys, path)
				if err != nil {
					t.Fatalf("OpenOutput failed: %v", err)
				}
				defer o.Close()

				if o.Codec != codec {
					t.Errorf("Codec = %q, want %q", o.Codec, codec)
				}
				if header != (o.Header != nil) {
					t.Fatalf("Header present = %v, want %v", o.Header != nil, header)
				}
				if header && o.Header.VertexCount != int64(len(records)) {
					t.Errorf("VertexCount = %d, want %d", o.Header.VertexCount, len(records))
				}

				var got []CorrectedPoint
				n, err := o.Scan(func(i int64, cp CorrectedPoint) {
					if i != int64(len(got)) {
						t.Errorf("index %d, want %d", i, len(got))
					}
					got = append(got, cp)
				})
				if err != nil {
					t.Fatalf("Scan failed: %v", err)
				}
				if n != int64(len(records)) {
					t.Errorf("Scan returned %d, want %d", n, len(records))
				}
				if diff := cmp.Diff(records, got); diff != "" {
					t.Errorf("records mismatch (-want +got):\n%s", diff)
				}
			})
		}
	}
}

func TestScanCorrected_Truncated(t *testing.T) {
	data := encodeOutput(t, CodecNone, false, []CorrectedPoint{{X: 1}, {X: 2}})

	n, err := ScanCorrected(bytes.NewReader(data[:len(data)-3]), func(int64, CorrectedPoint) {})
	if n != 1 {
		t.Errorf("decoded %d records, want 1", n)
	}
	if !errors.Is(err, lidarerr.ErrTruncatedRecord) {
		t.Fatalf("expected TruncatedRecord, got %v", err)
	}
	if idx := lidarerr.IndexOf(err); idx != 1 {
		t.Errorf("error index = %d, want 1", idx)
	}
}

func TestOpenOutput_Missing(t *testing.T) {
	_, err := OpenOutput(fsutil.NewMemoryFileSystem(), "/nope.zst")
	if !errors.Is(err, lidarerr.ErrIOFailure) {
		t.Errorf("expected IOFailure, got %v", err)
	}
}
