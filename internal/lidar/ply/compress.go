package ply

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression codecs accepted by NewCompressor and NewDecompressor.
const (
	CodecNone = "none"
	CodecZstd = "zstd"
	CodecLZ4  = "lz4"
)

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// NewCompressor wraps w in the named codec. Close flushes the codec's
// trailing frame but does not close w.
func NewCompressor(w io.Writer, codec string) (io.WriteCloser, error) {
	switch codec {
	case "", CodecNone:
		return nopWriteCloser{w}, nil
	case CodecZstd:
		// Single-threaded encoding keeps the output byte-identical across runs.
		enc, err := zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		return enc, nil
	case CodecLZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("unknown compression codec %q", codec)
	}
}

// NewDecompressor wraps r in the named codec's decoder.
func NewDecompressor(r io.Reader, codec string) (io.ReadCloser, error) {
	switch codec {
	case "", CodecNone:
		return io.NopCloser(r), nil
	case CodecZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("create zstd decoder: %w", err)
		}
		return dec.IOReadCloser(), nil
	case CodecLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("unknown compression codec %q", codec)
	}
}

// FileExtension returns the suffix conventionally appended for codec.
func FileExtension(codec string) string {
	switch codec {
	case CodecZstd:
		return ".zst"
	case CodecLZ4:
		return ".lz4"
	default:
		return ""
	}
}
