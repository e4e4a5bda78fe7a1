package lidarerr

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestErrorIsMatchesSentinel(t *testing.T) {
	err := At(KindTruncatedRecord, "scan", 7, io.ErrUnexpectedEOF)

	if !errors.Is(err, ErrTruncatedRecord) {
		t.Error("expected errors.Is to match ErrTruncatedRecord")
	}
	if errors.Is(err, ErrMalformedHeader) {
		t.Error("did not expect errors.Is to match ErrMalformedHeader")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("expected wrapped cause to remain reachable")
	}
}

func TestKindOfThroughWrapping(t *testing.T) {
	inner := New(KindCoverageViolation, "validate coverage", errors.New("poses end early"))
	wrapped := fmt.Errorf("run pipeline: %w", inner)

	if got := KindOf(wrapped); got != KindCoverageViolation {
		t.Errorf("KindOf = %v, want %v", got, KindCoverageViolation)
	}
	if got := IndexOf(wrapped); got != NoIndex {
		t.Errorf("IndexOf = %d, want NoIndex", got)
	}
	if got := KindOf(errors.New("plain")); got != KindUnknown {
		t.Errorf("KindOf(plain) = %v, want KindUnknown", got)
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{New(KindIOFailure, "", nil), "io_failure"},
		{New(KindMalformedHeader, "read header", errors.New("no end_header")), "read header: malformed_header: no end_header"},
		{At(KindNonMonotonicInput, "synchronize", 12, nil), "synchronize: non_monotonic_input at index 12"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
