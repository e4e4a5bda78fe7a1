// Package lidarerr defines the failure kinds shared by the point-cloud
// readers, the pose loader and the georeferencing pass.
//
// Every fatal condition surfaced by those packages is an *Error carrying a
// Kind and, where it applies, the record or line index at which it occurred.
// Callers branch on the kind with errors.Is against the Err* sentinels.
package lidarerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindMalformedHeader
	KindTruncatedRecord
	KindNonMonotonicInput
	KindDegeneratePoseInterval
	KindCoverageViolation
	KindWriteFailure
	KindIOFailure
)

// Sentinels matched by errors.Is on any *Error of the corresponding kind.
var (
	ErrMalformedHeader        = errors.New("malformed header")
	ErrTruncatedRecord        = errors.New("truncated record")
	ErrNonMonotonicInput      = errors.New("non-monotonic input")
	ErrDegeneratePoseInterval = errors.New("degenerate pose interval")
	ErrCoverageViolation      = errors.New("coverage violation")
	ErrWriteFailure           = errors.New("write failure")
	ErrIOFailure              = errors.New("i/o failure")
)

var sentinels = map[Kind]error{
	KindMalformedHeader:        ErrMalformedHeader,
	KindTruncatedRecord:        ErrTruncatedRecord,
	KindNonMonotonicInput:      ErrNonMonotonicInput,
	KindDegeneratePoseInterval: ErrDegeneratePoseInterval,
	KindCoverageViolation:      ErrCoverageViolation,
	KindWriteFailure:           ErrWriteFailure,
	KindIOFailure:              ErrIOFailure,
}

// String returns the snake_case name used in logs and in the run ledger.
func (k Kind) String() string {
	switch k {
	case KindMalformedHeader:
		return "malformed_header"
	case KindTruncatedRecord:
		return "truncated_record"
	case KindNonMonotonicInput:
		return "non_monotonic_input"
	case KindDegeneratePoseInterval:
		return "degenerate_pose_interval"
	case KindCoverageViolation:
		return "coverage_violation"
	case KindWriteFailure:
		return "write_failure"
	case KindIOFailure:
		return "io_failure"
	default:
		return "unknown"
	}
}

// NoIndex marks an error that is not tied to a particular record or line.
const NoIndex int64 = -1

// Error is a classified failure.
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "read header" or "scan".
	Op string
	// Index is the zero-based record index (point stream), pose index or
	// one-based line number (pose file) the failure refers to, or NoIndex.
	Index int64
	Err   error
}

// New returns an *Error of the given kind that is not tied to an index.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Index: NoIndex, Err: err}
}

// At returns an *Error of the given kind at a record or line index.
func At(kind Kind, op string, index int64, err error) *Error {
	return &Error{Kind: kind, Op: op, Index: index, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Index != NoIndex {
		msg = fmt.Sprintf("%s at index %d", msg, e.Index)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IndexOf returns the index of the first *Error in err's chain, or NoIndex.
func IndexOf(err error) int64 {
	var e *Error
	if errors.As(err, &e) {
		return e.Index
	}
	return NoIndex
}
