package failure

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind int

const (
	// KindInternal is the zero kind, used for unclassified errors.
	KindInternal Kind = iota
	// KindValidation marks bad input. Never retried.
	KindValidation
	// KindNotFound marks a missing item or operation.
	KindNotFound
	// KindCapacityExceeded marks a bulkhead rejection. Never retried.
	KindCapacityExceeded
	// KindCircuitOpen marks a circuit breaker fast-fail. Never retried.
	KindCircuitOpen
	// KindTimeout marks an operation that exceeded its time budget.
	KindTimeout
	// KindTransient marks network or 5xx-class failures.
	KindTransient
	// KindConversion marks an item-scoped conversion failure.
	KindConversion
	// KindCyclicGraph marks resolver misuse on a cyclic graph.
	KindCyclicGraph
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindCapacityExceeded:
		return "capacity_exceeded"
	case KindCircuitOpen:
		return "circuit_open"
	case KindTimeout:
		return "timeout"
	case KindTransient:
		return "transient"
	case KindConversion:
		return "conversion"
	case KindCyclicGraph:
		return "cyclic_graph"
	default:
		return "internal"
	}
}

// FailFast reports whether errors of this kind must never be retried.
func (k Kind) FailFast() bool {
	switch k {
	case KindValidation, KindCapacityExceeded, KindCircuitOpen, KindCyclicGraph:
		return true
	default:
		return false
	}
}

// Error is an error tagged with a Kind.
type Error struct {
	// Kind classifies the error.
	Kind Kind

	// Op names the operation that failed (e.g. "bulkhead.execute").
	Op string

	// Msg is a human readable description.
	Msg string

	// Err is the underlying cause, if any.
	Err error
}

// Error returns the error message.
func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the cause error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a kind marker matching this error's kind.
func (e *Error) Is(target error) bool {
	m, ok := target.(kindMarker)
	return ok && m.kind == e.Kind
}

// New creates a tagged error.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Newf creates a tagged error with a formatted message.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap tags err with kind. Returns nil if err is nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first tagged error in err's chain.
// Untagged errors are KindInternal.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Marker returns a sentinel usable with errors.Is to test for a kind:
//
//	errors.Is(err, failure.Marker(failure.KindTimeout))
func Marker(kind Kind) error {
	return kindMarker{kind: kind}
}

type kindMarker struct {
	kind Kind
}

func (m kindMarker) Error() string {
	return "failure kind " + m.kind.String()
}
