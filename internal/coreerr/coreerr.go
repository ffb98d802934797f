// Package coreerr defines the error taxonomy shared by the vector
// tile-coverage pipeline: hard errors that abort a pass and soft errors
// that a SoftErrorPolicy may tolerate up to a threshold.
package coreerr

import "fmt"

// Kind classifies an error the way the pipeline's callers need to react to it.
type Kind int

const (
	// IoFailure covers open/read/write/mmap failures. Always fatal.
	IoFailure Kind = iota
	// InvalidFormat covers bad magic, size mismatches, out-of-range levels. Always fatal.
	InvalidFormat
	// InvalidArgument covers bad subset/total, invalid extents, unknown codecs. Always fatal.
	InvalidArgument
	// InvalidGeometry covers an empty geode after clip or a degenerate ring. Soft.
	InvalidGeometry
	// InvalidAttribute covers attribute encoding failure or type mismatch. Soft.
	InvalidAttribute
	// ScriptError covers expression compile/evaluate failure. Always fatal.
	ScriptError
	// Interrupted means cancellation was observed; callers return early without further error.
	Interrupted
	// OutOfDomain means a feature's bounding box fell outside the normalized world. Soft.
	OutOfDomain
)

func (k Kind) String() string {
	switch k {
	case IoFailure:
		return "IoFailure"
	case InvalidFormat:
		return "InvalidFormat"
	case InvalidArgument:
		return "InvalidArgument"
	case InvalidGeometry:
		return "InvalidGeometry"
	case InvalidAttribute:
		return "InvalidAttribute"
	case ScriptError:
		return "ScriptError"
	case Interrupted:
		return "Interrupted"
	case OutOfDomain:
		return "OutOfDomain"
	default:
		return "Unknown"
	}
}

// Soft reports whether errors of this kind are tolerated (counted) by a
// SoftErrorPolicy rather than aborting the enclosing pass immediately.
func (k Kind) Soft() bool {
	switch k {
	case InvalidGeometry, InvalidAttribute, OutOfDomain:
		return true
	default:
		return false
	}
}

// Error is the concrete error type produced across the pipeline.
type Error struct {
	Kind    Kind
	Op      string // operation that failed, e.g. "PresenceMask.Load"
	Path    string // file or resource path, if applicable
	Message string
	Err     error // wrapped cause, if any
}

func (e *Error) Error() string {
	var s string
	if e.Path != "" {
		s = fmt.Sprintf("%s: %s (%s): %s", e.Op, e.Kind, e.Path, e.Message)
	} else {
		s = fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
	}
	if e.Err != nil {
		return s + ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error without a wrapped cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap builds an Error around an existing cause.
func Wrap(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Message: err.Error(), Err: err}
}

// WithPath attaches a resource path to an Error and returns it, for chaining.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// Of reports whether err is a *Error of the given Kind (directly, not via Unwrap chains
// of other error types).
func Of(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
