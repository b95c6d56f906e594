package blf

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies a decoding failure.
type ErrorKind int

const (
	// NotMine means the file is shorter than the file header or the magic
	// does not match. Only ever returned from Open.
	NotMine ErrorKind = iota
	// BadFile means the file is structurally invalid: insufficient bytes for
	// a declared struct, an object_length too small for its header, a frame
	// longer than its containing object.
	BadFile
	// Decompress means zlib refused the compressed stream.
	Decompress
	// Unsupported means an unknown compression method, an unknown block
	// header type, a nested LOG_CONTAINER, or missing decompression support.
	Unsupported
	// OutOfMemory means an allocation failed while inflating a container.
	OutOfMemory
	// Internal means an invariant of the container index was violated. This
	// should be unreachable for well-formed files.
	Internal
	// ShortRead means the underlying I/O returned fewer bytes than requested.
	// The scanning loop translates a trailing short read into a clean
	// end-of-file; ShortRead otherwise propagates.
	ShortRead
)

func (k ErrorKind) String() string {
	switch k {
	case NotMine:
		return "NotMine"
	case BadFile:
		return "BadFile"
	case Decompress:
		return "Decompress"
	case Unsupported:
		return "Unsupported"
	case OutOfMemory:
		return "OutOfMemory"
	case Internal:
		return "Internal"
	case ShortRead:
		return "ShortRead"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is the error type returned by every decoding operation in this
// package. It carries a Kind that callers can switch on, plus an optional
// wrapped cause.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("blf: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("blf: %s: %s", e.Kind, e.Msg)
}

// Unwrap allows errors.Is/errors.As to reach the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

func newErrorf(kind ErrorKind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// IsKind reports whether err is (or wraps) a *Error of the specified Kind.
func IsKind(err error, kind ErrorKind) bool {
	var be *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			be = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return be != nil && be.Kind == kind
}

// wrap attaches additional context to err in the teacher's pkg/errors idiom,
// preserving its Kind if err is already an *Error.
func wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	if be, ok := err.(*Error); ok {
		return &Error{Kind: be.Kind, Msg: msg + ": " + be.Msg, Err: be.Err}
	}
	return errors.Wrap(err, msg)
}
