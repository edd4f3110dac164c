package rabc

import (
	"errors"
	"fmt"
)

// Kind classifies an Error. The String form is the machine-readable kind
// handed across the C boundary.
type Kind int

const (
	// KindIpcConnectionError means the peer hung up.
	KindIpcConnectionError Kind = iota + 1
	// KindExceededIpcMaxSize means a frame or length prefix violated the size guard.
	KindExceededIpcMaxSize
	// KindInvalidArgument means bad input at construction or configuration.
	KindInvalidArgument
	// KindBug means an internal invariant was violated or the OS failed unexpectedly.
	KindBug
)

func (k Kind) String() string {
	switch k {
	case KindIpcConnectionError:
		return "IpcConnectionError"
	case KindExceededIpcMaxSize:
		return "ExceededIpcMaxSize"
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindBug:
		return "Bug"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Sentinels for errors.Is matching by kind.
var (
	ErrIpcConnection      = &Error{Kind: KindIpcConnectionError}
	ErrExceededIpcMaxSize = &Error{Kind: KindExceededIpcMaxSize}
	ErrInvalidArgument    = &Error{Kind: KindInvalidArgument}
	ErrBug                = &Error{Kind: KindBug}
)

// Error is the single error type returned by the core.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports a match against another *Error with the same kind and no
// message, which is how the package sentinels are shaped.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// Pair returns the kind and human-readable message as independent strings.
func (e *Error) Pair() (kind, message string) {
	message = e.Msg
	if e.Err != nil {
		message = fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Kind.String(), message
}

// KindOf returns the Kind of err, treating anything that is not an *Error as a bug.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindBug
}

// ErrorPair converts any error into the (kind, message) pair used at the C
// boundary. A nil error yields two empty strings.
func ErrorPair(err error) (kind, message string) {
	if err == nil {
		return "", ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Pair()
	}
	return KindBug.String(), err.Error()
}
