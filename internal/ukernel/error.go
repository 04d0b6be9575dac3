package ukernel

import (
	"errors"
	"fmt"
)

// ErrorKind enumerates the ways resolution can fail.
type ErrorKind uint8

const (
	// ErrUnsupportedTarget indicates the width class or architecture name
	// could not be derived from the target.
	ErrUnsupportedTarget ErrorKind = iota + 1
	// ErrMissingArtifact indicates the mandatory base module is not in the
	// catalog, which is a packaging bug.
	ErrMissingArtifact
	// ErrParse indicates the catalog blob could not be parsed.
	ErrParse
)

// String returns the string representation of ErrorKind.
func (k ErrorKind) String() string {
	switch k {
	case ErrUnsupportedTarget:
		return "unsupported target"
	case ErrMissingArtifact:
		return "missing mandatory artifact"
	case ErrParse:
		return "parse failure"
	default:
		return "unknown"
	}
}

// Error is the error carried by a failed Result.
type Error struct {
	Kind ErrorKind
	Name string // catalog name involved, "" if none could be derived
	Msg  string
	Err  error // parser diagnostic for ErrParse
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case ErrUnsupportedTarget:
		return e.Msg
	case ErrMissingArtifact:
		return fmt.Sprintf("%s: %s", e.Msg, e.Name)
	case ErrParse:
		if e.Err != nil {
			return fmt.Sprintf("ukernel bitcode parse error: %v", e.Err)
		}
		return fmt.Sprintf("ukernel bitcode parse error: %s", e.Name)
	default:
		return fmt.Sprintf("ukernel error kind=%d: %s", e.Kind, e.Msg)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// KindOf returns the ErrorKind of err, or 0 if err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
