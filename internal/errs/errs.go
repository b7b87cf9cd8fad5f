package errs

import (
	"errors"
	"fmt"
)

// Kind classifies failures surfaced by the cache
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindTransport        Kind = "transport_failure"
	KindUnrecognizedKind Kind = "unrecognized_kind"
	KindInvalid          Kind = "invalid"
)

// Sentinels usable with errors.Is
var (
	ErrNotFound         = errors.New("not found")
	ErrTransport        = errors.New("transport failure")
	ErrUnrecognizedKind = errors.New("unrecognized kind")
	ErrInvalid          = errors.New("invalid")
)

// Error carries a failure kind, the operation that failed and the cause
type Error struct {
	Kind   Kind
	Op     string
	Status int // HTTP status for transport failures, 0 otherwise
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := string(e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (%d)", msg, e.Status)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrUnrecognizedKind:
		return e.Kind == KindUnrecognizedKind
	case ErrInvalid:
		return e.Kind == KindInvalid
	}
	return false
}

func NotFound(op string, err error) *Error {
	return &Error{Kind: KindNotFound, Op: op, Err: err}
}

func Transport(op string, status int, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Status: status, Err: err}
}

func UnrecognizedKind(op, discriminator string) *Error {
	return &Error{Kind: KindUnrecognizedKind, Op: op, Err: fmt.Errorf("discriminator %q", discriminator)}
}

func Invalid(op string, err error) *Error {
	return &Error{Kind: KindInvalid, Op: op, Err: err}
}

// IsNotFound reports whether err is a NotFound failure
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
