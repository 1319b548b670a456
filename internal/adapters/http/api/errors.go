package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrTooLarge   = errors.New("upload too large")
	ErrLimit      = errors.New("limit exceeded")
	ErrRender     = errors.New("render failed")
)

// Error ties a failure to the handler operation that produced it.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Kind != nil && e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Kind != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Wrap annotates err with op. A nil err stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// WrapKind annotates err with op and classifies it as kind.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// NewKind builds an error of kind with a detail message.
func NewKind(op string, kind error, msg string) error {
	return &Error{Op: op, Kind: kind, Err: errors.New(msg)}
}
