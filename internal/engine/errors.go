package engine

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Kind classifies an engine failure.
type Kind int

const (
	KindValidation    Kind = iota + 1 // unknown id, bad argument
	KindStateConflict                 // duplicate membership, dead member, wrong status
	KindResource                      // not enough money or stock
	KindInvariant                     // corrupted aggregate
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindStateConflict:
		return "state conflict"
	case KindResource:
		return "resource"
	case KindInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// Error is the failure value carried in Result.Err.
type Error struct {
	Kind Kind
	Op   string
	Msg  string

	// Set for KindResource.
	Required  int
	Available int

	Err error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Kind == KindResource {
		msg = fmt.Sprintf("%s (need $%s, have $%s)", e.Msg, humanize.Comma(int64(e.Required)), humanize.Comma(int64(e.Available)))
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the Err* sentinels by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Msg != "" {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrStateConflict = &Error{Kind: KindStateConflict}
	ErrResource      = &Error{Kind: KindResource}
	ErrInvariant     = &Error{Kind: KindInvariant}
)

func validationf(op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func conflictf(op, format string, args ...any) *Error {
	return &Error{Kind: KindStateConflict, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func resourceErr(op, msg string, required, available int) *Error {
	return &Error{Kind: KindResource, Op: op, Msg: msg, Required: required, Available: available}
}

func invariantErr(op string, err error) *Error {
	return &Error{Kind: KindInvariant, Op: op, Msg: "state rejected", Err: err}
}
