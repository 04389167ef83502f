package naperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is a stable, testable error category. Callers dispatch on the kind
// rather than on error message text.
type Kind string

const (
	ConfigMissing    Kind = "CONFIG_MISSING"
	InvalidInput     Kind = "INVALID_INPUT"
	AuthFailed       Kind = "AUTH_FAILED"
	Unreachable      Kind = "UNREACHABLE"
	Protocol         Kind = "PROTOCOL"
	CliCommandFailed Kind = "CLI_COMMAND_FAILED"
	PartialState     Kind = "PARTIAL_STATE"
	TransientDB      Kind = "TRANSIENT_DB"
)

// Error carries a kind tag, a single-line cause and an optional diagnostic
// block (addresses, attempt counts, matched error lines). Secrets must never
// be placed in Msg or Diag.
type Error struct {
	Kind Kind
	Msg  string
	Diag []string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Msg)
	for _, line := range e.Diag {
		b.WriteString("\n  ")
		b.WriteString(line)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind around an underlying cause.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// WithDiag appends diagnostic lines and returns the same error.
func (e *Error) WithDiag(lines ...string) *Error {
	e.Diag = append(e.Diag, lines...)
	return e
}

// KindOf returns the kind of err, or "" when err carries no kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err (or anything it wraps) has the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
