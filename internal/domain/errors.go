package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure so presentation code can pick retry-vs-fatal
// messaging without parsing error strings.
type Kind int

const (
	KindUnknown Kind = iota
	// KindInvalidInput: the caller supplied an unusable query or parameter.
	KindInvalidInput
	// KindNotFound: the query resolved to zero locations. User-correctable.
	KindNotFound
	// KindUpstreamError: the provider answered but reported failure or sent
	// a payload missing required fields.
	KindUpstreamError
	// KindUpstreamUnavailable: transport failure or timeout. Retryable.
	KindUpstreamUnavailable
)

var kindNames = map[Kind]string{
	KindUnknown:             "unknown",
	KindInvalidInput:        "invalid_input",
	KindNotFound:            "not_found",
	KindUpstreamError:       "upstream_error",
	KindUpstreamUnavailable: "upstream_unavailable",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText encodes the kind as its snake_case name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses the output of MarshalText.
func (k *Kind) UnmarshalText(b []byte) error {
	for kind, name := range kindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown error kind %q", b)
}

// Retryable reports whether repeating the same request may succeed.
func (k Kind) Retryable() bool {
	return k == KindUpstreamUnavailable || k == KindUpstreamError
}

// Error is the structured failure returned by every component.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "geocode.resolve"
	Msg  string // human-readable detail
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels (ErrNotFound etc.) so errors.Is works on
// wrapped failures.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// Kind sentinels for use with errors.Is.
var (
	ErrInvalidInput        = &Error{Kind: KindInvalidInput}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrUpstream            = &Error{Kind: KindUpstreamError}
	ErrUpstreamUnavailable = &Error{Kind: KindUpstreamUnavailable}
)

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message returns the human-readable part of err without the op prefix.
func Message(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ": " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String()
	}
}

// InvalidInputf builds a KindInvalidInput error.
func InvalidInputf(op, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a KindNotFound error.
func NotFoundf(op, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// UpstreamErrorf builds a KindUpstreamError error wrapping cause (may be nil).
func UpstreamErrorf(op string, cause error, format string, args ...any) *Error {
	return &Error{Kind: KindUpstreamError, Op: op, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// Unavailable builds a KindUpstreamUnavailable error wrapping cause.
func Unavailable(op string, cause error) *Error {
	return &Error{Kind: KindUpstreamUnavailable, Op: op, Msg: "upstream unreachable", Err: cause}
}
