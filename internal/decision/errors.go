package decision

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a decision failure.
type ErrorKind string

const (
	KindExecutionFailed      ErrorKind = "execution_failed"
	KindParse                ErrorKind = "parse_error"
	KindTimeout              ErrorKind = "timeout"
	KindNotInstalled         ErrorKind = "not_installed"
	KindAuthenticationFailed ErrorKind = "authentication_failed"
	KindInvalidResponse      ErrorKind = "invalid_response"
)

// Error is returned by every Provider operation that fails.
type Error struct {
	Kind   ErrorKind
	Detail string
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrExecutionFailed      = &Error{Kind: KindExecutionFailed}
	ErrParse                = &Error{Kind: KindParse}
	ErrTimeout              = &Error{Kind: KindTimeout}
	ErrNotInstalled         = &Error{Kind: KindNotInstalled}
	ErrAuthenticationFailed = &Error{Kind: KindAuthenticationFailed}
	ErrInvalidResponse      = &Error{Kind: KindInvalidResponse}
)

// ErrUnknownBackend is a configuration error: the selector names no backend.
var ErrUnknownBackend = errors.New("unknown decision backend")

func (e *Error) Error() string {
	switch e.Kind {
	case KindExecutionFailed:
		return "decision execution failed: " + e.Detail
	case KindParse:
		return "failed to parse decision response: " + e.Detail
	case KindTimeout:
		if e.Detail != "" {
			return "decision request timed out after " + e.Detail
		}
		return "decision request timed out"
	case KindNotInstalled:
		return e.Detail + " CLI not installed"
	case KindAuthenticationFailed:
		if e.Detail != "" {
			return "authentication failed: " + e.Detail
		}
		return "authentication failed"
	case KindInvalidResponse:
		return "invalid decision response: " + e.Detail
	default:
		return fmt.Sprintf("decision error (%s): %s", e.Kind, e.Detail)
	}
}

// Is matches sentinels by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Detail == "" && t.Kind == e.Kind
}

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a decision error, or "" if err is not one.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
