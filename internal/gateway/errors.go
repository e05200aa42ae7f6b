package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnsupportedMethod is wrapped by errors raised for verbs the gateway does not dispatch.
var ErrUnsupportedMethod = errors.New("gateway: unsupported method")

// ErrForeignHost is wrapped by errors raised for absolute URLs outside the backend host.
var ErrForeignHost = errors.New("gateway: URL outside the backend host")

// ErrorKind classifies gateway failures.
type ErrorKind int

const (
	// KindResponse means the backend answered with a non-2xx status.
	KindResponse ErrorKind = iota + 1
	// KindTransport means no response was received.
	KindTransport
	// KindUnsupportedMethod is a programming error raised before any network call.
	KindUnsupportedMethod
)

func (k ErrorKind) String() string {
	switch k {
	case KindResponse:
		return "response"
	case KindTransport:
		return "transport"
	case KindUnsupportedMethod:
		return "unsupported_method"
	default:
		return "unknown"
	}
}

// Error is returned by every gateway operation that fails.
type Error struct {
	Kind    ErrorKind
	Method  string
	Path    string
	Status  int
	Message string
	Body    []byte
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case KindResponse:
		detail := e.Message
		if detail == "" {
			detail = http.StatusText(e.Status)
		}
		return fmt.Sprintf("gateway: %s %s: status %d: %s", e.Method, e.Path, e.Status, detail)
	case KindUnsupportedMethod:
		return fmt.Sprintf("gateway: unsupported method %q", e.Method)
	default:
		return fmt.Sprintf("gateway: %s %s: %v", e.Method, e.Path, e.Err)
	}
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// HasResponse reports whether the backend answered at all.
func (e *Error) HasResponse() bool {
	return e.Kind == KindResponse
}

// ServerMessage returns the message the backend supplied in its error body, if any.
func (e *Error) ServerMessage() string {
	return strings.TrimSpace(e.Message)
}

// MessageOr returns the server-supplied message carried by err, or fallback.
func MessageOr(err error, fallback string) string {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		if msg := gwErr.ServerMessage(); msg != "" {
			return msg
		}
	}
	return fallback
}

// StatusOf returns the response status carried by err when the backend answered.
func StatusOf(err error) (int, bool) {
	var gwErr *Error
	if errors.As(err, &gwErr) && gwErr.HasResponse() {
		return gwErr.Status, true
	}
	return 0, false
}

func serverMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Message
}
