// Package apperr defines the error kinds surfaced by routing, extraction and
// answer assembly.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so callers can tell "no file" apart from
// "OCR failed" or "LLM unavailable".
type Kind string

const (
	MissingInput              Kind = "missing_input"
	UnsupportedType           Kind = "unsupported_type"
	FileNotFound              Kind = "file_not_found"
	ExtractionFailed          Kind = "extraction_failed"
	UnsupportedSource         Kind = "unsupported_source"
	UpstreamServiceFailure    Kind = "upstream_service_failure"
	MalformedUpstreamResponse Kind = "malformed_upstream_response"
)

// Error is the error payload returned by the router and the query agent.
// Source is the offending input or the failing stage.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"error"`
	Source  string `json:"source,omitempty"`
	Detail  string `json:"detail,omitempty"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// New returns an Error of the given kind.
func New(kind Kind, msg, source string) *Error {
	return &Error{Kind: kind, Message: msg, Source: source}
}

// Wrap returns an Error of the given kind carrying cause.
func Wrap(kind Kind, cause error, source, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Source: source, Cause: cause}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// HTTPStatus maps a Kind to the status code used by the HTTP API.
func HTTPStatus(kind Kind) int {
	switch kind {
	case MissingInput, UnsupportedSource:
		return http.StatusBadRequest
	case FileNotFound:
		return http.StatusNotFound
	case UnsupportedType:
		return http.StatusUnsupportedMediaType
	case ExtractionFailed:
		return http.StatusUnprocessableEntity
	case UpstreamServiceFailure, MalformedUpstreamResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
