// Package errors defines the custom error types and sentinel errors used
// throughout the recursive reasoning gateway. All errors carry a
// machine-readable Code that callers can inspect without string matching,
// and optionally wrap an underlying cause so that errors.Is / errors.As
// chains work correctly.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// GatewayError is the single concrete error type used throughout the
// gateway. Code is a stable, machine-readable identifier; Message is a
// human-readable description. Cause, when non-nil, is the underlying error
// that triggered this one.
type GatewayError struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause so that errors.Is and errors.As can
// traverse the chain.
func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is work correctly for GatewayError sentinels. Two
// GatewayErrors are considered equal when their Code fields match,
// regardless of Message or Cause. This allows callers to wrap a sentinel
// with additional context (via Wrap) while still matching with errors.Is.
func (e *GatewayError) Is(target error) bool {
	var t *GatewayError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Wrap returns a new GatewayError that shares the code and message of base
// but records cause as its underlying error. Use this when you want to
// attach a root cause to a sentinel:
//
//	return errors.Wrap(errors.ErrBackendHTTP, err)
func Wrap(base *GatewayError, cause error) *GatewayError {
	return &GatewayError{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Sentinel errors. These are package-level values that callers compare with
// errors.Is. Because GatewayError is a struct, each sentinel is a pointer;
// errors.Is matches by value equality on the Code field via Is() above.

// ErrModelNotInLadder marks a violation of the escalation ladder's core
// invariant: every model the Inner Loop walks must be a member of its own
// ladder. It serves two distinct call sites:
//
//   - escalation.indexOfModel panics with this sentinel when the invariant
//     is violated internally — a programming error, since escalation state
//     is never constructed except from an already-validated model.
//   - Gateway.ResolveInitialModel returns this same sentinel as a plain
//     error instead: a client-supplied model name is untrusted input, so it
//     is validated against the ladder at the HTTP boundary rather than ever
//     letting the invariant be violated in the first place.
var ErrModelNotInLadder = &GatewayError{
	Code:    "model_not_in_ladder",
	Message: "model is not present in the escalation ladder",
}

// ErrNotEscalatable is returned by escalation.Escalate when CanEscalate is
// false: the ladder is exhausted or the attempt budget is spent. This is an
// expected runtime outcome, not a programming error.
var ErrNotEscalatable = &GatewayError{
	Code:    "not_escalatable",
	Message: "escalation state cannot escalate further",
}

// ErrBackendHTTP is returned when the backend LLM API responds with a
// non-2xx status. The status code is recorded in Message.
var ErrBackendHTTP = &GatewayError{
	Code:    "backend_http_error",
	Message: "backend returned a non-2xx response",
}

// ErrInvalidBackendResponse is returned when the backend's /api/chat
// response cannot be parsed, or parses to an empty message content.
var ErrInvalidBackendResponse = &GatewayError{
	Code:    "invalid_backend_response",
	Message: "backend chat response was malformed or empty",
}

// ErrInvalidEmbeddingResponse is returned when the backend's
// /api/embeddings response cannot be parsed, or parses to an empty vector.
var ErrInvalidEmbeddingResponse = &GatewayError{
	Code:    "invalid_embedding_response",
	Message: "backend embeddings response was malformed or empty",
}

// ErrStreamingUnsupported is returned when a caller requests a streaming
// chat completion from the LLM Provider. The provider abstraction always
// issues non-streaming backend requests; streaming toward the gateway's own
// HTTP clients is handled entirely at the httpserver layer.
var ErrStreamingUnsupported = &GatewayError{
	Code:    "streaming_unsupported",
	Message: "the LLM provider does not support streaming backend requests",
}

// ErrBackendUnreachable is returned when the backend cannot be reached at
// all (network failure, DNS error, connection refused).
var ErrBackendUnreachable = &GatewayError{
	Code:    "backend_unreachable",
	Message: "backend endpoint is unreachable",
}

// HTTPStatus attaches an HTTP status code to a copy of base, for use with
// ErrBackendHTTP where the code must travel with the error instance.
func HTTPStatus(base *GatewayError, status int) *GatewayError {
	return &GatewayError{
		Code:    base.Code,
		Message: fmt.Sprintf("%s (status %d)", base.Message, status),
	}
}

// IsTransientError reports whether the error is one that a caller may
// reasonably retry at the transport level. Transient errors are:
//   - backend_unreachable
//
// Non-transient errors include backend_http_error, invalid_backend_response,
// invalid_embedding_response, streaming_unsupported, not_escalatable, and
// the standard library context errors (context.Canceled,
// context.DeadlineExceeded).
func IsTransientError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		return false
	}

	switch gwErr.Code {
	case ErrBackendUnreachable.Code:
		return true
	default:
		return false
	}
}
