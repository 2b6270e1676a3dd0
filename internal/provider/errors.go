package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a provider failure for retry decisions.
type ErrorKind string

const (
	// KindRateLimited means the backend throttled the request. Retryable.
	KindRateLimited ErrorKind = "rate_limited"
	// KindTimeout means the request or stream timed out. Retryable.
	KindTimeout ErrorKind = "timeout"
	// KindInvalidRequest means the request itself is bad. Not retryable.
	KindInvalidRequest ErrorKind = "invalid_request"
	// KindUnavailable covers backend outages and unknown failures. Not
	// retried; surfaced to the caller.
	KindUnavailable ErrorKind = "unavailable"
)

// Error is a normalized provider failure.
type Error struct {
	Kind     ErrorKind
	Provider string
	Model    string
	Status   int
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (%s, status %d)", e.Provider, e.Message, e.Kind, e.Status)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the failure is transient.
func (e *Error) Retryable() bool {
	return e.Kind == KindRateLimited || e.Kind == KindTimeout
}

// Classify normalizes an arbitrary backend error into *Error. Already
// normalized errors pass through unchanged.
func Classify(provider, model string, err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}

	kind := KindUnavailable
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.Is(err, context.Canceled):
		kind = KindTimeout
	default:
		msg := strings.ToLower(err.Error())
		switch {
		case strings.Contains(msg, "rate limit"), strings.Contains(msg, "429"),
			strings.Contains(msg, "quota"), strings.Contains(msg, "overloaded"):
			kind = KindRateLimited
		case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"),
			strings.Contains(msg, "timed out"):
			kind = KindTimeout
		case strings.Contains(msg, "400"), strings.Contains(msg, "invalid"),
			strings.Contains(msg, "context length"), strings.Contains(msg, "maximum context"),
			strings.Contains(msg, "401"), strings.Contains(msg, "403"),
			strings.Contains(msg, "not found"):
			kind = KindInvalidRequest
		}
	}

	return &Error{
		Kind:     kind,
		Provider: provider,
		Model:    model,
		Message:  err.Error(),
		Cause:    err,
	}
}

// IsKind reports whether err is a provider error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == kind
}
