// Package adapter provides implementations for external AI provider integrations.
package adapter

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/quillforge/aiengine/internal/domain"
)

// ErrorKind is the structured failure classification produced at the
// adapter boundary. The orchestrator branches on kinds, never on vendor
// error text, so failover logic stays decoupled from vendor wording.
type ErrorKind string

const (
	// KindRateLimited means the vendor signalled throttling or quota
	// exhaustion. Temporary: cools the key down, never disables it.
	KindRateLimited ErrorKind = "rate_limited"

	// KindAuthFailed means the key was rejected (invalid or revoked).
	KindAuthFailed ErrorKind = "auth_failed"

	// KindTransport covers network failures, timeouts, malformed
	// responses, and vendor server errors.
	KindTransport ErrorKind = "transport"

	// KindEmpty means the call succeeded transport-wise but returned no
	// usable content.
	KindEmpty ErrorKind = "empty_result"
)

// Error is the classified failure returned by every adapter method.
type Error struct {
	// Provider is the vendor that produced the failure.
	Provider domain.ProviderID

	// Kind is the failover-relevant classification.
	Kind ErrorKind

	// StatusCode is the HTTP status, when a response was received.
	// Zero means the call never completed at the HTTP layer.
	StatusCode int

	// Message is a human-readable reason. Raw vendor text may be kept
	// here for diagnostics; callers surface the classification instead.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Provider, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Reached reports whether the call reached the vendor at the HTTP layer.
func (e *Error) Reached() bool {
	return e.StatusCode > 0
}

// classifyStatus maps an HTTP status code to an error kind. Classification
// relies on explicit status codes rather than substring matching on error
// text: 429 is throttling, 401/403 is a key rejection, and everything else
// (including 5xx) is a transport-class failure.
func classifyStatus(status int) ErrorKind {
	switch status {
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuthFailed
	default:
		return KindTransport
	}
}

// httpError builds a classified error from a non-2xx vendor response.
func httpError(provider domain.ProviderID, status int, message string) *Error {
	return &Error{
		Provider:   provider,
		Kind:       classifyStatus(status),
		StatusCode: status,
		Message:    message,
	}
}

// transportError wraps a failure that never produced an HTTP response.
func transportError(provider domain.ProviderID, err error) *Error {
	return &Error{
		Provider: provider,
		Kind:     KindTransport,
		Message:  err.Error(),
		Cause:    err,
	}
}

// emptyError reports a transport-successful call with no usable content.
func emptyError(provider domain.ProviderID, status int) *Error {
	return &Error{
		Provider:   provider,
		Kind:       KindEmpty,
		StatusCode: status,
		Message:    "provider returned no content",
	}
}

// KindOf extracts the classification from an error. Unclassified errors
// (context cancellation, programming mistakes) count as transport failures.
func KindOf(err error) ErrorKind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindTransport
}

// IsRateLimited reports whether err is a rate-limit/quota classification.
func IsRateLimited(err error) bool {
	return KindOf(err) == KindRateLimited
}
