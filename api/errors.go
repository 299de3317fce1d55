package api

import (
	"errors"
	"fmt"
)

// Kind classifies a failed call for the caller's user-facing taxonomy.
type Kind string

const (
	// KindNetwork: the request never got a response.
	KindNetwork Kind = "network"
	// KindUnauthorized: 401/403, or the token refresh itself failed.
	KindUnauthorized Kind = "unauthorized"
	// KindServer: 5xx-class failure.
	KindServer Kind = "server"
	// KindUnknown: anything else.
	KindUnknown Kind = "unknown"
)

// Error is the typed failure returned by every Client call.
type Error struct {
	Kind   Kind
	Status int
	Detail string
	cause  error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api: %s (%s)", e.Detail, e.Kind)
	}
	if e.cause != nil {
		return fmt.Sprintf("api: %v (%s)", e.cause, e.Kind)
	}
	return fmt.Sprintf("api: request failed with status %d (%s)", e.Status, e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

// Classify extracts the Kind from any error returned by this package.
func Classify(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}
