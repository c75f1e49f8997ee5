package api

import (
	"errors"
	"fmt"
)

// Kind classifies a request failure for the caller's recovery policy.
type Kind int

const (
	// KindTransient is a network or backend hiccup: keep the last known
	// state and let the next scheduled attempt retry.
	KindTransient Kind = iota
	// KindNotFound means the identity does not exist. Terminal.
	KindNotFound
	// KindUnauthenticated means the action needs a credential. Raised
	// locally before any network write when the session has none.
	KindUnauthenticated
	// KindDomainRejected is a business-rule refusal from the server,
	// e.g. liking your own broadcast. Detail carries the reason.
	KindDomainRejected
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindDomainRejected:
		return "domain_rejected"
	default:
		return "transient"
	}
}

// Error is a classified request failure.
type Error struct {
	Kind       Kind
	StatusCode int
	Detail     string
	cause      error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api: %s: %s", e.Kind, e.Detail)
	}
	if e.cause != nil {
		return fmt.Sprintf("api: %s: %v", e.Kind, e.cause)
	}
	return fmt.Sprintf("api: %s (status %d)", e.Kind, e.StatusCode)
}

func (e *Error) Unwrap() error { return e.cause }

// Classify returns the failure kind, treating unclassified errors
// (including wrapped transport errors) as transient.
func Classify(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindTransient
}

// Detail returns the server-provided reason, if any.
func Detail(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return ""
}

func IsNotFound(err error) bool        { return Classify(err) == KindNotFound }
func IsTransient(err error) bool       { return Classify(err) == KindTransient }
func IsUnauthenticated(err error) bool { return Classify(err) == KindUnauthenticated }
func IsDomainRejected(err error) bool  { return Classify(err) == KindDomainRejected }
