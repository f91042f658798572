package tts

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies failures at the gateway boundary.
type Kind string

const (
	KindSchemaViolation     Kind = "schema_violation"
	KindUnknownProvider     Kind = "unknown_provider"
	KindInvalidRequest      Kind = "invalid_request"
	KindProviderUnavailable Kind = "provider_unavailable"
	KindNotImplemented      Kind = "not_implemented"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrSchemaViolation     = &Error{Kind: KindSchemaViolation}
	ErrUnknownProvider     = &Error{Kind: KindUnknownProvider}
	ErrInvalidRequest      = &Error{Kind: KindInvalidRequest}
	ErrProviderUnavailable = &Error{Kind: KindProviderUnavailable}
	ErrNotImplemented      = &Error{Kind: KindNotImplemented}
)

// Error is a classified failure. Message and Err are diagnostic detail only;
// Kind is what callers branch on.
type Error struct {
	Kind     Kind
	Provider string
	// Field is the offending payload path for schema violations ("" is the root).
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Provider != "" {
		msg = e.Provider + ": " + msg
	}
	if e.Field != "" {
		msg += " at " + e.Field
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Provider == "" && t.Message == "" && t.Err == nil
}

func SchemaViolation(field, msg string) *Error {
	return &Error{Kind: KindSchemaViolation, Field: field, Message: msg}
}

func UnknownProvider(id string) *Error {
	return &Error{Kind: KindUnknownProvider, Message: fmt.Sprintf("provider %q is not registered", id)}
}

func InvalidRequest(provider, msg string, err error) *Error {
	return &Error{Kind: KindInvalidRequest, Provider: provider, Message: msg, Err: err}
}

func Unavailable(provider, msg string, err error) *Error {
	return &Error{Kind: KindProviderUnavailable, Provider: provider, Message: msg, Err: err}
}

func NotImplemented(provider, msg string) *Error {
	return &Error{Kind: KindNotImplemented, Provider: provider, Message: msg}
}

// KindOf returns the kind of err, or "" when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Classify re-tags a provider failure into the taxonomy. Classified errors keep
// their kind; context errors and anything untagged become ProviderUnavailable.
func Classify(provider string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Provider == "" && e.Kind != KindSchemaViolation && e.Kind != KindUnknownProvider {
			c := *e
			c.Provider = provider
			return &c
		}
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Unavailable(provider, "deadline exceeded", err)
	}
	if errors.Is(err, context.Canceled) {
		return Unavailable(provider, "request canceled", err)
	}
	return Unavailable(provider, "", err)
}
