package generation

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorKind classifies a failed generation. Callers distinguish "the
// provider rejected this" from "the provider was unreachable", so adapters
// must preserve the classification exactly.
type ErrorKind string

const (
	// KindValidation covers failures detected locally before any network
	// call: empty prompt, unknown model, missing credential.
	KindValidation ErrorKind = "validation"
	// KindProviderRejection means the call reached the provider and came
	// back non-2xx with a parseable body.
	KindProviderRejection ErrorKind = "provider_rejection"
	// KindTransport means the request was sent but no response arrived.
	KindTransport ErrorKind = "transport"
	// KindUnexpectedResponse means a 2xx body that does not match the
	// provider's documented schema.
	KindUnexpectedResponse ErrorKind = "unexpected_response"
	// KindSetup covers failures constructing the request or reading
	// local state needed to make it.
	KindSetup ErrorKind = "setup"
)

// Error is the uniform failure value every adapter and the orchestrator
// produce. Nothing past the orchestrator propagates as anything else.
type Error struct {
	Kind      ErrorKind
	Message   string
	RawDetail json.RawMessage
}

func (e *Error) Error() string {
	return e.Message
}

// NewError builds a classified generation error.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Errorf builds a classified generation error with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithRawDetail attaches the provider's raw body for diagnostics.
func (e *Error) WithRawDetail(raw []byte) *Error {
	if len(raw) > 0 {
		e.RawDetail = json.RawMessage(raw)
	}
	return e
}

// AsError converts any error into a *Error, wrapping unclassified errors
// as setup failures so callers always see the uniform shape.
func AsError(err error) *Error {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr
	}
	return NewError(KindSetup, err.Error())
}
