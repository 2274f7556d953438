package state

import (
	"errors"
	"fmt"
)

// SDKName tags every error message produced by the package.
const SDKName = "AdobeStateLib"

// Kind classifies an Error.
type Kind string

const (
	KindBadArgument        Kind = "ERROR_BAD_ARGUMENT"
	KindBadRequest         Kind = "ERROR_BAD_REQUEST"
	KindUnauthorized       Kind = "ERROR_UNAUTHORIZED"
	KindBadCredentials     Kind = "ERROR_BAD_CREDENTIALS"
	KindPayloadTooLarge    Kind = "ERROR_PAYLOAD_TOO_LARGE"
	KindRequestRateTooHigh Kind = "ERROR_REQUEST_RATE_TOO_HIGH"
	KindInternal           Kind = "ERROR_INTERNAL"
)

// Sentinels for errors.Is. An *Error matches the sentinel of its kind.
var (
	ErrBadArgument        = &Error{Kind: KindBadArgument}
	ErrBadRequest         = &Error{Kind: KindBadRequest}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
	ErrBadCredentials     = &Error{Kind: KindBadCredentials}
	ErrPayloadTooLarge    = &Error{Kind: KindPayloadTooLarge}
	ErrRequestRateTooHigh = &Error{Kind: KindRequestRateTooHigh}
	ErrInternal           = &Error{Kind: KindInternal}
)

// Error is returned by every Client operation that fails.
type Error struct {
	Kind    Kind
	Message string
	// RequestID is the x-request-id reported by the service, if any.
	RequestID string
	// Details holds the request parameters (never credentials) and, for
	// internal errors, the response status and body.
	Details map[string]any
	// Err is the underlying failure, if any.
	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message == "" {
		return fmt.Sprintf("[%s:%s]", SDKName, e.Kind)
	}
	return fmt.Sprintf("[%s:%s] %s", SDKName, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any *Error of the same kind, which makes the exported
// sentinels usable with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" when
// there is none.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

func newError(kind Kind, msg string, details map[string]any, cause error) *Error {
	e := &Error{
		Kind:    kind,
		Message: msg,
		Details: details,
		Err:     cause,
	}
	if id, ok := details["requestId"].(string); ok {
		e.RequestID = id
	}
	return e
}

func badArgument(msg string, details map[string]any) *Error {
	return newError(KindBadArgument, msg, details, nil)
}

func cloneDetails(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src)+3)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
