// Package apperr defines the error kinds surfaced by the client service.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for propagation and HTTP mapping
type Kind string

const (
	ConfigurationMissing Kind = "configuration_missing"
	NetworkFailure       Kind = "network_failure"
	RemoteRejected       Kind = "remote_rejected"
	ValidationRejected   Kind = "validation_rejected"
	ParseFailure         Kind = "parse_failure"
)

// Error is a classified failure. StatusCode is set for RemoteRejected only.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind, so errors.Is(err, &Error{Kind: k}) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func MissingEndpoint(name string) *Error {
	return &Error{Kind: ConfigurationMissing, Message: fmt.Sprintf("%s endpoint is not configured", name)}
}

func Network(op string, err error) *Error {
	return &Error{Kind: NetworkFailure, Message: op + " failed: could not reach the remote store, check the connection", Err: err}
}

func Remote(op string, status int, body string) *Error {
	msg := fmt.Sprintf("%s rejected with status %d", op, status)
	if body != "" {
		msg += ": " + body
	}
	return &Error{Kind: RemoteRejected, Message: msg, StatusCode: status}
}

func Validation(reason string) *Error {
	return &Error{Kind: ValidationRejected, Message: reason}
}

func Parse(what string, err error) *Error {
	return &Error{Kind: ParseFailure, Message: "unrecognised " + what + " response", Err: err}
}

// KindOf returns the kind of err, or "" when err is not classified
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
