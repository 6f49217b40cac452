// Package apperr defines the tagged error type shared by the service layers.
// Handlers switch on the kind instead of matching message prefixes.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindConfig   Kind = "config"
	KindNotFound Kind = "not_found"
	KindAuth     Kind = "auth"
	KindUpstream Kind = "upstream"
)

// Error carries an error kind, a human-readable message, and for upstream
// failures the provider HTTP status when known (0 otherwise).
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Config(msg string) *Error   { return &Error{Kind: KindConfig, Message: msg} }
func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Message: msg} }
func Auth(msg string) *Error     { return &Error{Kind: KindAuth, Message: msg} }

func Upstream(status int, msg string) *Error {
	return &Error{Kind: KindUpstream, Message: msg, Status: status}
}

// KindOf reports the kind of err, unwrapping as needed. Errors that do not
// carry a kind return the empty string.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// StatusOf returns the upstream HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}
