// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

package api

import (
	"errors"
	"fmt"
)

// TransportError is returned when no envelope could be obtained: the
// connection failed, the server answered with a non-2xx status, or the body
// was not a decodable envelope.
type TransportError struct {
	Method     string
	Path       string
	StatusCode int    // 0 when no response was received
	Status     string // status text or a short description of the failure
	Err        error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Status)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ApplicationError is a delivered envelope whose code is not CodeOK.
type ApplicationError struct {
	Code int
	Msg  string
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("code: %d, msg: %s", e.Code, e.Msg)
}

// Message returns the text a user should see for err: the envelope msg for
// application errors, the status text for transport errors, and err.Error()
// for everything else.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var appErr *ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Msg
	}
	var tErr *TransportError
	if errors.As(err, &tErr) {
		return tErr.Status
	}
	return err.Error()
}

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var tErr *TransportError
	return errors.As(err, &tErr)
}

// IsApplication reports whether err is (or wraps) an ApplicationError.
func IsApplication(err error) bool {
	var appErr *ApplicationError
	return errors.As(err, &appErr)
}
