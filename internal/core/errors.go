// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"errors"
	"fmt"
)

// ErrMissingID is returned when an operation that addresses an existing
// resource is called without an id. No request is sent.
var ErrMissingID = errors.New("resource id is required")

// ErrUnknownTunnel is returned when an update addresses a tunnel the server
// does not list.
var ErrUnknownTunnel = errors.New("tunnel not found")

// ResyncError reports that a mutation succeeded on the server but the
// refresh that followed it failed. The local view is stale until the next
// successful refresh.
type ResyncError struct {
	Op  string
	Err error
}

func (e *ResyncError) Error() string {
	return fmt.Sprintf("%s succeeded, but refreshing failed: %v", e.Op, e.Err)
}

func (e *ResyncError) Unwrap() error { return e.Err }

// IsResync reports whether err means "the mutation landed, the view is stale".
func IsResync(err error) bool {
	var re *ResyncError
	return errors.As(err, &re)
}
