// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

// Package surface models a create/edit dialog as an explicit state machine:
//
//	Closed --Open--> Editing --Begin(valid)--> Submitting --Finish(ok)--> Closed
//	                    ^  \--Begin(invalid)--'            |
//	                    '---------Finish(err)--------------'
//
// Opening always starts from a fresh draft and closing always discards it,
// so nothing typed into one edit can leak into the next.
package surface

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/toeirei/tunnelmaster/internal/validation"
)

// State is the phase of a Surface.
type State int

const (
	Closed State = iota
	Editing
	Submitting
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Editing:
		return "editing"
	case Submitting:
		return "submitting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrNotEditing is returned by operations that need an open draft.
var ErrNotEditing = errors.New("surface is not editing")

// ErrBusy is returned by Begin while a submission is in flight.
var ErrBusy = errors.New("surface is already submitting")

// Ticket identifies one submission. A Finish with a ticket from an earlier
// session (the surface was closed or reopened meanwhile) is ignored.
type Ticket struct {
	session uint64
}

// Surface holds the draft of one create/edit dialog.
type Surface[D any] struct {
	mu        sync.Mutex
	state     State
	draft     D
	fieldErrs validation.FieldErrors
	lastErr   error
	session   uint64
	validate  func(D) validation.FieldErrors
}

// New returns a closed Surface validating drafts with validation.Validate.
func New[D any]() *Surface[D] {
	return &Surface[D]{validate: func(d D) validation.FieldErrors { return validation.Validate(d) }}
}

// State returns the current phase.
func (s *Surface[D]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Open starts a new edit session. The draft is reset to its zero value, or
// to *seed when editing an existing resource. Field errors are cleared.
// Opening while submitting starts a new session; the in-flight submission
// keeps running but its outcome no longer touches this surface.
func (s *Surface[D]) Open(seed *D) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var fresh D
	if seed != nil {
		fresh = *seed
	}
	s.session++
	s.state, s.draft, s.fieldErrs, s.lastErr = Editing, fresh, nil, nil
}

// Close discards the draft. It does not abort a submission in flight.
func (s *Surface[D]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero D
	s.session++
	s.state, s.draft, s.fieldErrs, s.lastErr = Closed, zero, nil, nil
}

// Draft returns a copy of the current draft.
func (s *Surface[D]) Draft() D {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Set assigns draft fields from a map keyed by their mapstructure names.
func (s *Surface[D]) Set(values map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Editing {
		return ErrNotEditing
	}
	next := s.draft
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &next,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(values); err != nil {
		return fmt.Errorf("decode draft fields: %w", err)
	}
	s.draft = next
	return nil
}

// Fields returns the draft as a map keyed by mapstructure names.
func (s *Surface[D]) Fields() (map[string]any, error) {
	s.mu.Lock()
	draft := s.draft
	s.mu.Unlock()
	out := map[string]any{}
	if err := mapstructure.Decode(draft, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FieldErrors returns the errors of the last validation attempt.
func (s *Surface[D]) FieldErrors() validation.FieldErrors {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fieldErrs
}

// Err returns the failure of the last submission, if any.
func (s *Surface[D]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Begin validates the draft. When invalid, the surface stays Editing with
// field errors recorded and a *validation.ValidationError is returned; the
// caller must not contact the server. When valid, the surface moves to
// Submitting and returns the draft to submit.
func (s *Surface[D]) Begin() (D, Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero D
	switch s.state {
	case Closed:
		return zero, Ticket{}, ErrNotEditing
	case Submitting:
		return zero, Ticket{}, ErrBusy
	}
	s.lastErr = nil
	if fe := s.validate(s.draft); len(fe) > 0 {
		s.fieldErrs = fe
		return zero, Ticket{}, &validation.ValidationError{Fields: fe}
	}
	s.fieldErrs = nil
	s.state = Submitting
	return s.draft, Ticket{session: s.session}, nil
}

// Finish records the outcome of the submission identified by t. Success
// closes the surface; failure returns to Editing keeping the draft so the
// user can retry. Outcomes of stale tickets are ignored and reported as
// false.
func (s *Surface[D]) Finish(t Ticket, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.session != s.session || s.state != Submitting {
		return false
	}
	if err != nil {
		s.state, s.lastErr = Editing, err
		if fe, ok := validation.AsFieldErrors(err); ok {
			s.fieldErrs = fe
		}
		return true
	}
	var zero D
	s.session++
	s.state, s.draft, s.fieldErrs, s.lastErr = Closed, zero, nil, nil
	return true
}

// Submit runs Begin, fn and Finish in sequence for callers that can block.
// fn is not called when validation fails.
func (s *Surface[D]) Submit(ctx context.Context, fn func(context.Context, D) error) error {
	draft, ticket, err := s.Begin()
	if err != nil {
		return err
	}
	err = fn(ctx, draft)
	s.Finish(ticket, err)
	return err
}
