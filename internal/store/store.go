// Copyright (c) 2026 Keymaster Team
// Tunnelmaster - tunnel management console
// This source code is licensed under the MIT license found in the LICENSE file.

// Package store holds the last synchronized collection of one resource kind.
//
// The collection is only ever written by Refresh, which replaces it as a
// whole. Each Refresh is stamped with a generation when issued; a result
// whose generation is no longer the latest issued is discarded, so a slow
// older response cannot overwrite a newer one.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/toeirei/tunnelmaster/internal/logging"
)

// ErrSuperseded is returned by Refresh when a later Refresh was issued
// before this one completed. The result was discarded.
var ErrSuperseded = errors.New("refresh superseded by a newer request")

// Lister fetches the full collection from the remote authority.
type Lister[T any] func(ctx context.Context) ([]T, error)

// Store owns the in-memory collection for one resource kind.
type Store[T any] struct {
	name   string
	list   Lister[T]
	key    func(T) string
	filter func(T) T

	mu        sync.RWMutex
	items     []T
	index     map[string]int
	issued    uint64 // generation of the most recently issued refresh
	applied   uint64 // generation of the collection currently held
	loaded    bool
	listeners []func([]T)
}

// Option customises a Store.
type Option[T any] func(*Store[T])

// WithFilter runs f over every item of a successful list before it is
// stored.
func WithFilter[T any](f func(T) T) Option[T] {
	return func(s *Store[T]) { s.filter = f }
}

// New creates an empty Store. name is used in log messages only.
func New[T any](name string, list Lister[T], key func(T) string, opts ...Option[T]) *Store[T] {
	s := &Store[T]{
		name:  name,
		list:  list,
		key:   key,
		index: map[string]int{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the store's name.
func (s *Store[T]) Name() string { return s.name }

// Refresh fetches the collection and, if this is still the latest issued
// refresh, replaces the held collection with it. On failure the held
// collection is left untouched and the error is returned.
func (s *Store[T]) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.issued++
	gen := s.issued
	s.mu.Unlock()

	items, err := s.list(ctx)
	if err != nil {
		logging.Debugf("store %s: refresh #%d failed: %v", s.name, gen, err)
		return err
	}

	next := make([]T, len(items))
	index := make(map[string]int, len(items))
	for i, it := range items {
		if s.filter != nil {
			it = s.filter(it)
		}
		next[i] = it
		index[s.key(it)] = i
	}

	s.mu.Lock()
	if gen != s.issued {
		s.mu.Unlock()
		logging.Debugf("store %s: discarding refresh #%d, #%d is newer", s.name, gen, s.issued)
		return ErrSuperseded
	}
	s.items, s.index, s.applied, s.loaded = next, index, gen, true
	listeners := append([]func([]T){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(s.List())
	}
	return nil
}

// List returns a copy of the held collection in server order.
func (s *Store[T]) List() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Get looks an item up by id.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	return s.items[i], true
}

// Len returns the number of held items.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Loaded reports whether at least one refresh has been applied.
func (s *Store[T]) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Generation returns the generation of the held collection (0 before the
// first applied refresh).
func (s *Store[T]) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.applied
}

// Subscribe registers fn to be called with a copy of the collection after
// every applied refresh.
func (s *Store[T]) Subscribe(fn func([]T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}
