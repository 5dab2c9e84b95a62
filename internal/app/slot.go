// Package app composes the Gantry process: three providers that each own
// at most one instance of a sub-server and an integration layer that
// mounts the protocol server into the web application.
package app

import (
	"errors"
	"sync"
)

// errSlotOccupied reports a create against a non-empty slot.
var errSlotOccupied = errors.New("slot occupied")

// errSlotEmpty reports a get against an empty slot.
var errSlotEmpty = errors.New("slot empty")

// slot holds at most one instance of a provider's product. The zero value
// is an empty slot. All operations run under one mutex so concurrent
// callers observe a single instance and builds never race.
type slot[T any] struct {
	mu       sync.Mutex
	value    T
	occupied bool
}

// create builds and stores a new value. A non-empty slot returns
// errSlotOccupied without invoking build; the stored value is preserved.
func (s *slot[T]) create(build func() (T, error)) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	if s.occupied {
		return zero, errSlotOccupied
	}
	value, err := build()
	if err != nil {
		return zero, err
	}
	s.value = value
	s.occupied = true
	return value, nil
}

// get returns the stored value, or errSlotEmpty.
func (s *slot[T]) get() (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.occupied {
		var zero T
		return zero, errSlotEmpty
	}
	return s.value, nil
}

// ensure returns the stored value, building and storing one first when
// the slot is empty.
func (s *slot[T]) ensure(build func() (T, error)) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.occupied {
		return s.value, nil
	}
	value, err := build()
	if err != nil {
		var zero T
		return zero, err
	}
	s.value = value
	s.occupied = true
	return value, nil
}

// clear empties the slot. Clearing an empty slot is a no-op.
func (s *slot[T]) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	s.value = zero
	s.occupied = false
}
