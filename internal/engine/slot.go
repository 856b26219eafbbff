// Package engine holds lazily loaded backend handles in an explicit
// Unloaded or Loaded state.
package engine

import (
	"context"
	"fmt"
	"sync"
)

// State is the lifecycle state of a Slot.
type State int

const (
	Unloaded State = iota
	Loaded
)

func (s State) String() string {
	if s == Loaded {
		return "loaded"
	}
	return "unloaded"
}

// Loader creates a handle. It is called at most once per load cycle.
type Loader[H any] func(ctx context.Context) (H, error)

// Slot owns one backend handle. Acquire loads it on first use; Unload
// releases it so the next Acquire loads again.
type Slot[H any] struct {
	name    string
	load    Loader[H]
	release func(H) error

	mu     sync.Mutex
	state  State
	handle H
	loads  int
}

// NewSlot returns an unloaded slot. release may be nil.
func NewSlot[H any](name string, load Loader[H], release func(H) error) *Slot[H] {
	return &Slot[H]{name: name, load: load, release: release}
}

// Name identifies the slot in logs.
func (s *Slot[H]) Name() string { return s.name }

// State reports whether the handle is loaded.
func (s *Slot[H]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Loads returns how many times the loader has succeeded.
func (s *Slot[H]) Loads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

// Acquire returns the loaded handle, loading it first if needed. A failed
// load leaves the slot unloaded.
func (s *Slot[H]) Acquire(ctx context.Context) (H, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Loaded {
		return s.handle, nil
	}
	var zero H
	if s.load == nil {
		return zero, fmt.Errorf("%s: no loader configured", s.name)
	}
	handle, err := s.load(ctx)
	if err != nil {
		return zero, fmt.Errorf("load %s: %w", s.name, err)
	}
	s.handle = handle
	s.state = Loaded
	s.loads++
	return handle, nil
}

// Unload releases the handle. Unloading an unloaded slot is a no-op.
func (s *Slot[H]) Unload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Unloaded {
		return nil
	}
	handle := s.handle
	var zero H
	s.handle = zero
	s.state = Unloaded
	if s.release != nil {
		if err := s.release(handle); err != nil {
			return fmt.Errorf("unload %s: %w", s.name, err)
		}
	}
	return nil
}
