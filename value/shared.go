package value

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrValueTaken is returned by any access to a Shared cell after its
// value has been moved out by Take.
var ErrValueTaken = errors.New("value: value taken")

// ErrAccess is returned when a borrow would conflict with one already
// outstanding: an exclusive borrow while any borrow is held, or a shared
// borrow while an exclusive one is held.
var ErrAccess = errors.New("value: borrow conflict (AccessError)")

// Shared is a reference-counted cell with runtime borrow checking, per
// spec.md §3's Shared<T> invariant: at any instant the borrow count is
// either zero or more shared readers, or exactly one exclusive writer,
// never both. Reads require Ref, writes require Mut; Take moves the
// inner value out and marks the cell permanently taken.
//
// Grounded on the teacher's frame.mutex sync.RWMutex guarding
// frame.data []reflect.Value (interp/interp.go) as the precedent for "a
// cell guarded by a counter, not a language feature" — generalized here
// into an explicit three-state machine (free/shared/exclusive) since a
// plain RWMutex can't also report ValueTaken or reference count.
type Shared[T any] struct {
	mu     sync.Mutex
	value  T
	borrow int32 // >0: that many shared borrows; <0: one exclusive borrow
	taken  bool
	refs   int32
}

// NewShared wraps v in a fresh cell with one reference.
func NewShared[T any](v T) *Shared[T] {
	return &Shared[T]{value: v, refs: 1}
}

// Ref acquires a shared (read) borrow, released by calling Release on
// the returned guard.
func (s *Shared[T]) Ref() (RefGuard[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taken {
		return RefGuard[T]{}, ErrValueTaken
	}
	if s.borrow < 0 {
		return RefGuard[T]{}, ErrAccess
	}
	s.borrow++
	return RefGuard[T]{s: s}, nil
}

// Mut acquires the exclusive (write) borrow.
func (s *Shared[T]) Mut() (MutGuard[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taken {
		return MutGuard[T]{}, ErrValueTaken
	}
	if s.borrow != 0 {
		return MutGuard[T]{}, ErrAccess
	}
	s.borrow = -1
	return MutGuard[T]{s: s}, nil
}

// Take moves the inner value out of the cell and marks it taken; any
// later Ref/Mut/Take fails with ErrValueTaken.
func (s *Shared[T]) Take() (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	if s.taken {
		return zero, ErrValueTaken
	}
	if s.borrow != 0 {
		return zero, ErrAccess
	}
	s.taken = true
	v := s.value
	s.value = zero
	return v, nil
}

// IncRef bumps the reference count, e.g. when a Value is cloned onto the
// stack or into a closure's captures.
func (s *Shared[T]) IncRef() { atomic.AddInt32(&s.refs, 1) }

// DecRef drops a reference, returning the count after the decrement. A
// cell reaching zero has no more holders; since Rune's lifetime model is
// refcounted with no cycle collector (spec.md §9), callers simply stop
// referencing it.
func (s *Shared[T]) DecRef() int32 { return atomic.AddInt32(&s.refs, -1) }

func (s *Shared[T]) releaseShared() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.borrow > 0 {
		s.borrow--
	}
}

func (s *Shared[T]) releaseExclusive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.borrow < 0 {
		s.borrow = 0
	}
}

// RefGuard is a held shared borrow. Its zero value is not valid; only
// use one returned by Shared.Ref.
type RefGuard[T any] struct{ s *Shared[T] }

// Get reads the borrowed value.
func (g RefGuard[T]) Get() T { return g.s.value }

// Release ends the borrow.
func (g RefGuard[T]) Release() {
	if g.s != nil {
		g.s.releaseShared()
	}
}

// MutGuard is a held exclusive borrow.
type MutGuard[T any] struct{ s *Shared[T] }

// Get returns a pointer to the borrowed value so callers can mutate it
// in place.
func (g MutGuard[T]) Get() *T { return &g.s.value }

// Release ends the borrow.
func (g MutGuard[T]) Release() {
	if g.s != nil {
		g.s.releaseExclusive()
	}
}
