package backend

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrSlotBusy is returned when a listing cannot start because another one is
// in flight or its result has not been applied yet.
var ErrSlotBusy = errors.New("listing already pending")

// Slot is the single-occupancy handoff between a listing goroutine and the
// panel that polls it. At most one lease is live and at most one result
// waits at a time.
type Slot struct {
	busy atomic.Bool

	mu     sync.Mutex
	result *Pending
}

func NewSlot() *Slot {
	return &Slot{}
}

// Acquire hands out the lease. It fails while another lease is live or a
// delivered result has not been taken yet.
func (s *Slot) Acquire() (*Lease, bool) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, false
	}
	s.mu.Lock()
	waiting := s.result != nil
	s.mu.Unlock()
	if waiting {
		s.busy.Store(false)
		return nil, false
	}
	return &Lease{slot: s}, true
}

// IsPending reports whether a lease is live.
func (s *Slot) IsPending() bool {
	return s.busy.Load()
}

// Take removes the delivered result, if any.
func (s *Slot) Take() (Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return Pending{}, false
	}
	p := *s.result
	s.result = nil
	return p, true
}

// Lease is the write side of a Slot. Only the first Deliver or Release
// has any effect.
type Lease struct {
	slot *Slot
	once sync.Once
}

func (l *Lease) Deliver(p Pending) {
	l.once.Do(func() {
		l.slot.mu.Lock()
		l.slot.result = &p
		l.slot.mu.Unlock()
		l.slot.busy.Store(false)
	})
}

// Release gives the lease up without a result.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.slot.busy.Store(false)
	})
}
