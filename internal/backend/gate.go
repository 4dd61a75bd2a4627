package backend

import (
	"sync"
	"time"
)

// gate spaces out attempts by a minimum interval measured from the end of
// the previous attempt.
type gate struct {
	interval time.Duration
	now      func() time.Time

	mu   sync.Mutex
	next time.Time
}

func newGate(interval time.Duration) *gate {
	return &gate{interval: interval, now: time.Now}
}

func (g *gate) ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.now().Before(g.next)
}

// done records the end of an attempt.
func (g *gate) done() {
	g.mu.Lock()
	g.next = g.now().Add(g.interval)
	g.mu.Unlock()
}

// reset lets the next attempt through immediately.
func (g *gate) reset() {
	g.mu.Lock()
	g.next = time.Time{}
	g.mu.Unlock()
}
