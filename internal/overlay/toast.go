// Package overlay holds the process-wide toast and loading indicators. Workers
// write them from any goroutine; the UI reads them once per frame.
package overlay

import (
	"sync"
	"time"

	"github.com/atomicstack/save-cloud/internal/logging/events"
)

// ToastDuration is how long a toast stays visible.
const ToastDuration = 3 * time.Second

// Toast is a short-lived message shown above everything else.
type Toast struct {
	mu       sync.Mutex
	text     string
	shownAt  time.Time
	open     bool
	duration time.Duration
	now      func() time.Time
}

// NewToast returns a hidden toast.
func NewToast() *Toast {
	return &Toast{duration: ToastDuration, now: time.Now}
}

// Show replaces the current message and restarts its timer.
func (t *Toast) Show(text string) {
	t.mu.Lock()
	t.text = text
	t.shownAt = t.now()
	t.open = true
	t.mu.Unlock()
	events.UI.Toast(text)
}

// Hide dismisses the toast early.
func (t *Toast) Hide() {
	t.mu.Lock()
	t.open = false
	t.mu.Unlock()
}

// Text returns the message while it is visible.
func (t *Toast) Text() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.open {
		return "", false
	}
	if t.now().Sub(t.shownAt) >= t.duration {
		t.open = false
		return "", false
	}
	return t.text, true
}

// Last returns the most recent message regardless of visibility.
func (t *Toast) Last() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.text
}

var (
	defaultMu    sync.RWMutex
	defaultToast = NewToast()
)

// Notify shows msg on the shared toast.
func Notify(msg string) {
	Shared().Show(msg)
}

// Shared returns the process-wide toast.
func Shared() *Toast {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultToast
}

// UseToast swaps the shared toast and returns a func restoring the old one.
// Tests use it to observe notifications.
func UseToast(t *Toast) func() {
	defaultMu.Lock()
	prev := defaultToast
	defaultToast = t
	defaultMu.Unlock()
	return func() {
		defaultMu.Lock()
		defaultToast = prev
		defaultMu.Unlock()
	}
}
