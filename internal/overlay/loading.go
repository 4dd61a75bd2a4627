package overlay

import (
	"sync"

	"github.com/atomicstack/save-cloud/internal/logging/events"
)

// LoadingState is the blocking progress indicator. Show and Hide nest, so two
// workers sharing it keep it open until both are done.
type LoadingState struct {
	mu    sync.Mutex
	depth int
	title string
	desc  string
}

var loading = &LoadingState{}

// Loading returns the process-wide indicator.
func Loading() *LoadingState {
	return loading
}

func (l *LoadingState) Show() {
	l.mu.Lock()
	l.depth++
	title := l.title
	l.mu.Unlock()
	events.UI.Loading(true, title)
}

// Hide closes one Show. The texts are cleared once nothing holds it open.
func (l *LoadingState) Hide() {
	l.mu.Lock()
	if l.depth > 0 {
		l.depth--
	}
	if l.depth == 0 {
		l.title = ""
		l.desc = ""
	}
	open := l.depth > 0
	l.mu.Unlock()
	if !open {
		events.UI.Loading(false, "")
	}
}

func (l *LoadingState) SetTitle(title string) {
	l.mu.Lock()
	l.title = title
	l.mu.Unlock()
}

func (l *LoadingState) SetDescription(desc string) {
	l.mu.Lock()
	l.desc = desc
	l.mu.Unlock()
}

// Active reports whether the indicator is showing.
func (l *LoadingState) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.depth > 0
}

// Snapshot returns the texts for rendering.
func (l *LoadingState) Snapshot() (title, desc string, open bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.title, l.desc, l.depth > 0
}
