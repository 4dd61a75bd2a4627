// Package command runs menu actions one at a time off the frame loop.
package command

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/atomicstack/save-cloud/internal/logging"
	"github.com/atomicstack/save-cloud/internal/logging/events"
	"github.com/atomicstack/save-cloud/internal/overlay"
)

// ErrCanceled ends a request the user backed out of.
var ErrCanceled = errors.New("canceled")

// Progress drives the loading overlay for one request. The overlay opens on
// the first call, so prompts issued before it stay unobstructed.
type Progress struct {
	mu     sync.Mutex
	opened bool
}

func (p *Progress) open() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.opened {
		p.opened = true
		overlay.Loading().Show()
	}
}

func (p *Progress) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.opened {
		p.opened = false
		overlay.Loading().Hide()
	}
}

// Title sets the overlay heading.
func (p *Progress) Title(title string) {
	p.open()
	overlay.Loading().SetTitle(title)
}

// Describe sets the overlay detail line.
func (p *Progress) Describe(desc string) {
	p.open()
	overlay.Loading().SetDescription(desc)
}

// Request encapsulates an action invocation.
type Request struct {
	ID    string
	Label string
	Run   func(ctx context.Context, p *Progress) error
	// Success is shown when Run returns nil.
	Success string
}

// Bus admits one request at a time.
type Bus struct {
	busy atomic.Bool
	wg   sync.WaitGroup
}

func New() *Bus {
	return &Bus{}
}

// Busy reports whether a request is in flight.
func (b *Bus) Busy() bool {
	return b.busy.Load()
}

// Execute starts req on its own goroutine. It returns false when another
// request is still running.
func (b *Bus) Execute(req Request) bool {
	if req.Run == nil || !b.busy.CompareAndSwap(false, true) {
		events.Command.Skip(req.ID, req.Label)
		return false
	}
	events.Command.Queue(req.ID, req.Label)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		progress := &Progress{}
		err := req.Run(context.Background(), progress)
		events.Command.Result(req.ID, req.Label, err)
		switch {
		case errors.Is(err, ErrCanceled):
			overlay.Notify(req.Label + " canceled")
		case err != nil:
			logging.Error(err)
			events.Action.Error(err)
			overlay.Notify(req.Label + " failed: " + err.Error())
		case req.Success != "":
			events.Action.Success(req.Success)
			overlay.Notify(req.Success)
		}
		progress.close()
		b.busy.Store(false)
	}()
	return true
}

// Wait blocks until the running request finished.
func (b *Bus) Wait() {
	b.wg.Wait()
}
