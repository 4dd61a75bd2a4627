// Package panel is one side of the file manager: a stack of directories, the
// backend that lists them and the slot listings come back through.
package panel

import (
	"context"
	"strings"

	"github.com/atomicstack/save-cloud/internal/backend"
	"github.com/atomicstack/save-cloud/internal/input"
	"github.com/atomicstack/save-cloud/internal/logging/events"
	"github.com/atomicstack/save-cloud/internal/ui/state"
)

type Panel struct {
	stack   []*state.Dir
	backend backend.Backend
	slot    *backend.Slot
}

func New(b backend.Backend) *Panel {
	return &Panel{backend: b, slot: backend.NewSlot()}
}

func (p *Panel) Backend() backend.Backend { return p.backend }

// IsLocal reports whether the panel browses the device filesystems.
func (p *Panel) IsLocal() bool {
	_, ok := p.backend.(*backend.Local)
	return ok
}

// IsPending reports whether a listing is in flight.
func (p *Panel) IsPending() bool {
	return p.slot.IsPending()
}

// Poll applies a finished listing and lets the backend fill an empty stack.
// It never blocks.
func (p *Panel) Poll() {
	if p.slot.IsPending() {
		return
	}
	if pending, ok := p.slot.Take(); ok {
		p.apply(pending)
	}
	p.stack = p.backend.Init(p.stack, p.slot)
}

func (p *Panel) apply(pending backend.Pending) {
	dir := pending.Dir
	if pending.Action == backend.Refresh && len(p.stack) > 0 {
		old := p.stack[len(p.stack)-1]
		p.stack = p.stack[:len(p.stack)-1]
		dir.List = old.List
		dir.List.ClampTo(dir.Len())
	}
	p.stack = append(p.stack, dir)
	events.Panel.Apply(pending.Action.String(), dir.Name, dir.Len())
}

// Update handles one frame of input. It returns true while a listing holds
// the panel.
func (p *Panel) Update(buttons input.Buttons) bool {
	p.Poll()
	if p.IsPending() {
		return true
	}
	switch {
	case buttons.Has(input.Confirm):
		if item, ok := p.CurrentItem(); ok && item.IsDir {
			p.backend.Dispatch(p.Path(), item.Name, backend.Enter, p.slot)
		}
	case buttons.Has(input.Back):
		p.stack = p.backend.Pop(p.stack)
	default:
		if dir := p.Current(); dir != nil {
			dir.Update(buttons)
		}
	}
	return p.IsPending()
}

// Current returns the top of the stack.
func (p *Panel) Current() *state.Dir {
	if len(p.stack) == 0 {
		return nil
	}
	return p.stack[len(p.stack)-1]
}

func (p *Panel) CurrentItem() (state.Item, bool) {
	return p.Current().Current()
}

// Depth is the number of stacked directories.
func (p *Panel) Depth() int {
	return len(p.stack)
}

// Path joins the stacked names. Every name other than "" and "/" gets a
// trailing slash.
func (p *Panel) Path() string {
	var b strings.Builder
	for _, dir := range p.stack {
		b.WriteString(dir.Name)
		if dir.Name != "" && dir.Name != "/" {
			b.WriteByte('/')
		}
	}
	return b.String()
}

// Refresh re-lists the current directory in the background.
func (p *Panel) Refresh() bool {
	if len(p.stack) == 0 {
		return false
	}
	return p.backend.Dispatch(p.Path(), "", backend.Refresh, p.slot)
}

// RefreshSync re-lists the current directory on the calling goroutine and
// hands the result to the next Poll. Action workers use it so the refresh is
// in place when the action finishes.
func (p *Panel) RefreshSync(ctx context.Context, path string) error {
	lease, ok := p.slot.Acquire()
	if !ok {
		events.Panel.Drop(p.backend.Name(), path, backend.Refresh.String())
		return backend.ErrSlotBusy
	}
	dir, err := p.backend.Load(ctx, path, "", backend.Refresh)
	if err != nil {
		lease.Release()
		return err
	}
	lease.Deliver(backend.Pending{Action: backend.Refresh, Dir: dir})
	return nil
}
