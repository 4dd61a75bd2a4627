// Package explorer is the two-panel file manager: a local panel on the left,
// a local or cloud panel on the right, and the action menu between them.
package explorer

import (
	"github.com/atomicstack/save-cloud/internal/backend"
	"github.com/atomicstack/save-cloud/internal/backup"
	"github.com/atomicstack/save-cloud/internal/cloud"
	"github.com/atomicstack/save-cloud/internal/command"
	"github.com/atomicstack/save-cloud/internal/identity"
	"github.com/atomicstack/save-cloud/internal/input"
	"github.com/atomicstack/save-cloud/internal/keyboard"
	"github.com/atomicstack/save-cloud/internal/logging/events"
	"github.com/atomicstack/save-cloud/internal/menu"
	"github.com/atomicstack/save-cloud/internal/overlay"
	"github.com/atomicstack/save-cloud/internal/panel"
)

// Panel indexes.
const (
	LocalLeft  = 0
	LocalRight = 1
	CloudRight = 2
)

// Deps are the collaborators actions run against.
type Deps struct {
	Pipeline *backup.Pipeline
	Identity *identity.Identity
	Session  *cloud.Session
	Prompter keyboard.Prompter
}

type Explorer struct {
	deps    Deps
	panels  [3]*panel.Panel
	active  int
	right   int
	menu    *menu.Menu
	bus     *command.Bus
	running bool
	detach  func()
}

func New(deps Deps) *Explorer {
	devices := deps.Pipeline.Devices()
	return &Explorer{
		deps: deps,
		panels: [3]*panel.Panel{
			panel.New(backend.NewLocal(devices)),
			panel.New(backend.NewLocal(devices)),
			panel.New(backend.NewCloud(deps.Session.Client(), deps.Session)),
		},
		active: LocalLeft,
		right:  LocalRight,
		menu:   menu.New(),
		bus:    command.New(),
	}
}

func (e *Explorer) Panel(idx int) *panel.Panel { return e.panels[idx] }

// Active is the focused panel index.
func (e *Explorer) Active() int { return e.active }

// Right is the panel index shown on the right side.
func (e *Explorer) Right() int { return e.right }

func (e *Explorer) Menu() *menu.Menu { return e.menu }

// Busy reports whether an action is running.
func (e *Explorer) Busy() bool { return e.bus.Busy() }

// Wait blocks until the running action finished.
func (e *Explorer) Wait() { e.bus.Wait() }

// From is the source panel index, To the destination.
func (e *Explorer) From() int { return e.active }

func (e *Explorer) To() int {
	if e.active == LocalLeft {
		return e.right
	}
	return LocalLeft
}

// CloudShown reports whether the cloud panel is on the right.
func (e *Explorer) CloudShown() bool { return e.right == CloudRight }

// Session is the cloud login shared with the save browser.
func (e *Explorer) Session() *cloud.Session { return e.deps.Session }

// Jump moves the focused panel's cursor to the best match of query.
func (e *Explorer) Jump(query string) bool {
	dir := e.panels[e.active].Current()
	ok := dir.JumpTo(query)
	if dir != nil {
		events.UI.Jump(query, dir.List.Selected)
	}
	return ok
}

// Close detaches from the cloud session.
func (e *Explorer) Close() {
	if e.detach != nil {
		e.detach()
		e.detach = nil
	}
}

// Update handles one frame. It returns true while input is locked to the
// explorer by a running action, an open menu or a pending listing.
func (e *Explorer) Update(buttons input.Buttons) bool {
	e.syncCloud()
	for _, idx := range []int{LocalLeft, e.right} {
		if idx != e.active {
			e.panels[idx].Poll()
		}
	}
	if e.bus.Busy() {
		e.panels[e.active].Poll()
		return true
	}
	if e.running {
		e.running = false
		e.menu.Close()
	}
	if e.menu.IsOpen() {
		if buttons.Has(input.Confirm) {
			e.execute()
			return true
		}
		e.menu.Update(buttons)
		return e.menu.IsOpen()
	}
	if e.panels[e.active].Update(buttons) {
		return true
	}
	switch {
	case buttons.Has(input.Left):
		e.focus(LocalLeft)
	case buttons.Has(input.Right):
		e.focus(e.right)
	case buttons.Has(input.Switch):
		e.toggleRight()
	case buttons.Has(input.Menu):
		e.openMenu()
		return e.menu.IsOpen()
	}
	return false
}

func (e *Explorer) focus(idx int) {
	if e.active == idx {
		return
	}
	e.active = idx
	events.UI.Focus(idx)
}

func (e *Explorer) toggleRight() {
	if e.right == LocalRight {
		e.right = CloudRight
	} else {
		e.right = LocalRight
	}
	if e.active != LocalLeft {
		e.focus(e.right)
	}
	e.syncCloud()
}

// syncCloud keeps the session consumer in step with the cloud panel's
// visibility.
func (e *Explorer) syncCloud() {
	session := e.deps.Session
	if e.right == CloudRight {
		if e.detach == nil {
			e.detach = session.Attach()
			if session.Stalled() {
				session.Retry()
			}
		}
		session.Ensure()
		return
	}
	if e.detach != nil {
		e.detach()
		e.detach = nil
	}
}

func (e *Explorer) openMenu() {
	from := e.panels[e.From()]
	if from.Path() == "" {
		overlay.Notify("select a folder or file")
		return
	}
	ctx := menu.Context{
		FromPath: from.Path(),
		ToPath:   e.panels[e.To()].Path(),
		Exists:   e.deps.Pipeline.Exists,
	}
	if item, ok := from.CurrentItem(); ok {
		ctx.Item = &item
	}
	e.menu.Open(ctx)
}

// selection copies what an action needs off the panels before it leaves the
// frame loop.
func (e *Explorer) selection(kind menu.ActionKind) job {
	from, to := e.panels[e.From()], e.panels[e.To()]
	j := job{
		action:   kind,
		fromPath: from.Path(),
		toPath:   to.Path(),
		from:     from,
		to:       to,
	}
	if item, ok := from.CurrentItem(); ok {
		j.item = &item
	}
	return j
}
