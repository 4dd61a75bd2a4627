// Package backend lists directories for the panels. Listings run on their
// own goroutine and hand the result back through a Slot.
package backend

import (
	"context"
	"path"
	"strings"

	"github.com/atomicstack/save-cloud/internal/logging"
	"github.com/atomicstack/save-cloud/internal/logging/events"
	"github.com/atomicstack/save-cloud/internal/overlay"
	"github.com/atomicstack/save-cloud/internal/ui/state"
)

// Action says what a finished listing does to the panel stack.
type Action int

const (
	// Enter pushes the listed directory.
	Enter Action = iota
	// Refresh replaces the top entry and keeps its cursor.
	Refresh
)

func (a Action) String() string {
	if a == Refresh {
		return "refresh"
	}
	return "enter"
}

// Pending is a finished listing waiting for the panel's next poll.
type Pending struct {
	Action Action
	Dir    *state.Dir
}

// Backend is implemented by Local and Cloud.
type Backend interface {
	Name() string
	// Init fills an empty stack. It is called on every poll.
	Init(stack []*state.Dir, slot *Slot) []*state.Dir
	// Dispatch starts a listing unless one is already in flight on slot.
	Dispatch(path, name string, action Action, slot *Slot) bool
	// Load lists synchronously.
	Load(ctx context.Context, path, name string, action Action) (*state.Dir, error)
	Pop(stack []*state.Dir) []*state.Dir
}

// JoinPath appends p to base, inserting a slash unless base is empty or
// already ends with one.
func JoinPath(base, p string) string {
	if base == "" || strings.HasSuffix(base, "/") {
		return base + p
	}
	return base + "/" + p
}

// RefreshName is the Dir name a Refresh of p produces.
func RefreshName(p string) string {
	if p == "" || p == "/" || strings.HasSuffix(p, ":") {
		return p
	}
	return path.Base(strings.TrimSuffix(p, "/"))
}

// Target is the path a listing reads.
func Target(p, name string, action Action) string {
	if action == Refresh {
		return p
	}
	return JoinPath(p, name)
}

func dirName(p, name string, action Action) string {
	if action == Refresh {
		return RefreshName(p)
	}
	return name
}

func pop(stack []*state.Dir) []*state.Dir {
	if len(stack) <= 1 {
		return stack
	}
	stack[len(stack)-1] = nil
	stack = stack[:len(stack)-1]
	events.Panel.Pop(len(stack))
	return stack
}

// dispatch runs b.Load on a goroutine holding a lease on slot. after runs
// once the listing finished, before the lease is given up.
func dispatch(b Backend, p, name string, action Action, slot *Slot, after func()) bool {
	lease, ok := slot.Acquire()
	if !ok {
		events.Panel.Drop(b.Name(), p, action.String())
		return false
	}
	events.Panel.Dispatch(b.Name(), p, name, action.String())
	go func() {
		dir, err := b.Load(context.Background(), p, name, action)
		if after != nil {
			after()
		}
		if err != nil {
			reportListing(b.Name(), Target(p, name, action), err)
			lease.Release()
			return
		}
		lease.Deliver(Pending{Action: action, Dir: dir})
	}()
	return true
}

func reportListing(backend, target string, err error) {
	logging.Error(err)
	events.Panel.ListingFailed(backend, target, err)
	overlay.Notify("failed to list " + target)
}
