package backend

import (
	"context"
	"time"

	"github.com/atomicstack/save-cloud/internal/cloud"
	"github.com/atomicstack/save-cloud/internal/errs"
	"github.com/atomicstack/save-cloud/internal/ui/state"
)

// InitInterval is the minimum wait between two attempts to list the cloud
// root, counted from the end of the previous attempt.
const InitInterval = 10 * time.Second

// AuthSource is the part of the cloud session the backend waits on.
type AuthSource interface {
	Authenticated() bool
	Subscribe(fn func())
}

// Cloud lists the remote drive.
type Cloud struct {
	client cloud.Client
	auth   AuthSource
	gate   *gate
}

// NewCloud subscribes to auth so a fresh login lists the root right away.
func NewCloud(client cloud.Client, auth AuthSource) *Cloud {
	c := &Cloud{client: client, auth: auth, gate: newGate(InitInterval)}
	auth.Subscribe(c.gate.reset)
	return c
}

func (c *Cloud) Name() string { return "cloud" }

// Init lists the cloud root once signed in. It never blocks.
func (c *Cloud) Init(stack []*state.Dir, slot *Slot) []*state.Dir {
	if len(stack) > 0 || !c.auth.Authenticated() || slot.IsPending() || !c.gate.ready() {
		return stack
	}
	dispatch(c, "", "/", Enter, slot, c.gate.done)
	return stack
}

func (c *Cloud) Dispatch(p, name string, action Action, slot *Slot) bool {
	return dispatch(c, p, name, action, slot, nil)
}

// Load keeps the server's order.
func (c *Cloud) Load(ctx context.Context, p, name string, action Action) (*state.Dir, error) {
	target := Target(p, name, action)
	entries, err := c.client.ListDirectory(ctx, target)
	if err != nil {
		return nil, errs.New(errs.ListingFailed, target, err)
	}
	items := make([]state.Item, len(entries))
	for i, e := range entries {
		items[i] = state.RemoteItem(e.Name, e.IsDir, e.ID)
	}
	return state.NewDir(dirName(p, name, action), items), nil
}

func (c *Cloud) Pop(stack []*state.Dir) []*state.Dir {
	return pop(stack)
}
