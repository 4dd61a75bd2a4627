package saves

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/atomicstack/save-cloud/internal/backend"
	"github.com/atomicstack/save-cloud/internal/backup"
	"github.com/atomicstack/save-cloud/internal/command"
	"github.com/atomicstack/save-cloud/internal/input"
	"github.com/atomicstack/save-cloud/internal/logging"
	"github.com/atomicstack/save-cloud/internal/logging/events"
	"github.com/atomicstack/save-cloud/internal/overlay"
	"github.com/atomicstack/save-cloud/internal/state"
	uistate "github.com/atomicstack/save-cloud/internal/ui/state"
)

// CloudList shows the remote backups of one title. It keeps the cloud
// session attached while it exists.
type CloudList struct {
	deps     Deps
	title    state.Title
	bus      *command.Bus
	entries  entries
	cursor   uistate.ListState
	detach   func()
	group    singleflight.Group
	fetching atomic.Bool
	remote   atomic.Value // string
}

func NewCloudList(deps Deps, title state.Title) *CloudList {
	c := &CloudList{
		deps:   deps,
		title:  title,
		bus:    command.New(),
		cursor: newCursor(),
		detach: deps.Session.Attach(),
	}
	c.entries.dirty.Store(true)
	return c
}

// Close detaches from the cloud session.
func (c *CloudList) Close() {
	c.detach()
}

func (c *CloudList) Busy() bool { return c.bus.Busy() }

func (c *CloudList) Wait() { c.bus.Wait() }

func (c *CloudList) Cursor() uistate.ListState { return c.cursor }

// Loading reports whether a listing is in flight.
func (c *CloudList) Loading() bool { return c.fetching.Load() }

func (c *CloudList) Rows() []Row {
	items, _ := c.entries.snapshot()
	return rows(items)
}

// Activate re-arms a login that stalled while this list was hidden.
func (c *CloudList) Activate() {
	if c.deps.Session.Stalled() {
		c.deps.Session.Retry()
	}
}

// RemoteDir is the remote title directory once it is known.
func (c *CloudList) RemoteDir() string {
	dir, _ := c.remote.Load().(string)
	return dir
}

// fetch lists the remote title directory off the frame loop. Overlapping
// fetches share one listing.
func (c *CloudList) fetch() {
	go func() {
		_, err, _ := c.group.Do("list", func() (interface{}, error) {
			c.fetching.Store(true)
			defer c.fetching.Store(false)
			ctx := context.Background()
			dir := c.remoteDir(ctx)
			items, err := backup.CloudBackups(ctx, c.deps.Session.Client(), dir)
			if err != nil {
				return nil, err
			}
			c.entries.set(items)
			return nil, nil
		})
		if err != nil {
			logging.Error(err)
			overlay.Notify("failed to list cloud backups")
		}
	}()
}

// Update handles one frame. While signed out it only keeps the login going.
func (c *CloudList) Update(buttons input.Buttons) bool {
	session := c.deps.Session
	if !session.Authenticated() {
		session.Ensure()
		return false
	}
	if !c.fetching.Load() && c.entries.dirty.CompareAndSwap(true, false) {
		c.fetch()
	}
	if c.bus.Busy() {
		return true
	}
	items, loaded := c.entries.snapshot()
	if !loaded {
		return false
	}
	c.cursor.ClampTo(len(items) + 1)
	if c.cursor.Update(len(items)+1, buttons) {
		return false
	}
	row := c.cursor.Selected
	switch {
	case buttons.Has(input.Confirm) && row == 0:
		c.run("new", "backup", c.newBackup)
	case buttons.Has(input.Confirm):
		c.withEntry(row, "overwrite", "upload", c.overwrite)
	case buttons.Has(input.Menu):
		c.withEntry(row, "delete", "delete", c.remove)
	case buttons.Has(input.Select):
		c.withEntry(row, "download", "download", c.download)
	case buttons.Has(input.Switch):
		c.withEntry(row, "restore", "restore", c.restore)
	}
	return c.bus.Busy()
}

func (c *CloudList) withEntry(row int, id, label string, fn func(context.Context, *command.Progress, backup.Entry) error) {
	entry, ok := c.entries.at(row)
	if !ok {
		return
	}
	c.run(id, label, func(ctx context.Context, p *command.Progress) error {
		return fn(ctx, p, entry)
	})
}

func (c *CloudList) run(id, label string, fn func(context.Context, *command.Progress) error) {
	events.Saves.Action("cloud", id, c.title.ID)
	c.bus.Execute(command.Request{
		ID:    "cloud." + id,
		Label: label,
		Run: func(ctx context.Context, p *command.Progress) error {
			defer c.entries.dirty.Store(true)
			return fn(ctx, p)
		},
	})
}

func (c *CloudList) remoteDir(ctx context.Context) string {
	if dir := c.RemoteDir(); dir != "" {
		return dir
	}
	dir := backup.CloudTitleDir(ctx, c.deps.Session.Client(), c.title.ID, c.title.Name)
	c.remote.Store(dir)
	return dir
}

// stageAndUpload archives the save into a staging file and uploads it as
// name. The staging file and its directory are removed afterwards.
func (c *CloudList) stageAndUpload(ctx context.Context, p *command.Progress, name string, overwrite bool) error {
	src, ok := saveDir(c.deps.Pipeline, c.title)
	if !ok {
		return nil
	}
	pipeline := c.deps.Pipeline
	staged := pipeline.Stage(name)
	defer pipeline.Cleanup(staged)

	p.Title("backing up " + c.title.Label())
	if err := pipeline.Backup(src, staged, archiveProgress(p)); err != nil {
		return err
	}
	p.Title("uploading " + name)
	p.Describe("")
	return pipeline.Upload(ctx, c.deps.Session.Client(), staged, c.remoteDir(ctx), name, overwrite)
}

func (c *CloudList) newBackup(ctx context.Context, p *command.Progress) error {
	if _, ok := saveDir(c.deps.Pipeline, c.title); !ok {
		return nil
	}
	name := backup.Sanitize(c.deps.Prompter.Prompt(c.deps.Pipeline.Timestamp()))
	if name == "" {
		return command.ErrCanceled
	}
	if err := c.stageAndUpload(ctx, p, name+".zip", false); err != nil {
		return err
	}
	overlay.Notify("backup uploaded")
	return nil
}

func (c *CloudList) overwrite(ctx context.Context, p *command.Progress, entry backup.Entry) error {
	if !c.deps.Prompter.Confirm("overwrite " + entry.Name + "?") {
		return command.ErrCanceled
	}
	if err := c.stageAndUpload(ctx, p, entry.Name, true); err != nil {
		return err
	}
	overlay.Notify("backup uploaded")
	return nil
}

func (c *CloudList) remove(ctx context.Context, p *command.Progress, entry backup.Entry) error {
	if !c.deps.Prompter.Confirm("delete " + entry.Name + "?") {
		return command.ErrCanceled
	}
	p.Title("deleting " + entry.Name)
	if err := c.deps.Session.Client().Delete(ctx, backend.JoinPath(c.remoteDir(ctx), entry.Name)); err != nil {
		return err
	}
	overlay.Notify("deleted " + entry.Name)
	return nil
}

func (c *CloudList) download(ctx context.Context, p *command.Progress, entry backup.Entry) error {
	pipeline := c.deps.Pipeline
	dest := backend.JoinPath(pipeline.LocalTitleDir(c.title.ID, c.title.Name), entry.Name)
	p.Title("downloading " + entry.Name)
	p.Describe(humanizeSize(entry.Size))
	if err := pipeline.Download(ctx, c.deps.Session.Client(), entry.RemoteID, dest); err != nil {
		return err
	}
	overlay.Notify("downloaded " + entry.Name)
	return nil
}

func (c *CloudList) restore(ctx context.Context, p *command.Progress, entry backup.Entry) error {
	target, ok := saveDir(c.deps.Pipeline, c.title)
	if !ok {
		return nil
	}
	if !c.deps.Prompter.Confirm("restore " + entry.Name + "?") {
		return command.ErrCanceled
	}
	pipeline := c.deps.Pipeline
	local := backend.JoinPath(pipeline.LocalTitleDir(c.title.ID, c.title.Name), pipeline.Timestamp()+".zip")

	p.Title("downloading " + entry.Name)
	p.Describe(humanizeSize(entry.Size))
	if err := pipeline.Download(ctx, c.deps.Session.Client(), entry.RemoteID, local); err != nil {
		return err
	}
	defer pipeline.Cleanup(local)
	p.Title("restoring " + entry.Name)
	if err := pipeline.Restore(local, target, archiveProgress(p)); err != nil {
		return err
	}
	overlay.Notify("restore complete")
	return nil
}
