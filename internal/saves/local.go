package saves

import (
	"context"
	"os"

	"github.com/atomicstack/save-cloud/internal/backend"
	"github.com/atomicstack/save-cloud/internal/backup"
	"github.com/atomicstack/save-cloud/internal/command"
	"github.com/atomicstack/save-cloud/internal/errs"
	"github.com/atomicstack/save-cloud/internal/input"
	"github.com/atomicstack/save-cloud/internal/logging"
	"github.com/atomicstack/save-cloud/internal/logging/events"
	"github.com/atomicstack/save-cloud/internal/overlay"
	"github.com/atomicstack/save-cloud/internal/state"
	uistate "github.com/atomicstack/save-cloud/internal/ui/state"
)

// LocalList shows the .zip backups of one title on the device.
type LocalList struct {
	deps    Deps
	title   state.Title
	dir     string
	bus     *command.Bus
	entries entries
	cursor  uistate.ListState
}

func NewLocalList(deps Deps, title state.Title) *LocalList {
	l := &LocalList{
		deps:   deps,
		title:  title,
		dir:    deps.Pipeline.LocalTitleDir(title.ID, title.Name),
		bus:    command.New(),
		cursor: newCursor(),
	}
	l.entries.dirty.Store(true)
	return l
}

// Dir is the local title directory.
func (l *LocalList) Dir() string { return l.dir }

// Busy reports whether an action is running.
func (l *LocalList) Busy() bool { return l.bus.Busy() }

// Wait blocks until the running action finished.
func (l *LocalList) Wait() { l.bus.Wait() }

func (l *LocalList) Cursor() uistate.ListState { return l.cursor }

func (l *LocalList) Rows() []Row {
	items, _ := l.entries.snapshot()
	return rows(items)
}

func (l *LocalList) reload() {
	items, err := l.deps.Pipeline.LocalBackups(l.dir)
	if err != nil {
		logging.Error(err)
		overlay.Notify("failed to list " + l.dir)
		return
	}
	l.entries.set(items)
	l.cursor.ClampTo(len(items) + 1)
}

// Update handles one frame. It returns true while an action holds the list.
func (l *LocalList) Update(buttons input.Buttons) bool {
	if l.entries.dirty.CompareAndSwap(true, false) {
		l.reload()
	}
	if l.bus.Busy() {
		return true
	}
	items, _ := l.entries.snapshot()
	if l.cursor.Update(len(items)+1, buttons) {
		return false
	}
	row := l.cursor.Selected
	switch {
	case buttons.Has(input.Confirm) && row == 0:
		l.run("new", "backup", l.newBackup)
	case buttons.Has(input.Confirm):
		l.withEntry(row, "overwrite", "backup", l.overwrite)
	case buttons.Has(input.Switch):
		l.withEntry(row, "restore", "restore", l.restore)
	case buttons.Has(input.Menu):
		l.withEntry(row, "delete", "delete", l.remove)
	case buttons.Has(input.Select):
		l.withEntry(row, "upload", "upload", l.upload)
	}
	return l.bus.Busy()
}

func (l *LocalList) withEntry(row int, id, label string, fn func(context.Context, *command.Progress, backup.Entry) error) {
	entry, ok := l.entries.at(row)
	if !ok {
		return
	}
	l.run(id, label, func(ctx context.Context, p *command.Progress) error {
		return fn(ctx, p, entry)
	})
}

func (l *LocalList) run(id, label string, fn func(context.Context, *command.Progress) error) {
	events.Saves.Action("local", id, l.title.ID)
	l.bus.Execute(command.Request{
		ID:    "local." + id,
		Label: label,
		Run: func(ctx context.Context, p *command.Progress) error {
			defer l.entries.dirty.Store(true)
			return fn(ctx, p)
		},
	})
}

// saveDir toasts when the title has no save data on the device.
func saveDir(pipeline *backup.Pipeline, title state.Title) (string, bool) {
	dir, ok := pipeline.SaveDir(title.ID)
	if !ok {
		overlay.Notify("no save data found for " + title.ID)
	}
	return dir, ok
}

func (l *LocalList) newBackup(ctx context.Context, p *command.Progress) error {
	src, ok := saveDir(l.deps.Pipeline, l.title)
	if !ok {
		return nil
	}
	name := backup.Sanitize(l.deps.Prompter.Prompt(l.deps.Pipeline.Timestamp()))
	if name == "" {
		return command.ErrCanceled
	}
	dest := backend.JoinPath(l.dir, name+".zip")
	if l.deps.Pipeline.Exists(dest) {
		return errs.New(errs.DestinationExists, dest, nil)
	}
	p.Title("backing up " + l.title.Label())
	if err := l.deps.Pipeline.Backup(src, dest, archiveProgress(p)); err != nil {
		return err
	}
	overlay.Notify("backup created")
	return nil
}

func (l *LocalList) overwrite(ctx context.Context, p *command.Progress, entry backup.Entry) error {
	src, ok := saveDir(l.deps.Pipeline, l.title)
	if !ok {
		return nil
	}
	if !l.deps.Prompter.Confirm("overwrite " + entry.Name + "?") {
		return command.ErrCanceled
	}
	p.Title("backing up " + l.title.Label())
	if err := l.deps.Pipeline.Backup(src, backend.JoinPath(l.dir, entry.Name), archiveProgress(p)); err != nil {
		return err
	}
	overlay.Notify("backup overwritten")
	return nil
}

func (l *LocalList) restore(ctx context.Context, p *command.Progress, entry backup.Entry) error {
	target, ok := saveDir(l.deps.Pipeline, l.title)
	if !ok {
		return nil
	}
	if !l.deps.Prompter.Confirm("restore " + entry.Name + "?") {
		return command.ErrCanceled
	}
	p.Title("restoring " + entry.Name)
	if err := l.deps.Pipeline.Restore(backend.JoinPath(l.dir, entry.Name), target, archiveProgress(p)); err != nil {
		return err
	}
	overlay.Notify("restore complete")
	return nil
}

func (l *LocalList) remove(ctx context.Context, p *command.Progress, entry backup.Entry) error {
	if !l.deps.Prompter.Confirm("delete " + entry.Name + "?") {
		return command.ErrCanceled
	}
	target := backend.JoinPath(l.dir, entry.Name)
	host, err := l.deps.Pipeline.Resolve(target)
	if err != nil {
		return err
	}
	if err := os.Remove(host); err != nil {
		return err
	}
	overlay.Notify("deleted " + entry.Name)
	return nil
}

func (l *LocalList) upload(ctx context.Context, p *command.Progress, entry backup.Entry) error {
	session := l.deps.Session
	if session == nil || !session.Authenticated() {
		overlay.Notify("sign in to the cloud first")
		return nil
	}
	if !l.deps.Prompter.Confirm("upload " + entry.Name + "?") {
		return command.ErrCanceled
	}
	client := session.Client()
	p.Title("uploading " + entry.Name)
	p.Describe(humanizeSize(entry.Size))
	remoteDir := backup.CloudTitleDir(ctx, client, l.title.ID, l.title.Name)
	remote, err := backup.CloudBackups(ctx, client, remoteDir)
	if err != nil {
		return err
	}
	for _, r := range remote {
		if r.Name == entry.Name {
			overlay.Notify(entry.Name + " is already in the cloud")
			return nil
		}
	}
	if err := l.deps.Pipeline.Upload(ctx, client, backend.JoinPath(l.dir, entry.Name), remoteDir, entry.Name, false); err != nil {
		return err
	}
	overlay.Notify("uploaded " + entry.Name)
	return nil
}
