package explorer

import (
	"context"
	"os"
	"strings"

	"github.com/atomicstack/save-cloud/internal/archive"
	"github.com/atomicstack/save-cloud/internal/backend"
	"github.com/atomicstack/save-cloud/internal/backup"
	"github.com/atomicstack/save-cloud/internal/command"
	"github.com/atomicstack/save-cloud/internal/data/dispatcher"
	"github.com/atomicstack/save-cloud/internal/errs"
	"github.com/atomicstack/save-cloud/internal/menu"
	"github.com/atomicstack/save-cloud/internal/panel"
	"github.com/atomicstack/save-cloud/internal/ui/state"
)

// job is an action with everything it touches captured up front. Workers
// never read panel stacks.
type job struct {
	action   menu.ActionKind
	item     *state.Item
	fromPath string
	toPath   string
	from     *panel.Panel
	to       *panel.Panel
}

func (j job) name() string {
	if j.item == nil {
		return ""
	}
	return j.item.Name
}

func (j job) source() string { return backend.JoinPath(j.fromPath, j.name()) }

func (j job) destination() string { return backend.JoinPath(j.toPath, j.name()) }

func (e *Explorer) execute() {
	kind, ok := e.menu.Selected()
	if !ok {
		return
	}
	j := e.selection(kind)
	if kind != menu.NewDir && j.item == nil {
		e.menu.Close()
		return
	}
	label := strings.ToLower(kind.Label())
	started := e.bus.Execute(command.Request{
		ID:      kind.String(),
		Label:   label,
		Success: label + " complete",
		Run: func(ctx context.Context, p *command.Progress) error {
			if err := e.perform(ctx, p, j); err != nil {
				return err
			}
			dispatcher.New(j.from, j.to).Handle(ctx, dispatcher.Outcome{
				Action:   j.action,
				FromPath: j.fromPath,
				ToPath:   j.toPath,
			})
			return nil
		},
	})
	e.running = started
}

func (e *Explorer) perform(ctx context.Context, p *command.Progress, j job) error {
	switch j.action {
	case menu.NewDir:
		return e.newDir(ctx, j)
	case menu.Rename:
		return e.rename(j)
	case menu.Delete:
		return e.remove(p, j)
	case menu.Copy:
		return e.copy(p, j)
	case menu.Move:
		return e.move(p, j)
	case menu.Zip:
		return e.zip(p, j)
	case menu.Unzip:
		return e.unzip(p, j)
	case menu.Upload:
		p.Title("uploading " + j.name())
		return e.deps.Pipeline.Upload(ctx, e.deps.Session.Client(), j.source(), j.toPath, j.name(), false)
	case menu.ZipUpload:
		return e.zipUpload(ctx, p, j)
	case menu.Download:
		return e.download(ctx, p, j)
	case menu.ChangeAccountID:
		host, err := e.resolve(j.source())
		if err != nil {
			return err
		}
		return e.deps.Identity.PatchCurrent(host)
	}
	return errs.New(errs.InvalidInput, j.action.String(), nil)
}

func (e *Explorer) resolve(p string) (string, error) {
	host, err := e.deps.Pipeline.Resolve(p)
	if err != nil {
		return "", errs.New(errs.InvalidInput, p, err)
	}
	return host, nil
}

func (e *Explorer) exists(p string) bool {
	return e.deps.Pipeline.Exists(p)
}

func (e *Explorer) newDir(ctx context.Context, j job) error {
	name := backup.Sanitize(e.deps.Prompter.Prompt(""))
	if name == "" {
		return command.ErrCanceled
	}
	target := backend.JoinPath(j.fromPath, name)
	if !j.from.IsLocal() {
		return e.deps.Session.Client().CreateDirectory(ctx, target)
	}
	host, err := e.resolve(target)
	if err != nil {
		return err
	}
	if e.exists(target) {
		return errs.New(errs.DestinationExists, target, nil)
	}
	return os.Mkdir(host, 0o755)
}

func (e *Explorer) rename(j job) error {
	name := backup.Sanitize(e.deps.Prompter.Prompt(j.name()))
	if name == "" {
		return command.ErrCanceled
	}
	if name == j.name() {
		return errs.New(errs.InvalidInput, "rename "+name, nil)
	}
	target := backend.JoinPath(j.fromPath, name)
	if e.exists(target) {
		return errs.New(errs.DestinationExists, target, nil)
	}
	from, err := e.resolve(j.source())
	if err != nil {
		return err
	}
	to, err := e.resolve(target)
	if err != nil {
		return err
	}
	return os.Rename(from, to)
}

func (e *Explorer) remove(p *command.Progress, j job) error {
	if !e.deps.Prompter.Confirm("delete " + j.name() + "?") {
		return command.ErrCanceled
	}
	host, err := e.resolve(j.source())
	if err != nil {
		return err
	}
	p.Title("deleting " + j.name())
	return os.RemoveAll(host)
}

// checkTransfer applies the copy and move preconditions.
func (e *Explorer) checkTransfer(j job) (string, string, error) {
	src, dst := j.source(), j.destination()
	if e.exists(dst) {
		return "", "", errs.New(errs.DestinationExists, dst, nil)
	}
	if menu.SelfContained(src, dst) {
		return "", "", errs.New(errs.InvalidInput, dst+" is inside "+src, nil)
	}
	from, err := e.resolve(src)
	if err != nil {
		return "", "", err
	}
	to, err := e.resolve(dst)
	if err != nil {
		return "", "", err
	}
	return from, to, nil
}

func (e *Explorer) copy(p *command.Progress, j job) error {
	from, to, err := e.checkTransfer(j)
	if err != nil {
		return err
	}
	p.Title("copying " + j.name())
	return copyTree(from, to, func(name string) { p.Describe(name) })
}

func (e *Explorer) move(p *command.Progress, j job) error {
	from, to, err := e.checkTransfer(j)
	if err != nil {
		return err
	}
	p.Title("moving " + j.name())
	return os.Rename(from, to)
}

// freeTarget returns base+suffix under dir, asking for another base name
// when that is taken.
func (e *Explorer) freeTarget(dir, base, suffix string) (string, error) {
	target := backend.JoinPath(dir, base+suffix)
	if !e.exists(target) {
		return target, nil
	}
	name := backup.Sanitize(e.deps.Prompter.Prompt(base))
	if name == "" {
		return "", command.ErrCanceled
	}
	target = backend.JoinPath(dir, name+suffix)
	if e.exists(target) {
		return "", errs.New(errs.DestinationExists, target, nil)
	}
	return target, nil
}

func (e *Explorer) zip(p *command.Progress, j job) error {
	out, err := e.freeTarget(j.fromPath, j.name(), ".zip")
	if err != nil {
		return err
	}
	p.Title("compressing " + j.name())
	return e.archive(p, j, out)
}

// archive writes the selected item into the device path out.
func (e *Explorer) archive(p *command.Progress, j job, out string) error {
	src, err := e.resolve(j.source())
	if err != nil {
		return err
	}
	dst, err := e.resolve(out)
	if err != nil {
		return err
	}
	if j.item.IsDir {
		return archive.Create(src, dst, nil, describe(p))
	}
	return archive.CreateFile(src, dst)
}

func (e *Explorer) unzip(p *command.Progress, j job) error {
	out, err := e.freeTarget(j.fromPath, strings.TrimSuffix(j.name(), ".zip"), "")
	if err != nil {
		return err
	}
	src, err := e.resolve(j.source())
	if err != nil {
		return err
	}
	dst, err := e.resolve(out)
	if err != nil {
		return err
	}
	p.Title("extracting " + j.name())
	return archive.Extract(src, dst, nil, describe(p))
}

func (e *Explorer) zipUpload(ctx context.Context, p *command.Progress, j job) error {
	pipeline := e.deps.Pipeline
	name := j.name() + ".zip"
	staged := pipeline.Stage(name)
	defer pipeline.Cleanup(staged)

	p.Title("compressing " + j.name())
	if err := e.archive(p, j, staged); err != nil {
		return err
	}
	p.Title("uploading " + name)
	p.Describe("")
	return pipeline.Upload(ctx, e.deps.Session.Client(), staged, j.toPath, name, false)
}

func (e *Explorer) download(ctx context.Context, p *command.Progress, j job) error {
	if !j.item.HasRemoteID {
		return errs.New(errs.InvalidInput, j.name()+" has no remote id", nil)
	}
	p.Title("downloading " + j.name())
	return e.deps.Pipeline.Download(ctx, e.deps.Session.Client(), j.item.RemoteID, j.destination())
}

func describe(p *command.Progress) archive.Progress {
	return func(done, total int, name string) {
		p.Describe(name)
	}
}
