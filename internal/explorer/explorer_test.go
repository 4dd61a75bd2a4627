package explorer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/atomicstack/save-cloud/internal/archive"
	"github.com/atomicstack/save-cloud/internal/backup"
	"github.com/atomicstack/save-cloud/internal/cloud"
	"github.com/atomicstack/save-cloud/internal/identity"
	"github.com/atomicstack/save-cloud/internal/input"
	"github.com/atomicstack/save-cloud/internal/menu"
	"github.com/atomicstack/save-cloud/internal/overlay"
	"github.com/atomicstack/save-cloud/internal/panel"
	"github.com/atomicstack/save-cloud/internal/sfo"
	"github.com/atomicstack/save-cloud/internal/testutil"
)

type fixture struct {
	root   string
	e      *Explorer
	fake   *testutil.FakeCloud
	prompt *testutil.Prompter
	toast  *overlay.Toast
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	fake := testutil.NewFakeCloud()
	return newFixtureWithSession(t, files, fake, fake.Session())
}

func newFixtureWithSession(t *testing.T, files map[string]string, fake *testutil.FakeCloud, session *cloud.Session) *fixture {
	t.Helper()
	devices, root := testutil.Devices(t, "ux0")
	testutil.WriteTree(t, root, files)
	toast := overlay.NewToast()
	t.Cleanup(overlay.UseToast(toast))
	prompt := &testutil.Prompter{}
	ident := identity.New(identity.StaticProvider(7), nil)
	e := New(Deps{
		Pipeline: backup.New(devices, ident),
		Identity: ident,
		Session:  session,
		Prompter: prompt,
	})
	t.Cleanup(e.Close)
	return &fixture{root: root, e: e, fake: fake, prompt: prompt, toast: toast}
}

func (f *fixture) host(rel string) string {
	return filepath.Join(f.root, filepath.FromSlash(rel))
}

func (f *fixture) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(f.host(rel))
	if err != nil {
		t.Fatalf("expected %s to exist, got %v", rel, err)
	}
	return string(data)
}

func (f *fixture) missing(t *testing.T, rel string) {
	t.Helper()
	if _, err := os.Stat(f.host(rel)); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be gone, got %v", rel, err)
	}
}

// settle waits for the panel's listing and applies it.
func settle(t *testing.T, p *panel.Panel) {
	t.Helper()
	testutil.WaitFor(t, "listing", func() bool {
		p.Poll()
		return !p.IsPending() && p.Current() != nil
	})
	p.Poll()
}

func pick(t *testing.T, p *panel.Panel, name string) {
	t.Helper()
	settle(t, p)
	dir := p.Current()
	idx := dir.IndexOf(name)
	if idx < 0 {
		t.Fatalf("expected %q in %v", name, dir.Names())
	}
	dir.Select(idx)
}

func enter(t *testing.T, p *panel.Panel, names ...string) {
	t.Helper()
	for _, name := range names {
		pick(t, p, name)
		p.Update(input.Confirm)
		settle(t, p)
	}
}

func (f *fixture) run(t *testing.T, kind menu.ActionKind) {
	t.Helper()
	f.e.Update(input.Menu)
	m := f.e.Menu()
	if !m.IsOpen() {
		t.Fatalf("expected menu to open, toast %q", f.toast.Last())
	}
	idx := -1
	for i, a := range m.Actions {
		if a == kind {
			idx = i
		}
	}
	if idx < 0 {
		t.Fatalf("expected %s in %v", kind, m.Actions)
	}
	m.List.Selected = idx
	f.e.Update(input.Confirm)
	f.e.Wait()
}

func TestCopyRefusesExistingDestination(t *testing.T) {
	f := newFixture(t, map[string]string{
		"ux0/a/save/data.bin": "new",
		"ux0/b/save/data.bin": "old",
	})
	enter(t, f.e.Panel(LocalRight), "ux0:", "b")
	enter(t, f.e.Panel(LocalLeft), "ux0:", "a")
	pick(t, f.e.Panel(LocalLeft), "save")

	f.run(t, menu.Copy)

	if got := f.toast.Last(); !strings.HasPrefix(got, "copy failed") || !strings.Contains(got, "destination exists") {
		t.Fatalf("expected destination exists toast, got %q", got)
	}
	if got := f.read(t, "ux0/b/save/data.bin"); got != "old" {
		t.Fatalf("expected destination untouched, got %q", got)
	}
	if got := f.read(t, "ux0/a/save/data.bin"); got != "new" {
		t.Fatalf("expected source untouched, got %q", got)
	}
}

func TestCopyRefreshesDestinationPanel(t *testing.T) {
	f := newFixture(t, map[string]string{
		"ux0/a/save/data.bin": "new",
		"ux0/b/":              "",
	})
	right := f.e.Panel(LocalRight)
	enter(t, right, "ux0:", "b")
	enter(t, f.e.Panel(LocalLeft), "ux0:", "a")
	pick(t, f.e.Panel(LocalLeft), "save")

	f.run(t, menu.Copy)

	if got := f.toast.Last(); got != "copy complete" {
		t.Fatalf("expected copy complete, got %q", got)
	}
	if got := f.read(t, "ux0/b/save/data.bin"); got != "new" {
		t.Fatalf("expected copied file, got %q", got)
	}
	right.Poll()
	if right.Current().IndexOf("save") < 0 {
		t.Fatalf("expected refreshed destination listing, got %v", right.Current().Names())
	}
	if right.Path() != "ux0:/b/" {
		t.Fatalf("expected destination path kept, got %q", right.Path())
	}
}

func TestMoveRemovesSource(t *testing.T) {
	f := newFixture(t, map[string]string{
		"ux0/a/save/data.bin": "x",
		"ux0/b/":              "",
	})
	enter(t, f.e.Panel(LocalRight), "ux0:", "b")
	left := f.e.Panel(LocalLeft)
	enter(t, left, "ux0:", "a")
	pick(t, left, "save")

	f.run(t, menu.Move)

	f.missing(t, "ux0/a/save")
	if got := f.read(t, "ux0/b/save/data.bin"); got != "x" {
		t.Fatalf("expected moved file, got %q", got)
	}
	left.Poll()
	if left.Current().Len() != 0 {
		t.Fatalf("expected refreshed empty source, got %v", left.Current().Names())
	}
}

func TestZipAsksForNameWhenTaken(t *testing.T) {
	f := newFixture(t, map[string]string{
		"ux0/a/save/data.bin": "x",
		"ux0/a/save.zip":      "taken",
	})
	left := f.e.Panel(LocalLeft)
	enter(t, left, "ux0:", "a")
	pick(t, left, "save")
	f.prompt.Answers = []string{"save-2"}

	f.run(t, menu.Zip)

	if len(f.prompt.Initials) != 1 || f.prompt.Initials[0] != "save" {
		t.Fatalf("expected prompt prefilled with save, got %v", f.prompt.Initials)
	}
	entries, err := archive.Entries(f.host("ux0/a/save-2.zip"))
	if err != nil {
		t.Fatalf("expected archive, got %v", err)
	}
	if len(entries) != 1 || entries[0] != "data.bin" {
		t.Fatalf("expected data.bin entry, got %v", entries)
	}
	if got := f.read(t, "ux0/a/save.zip"); got != "taken" {
		t.Fatalf("expected existing archive untouched, got %q", got)
	}
}

func TestZipCanceledWhenPromptDismissed(t *testing.T) {
	f := newFixture(t, map[string]string{
		"ux0/a/save/data.bin": "x",
		"ux0/a/save.zip":      "taken",
	})
	left := f.e.Panel(LocalLeft)
	enter(t, left, "ux0:", "a")
	pick(t, left, "save")

	f.run(t, menu.Zip)

	if got := f.toast.Last(); got != "compress canceled" {
		t.Fatalf("expected canceled toast, got %q", got)
	}
}

func TestUnzipExtractsNextToArchive(t *testing.T) {
	f := newFixture(t, map[string]string{"ux0/src/data.bin": "payload"})
	if err := archive.Create(f.host("ux0/src"), f.host("ux0/a/save.zip"), nil, nil); err != nil {
		t.Fatal(err)
	}
	left := f.e.Panel(LocalLeft)
	enter(t, left, "ux0:", "a")
	pick(t, left, "save.zip")

	f.run(t, menu.Unzip)

	if got := f.read(t, "ux0/a/save/data.bin"); got != "payload" {
		t.Fatalf("expected extracted file, got %q", got)
	}
}

func TestNewDirRenameDelete(t *testing.T) {
	f := newFixture(t, map[string]string{"ux0/a/": ""})
	left := f.e.Panel(LocalLeft)
	enter(t, left, "ux0:", "a")

	f.prompt.Answers = []string{"  new/dir  "}
	f.run(t, menu.NewDir)
	if info, err := os.Stat(f.host("ux0/a/new_dir")); err != nil || !info.IsDir() {
		t.Fatalf("expected sanitized directory, got %v", err)
	}

	pick(t, left, "new_dir")
	f.prompt.Answers = []string{"new_dir"}
	f.run(t, menu.Rename)
	if got := f.toast.Last(); !strings.Contains(got, "invalid input") {
		t.Fatalf("expected same-name rename refused, got %q", got)
	}

	pick(t, left, "new_dir")
	f.prompt.Answers = []string{"renamed"}
	f.run(t, menu.Rename)
	f.missing(t, "ux0/a/new_dir")
	if _, err := os.Stat(f.host("ux0/a/renamed")); err != nil {
		t.Fatalf("expected renamed dir, got %v", err)
	}

	pick(t, left, "renamed")
	f.prompt.Confirms = []bool{false}
	f.run(t, menu.Delete)
	if _, err := os.Stat(f.host("ux0/a/renamed")); err != nil {
		t.Fatalf("expected declined delete to keep dir, got %v", err)
	}

	pick(t, left, "renamed")
	f.prompt.Confirms = []bool{true}
	f.run(t, menu.Delete)
	f.missing(t, "ux0/a/renamed")
	if asked := f.prompt.Asked(); len(asked) != 2 || asked[1] != "delete renamed?" {
		t.Fatalf("expected delete confirmations, got %v", asked)
	}
}

func TestNewDirRefusesExisting(t *testing.T) {
	f := newFixture(t, map[string]string{"ux0/a/taken/": ""})
	enter(t, f.e.Panel(LocalLeft), "ux0:", "a")
	f.prompt.Answers = []string{"taken"}

	f.run(t, menu.NewDir)

	if got := f.toast.Last(); !strings.Contains(got, "destination exists") {
		t.Fatalf("expected destination exists, got %q", got)
	}
}

func (f *fixture) showCloud(t *testing.T, names ...string) *panel.Panel {
	t.Helper()
	f.e.Update(input.Switch)
	if !f.e.CloudShown() {
		t.Fatalf("expected cloud panel on the right")
	}
	p := f.e.Panel(CloudRight)
	settle(t, p)
	enter(t, p, names...)
	return p
}

func TestUploadAndZipUpload(t *testing.T) {
	fake := testutil.NewFakeCloud()
	fake.MkdirAll("/saves")
	f := newFixtureWithSession(t, map[string]string{
		"ux0/a/file.txt":      "hello",
		"ux0/a/save/data.bin": "x",
	}, fake, fake.Session())
	remote := f.showCloud(t, "saves")
	left := f.e.Panel(LocalLeft)
	enter(t, left, "ux0:", "a")

	pick(t, left, "file.txt")
	f.run(t, menu.Upload)
	if data, ok := fake.File("/saves/file.txt"); !ok || string(data) != "hello" {
		t.Fatalf("expected uploaded file, got %q %v", data, ok)
	}

	pick(t, left, "save")
	f.run(t, menu.ZipUpload)
	if _, ok := fake.File("/saves/save.zip"); !ok {
		t.Fatalf("expected uploaded archive, toast %q", f.toast.Last())
	}
	staged, _ := os.ReadDir(f.host("ux0/data/save-cloud/tmp"))
	if len(staged) != 0 {
		t.Fatalf("expected staging cleaned up, got %d entries", len(staged))
	}
	remote.Poll()
	if remote.Current().IndexOf("save.zip") < 0 {
		t.Fatalf("expected cloud listing refreshed, got %v", remote.Current().Names())
	}
}

func TestDownloadFromCloudPanel(t *testing.T) {
	fake := testutil.NewFakeCloud()
	fake.PutFile("/saves/file.txt", []byte("remote"))
	f := newFixtureWithSession(t, map[string]string{"ux0/a/": ""}, fake, fake.Session())
	enter(t, f.e.Panel(LocalLeft), "ux0:", "a")
	remote := f.showCloud(t, "saves")
	f.e.Update(input.Right)
	if f.e.Active() != CloudRight {
		t.Fatalf("expected cloud panel focused, got %d", f.e.Active())
	}
	pick(t, remote, "file.txt")

	f.run(t, menu.Download)
	if got := f.read(t, "ux0/a/file.txt"); got != "remote" {
		t.Fatalf("expected downloaded file, got %q", got)
	}

	f.run(t, menu.Download)
	if got := f.toast.Last(); !strings.HasPrefix(got, "download failed") {
		t.Fatalf("expected second download refused, got %q", got)
	}
}

func TestReopeningCloudPanelKeepsDeviceCode(t *testing.T) {
	fake := testutil.NewFakeCloud()
	session := cloud.NewSession(fake, nil, cloud.WithPollInterval(time.Hour))
	f := newFixtureWithSession(t, map[string]string{"ux0/a/": ""}, fake, session)

	f.e.Update(input.Switch)
	testutil.WaitFor(t, "device code", func() bool { return fake.DeviceCodeRequests() == 1 })
	f.e.Update(input.Switch)
	if f.e.CloudShown() {
		t.Fatalf("expected local panel back on the right")
	}
	f.e.Update(input.Switch)
	f.e.Update(0)
	time.Sleep(20 * time.Millisecond)

	if got := fake.DeviceCodeRequests(); got != 1 {
		t.Fatalf("expected one device code request, got %d", got)
	}
	if session.Consumers() != 1 {
		t.Fatalf("expected one consumer, got %d", session.Consumers())
	}
	f.e.Close()
	if session.Consumers() != 0 {
		t.Fatalf("expected consumer detached on close, got %d", session.Consumers())
	}
}

func TestChangeAccountIDPatchesParam(t *testing.T) {
	f := newFixture(t, map[string]string{
		"ux0/user/00/savedata/PCSA00001/sce_pfs/": "",
	})
	sys := f.host("ux0/user/00/savedata/PCSA00001/sce_sys")
	if err := os.MkdirAll(sys, 0o755); err != nil {
		t.Fatal(err)
	}
	param := sfo.Encode([]sfo.Param{sfo.AccountParam(1), sfo.StringParam("TITLE", "Gravity Rush", 128)})
	if err := os.WriteFile(filepath.Join(sys, "param.sfo"), param, 0o644); err != nil {
		t.Fatal(err)
	}
	left := f.e.Panel(LocalLeft)
	enter(t, left, "ux0:", "user", "00", "savedata", "PCSA00001", "sce_sys")
	pick(t, left, "param.sfo")

	f.run(t, menu.ChangeAccountID)

	id, err := sfo.AccountID(filepath.Join(sys, "param.sfo"))
	if err != nil {
		t.Fatalf("expected readable param, got %v", err)
	}
	if id != 7 {
		t.Fatalf("expected account 7, got %d", id)
	}
}

func TestMenuNeedsAPath(t *testing.T) {
	f := newFixture(t, nil)
	settle(t, f.e.Panel(LocalLeft))

	f.e.Update(input.Menu)

	if f.e.Menu().IsOpen() {
		t.Fatalf("expected menu to stay closed at the device list")
	}
	if got := f.toast.Last(); got != "select a folder or file" {
		t.Fatalf("expected hint toast, got %q", got)
	}
}

func TestFocusFollowsRightPanel(t *testing.T) {
	f := newFixture(t, nil)
	f.e.Update(input.Right)
	if f.e.Active() != LocalRight || f.e.To() != LocalLeft {
		t.Fatalf("expected right local panel focused, got %d", f.e.Active())
	}
	f.e.Update(input.Switch)
	if f.e.Active() != CloudRight {
		t.Fatalf("expected focus to follow the cloud panel, got %d", f.e.Active())
	}
	// The cloud panel holds input until its root listing lands.
	settle(t, f.e.Panel(CloudRight))
	f.e.Update(input.Left)
	if f.e.Active() != LocalLeft || f.e.To() != CloudRight {
		t.Fatalf("expected left focused with cloud destination, got %d -> %d", f.e.Active(), f.e.To())
	}
}
