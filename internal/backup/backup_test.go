package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/atomicstack/save-cloud/internal/archive"
	"github.com/atomicstack/save-cloud/internal/errs"
	"github.com/atomicstack/save-cloud/internal/identity"
	"github.com/atomicstack/save-cloud/internal/sfo"
	"github.com/atomicstack/save-cloud/internal/testutil"
)

func newPipeline(t *testing.T, account uint64) (*Pipeline, string) {
	t.Helper()
	devices, root := testutil.Devices(t, "ux0", "grw0")
	p := New(devices, identity.New(identity.StaticProvider(account), nil))
	p.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 6, 7_000_000, time.UTC) }
	return p, root
}

func TestRestorePatchesAndKeepsDeviceFiles(t *testing.T) {
	p, root := newPipeline(t, 77)
	saveHost := filepath.Join(root, "ux0", "user", "00", "savedata", "PCSA00001")
	testutil.WriteTree(t, saveHost, map[string]string{
		"data.bin":         "old",
		"sce_sys/keystone": "mine",
	})

	src := filepath.Join(t.TempDir(), "src")
	testutil.WriteTree(t, src, map[string]string{
		"data.bin":         "new",
		"sce_sys/keystone": "foreign",
	})
	if err := os.WriteFile(filepath.Join(src, "sce_sys", "param.sfo"), sfo.Encode([]sfo.Param{sfo.AccountParam(5)}), 0o644); err != nil {
		t.Fatal(err)
	}
	zipHost := filepath.Join(root, "ux0", "data", "save-cloud", "saves", "PCSA00001 Game", "b.zip")
	if err := archive.Create(src, zipHost, nil, nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := p.Restore("ux0:data/save-cloud/saves/PCSA00001 Game/b.zip", "ux0:user/00/savedata/PCSA00001", nil)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	got := testutil.ReadTree(t, saveHost)
	if got["data.bin"] != "new" {
		t.Fatalf("expected restored data, got %q", got["data.bin"])
	}
	if got["sce_sys/keystone"] != "mine" {
		t.Fatalf("expected device keystone kept, got %q", got["sce_sys/keystone"])
	}
	id, err := sfo.AccountID(filepath.Join(saveHost, "sce_sys", "param.sfo"))
	if err != nil {
		t.Fatalf("account id: %v", err)
	}
	if id != 77 {
		t.Fatalf("expected patched account 77, got %d", id)
	}

	auto := filepath.Join(filepath.Dir(zipHost), "2024-03-09 14.05.06.007 auto.zip")
	names, err := archive.Entries(auto)
	if err != nil {
		t.Fatalf("expected auto backup, got %v", err)
	}
	for _, name := range names {
		if name == "sce_sys/keystone" {
			t.Fatalf("expected auto backup without keystone, got %v", names)
		}
	}
}

func TestRestoreFailsOnBrokenArchive(t *testing.T) {
	p, root := newPipeline(t, 1)
	zipHost := filepath.Join(root, "ux0", "broken.zip")
	if err := os.WriteFile(zipHost, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := p.Restore("ux0:broken.zip", "ux0:save", nil)
	if !errors.Is(err, errs.ArchiveExtractFailed) {
		t.Fatalf("expected ArchiveExtractFailed, got %v", err)
	}
}

func TestRestoreReportsPatchFailure(t *testing.T) {
	p, root := newPipeline(t, 0)
	src := filepath.Join(t.TempDir(), "src")
	testutil.WriteTree(t, src, map[string]string{"sce_sys/param.sfo": "garbage"})
	if err := archive.Create(src, filepath.Join(root, "ux0", "b.zip"), nil, nil); err != nil {
		t.Fatal(err)
	}
	err := p.Restore("ux0:b.zip", "ux0:save", nil)
	if !errors.Is(err, errs.IdentityPatchFailed) {
		t.Fatalf("expected IdentityPatchFailed, got %v", err)
	}
	if _, serr := os.Stat(filepath.Join(root, "ux0", "save", "sce_sys", "param.sfo")); serr != nil {
		t.Fatalf("expected extracted files kept, got %v", serr)
	}
}

func TestBackupExcludesDeviceFiles(t *testing.T) {
	p, root := newPipeline(t, 1)
	testutil.WriteTree(t, filepath.Join(root, "grw0", "savedata", "PCSB00002"), map[string]string{
		"data.bin":          "x",
		"sce_pfs/files":     "pfs",
		"sce_sys/sealedkey": "k",
	})
	dir, ok := p.SaveDir("PCSB00002")
	if !ok || dir != "grw0:savedata/PCSB00002" {
		t.Fatalf("expected grw0 save dir, got %q (%v)", dir, ok)
	}
	if err := p.Backup(dir, "ux0:out/b.zip", nil); err != nil {
		t.Fatalf("backup: %v", err)
	}
	names, err := archive.Entries(filepath.Join(root, "ux0", "out", "b.zip"))
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	for _, name := range names {
		if name == "sce_pfs/" || name == "sce_sys/sealedkey" {
			t.Fatalf("expected exclusions dropped, got %v", names)
		}
	}
	if _, ok := p.SaveDir("PCSX99999"); ok {
		t.Fatalf("expected missing save dir")
	}
}

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		` Zero: Escape? `:   "Zero_ Escape_",
		`a\b/c*d"e'f<g>h|i`: "a_b_c_d_e_f_g_h_i",
		"plain":             "plain",
	}
	for in, want := range cases {
		if got := Sanitize(in); got != want {
			t.Fatalf("Sanitize(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestDirAndBase(t *testing.T) {
	cases := []struct{ in, dir, base string }{
		{"ux0:data/a.zip", "ux0:data", "a.zip"},
		{"ux0:a.zip", "ux0:", "a.zip"},
		{"/apps/x/", "/apps", "x"},
		{"/a", "/", "a"},
	}
	for _, c := range cases {
		if got := Dir(c.in); got != c.dir {
			t.Fatalf("Dir(%q): expected %q, got %q", c.in, c.dir, got)
		}
		if got := Base(c.in); got != c.base {
			t.Fatalf("Base(%q): expected %q, got %q", c.in, c.base, got)
		}
	}
}

func TestLocalTitleDirReusesPrefix(t *testing.T) {
	p, root := newPipeline(t, 1)
	if got := p.LocalTitleDir("PCSA00001", "Gravity: Rush"); got != "ux0:data/save-cloud/saves/PCSA00001 Gravity_ Rush" {
		t.Fatalf("expected new title dir, got %q", got)
	}
	testutil.WriteTree(t, filepath.Join(root, "ux0", "data", "save-cloud", "saves"), map[string]string{
		"PCSA00001 old name/b.zip":    "b",
		"PCSA00001 old name/a.zip":    "a",
		"PCSA00001 old name/note.txt": "n",
		"PCSA00001 old name/dir.zip/": "",
	})
	dir := p.LocalTitleDir("PCSA00001", "Gravity Rush")
	if dir != "ux0:data/save-cloud/saves/PCSA00001 old name" {
		t.Fatalf("expected reused dir, got %q", dir)
	}
	entries, err := p.LocalBackups(dir)
	if err != nil {
		t.Fatalf("backups: %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "b.zip" || entries[1].Name != "a.zip" {
		t.Fatalf("expected [b.zip a.zip], got %+v", entries)
	}
	if entries, err := p.LocalBackups("ux0:missing"); err != nil || len(entries) != 0 {
		t.Fatalf("expected empty listing for missing dir, got %v %v", entries, err)
	}
}

func TestCloudTitleDirAndBackups(t *testing.T) {
	ctx := context.Background()
	fake := testutil.NewFakeCloud()
	if got := CloudTitleDir(ctx, fake, "PCSA00001", "Game"); got != CloudSavesDir+"/PCSA00001 Game" {
		t.Fatalf("expected new cloud dir, got %q", got)
	}
	fake.PutFile(CloudSavesDir+"/PCSA00001 Older/x.zip", []byte("x"))
	fake.MkdirAll(CloudSavesDir + "/PCSA00001 Older/sub")
	dir := CloudTitleDir(ctx, fake, "PCSA00001", "Game")
	if dir != CloudSavesDir+"/PCSA00001 Older" {
		t.Fatalf("expected reused cloud dir, got %q", dir)
	}
	entries, err := CloudBackups(ctx, fake, dir)
	if err != nil {
		t.Fatalf("cloud backups: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "x.zip" || entries[0].RemoteID == 0 {
		t.Fatalf("expected x.zip with id, got %+v", entries)
	}
	if entries, err := CloudBackups(ctx, fake, "/nowhere"); err != nil || entries != nil {
		t.Fatalf("expected no backups for missing dir, got %v %v", entries, err)
	}
}

func TestStagedUploadCleansUp(t *testing.T) {
	ctx := context.Background()
	p, root := newPipeline(t, 1)
	fake := testutil.NewFakeCloud()
	testutil.WriteTree(t, filepath.Join(root, "ux0", "save"), map[string]string{"data.bin": "x"})

	staged := p.Stage("upload.zip")
	if err := p.Backup("ux0:save", staged, nil); err != nil {
		t.Fatalf("backup: %v", err)
	}
	if err := p.Upload(ctx, fake, staged, "/dest", "save.zip", false); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !fake.Exists("/dest/save.zip") {
		t.Fatalf("expected uploaded file")
	}
	p.Cleanup(staged)
	host, _ := p.Resolve(Dir(staged))
	if _, err := os.Stat(host); !os.IsNotExist(err) {
		t.Fatalf("expected staging dir removed, got %v", err)
	}
	if err := p.Upload(ctx, fake, "ux0:missing.zip", "/dest", "m.zip", false); !errors.Is(err, errs.TransferFailed) {
		t.Fatalf("expected TransferFailed, got %v", err)
	}
}

func TestDownloadRefusesExisting(t *testing.T) {
	ctx := context.Background()
	p, root := newPipeline(t, 1)
	fake := testutil.NewFakeCloud()
	id := fake.PutFile("/a.zip", []byte("remote"))

	if err := p.Download(ctx, fake, id, "ux0:in/a.zip"); err != nil {
		t.Fatalf("download: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(root, "ux0", "in", "a.zip"))
	if err != nil || string(data) != "remote" {
		t.Fatalf("expected downloaded data, got %q %v", data, err)
	}
	if err := p.Download(ctx, fake, id, "ux0:in/a.zip"); !errors.Is(err, errs.DestinationExists) {
		t.Fatalf("expected DestinationExists, got %v", err)
	}
}
