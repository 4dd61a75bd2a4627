package identity

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/atomicstack/save-cloud/internal/errs"
	"github.com/atomicstack/save-cloud/internal/sfo"
)

type recordingPatcher struct {
	path string
	id   uint64
	err  error
}

func (p *recordingPatcher) SetAccountID(path string, id uint64) error {
	p.path, p.id = path, id
	return p.err
}

func TestPatchCurrentUsesProvider(t *testing.T) {
	rec := &recordingPatcher{}
	id := New(StaticProvider(7), rec)
	if err := id.PatchCurrent("ux0:param.sfo"); err != nil {
		t.Fatalf("patch: %v", err)
	}
	if rec.path != "ux0:param.sfo" || rec.id != 7 {
		t.Fatalf("expected patch of ux0:param.sfo with 7, got %q %d", rec.path, rec.id)
	}
}

func TestPatchCurrentClassifiesFailures(t *testing.T) {
	rec := &recordingPatcher{err: errors.New("read-only")}
	err := New(StaticProvider(7), rec).PatchCurrent("x")
	if !errors.Is(err, errs.IdentityPatchFailed) {
		t.Fatalf("expected IdentityPatchFailed, got %v", err)
	}

	err = New(StaticProvider(0), &recordingPatcher{}).PatchCurrent("x")
	if !errors.Is(err, errs.IdentityPatchFailed) {
		t.Fatalf("expected IdentityPatchFailed without account, got %v", err)
	}
}

func TestSFOPatcherRewritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "param.sfo")
	if err := os.WriteFile(path, sfo.Encode([]sfo.Param{sfo.AccountParam(1)}), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := New(StaticProvider(99), nil).PatchCurrent(path); err != nil {
		t.Fatalf("patch: %v", err)
	}
	got, err := sfo.AccountID(path)
	if err != nil {
		t.Fatalf("account id: %v", err)
	}
	if got != 99 {
		t.Fatalf("expected 99, got %d", got)
	}
}
