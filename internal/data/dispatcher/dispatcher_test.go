package dispatcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/atomicstack/save-cloud/internal/backend"
	"github.com/atomicstack/save-cloud/internal/logging"
	"github.com/atomicstack/save-cloud/internal/menu"
	"github.com/atomicstack/save-cloud/internal/overlay"
)

type recorder struct {
	paths []string
	err   error
}

func (r *recorder) RefreshSync(_ context.Context, path string) error {
	r.paths = append(r.paths, path)
	return r.err
}

func TestHandleRoutesRefreshes(t *testing.T) {
	cases := []struct {
		action   menu.ActionKind
		from, to string
		source   int
		dest     int
	}{
		{menu.NewDir, "ux0:/a/", "ux0:/b/", 1, 0},
		{menu.Rename, "ux0:/a/", "ux0:/a/", 1, 1},
		{menu.Copy, "ux0:/a/", "ux0:/b/", 0, 1},
		{menu.Move, "ux0:/a/", "ux0:/b/", 1, 1},
		{menu.Upload, "ux0:/a/", "/apps/", 0, 1},
		{menu.Download, "/apps/", "ux0:/a/", 0, 1},
		{menu.ChangeAccountID, "ux0:/a/", "ux0:/a/", 0, 0},
	}
	for _, tc := range cases {
		from, to := &recorder{}, &recorder{}
		New(from, to).Handle(context.Background(), Outcome{Action: tc.action, FromPath: tc.from, ToPath: tc.to})
		if len(from.paths) != tc.source || len(to.paths) != tc.dest {
			t.Fatalf("%v: expected %d/%d refreshes, got %d/%d", tc.action, tc.source, tc.dest, len(from.paths), len(to.paths))
		}
	}
}

func TestHandleReportsRefreshFailure(t *testing.T) {
	toast := overlay.NewToast()
	defer overlay.UseToast(toast)()
	to := &recorder{err: errors.New("gone")}
	res := New(&recorder{}, to).Handle(context.Background(), Outcome{Action: menu.Copy, FromPath: "ux0:/a/", ToPath: "ux0:/b/"})
	if res.DestinationRefreshed {
		t.Fatalf("expected failed refresh to be reported")
	}
	if toast.Last() != "failed to list ux0:/b/" {
		t.Fatalf("unexpected toast %q", toast.Last())
	}
}

func TestHandleLogsSkippedRefresh(t *testing.T) {
	toast := overlay.NewToast()
	defer overlay.UseToast(toast)()
	path := filepath.Join(t.TempDir(), "error.log")
	logging.Configure(path)
	defer logging.Configure("")

	to := &recorder{err: backend.ErrSlotBusy}
	res := New(&recorder{}, to).Handle(context.Background(), Outcome{Action: menu.Copy, FromPath: "ux0:/a/", ToPath: "ux0:/b/"})
	if res.DestinationRefreshed {
		t.Fatalf("expected skipped refresh to be reported")
	}
	if got := toast.Last(); got != "" {
		t.Fatalf("expected no toast for a skipped refresh, got %q", got)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected log file, got %v", err)
	}
	if !strings.Contains(string(data), "refresh of ux0:/b/ skipped") {
		t.Fatalf("expected skipped refresh logged, got %q", string(data))
	}
}
