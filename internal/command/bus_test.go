package command

import (
	"context"
	"errors"
	"testing"

	"github.com/atomicstack/save-cloud/internal/overlay"
)

func TestBusRunsOneRequestAtATime(t *testing.T) {
	toast := overlay.NewToast()
	defer overlay.UseToast(toast)()
	bus := New()
	release := make(chan struct{})
	started := make(chan struct{})

	ok := bus.Execute(Request{ID: "copy", Label: "Copy", Success: "copy finished", Run: func(ctx context.Context, p *Progress) error {
		p.Title("copying")
		close(started)
		<-release
		return nil
	}})
	if !ok {
		t.Fatalf("expected first request to start")
	}
	<-started
	if !bus.Busy() || !overlay.Loading().Active() {
		t.Fatalf("expected busy bus with loading overlay")
	}
	if bus.Execute(Request{ID: "move", Label: "Move", Run: func(context.Context, *Progress) error { return nil }}) {
		t.Fatalf("expected second request to be refused")
	}
	close(release)
	bus.Wait()

	if bus.Busy() || overlay.Loading().Active() {
		t.Fatalf("expected idle bus and hidden overlay")
	}
	if toast.Last() != "copy finished" {
		t.Fatalf("expected success toast, got %q", toast.Last())
	}
}

func TestBusReportsFailureAndCancel(t *testing.T) {
	toast := overlay.NewToast()
	defer overlay.UseToast(toast)()
	bus := New()

	bus.Execute(Request{ID: "zip", Label: "Compress", Run: func(context.Context, *Progress) error {
		return errors.New("disk full")
	}})
	bus.Wait()
	if toast.Last() != "Compress failed: disk full" {
		t.Fatalf("unexpected toast %q", toast.Last())
	}

	bus.Execute(Request{ID: "rename", Label: "Rename", Run: func(context.Context, *Progress) error {
		return ErrCanceled
	}})
	bus.Wait()
	if toast.Last() != "Rename canceled" {
		t.Fatalf("unexpected toast %q", toast.Last())
	}
}
