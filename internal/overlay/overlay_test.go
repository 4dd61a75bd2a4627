package overlay

import (
	"testing"
	"time"
)

func TestToastExpires(t *testing.T) {
	now := time.Unix(100, 0)
	toast := NewToast()
	toast.now = func() time.Time { return now }

	toast.Show("login succeeded")
	if text, ok := toast.Text(); !ok || text != "login succeeded" {
		t.Fatalf("expected visible toast, got %q %v", text, ok)
	}
	now = now.Add(ToastDuration)
	if _, ok := toast.Text(); ok {
		t.Fatalf("expected toast to expire")
	}
	if toast.Last() != "login succeeded" {
		t.Fatalf("expected last message kept, got %q", toast.Last())
	}
}

func TestNotifyUsesSwappedToast(t *testing.T) {
	toast := NewToast()
	restore := UseToast(toast)
	defer restore()

	Notify("select a folder or file")
	if toast.Last() != "select a folder or file" {
		t.Fatalf("expected notification captured, got %q", toast.Last())
	}
}

func TestLoadingNests(t *testing.T) {
	l := &LoadingState{}
	l.Show()
	l.SetTitle("copying")
	l.Show()
	l.Hide()
	if !l.Active() {
		t.Fatalf("expected loading to stay open while nested")
	}
	if title, _, _ := l.Snapshot(); title != "copying" {
		t.Fatalf("expected title kept, got %q", title)
	}
	l.Hide()
	title, desc, open := l.Snapshot()
	if open || title != "" || desc != "" {
		t.Fatalf("expected cleared indicator, got %q %q %v", title, desc, open)
	}
	l.Hide()
	if l.Active() {
		t.Fatalf("expected extra hide to be harmless")
	}
}
