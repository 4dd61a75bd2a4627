package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/atomicstack/save-cloud/internal/backup"
	"github.com/atomicstack/save-cloud/internal/cloud"
	"github.com/atomicstack/save-cloud/internal/explorer"
	"github.com/atomicstack/save-cloud/internal/identity"
	"github.com/atomicstack/save-cloud/internal/input"
	"github.com/atomicstack/save-cloud/internal/keyboard"
	"github.com/atomicstack/save-cloud/internal/overlay"
	"github.com/atomicstack/save-cloud/internal/saves"
	"github.com/atomicstack/save-cloud/internal/testutil"
)

type fixture struct {
	h        *Harness
	explorer *explorer.Explorer
	titles   *saves.Titles
	broker   *keyboard.Broker
	toast    *overlay.Toast
}

func newFixture(t *testing.T, session *cloud.Session) *fixture {
	t.Helper()
	devices, root := testutil.Devices(t, "ux0", "grw0")
	testutil.WriteTree(t, root, map[string]string{
		"ux0/user/00/savedata/PCSA00001/data.bin": "save",
	})
	if session == nil {
		session = testutil.NewFakeCloud().Session()
	}
	toast := overlay.NewToast()
	t.Cleanup(overlay.UseToast(toast))
	broker := keyboard.NewBroker()
	t.Cleanup(broker.Close)
	ident := identity.New(identity.StaticProvider(1), nil)
	pipeline := backup.New(devices, ident)
	e := explorer.New(explorer.Deps{Pipeline: pipeline, Identity: ident, Session: session, Prompter: broker})
	t.Cleanup(e.Close)
	titles := saves.NewTitles(saves.Deps{Pipeline: pipeline, Session: session, Prompter: broker}, map[string]string{
		"PCSA00001": "Gravity Rush",
	})
	t.Cleanup(titles.CloseMenu)
	m := NewModel(Options{
		Explorer: e,
		Titles:   titles,
		Broker:   broker,
		Session:  session,
		Width:    100,
	})
	return &fixture{h: NewHarness(m), explorer: e, titles: titles, broker: broker, toast: toast}
}

func TestButtonsForMapsControllerKeys(t *testing.T) {
	cases := map[string]input.Buttons{
		"enter": input.Confirm,
		"esc":   input.Back,
		"m":     input.Menu,
		"s":     input.Switch,
		"tab":   input.Start,
		" ":     input.Select,
	}
	for key, want := range cases {
		got, ok := ButtonsFor(key)
		if !ok || got != want {
			t.Fatalf("expected %s for %q, got %s", want, key, got)
		}
	}
	if _, ok := ButtonsFor("x"); ok {
		t.Fatalf("expected x to be unbound")
	}
}

func TestKeysApplyOnNextFrame(t *testing.T) {
	f := newFixture(t, nil)
	f.h.Press("right")
	if f.explorer.Active() != explorer.LocalLeft {
		t.Fatalf("expected focus unchanged before the frame, got %d", f.explorer.Active())
	}
	f.h.Frame()
	if f.explorer.Active() != explorer.LocalRight {
		t.Fatalf("expected right panel focused, got %d", f.explorer.Active())
	}
	f.h.Press("left")
	f.h.Frame()
	f.h.Frame()
	if f.explorer.Active() != explorer.LocalLeft {
		t.Fatalf("expected left panel focused, got %d", f.explorer.Active())
	}
}

func TestStartSwitchesToSaveBrowser(t *testing.T) {
	f := newFixture(t, nil)
	f.h.Press("tab")
	f.h.Frame()
	if f.h.Model().Screen() != ScreenSaves {
		t.Fatalf("expected saves screen, got %s", f.h.Model().Screen())
	}
	view := f.h.View()
	if !strings.Contains(view, "Gravity Rush") {
		t.Fatalf("expected title in view, got:\n%s", view)
	}

	f.h.Press("enter")
	f.h.Frame()
	if f.titles.Menu() == nil {
		t.Fatalf("expected save menu to open")
	}
	view = f.h.View()
	if !strings.Contains(view, saves.NewBackupLabel) || !strings.Contains(view, "Cloud") {
		t.Fatalf("expected backup list with tabs, got:\n%s", view)
	}

	f.h.Press("tab")
	f.h.Frame()
	if f.h.Model().Screen() != ScreenSaves {
		t.Fatalf("expected start ignored while the save menu is open")
	}
}

func TestPromptFormAnswersBroker(t *testing.T) {
	f := newFixture(t, nil)
	result := make(chan string, 1)
	go func() { result <- f.broker.Prompt("old") }()
	testutil.WaitFor(t, "prompt", func() bool {
		_, ok := f.broker.Pending()
		return ok
	})

	f.h.Frame()
	if f.h.Model().form == nil {
		t.Fatalf("expected prompt form to open")
	}
	f.h.Press("2", "enter")

	select {
	case got := <-result:
		if got != "old2" {
			t.Fatalf("expected old2, got %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for prompt answer")
	}
	if f.h.Model().form != nil {
		t.Fatalf("expected form closed")
	}
}

func TestConfirmFormDeclines(t *testing.T) {
	f := newFixture(t, nil)
	result := make(chan bool, 1)
	go func() { result <- f.broker.Confirm("delete save?") }()
	testutil.WaitFor(t, "confirm", func() bool {
		_, ok := f.broker.Pending()
		return ok
	})

	f.h.Frame()
	if view := f.h.View(); !strings.Contains(view, "delete save?") {
		t.Fatalf("expected question in view, got:\n%s", view)
	}
	f.h.Press("n")

	select {
	case got := <-result:
		if got {
			t.Fatalf("expected decline")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for confirm answer")
	}
}

func TestKeysGoToFormNotPanels(t *testing.T) {
	f := newFixture(t, nil)
	go f.broker.Prompt("")
	testutil.WaitFor(t, "prompt", func() bool {
		_, ok := f.broker.Pending()
		return ok
	})
	f.h.Frame()
	f.h.Press("l")
	f.h.Frame()
	if f.explorer.Active() != explorer.LocalLeft {
		t.Fatalf("expected typing to stay in the form, got focus %d", f.explorer.Active())
	}
	f.h.Press("esc")
}

func TestJumpMovesCursor(t *testing.T) {
	f := newFixture(t, nil)
	f.h.Frame()
	left := f.explorer.Panel(explorer.LocalLeft)
	want := left.Current().IndexOf("grw0:")
	if want < 0 {
		t.Fatalf("expected grw0: in %v", left.Current().Names())
	}

	f.h.Press("/", "g", "r", "w", "enter")

	if got := left.Current().List.Selected; got != want {
		t.Fatalf("expected cursor on grw0: (%d), got %d", want, got)
	}
}

func TestCopyVerificationURL(t *testing.T) {
	fake := testutil.NewFakeCloud()
	session := cloud.NewSession(fake, nil, cloud.WithPollInterval(time.Hour))
	f := newFixture(t, session)
	var copied string
	old := writeClipboard
	writeClipboard = func(text string) error {
		copied = text
		return nil
	}
	defer func() { writeClipboard = old }()

	f.h.Press("s")
	f.h.Frame()
	testutil.WaitFor(t, "device code", func() bool {
		_, ok := session.Pending()
		return ok
	})
	if view := f.h.View(); !strings.Contains(view, "code: CODE-1") {
		t.Fatalf("expected device code in view, got:\n%s", view)
	}

	f.h.Press("c")
	if copied != "https://drive.invalid/device?code=CODE-1" {
		t.Fatalf("expected verification url copied, got %q", copied)
	}
	if got := f.toast.Last(); got != "link copied" {
		t.Fatalf("expected copy toast, got %q", got)
	}
}

func TestSignOutDropsLogin(t *testing.T) {
	session := testutil.NewFakeCloud().Session()
	f := newFixture(t, session)
	f.h.Press("o")
	if session.Authenticated() {
		t.Fatalf("expected session signed out")
	}
	if got := f.toast.Last(); got != "signed out" {
		t.Fatalf("expected sign out toast, got %q", got)
	}
}

func TestViewShowsPanelsAndToast(t *testing.T) {
	f := newFixture(t, nil)
	f.h.Frame()
	overlay.Notify("backup created")
	view := f.h.View()
	for _, want := range []string{"devices", "ux0:", "backup created", "explorer"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view, got:\n%s", want, view)
		}
	}
}

func TestQuitClosesBroker(t *testing.T) {
	f := newFixture(t, nil)
	if cmd := f.h.Send(KeyMsg("q")); cmd == nil {
		t.Fatalf("expected quit command")
	}
	if f.h.View() != "" {
		t.Fatalf("expected empty view after quit")
	}
	if got := f.broker.Prompt("x"); got != "" {
		t.Fatalf("expected closed broker to cancel prompts, got %q", got)
	}
}
