package ui

import (
	"github.com/atomicstack/save-cloud/internal/input"
	"github.com/atomicstack/save-cloud/internal/logging"
	"github.com/atomicstack/save-cloud/internal/logging/events"
	"github.com/atomicstack/save-cloud/internal/overlay"
	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

// keyButtons maps terminal keys onto the controller buttons the engine
// understands.
var keyButtons = map[string]input.Buttons{
	"up":        input.Up,
	"k":         input.Up,
	"down":      input.Down,
	"j":         input.Down,
	"left":      input.Left,
	"h":         input.Left,
	"right":     input.Right,
	"l":         input.Right,
	"enter":     input.Confirm,
	"esc":       input.Back,
	"backspace": input.Back,
	"m":         input.Menu,
	"s":         input.Switch,
	" ":         input.Select,
	"space":     input.Select,
	"tab":       input.Start,
	"pgup":      input.PageUp,
	"pgdown":    input.PageDown,
	"home":      input.Home,
	"g":         input.Home,
	"end":       input.End,
	"G":         input.End,
}

// ButtonsFor returns the buttons bound to key.
func ButtonsFor(key string) (input.Buttons, bool) {
	b, ok := keyButtons[key]
	return b, ok
}

var writeClipboard = clipboard.WriteAll

func (m *Model) handleKeyMsg(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	key := keyMsg.String()
	switch key {
	case "ctrl+c", "q":
		return m.quit()
	case "/":
		m.form = newJumpForm()
		return m.form.Focus()
	case "c":
		m.copyVerificationURL()
		return nil
	case "o":
		m.signOut()
		return nil
	}
	if b, ok := keyButtons[key]; ok {
		m.pressed |= b
		if m.verbose {
			events.UI.Buttons(key, uint32(m.pressed))
		}
	}
	return nil
}

// copyVerificationURL puts the sign-in link on the clipboard while a device
// code is being polled.
func (m *Model) copyVerificationURL() {
	if m.session == nil {
		return
	}
	auth, ok := m.session.Pending()
	if !ok {
		return
	}
	err := writeClipboard(auth.VerificationURL)
	events.UI.Clipboard(err)
	if err != nil {
		logging.Error(err)
		overlay.Notify("copy failed: " + err.Error())
		return
	}
	overlay.Notify("link copied")
}

// signOut forgets the cloud login. Consumers request a new device code on
// their next activation.
func (m *Model) signOut() {
	if m.session == nil || !m.session.Authenticated() {
		return
	}
	if err := m.session.SignOut(); err != nil {
		logging.Error(err)
		overlay.Notify("sign out failed: " + err.Error())
		return
	}
	overlay.Notify("signed out")
}

// jump moves the cursor of the visible list to the best match of query.
func (m *Model) jump(query string) {
	found := false
	switch m.screen {
	case ScreenSaves:
		if m.titles != nil && m.titles.Menu() == nil {
			found = m.titles.Jump(query)
		}
	default:
		if m.explorer != nil && !m.explorer.Menu().IsOpen() {
			found = m.explorer.Jump(query)
		}
	}
	if !found {
		overlay.Notify("no match for " + query)
	}
}
