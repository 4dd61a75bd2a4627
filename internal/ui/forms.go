package ui

import (
	"strings"

	"github.com/atomicstack/save-cloud/internal/keyboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type formKind int

const (
	formPrompt formKind = iota
	formConfirm
	formJump
)

const promptCharLimit = 128

// form is the modal answering a keyboard request or taking a jump query.
type form struct {
	kind  formKind
	req   *keyboard.Request
	input textinput.Model
	title string
}

func newTextInput(initial string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = "» "
	ti.CharLimit = promptCharLimit
	if styles.Prompt != nil {
		ti.PromptStyle = styles.Prompt.Copy()
	}
	ti.SetValue(initial)
	ti.CursorEnd()
	ti.Focus()
	return ti
}

func newRequestForm(req *keyboard.Request) *form {
	f := &form{req: req, title: req.Message}
	if req.Kind == keyboard.KindConfirm {
		f.kind = formConfirm
		return f
	}
	f.kind = formPrompt
	if f.title == "" {
		f.title = "Enter a name"
	}
	f.input = newTextInput(req.Initial)
	return f
}

func newJumpForm() *form {
	return &form{kind: formJump, title: "Jump to", input: newTextInput("")}
}

// Focus returns the cursor blink command of text forms.
func (f *form) Focus() tea.Cmd {
	if f.kind == formConfirm {
		return nil
	}
	return f.input.Focus()
}

// Update feeds msg to the form. done and cancel report whether the form
// closed and how.
func (f *form) Update(msg tea.Msg) (cmd tea.Cmd, done, cancel bool) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "esc":
			return nil, false, true
		case "enter":
			return nil, true, false
		}
		if f.kind == formConfirm {
			switch strings.ToLower(key.String()) {
			case "y":
				return nil, true, false
			case "n":
				return nil, false, true
			}
			return nil, false, false
		}
	}
	if f.kind == formConfirm {
		return nil, false, false
	}
	f.input, cmd = f.input.Update(msg)
	return cmd, false, false
}

func (f *form) Value() string {
	if f.kind == formConfirm {
		return "y"
	}
	return f.input.Value()
}

func (f *form) Title() string { return f.title }

func (f *form) Help() string {
	if f.kind == formConfirm {
		return "enter/y: yes • esc/n: no"
	}
	return "enter: accept • esc: cancel"
}

func (f *form) InputView() string {
	if f.kind == formConfirm {
		return ""
	}
	return f.input.View()
}

// openPendingRequest shows the oldest unanswered keyboard request.
func (m *Model) openPendingRequest() {
	if m.form != nil || m.broker == nil {
		return
	}
	if req, ok := m.broker.Pending(); ok {
		m.form = newRequestForm(req)
	}
}

func (m *Model) handleActiveForm(msg tea.Msg) (bool, tea.Cmd) {
	if m.form == nil {
		return false, nil
	}
	if _, ok := msg.(tea.KeyMsg); !ok {
		return false, nil
	}
	cmd, done, cancel := m.form.Update(msg)
	switch {
	case cancel:
		m.finishForm("", false)
	case done:
		m.finishForm(m.form.Value(), true)
	}
	return true, cmd
}

func (m *Model) finishForm(value string, ok bool) {
	f := m.form
	m.form = nil
	if f.req != nil {
		if m.broker != nil {
			m.broker.Answer(f.req, value, ok)
		}
		return
	}
	if query := strings.TrimSpace(value); ok && query != "" {
		m.jump(query)
	}
}

func (m *Model) viewForm(width int) string {
	f := m.form
	lines := []string{styles.Header.Render(truncateText(f.Title(), width))}
	if input := f.InputView(); input != "" {
		lines = append(lines, "", input)
	}
	lines = append(lines, "", styles.Footer.Render(f.Help()))
	return styles.Menu.Render(strings.Join(lines, "\n"))
}
