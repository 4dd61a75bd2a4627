package ui

import (
	"reflect"
	"time"

	"github.com/atomicstack/save-cloud/internal/cloud"
	"github.com/atomicstack/save-cloud/internal/explorer"
	"github.com/atomicstack/save-cloud/internal/input"
	"github.com/atomicstack/save-cloud/internal/keyboard"
	"github.com/atomicstack/save-cloud/internal/logging/events"
	"github.com/atomicstack/save-cloud/internal/saves"
	"github.com/atomicstack/save-cloud/internal/theme"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// DefaultFrameInterval is the time between two engine frames.
const DefaultFrameInterval = 50 * time.Millisecond

// Screen is one of the top-level views. Start cycles between them.
type Screen int

const (
	ScreenExplorer Screen = iota
	ScreenSaves
)

func (s Screen) String() string {
	if s == ScreenSaves {
		return "saves"
	}
	return "explorer"
}

var styles = theme.Default()

type msgHandler func(tea.Msg) tea.Cmd

// frameMsg drives one engine frame.
type frameMsg time.Time

// Options configure a Model. Any of the components may be nil in tests.
type Options struct {
	Explorer      *explorer.Explorer
	Titles        *saves.Titles
	Broker        *keyboard.Broker
	Session       *cloud.Session
	Width         int
	Height        int
	ShowFooter    bool
	Verbose       bool
	FrameInterval time.Duration
}

// Model implements the Bubble Tea model around the frame-based engine.
type Model struct {
	explorer *explorer.Explorer
	titles   *saves.Titles
	broker   *keyboard.Broker
	session  *cloud.Session

	screen  Screen
	pressed input.Buttons
	frame   time.Duration

	width       int
	height      int
	fixedWidth  bool
	fixedHeight bool
	showFooter  bool
	verbose     bool

	form     *form
	spinner  spinner.Model
	quitting bool

	handlers map[reflect.Type]msgHandler
}

// NewModel initialises the UI around the given components.
func NewModel(opts Options) *Model {
	m := &Model{
		explorer:   opts.Explorer,
		titles:     opts.Titles,
		broker:     opts.Broker,
		session:    opts.Session,
		frame:      opts.FrameInterval,
		showFooter: opts.ShowFooter,
		verbose:    opts.Verbose,
	}
	if m.frame <= 0 {
		m.frame = DefaultFrameInterval
	}
	if opts.Width > 0 {
		m.width = opts.Width
		m.fixedWidth = true
	}
	if opts.Height > 0 {
		m.height = opts.Height
		m.fixedHeight = true
	}
	s := spinner.New()
	s.Spinner = spinner.Dot
	if styles.Loading != nil {
		s.Style = styles.Loading.Copy()
	}
	m.spinner = s
	m.registerHandlers()
	return m
}

// Init is part of the tea.Model interface.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.frameCmd(), m.spinner.Tick)
}

// Update responds to Bubble Tea messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if handled, cmd := m.handleActiveForm(msg); handled {
		return m, cmd
	}
	if handler := m.handlerFor(msg); handler != nil {
		return m, handler(msg)
	}
	if m.form != nil {
		cmd, _, _ := m.form.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) registerHandlers() {
	m.handlers = map[reflect.Type]msgHandler{
		reflect.TypeOf(tea.KeyMsg{}):        m.handleKeyMsg,
		reflect.TypeOf(tea.WindowSizeMsg{}): m.handleWindowSizeMsg,
		reflect.TypeOf(frameMsg{}):          m.handleFrameMsg,
		reflect.TypeOf(spinner.TickMsg{}):   m.handleSpinnerMsg,
	}
}

func (m *Model) handlerFor(msg tea.Msg) msgHandler {
	if msg == nil || m.handlers == nil {
		return nil
	}
	t := reflect.TypeOf(msg)
	if handler, ok := m.handlers[t]; ok {
		return handler
	}
	if t.Kind() == reflect.Ptr {
		if handler, ok := m.handlers[t.Elem()]; ok {
			return handler
		}
	}
	return nil
}

func (m *Model) frameCmd() tea.Cmd {
	return tea.Tick(m.frame, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// handleFrameMsg runs one engine frame with the buttons pressed since the
// previous one.
func (m *Model) handleFrameMsg(tea.Msg) tea.Cmd {
	if m.quitting {
		return nil
	}
	m.openPendingRequest()
	buttons := m.pressed
	m.pressed = 0
	if m.form != nil {
		buttons = 0
	}
	m.step(buttons)
	return m.frameCmd()
}

func (m *Model) step(buttons input.Buttons) {
	locked := false
	switch m.screen {
	case ScreenSaves:
		if m.titles != nil {
			locked = m.titles.Update(buttons)
		}
	default:
		if m.explorer != nil {
			locked = m.explorer.Update(buttons)
		}
	}
	if !locked && buttons.Has(input.Start) {
		m.switchScreen()
	}
}

func (m *Model) switchScreen() {
	next := ScreenSaves
	if m.screen == ScreenSaves {
		next = ScreenExplorer
	}
	events.UI.Screen(m.screen.String(), next.String())
	m.screen = next
	if next == ScreenSaves && m.titles != nil && m.titles.Menu() == nil {
		m.titles.Reload()
	}
}

// Screen returns the visible screen.
func (m *Model) Screen() Screen { return m.screen }

func (m *Model) handleSpinnerMsg(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return cmd
}

func (m *Model) handleWindowSizeMsg(msg tea.Msg) tea.Cmd {
	resize, ok := msg.(tea.WindowSizeMsg)
	if !ok {
		return nil
	}
	if !m.fixedWidth {
		m.width = resize.Width
	}
	if !m.fixedHeight {
		m.height = resize.Height
	}
	return nil
}

// quit stops the program. Workers blocked on a question get a cancel.
func (m *Model) quit() tea.Cmd {
	m.quitting = true
	if m.broker != nil {
		m.broker.Close()
	}
	return tea.Quit
}
