package saves

import (
	"github.com/atomicstack/save-cloud/internal/input"
	"github.com/atomicstack/save-cloud/internal/logging/events"
	"github.com/atomicstack/save-cloud/internal/state"
)

// Tab selects one of the save menu's lists.
type Tab int

const (
	TabLocal Tab = iota
	TabCloud
)

func (t Tab) String() string {
	if t == TabCloud {
		return "cloud"
	}
	return "local"
}

// Menu is the save menu of one title. Its lists live only while it is open.
type Menu struct {
	title state.Title
	tab   Tab
	local *LocalList
	cloud *CloudList
}

// OpenMenu builds both lists for title. The cloud list attaches to the
// session immediately so a login can start while the local tab is shown.
func OpenMenu(deps Deps, title state.Title) *Menu {
	events.Saves.Open(title.ID, title.Name)
	m := &Menu{
		title: title,
		local: NewLocalList(deps, title),
	}
	if deps.Session != nil {
		m.cloud = NewCloudList(deps, title)
	}
	return m
}

func (m *Menu) Title() state.Title { return m.title }

func (m *Menu) Tab() Tab { return m.tab }

func (m *Menu) Local() *LocalList { return m.local }

// Cloud returns nil when no cloud drive is configured.
func (m *Menu) Cloud() *CloudList { return m.cloud }

// Busy reports whether either list runs an action.
func (m *Menu) Busy() bool {
	return m.local.Busy() || (m.cloud != nil && m.cloud.Busy())
}

// SetTab switches lists. Showing the cloud tab re-arms a stalled login.
func (m *Menu) SetTab(tab Tab) {
	if tab == TabCloud && m.cloud == nil {
		return
	}
	if m.tab == tab {
		return
	}
	m.tab = tab
	events.Saves.Tab(tab.String())
	if tab == TabCloud {
		m.cloud.Activate()
	}
}

// Update routes one frame to the visible list. It returns false once Back
// asks to close the menu.
func (m *Menu) Update(buttons input.Buttons) (open bool) {
	if m.Busy() {
		m.update(0)
		return true
	}
	switch {
	case buttons.Has(input.Back):
		return false
	case buttons.Has(input.Left):
		m.SetTab(TabLocal)
		return true
	case buttons.Has(input.Right):
		m.SetTab(TabCloud)
		return true
	}
	m.update(buttons)
	return true
}

func (m *Menu) update(buttons input.Buttons) {
	if m.tab == TabCloud {
		m.cloud.Update(buttons)
		return
	}
	m.local.Update(buttons)
}

// Close drops both lists and detaches the cloud list.
func (m *Menu) Close() {
	if m.cloud != nil {
		m.cloud.Close()
	}
	events.Saves.Close(m.title.ID)
}
