package saves

import (
	"github.com/atomicstack/save-cloud/internal/input"
	"github.com/atomicstack/save-cloud/internal/logging/events"
	"github.com/atomicstack/save-cloud/internal/state"
	uistate "github.com/atomicstack/save-cloud/internal/ui/state"
)

// Titles is the save browser's first screen.
type Titles struct {
	deps   Deps
	names  map[string]string
	store  state.TitleStore
	cursor uistate.ListState
	menu   *Menu
}

func NewTitles(deps Deps, names map[string]string) *Titles {
	t := &Titles{
		deps:   deps,
		names:  names,
		store:  state.NewTitleStore(),
		cursor: uistate.NewListState(uistate.DefaultVisibleRows),
	}
	t.Reload()
	return t
}

// Reload rescans the device for titles.
func (t *Titles) Reload() {
	t.store.SetEntries(Scan(t.deps.Pipeline, t.names))
	t.cursor.ClampTo(len(t.store.Entries()))
}

func (t *Titles) Entries() []state.Title { return t.store.Entries() }

func (t *Titles) Cursor() uistate.ListState { return t.cursor }

// Menu returns the open save menu, if any.
func (t *Titles) Menu() *Menu { return t.menu }

// Jump moves the cursor to the best fuzzy match of query.
func (t *Titles) Jump(query string) bool {
	entries := t.store.Entries()
	labels := make([]string, len(entries))
	for i, e := range entries {
		labels[i] = e.Label()
	}
	idx := uistate.BestMatchIndex(labels, query)
	events.UI.Jump(query, idx)
	if idx < 0 {
		return false
	}
	t.cursor.Selected = idx
	t.cursor.ScrollIntoView()
	return true
}

// Open shows the save menu of the selected title.
func (t *Titles) Open() bool {
	entries := t.store.Entries()
	if t.cursor.Selected >= len(entries) {
		return false
	}
	title := entries[t.cursor.Selected]
	t.store.SetCurrent(title.ID)
	t.menu = OpenMenu(t.deps, title)
	return true
}

// CloseMenu drops the open save menu.
func (t *Titles) CloseMenu() {
	if t.menu == nil {
		return
	}
	t.menu.Close()
	t.menu = nil
}

// Update handles one frame. It returns true while input belongs to an open
// save menu.
func (t *Titles) Update(buttons input.Buttons) bool {
	if t.menu != nil {
		if !t.menu.Update(buttons) {
			t.CloseMenu()
			return false
		}
		return true
	}
	size := len(t.store.Entries())
	if t.cursor.Update(size, buttons) {
		return false
	}
	if buttons.Has(input.Confirm) {
		return t.Open()
	}
	return false
}
