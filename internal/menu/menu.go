// Package menu builds the action menu of the file manager from the selected
// item and the paths of both panels.
package menu

import (
	"path"
	"strings"

	"github.com/atomicstack/save-cloud/internal/backend"
	"github.com/atomicstack/save-cloud/internal/device"
	"github.com/atomicstack/save-cloud/internal/input"
	"github.com/atomicstack/save-cloud/internal/logging/events"
	"github.com/atomicstack/save-cloud/internal/ui/state"
)

// VisibleRows is the height of the menu list.
const VisibleRows = 15

// ActionKind is one entry of the action menu.
type ActionKind int

const (
	NewDir ActionKind = iota
	Copy
	Move
	Rename
	Delete
	Zip
	Unzip
	Upload
	ZipUpload
	Download
	ChangeAccountID
)

var actionIDs = map[ActionKind]string{
	NewDir:          "new-dir",
	Copy:            "copy",
	Move:            "move",
	Rename:          "rename",
	Delete:          "delete",
	Zip:             "zip",
	Unzip:           "unzip",
	Upload:          "upload",
	ZipUpload:       "zip-upload",
	Download:        "download",
	ChangeAccountID: "change-account-id",
}

var actionLabels = map[ActionKind]string{
	NewDir:          "New folder",
	Copy:            "Copy",
	Move:            "Move",
	Rename:          "Rename",
	Delete:          "Delete",
	Zip:             "Compress",
	Unzip:           "Extract",
	Upload:          "Upload",
	ZipUpload:       "Compress and upload",
	Download:        "Download",
	ChangeAccountID: "Set param.sfo account to current account",
}

func (k ActionKind) String() string {
	if id, ok := actionIDs[k]; ok {
		return id
	}
	return "unknown"
}

// Label is the text shown in the menu.
func (k ActionKind) Label() string {
	return actionLabels[k]
}

// Item is a rendered menu row.
type Item struct {
	ID    string
	Label string
}

// Context carries what the rules look at when the menu opens.
type Context struct {
	// Item is the selection of the source panel, nil when it is empty.
	Item     *state.Item
	FromPath string
	ToPath   string
	// Exists reports whether a local device path exists.
	Exists func(p string) bool
}

func (c Context) exists(p string) bool {
	return c.Exists != nil && c.Exists(p)
}

// Build returns the actions offered for ctx, NewDir first.
func Build(ctx Context) []ActionKind {
	actions := []ActionKind{NewDir}
	if ctx.Item == nil {
		return actions
	}
	item := *ctx.Item
	fromLocal := device.IsLocal(ctx.FromPath)
	toLocal := device.IsLocal(ctx.ToPath)
	isZip := !item.IsDir && strings.HasSuffix(item.Name, ".zip")
	isSFO := !item.IsDir && item.Name == "param.sfo"

	switch {
	case fromLocal && toLocal:
		actions = append(actions, Rename, Delete)
		from := backend.JoinPath(ctx.FromPath, item.Name)
		to := backend.JoinPath(ctx.ToPath, item.Name)
		if ctx.ToPath != "" && !SelfContained(from, to) {
			actions = append(actions, Copy, Move)
		}
		if isZip {
			actions = append(actions, Unzip)
		} else {
			actions = append(actions, Zip)
		}
		if isSFO && ctx.exists(backend.JoinPath(ParentDir(ctx.FromPath), "sce_pfs")) {
			actions = append(actions, ChangeAccountID)
		}
	case fromLocal:
		actions = append(actions, Rename, Delete)
		if isZip {
			actions = append(actions, Unzip, Upload)
		} else {
			actions = append(actions, Zip)
			if !item.IsDir {
				actions = append(actions, Upload)
			}
			actions = append(actions, ZipUpload)
		}
		if isSFO {
			actions = append(actions, ChangeAccountID)
		}
	default:
		if !item.IsDir {
			actions = append(actions, Download)
		}
	}
	return actions
}

// SelfContained reports whether to extends from as a raw string. Sibling
// names sharing a prefix ("save1", "save10") also match.
func SelfContained(from, to string) bool {
	return strings.HasPrefix(to, from)
}

// ParentDir is the directory holding the panel directory p.
func ParentDir(p string) string {
	trimmed := strings.TrimSuffix(p, "/")
	if trimmed == "" || strings.HasSuffix(trimmed, ":") {
		return trimmed
	}
	return path.Dir(trimmed)
}

// Menu is the open/closed action list.
type Menu struct {
	Actions []ActionKind
	List    state.ListState
	open    bool
}

func New() *Menu {
	return &Menu{List: state.NewListState(VisibleRows)}
}

// Open rebuilds the actions and shows the menu.
func (m *Menu) Open(ctx Context) {
	m.Actions = Build(ctx)
	m.List = state.NewListState(VisibleRows)
	m.open = true
	ids := make([]string, len(m.Actions))
	for i, a := range m.Actions {
		ids[i] = a.String()
	}
	events.UI.MenuOpen(ctx.FromPath, ids)
}

func (m *Menu) Close() {
	if !m.open {
		return
	}
	m.open = false
	events.UI.MenuClose()
}

func (m *Menu) IsOpen() bool { return m.open }

// Selected returns the highlighted action.
func (m *Menu) Selected() (ActionKind, bool) {
	idx := m.List.Selected
	if idx < 0 || idx >= len(m.Actions) {
		return 0, false
	}
	return m.Actions[idx], true
}

// Update moves the cursor. Back closes the menu.
func (m *Menu) Update(buttons input.Buttons) bool {
	if buttons.Has(input.Back) {
		m.Close()
		return true
	}
	return m.List.Update(len(m.Actions), buttons)
}

// Items returns the rows to draw.
func (m *Menu) Items() []Item {
	items := make([]Item, len(m.Actions))
	for i, a := range m.Actions {
		items[i] = Item{ID: a.String(), Label: a.Label()}
	}
	return items
}
