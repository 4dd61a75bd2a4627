package state

import "github.com/atomicstack/save-cloud/internal/input"

// Item is one directory entry on either backend. RemoteID is only set for
// cloud entries.
type Item struct {
	Name        string
	IsDir       bool
	RemoteID    uint64
	HasRemoteID bool
}

// RemoteItem builds a cloud entry carrying its remote id.
func RemoteItem(name string, isDir bool, id uint64) Item {
	return Item{Name: name, IsDir: isDir, RemoteID: id, HasRemoteID: true}
}

// Dir is one level of a panel's navigation path.
type Dir struct {
	Name  string
	Items []Item
	List  ListState
}

// NewDir constructs a Dir with a fresh ListState.
func NewDir(name string, items []Item) *Dir {
	return &Dir{
		Name:  name,
		Items: CloneItems(items),
		List:  NewListState(DefaultVisibleRows),
	}
}

// Len returns the number of entries.
func (d *Dir) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Items)
}

// Current returns the selected entry.
func (d *Dir) Current() (Item, bool) {
	if d == nil || len(d.Items) == 0 {
		return Item{}, false
	}
	idx := d.List.Selected
	if idx < 0 || idx >= len(d.Items) {
		return Item{}, false
	}
	return d.Items[idx], true
}

// IndexOf returns the position of the named entry or -1.
func (d *Dir) IndexOf(name string) int {
	if d == nil {
		return -1
	}
	for i, item := range d.Items {
		if item.Name == name {
			return i
		}
	}
	return -1
}

// Update forwards navigation buttons to the ListState.
func (d *Dir) Update(buttons input.Buttons) bool {
	if d == nil {
		return false
	}
	return d.List.Update(len(d.Items), buttons)
}

// Select moves the cursor to idx when it is in range.
func (d *Dir) Select(idx int) bool {
	if d == nil || idx < 0 || idx >= len(d.Items) {
		return false
	}
	old := d.List.Selected
	d.List.Selected = idx
	d.List.ScrollIntoView()
	return old != idx
}

// Names lists the entry names in display order.
func (d *Dir) Names() []string {
	if d == nil {
		return nil
	}
	names := make([]string, len(d.Items))
	for i, item := range d.Items {
		names[i] = item.Name
	}
	return names
}

// CloneItems produces a shallow copy of the provided items.
func CloneItems(items []Item) []Item {
	dup := make([]Item, len(items))
	copy(dup, items)
	return dup
}
