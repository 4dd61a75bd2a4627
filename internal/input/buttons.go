// Package input defines the button bitmask handed to every component's
// Update call. Debounce and key repeat happen before a bitmask is built.
package input

import "strings"

// Buttons is a set of pressed buttons for one frame.
type Buttons uint32

const (
	Up Buttons = 1 << iota
	Down
	Left
	Right
	Confirm
	Back
	Menu
	Switch
	Select
	Start
	PageUp
	PageDown
	Home
	End
)

var names = []struct {
	button Buttons
	name   string
}{
	{Up, "up"},
	{Down, "down"},
	{Left, "left"},
	{Right, "right"},
	{Confirm, "confirm"},
	{Back, "back"},
	{Menu, "menu"},
	{Switch, "switch"},
	{Select, "select"},
	{Start, "start"},
	{PageUp, "pgup"},
	{PageDown, "pgdown"},
	{Home, "home"},
	{End, "end"},
}

// Has reports whether any of the given buttons is pressed.
func (b Buttons) Has(button Buttons) bool {
	return b&button != 0
}

// Empty reports whether nothing is pressed.
func (b Buttons) Empty() bool {
	return b == 0
}

func (b Buttons) String() string {
	if b == 0 {
		return "none"
	}
	parts := make([]string, 0, 2)
	for _, entry := range names {
		if b.Has(entry.button) {
			parts = append(parts, entry.name)
		}
	}
	return strings.Join(parts, "+")
}
