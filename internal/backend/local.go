package backend

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/atomicstack/save-cloud/internal/device"
	"github.com/atomicstack/save-cloud/internal/errs"
	"github.com/atomicstack/save-cloud/internal/logging/events"
	"github.com/atomicstack/save-cloud/internal/ui/state"
)

// Local lists the device filesystems through a device table.
type Local struct {
	devices *device.Table
}

func NewLocal(devices *device.Table) *Local {
	return &Local{devices: devices}
}

func (l *Local) Name() string { return "local" }

// Devices exposes the table used to resolve paths.
func (l *Local) Devices() *device.Table { return l.devices }

// Init pushes the device root synchronously when the stack is empty.
func (l *Local) Init(stack []*state.Dir, _ *Slot) []*state.Dir {
	if len(stack) > 0 {
		return stack
	}
	return append(stack, l.root())
}

func (l *Local) Dispatch(p, name string, action Action, slot *Slot) bool {
	return dispatch(l, p, name, action, slot, nil)
}

func (l *Local) Load(_ context.Context, p, name string, action Action) (*state.Dir, error) {
	target := Target(p, name, action)
	if target == "" {
		return l.root(), nil
	}
	host, err := l.devices.Resolve(target)
	if err != nil {
		return nil, errs.New(errs.ListingFailed, target, err)
	}
	entries, err := os.ReadDir(host)
	if err != nil {
		return nil, errs.New(errs.ListingFailed, target, err)
	}
	items := make([]state.Item, 0, len(entries))
	for _, entry := range entries {
		items = append(items, state.Item{Name: entry.Name(), IsDir: isDir(host, entry)})
	}
	SortLocal(items)
	return state.NewDir(dirName(p, name, action), items), nil
}

func (l *Local) Pop(stack []*state.Dir) []*state.Dir {
	return pop(stack)
}

func (l *Local) root() *state.Dir {
	devices := l.devices.Available()
	events.Panel.Root(devices)
	items := make([]state.Item, len(devices))
	for i, dev := range devices {
		items[i] = state.Item{Name: dev, IsDir: true}
	}
	return state.NewDir("", items)
}

// SortLocal orders directories first, then names case-insensitively.
func SortLocal(items []state.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].IsDir != items[j].IsDir {
			return items[i].IsDir
		}
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})
}

func isDir(parent string, entry fs.DirEntry) bool {
	if entry.Type()&fs.ModeSymlink == 0 {
		return entry.IsDir()
	}
	info, err := os.Stat(filepath.Join(parent, entry.Name()))
	return err == nil && info.IsDir()
}
