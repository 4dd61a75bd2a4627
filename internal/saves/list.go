package saves

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"

	"github.com/atomicstack/save-cloud/internal/archive"
	"github.com/atomicstack/save-cloud/internal/backup"
	"github.com/atomicstack/save-cloud/internal/cloud"
	"github.com/atomicstack/save-cloud/internal/command"
	"github.com/atomicstack/save-cloud/internal/keyboard"
	uistate "github.com/atomicstack/save-cloud/internal/ui/state"
)

// VisibleRows is the height of a backup list.
const VisibleRows = 12

// NewBackupLabel is row 0 of both lists.
const NewBackupLabel = "+ new backup"

// Deps are the collaborators shared by the save lists.
type Deps struct {
	Pipeline *backup.Pipeline
	Session  *cloud.Session
	Prompter keyboard.Prompter
}

// Row is one rendered line.
type Row struct {
	Label  string
	Detail string
}

// entries holds a list's backups. Workers replace them; the frame loop
// reads them.
type entries struct {
	mu     sync.Mutex
	items  []backup.Entry
	loaded bool
	dirty  atomic.Bool
}

func (e *entries) set(items []backup.Entry) {
	e.mu.Lock()
	e.items = items
	e.loaded = true
	e.mu.Unlock()
}

func (e *entries) snapshot() ([]backup.Entry, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	dup := make([]backup.Entry, len(e.items))
	copy(dup, e.items)
	return dup, e.loaded
}

func (e *entries) at(row int) (backup.Entry, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if row < 1 || row > len(e.items) {
		return backup.Entry{}, false
	}
	return e.items[row-1], true
}

func rows(items []backup.Entry) []Row {
	out := make([]Row, 0, len(items)+1)
	out = append(out, Row{Label: NewBackupLabel})
	for _, item := range items {
		out = append(out, Row{Label: item.Name, Detail: humanizeSize(item.Size)})
	}
	return out
}

func humanizeSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// archiveProgress mirrors archive progress on the loading overlay.
func archiveProgress(p *command.Progress) archive.Progress {
	return func(done, total int, name string) {
		p.Describe(fmt.Sprintf("%d/%d %s", done, total, name))
	}
}

func newCursor() uistate.ListState {
	return uistate.NewListState(VisibleRows)
}
