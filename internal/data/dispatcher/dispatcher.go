// Package dispatcher decides which panels an action outcome re-lists.
package dispatcher

import (
	"context"
	"errors"

	"github.com/atomicstack/save-cloud/internal/backend"
	"github.com/atomicstack/save-cloud/internal/logging"
	"github.com/atomicstack/save-cloud/internal/menu"
	"github.com/atomicstack/save-cloud/internal/overlay"
)

// Refresher re-lists a panel directory.
type Refresher interface {
	RefreshSync(ctx context.Context, path string) error
}

// Outcome is a finished action.
type Outcome struct {
	Action   menu.ActionKind
	FromPath string
	ToPath   string
}

type Result struct {
	SourceRefreshed      bool
	DestinationRefreshed bool
}

type Dispatcher struct {
	from Refresher
	to   Refresher
}

func New(from, to Refresher) *Dispatcher {
	return &Dispatcher{from: from, to: to}
}

// Targets reports which side an action mutated.
func Targets(o Outcome) (source, destination bool) {
	switch o.Action {
	case menu.NewDir, menu.Rename, menu.Delete, menu.Zip, menu.Unzip:
		return true, o.FromPath == o.ToPath
	case menu.Copy, menu.Upload, menu.ZipUpload, menu.Download:
		return false, true
	case menu.Move:
		return true, true
	default:
		return false, false
	}
}

// Handle re-lists the mutated panels on the calling goroutine.
func (d *Dispatcher) Handle(ctx context.Context, o Outcome) Result {
	var res Result
	source, destination := Targets(o)
	if source && d.from != nil {
		res.SourceRefreshed = refresh(ctx, d.from, o.FromPath)
	}
	if destination && d.to != nil {
		res.DestinationRefreshed = refresh(ctx, d.to, o.ToPath)
	}
	return res
}

func refresh(ctx context.Context, r Refresher, path string) bool {
	err := r.RefreshSync(ctx, path)
	if errors.Is(err, backend.ErrSlotBusy) {
		// The pending listing is applied on the next poll; only the refresh is lost.
		logging.Errorf("refresh of %s skipped: %v", path, err)
		return false
	}
	if err != nil {
		logging.Error(err)
		overlay.Notify("failed to list " + path)
		return false
	}
	return true
}
