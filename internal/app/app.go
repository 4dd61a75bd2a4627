package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/atomicstack/save-cloud/internal/backup"
	"github.com/atomicstack/save-cloud/internal/cloud"
	"github.com/atomicstack/save-cloud/internal/cloud/mirror"
	"github.com/atomicstack/save-cloud/internal/device"
	"github.com/atomicstack/save-cloud/internal/explorer"
	"github.com/atomicstack/save-cloud/internal/identity"
	"github.com/atomicstack/save-cloud/internal/keyboard"
	"github.com/atomicstack/save-cloud/internal/logging"
	"github.com/atomicstack/save-cloud/internal/logging/events"
	"github.com/atomicstack/save-cloud/internal/overlay"
	"github.com/atomicstack/save-cloud/internal/saves"
	"github.com/atomicstack/save-cloud/internal/storage"
	"github.com/atomicstack/save-cloud/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
)

// DefaultFrameInterval is the frame period used when none is configured.
const DefaultFrameInterval = ui.DefaultFrameInterval

// Config describes user-provided application options.
type Config struct {
	StateDir        string
	MirrorDir       string
	AccountID       uint64
	Devices         []device.Mount
	Titles          map[string]string
	AutoApprove     bool
	VerificationURL string
	Profile         string
	Width           int
	Height          int
	ShowFooter      bool
	Verbose         bool
	FrameInterval   time.Duration
}

// MirrorOptions turns the cloud settings into drive options.
func (c Config) MirrorOptions() []mirror.Option {
	opts := []mirror.Option{
		mirror.WithVerificationURL(c.VerificationURL),
		mirror.WithProfile(c.Profile),
	}
	if c.AutoApprove {
		opts = append(opts, mirror.WithAutoApprove())
	}
	return opts
}

// Components are the engine pieces the UI drives.
type Components struct {
	Session  *cloud.Session
	Pipeline *backup.Pipeline
	Broker   *keyboard.Broker
	Explorer *explorer.Explorer
	Titles   *saves.Titles
}

// Close detaches every consumer of the cloud session and cancels questions
// still waiting for an answer.
func (c *Components) Close() {
	c.Broker.Close()
	c.Titles.CloseMenu()
	c.Explorer.Close()
}

// Wire builds the engine over an already opened drive and store.
func Wire(ctx context.Context, cfg Config, client cloud.Client, store cloud.Store) *Components {
	session := cloud.NewSession(client, store)
	if err := session.Restore(ctx); err != nil {
		logging.Error(err)
		overlay.Notify("saved cloud login is no longer valid")
	}
	ident := identity.New(identity.StaticProvider(cfg.AccountID), nil)
	pipeline := backup.New(device.NewTable(cfg.Devices), ident)
	broker := keyboard.NewBroker()
	return &Components{
		Session:  session,
		Pipeline: pipeline,
		Broker:   broker,
		Explorer: explorer.New(explorer.Deps{
			Pipeline: pipeline,
			Identity: ident,
			Session:  session,
			Prompter: broker,
		}),
		Titles: saves.NewTitles(saves.Deps{
			Pipeline: pipeline,
			Session:  session,
			Prompter: broker,
		}, cfg.Titles),
	}
}

// Run bootstraps and executes the Bubble Tea program.
func Run(cfg Config) (err error) {
	defer func() { events.App.Stop(err) }()

	store, err := storage.Open(cfg.StateDir)
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer store.Close()

	drive, err := mirror.Open(cfg.MirrorDir, cfg.MirrorOptions()...)
	if err != nil {
		return fmt.Errorf("open mirror drive: %w", err)
	}
	defer drive.Close()

	if err := ensureBackupDevice(cfg.Devices); err != nil {
		return err
	}

	c := Wire(context.Background(), cfg, drive, store)
	defer c.Close()

	model := ui.NewModel(ui.Options{
		Explorer:      c.Explorer,
		Titles:        c.Titles,
		Broker:        c.Broker,
		Session:       c.Session,
		Width:         cfg.Width,
		Height:        cfg.Height,
		ShowFooter:    cfg.ShowFooter,
		Verbose:       cfg.Verbose,
		FrameInterval: cfg.FrameInterval,
	})
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err = program.Run()
	// Running actions finish their current file; questions were canceled on quit.
	c.Explorer.Wait()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// ensureBackupDevice creates the host directory of ux0:, where backups and
// staging files live.
func ensureBackupDevice(mounts []device.Mount) error {
	for _, m := range mounts {
		if m.Device != "ux0:" && m.Device != "ux0" {
			continue
		}
		if err := os.MkdirAll(m.Root, 0o755); err != nil {
			return fmt.Errorf("create ux0 root: %w", err)
		}
	}
	return nil
}
