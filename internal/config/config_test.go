package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadArgsDefaultsFromHome(t *testing.T) {
	cfg, err := LoadArgs(nil, []string{"HOME=/home/vita"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.App.StateDir != "/home/vita/.save-cloud" {
		t.Fatalf("expected state dir under home, got %q", cfg.App.StateDir)
	}
	if cfg.App.MirrorDir != "/home/vita/.save-cloud/mirror" {
		t.Fatalf("expected mirror dir under state dir, got %q", cfg.App.MirrorDir)
	}
	if len(cfg.App.Devices) == 0 || cfg.App.Devices[0].Device != "ux0:" {
		t.Fatalf("expected default device table, got %v", cfg.App.Devices)
	}
	if cfg.App.Devices[0].Root != "/home/vita/.save-cloud/devices/ux0" {
		t.Fatalf("expected ux0 under device root, got %q", cfg.App.Devices[0].Root)
	}
	if cfg.App.FrameInterval != 50*time.Millisecond {
		t.Fatalf("expected 50ms frames, got %s", cfg.App.FrameInterval)
	}
}

func TestLoadArgsEnvironmentAndFlags(t *testing.T) {
	env := []string{
		"SAVE_CLOUD_ACCOUNT_ID=42",
		"SAVE_CLOUD_WIDTH=100",
		"SAVE_CLOUD_TRACE=true",
		"SAVE_CLOUD_STATE_DIR=/tmp/state",
	}
	cfg, err := LoadArgs([]string{"-width", "80", "-frame-ms", "20", "-verbose"}, env)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.App.AccountID != 42 {
		t.Fatalf("expected account 42, got %d", cfg.App.AccountID)
	}
	if cfg.App.Width != 80 {
		t.Fatalf("expected flag to win over env, got width %d", cfg.App.Width)
	}
	if !cfg.Logging.Trace || !cfg.Features.Verbose || !cfg.App.Verbose {
		t.Fatalf("expected trace and verbose, got %+v %+v", cfg.Logging, cfg.Features)
	}
	if cfg.App.FrameInterval != 20*time.Millisecond {
		t.Fatalf("expected 20ms frames, got %s", cfg.App.FrameInterval)
	}
	if cfg.Flags["stateDir"] != "/tmp/state" {
		t.Fatalf("expected state dir flag, got %q", cfg.Flags["stateDir"])
	}
}

func TestLoadArgsRejectsNegativeWidth(t *testing.T) {
	if _, err := LoadArgs([]string{"-width", "-1"}, nil); err == nil {
		t.Fatalf("expected error for negative width")
	}
}

func TestLoadArgsReadsYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "save-cloud.yaml")
	data := `state_dir: /srv/state
account_id: 99
devices:
  - device: "ux0:"
    root: /srv/vita/ux0
  - device: "grw0:"
    root: /srv/vita/grw0
titles:
  PCSE00001: Test Game
cloud:
  mirror_dir: /srv/drive
  auto_approve: true
  profile: tester
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadArgs([]string{"-config", path, "-account-id", "5"}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.App.StateDir != "/srv/state" || cfg.App.MirrorDir != "/srv/drive" {
		t.Fatalf("expected dirs from file, got %q %q", cfg.App.StateDir, cfg.App.MirrorDir)
	}
	if cfg.App.AccountID != 5 {
		t.Fatalf("expected flag account id, got %d", cfg.App.AccountID)
	}
	if len(cfg.App.Devices) != 2 || cfg.App.Devices[1].Root != "/srv/vita/grw0" {
		t.Fatalf("expected devices from file, got %v", cfg.App.Devices)
	}
	if cfg.App.Titles["PCSE00001"] != "Test Game" {
		t.Fatalf("expected title names, got %v", cfg.App.Titles)
	}
	if !cfg.App.AutoApprove || cfg.App.Profile != "tester" {
		t.Fatalf("expected cloud settings, got %+v", cfg.App)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestLoadArgsMissingFile(t *testing.T) {
	if _, err := LoadArgs([]string{"-config", filepath.Join(t.TempDir(), "nope.yaml")}, nil); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	cfg, err := LoadArgs([]string{"-state-dir", "/tmp/s"}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected missing account id to fail")
	}
	cfg.App.AccountID = 1
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	cfg.App.FrameInterval = 0
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected zero frame interval to fail")
	}
	cfg.App.FrameInterval = time.Millisecond
	cfg.App.Devices = append(cfg.App.Devices, cfg.App.Devices[0])
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected duplicate device to fail")
	}

	approve := Config{Approve: "ABCD1234"}
	approve.App.MirrorDir = "/tmp/m"
	if err := Validate(approve); err != nil {
		t.Fatalf("expected approve config to be valid, got %v", err)
	}
}
