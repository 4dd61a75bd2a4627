package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/atomicstack/save-cloud/internal/app"
	"github.com/atomicstack/save-cloud/internal/device"
	"gopkg.in/yaml.v3"
)

// Config captures runtime configuration for the application.
type Config struct {
	App      app.Config
	Logging  Logging
	Features Features
	// Approve holds a user code to grant on the mirror drive instead of
	// starting the UI.
	Approve string
	File    string
	Flags   map[string]string
	Args    []string
}

type Logging struct {
	FilePath string
	Trace    bool
}

type Features struct {
	Verbose bool
}

// File is the optional YAML configuration.
type File struct {
	StateDir  string            `yaml:"state_dir"`
	AccountID uint64            `yaml:"account_id"`
	Devices   []device.Mount    `yaml:"devices"`
	Titles    map[string]string `yaml:"titles"`
	Cloud     CloudFile         `yaml:"cloud"`
}

type CloudFile struct {
	MirrorDir       string `yaml:"mirror_dir"`
	AutoApprove     bool   `yaml:"auto_approve"`
	VerificationURL string `yaml:"verification_url"`
	Profile         string `yaml:"profile"`
}

const (
	envConfig     = "SAVE_CLOUD_CONFIG"
	envStateDir   = "SAVE_CLOUD_STATE_DIR"
	envMirrorDir  = "SAVE_CLOUD_MIRROR_DIR"
	envDeviceRoot = "SAVE_CLOUD_DEVICE_ROOT"
	envAccountID  = "SAVE_CLOUD_ACCOUNT_ID"
	envWidth      = "SAVE_CLOUD_WIDTH"
	envHeight     = "SAVE_CLOUD_HEIGHT"
	envShowFooter = "SAVE_CLOUD_FOOTER"
	envVerbose    = "SAVE_CLOUD_VERBOSE"
	envTrace      = "SAVE_CLOUD_TRACE"
	envLogFile    = "SAVE_CLOUD_LOG_FILE"
	envFrameMS    = "SAVE_CLOUD_FRAME_MS"
)

const stateDirName = ".save-cloud"

// Load parses configuration from CLI arguments and environment variables.
func Load() (Config, error) {
	return LoadArgs(os.Args[1:], os.Environ())
}

// LoadArgs allows tests to supply specific args/environment.
func LoadArgs(args []string, environ []string) (Config, error) {
	env := parseEnv(environ)

	fs := flag.NewFlagSet("save-cloud", flag.ContinueOnError)
	fs.SetOutput(new(strings.Builder))

	configFile := fs.String("config", envOrDefault(env, envConfig, ""), "path to a YAML config file")
	stateDir := fs.String("state-dir", envOrDefault(env, envStateDir, defaultStateDir(env)), "directory for the login database and staging files")
	mirrorDir := fs.String("mirror-dir", envOrDefault(env, envMirrorDir, ""), "directory backing the cloud drive (default <state-dir>/mirror)")
	deviceRoot := fs.String("device-root", envOrDefault(env, envDeviceRoot, ""), "host directory holding one subdirectory per device (default <state-dir>/devices)")
	accountID := fs.Uint64("account-id", envOrUint64(env, envAccountID, 0), "account id stamped into restored saves")
	width := fs.Int("width", envOrInt(env, envWidth, 0), "desired viewport width in cells (0 uses terminal width)")
	height := fs.Int("height", envOrInt(env, envHeight, 0), "desired viewport height in rows (0 uses terminal height)")
	footer := fs.Bool("footer", envOrBool(env, envShowFooter, false), "enable footer hint row (disabled by default)")
	trace := fs.Bool("trace", envOrBool(env, envTrace, false), "enable verbose JSON trace logging")
	verbose := fs.Bool("verbose", envOrBool(env, envVerbose, false), "trace every frame's buttons")
	logFile := fs.String("log-file", envOrDefault(env, envLogFile, ""), "path to the log file")
	frameMS := fs.Int("frame-ms", envOrInt(env, envFrameMS, int(app.DefaultFrameInterval/time.Millisecond)), "milliseconds between frames")
	approve := fs.String("approve", "", "grant a device code on the mirror drive and exit")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if *width < 0 {
		return Config{}, fmt.Errorf("width must be >= 0 (got %d)", *width)
	}
	if *height < 0 {
		return Config{}, fmt.Errorf("height must be >= 0 (got %d)", *height)
	}

	var file File
	if *configFile != "" {
		var err error
		if file, err = ReadFile(*configFile); err != nil {
			return Config{}, err
		}
	}

	// Explicit flags and environment variables win over the file.
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	given := func(name, key string) bool {
		if set[name] {
			return true
		}
		_, ok := env[key]
		return ok
	}

	if !given("state-dir", envStateDir) && file.StateDir != "" {
		*stateDir = file.StateDir
	}
	if !given("mirror-dir", envMirrorDir) && file.Cloud.MirrorDir != "" {
		*mirrorDir = file.Cloud.MirrorDir
	}
	if !given("account-id", envAccountID) && file.AccountID != 0 {
		*accountID = file.AccountID
	}
	if *mirrorDir == "" {
		*mirrorDir = filepath.Join(*stateDir, "mirror")
	}

	mounts := file.Devices
	if given("device-root", envDeviceRoot) || len(mounts) == 0 {
		root := *deviceRoot
		if root == "" {
			root = filepath.Join(*stateDir, "devices")
		}
		*deviceRoot = root
		mounts = device.UnderRoot(root).Mounts()
	}

	titles := file.Titles
	if titles == nil {
		titles = map[string]string{}
	}

	cfg := Config{
		App: app.Config{
			StateDir:        *stateDir,
			MirrorDir:       *mirrorDir,
			AccountID:       *accountID,
			Devices:         mounts,
			Titles:          titles,
			AutoApprove:     file.Cloud.AutoApprove,
			VerificationURL: file.Cloud.VerificationURL,
			Profile:         file.Cloud.Profile,
			Width:           *width,
			Height:          *height,
			ShowFooter:      *footer,
			Verbose:         *verbose,
			FrameInterval:   time.Duration(*frameMS) * time.Millisecond,
		},
		Logging: Logging{
			FilePath: *logFile,
			Trace:    *trace,
		},
		Features: Features{
			Verbose: *verbose,
		},
		Approve: strings.TrimSpace(*approve),
		File:    *configFile,
		Flags: map[string]string{
			"config":     *configFile,
			"stateDir":   *stateDir,
			"mirrorDir":  *mirrorDir,
			"deviceRoot": *deviceRoot,
			"accountID":  strconv.FormatUint(*accountID, 10),
			"width":      strconv.Itoa(*width),
			"height":     strconv.Itoa(*height),
			"footer":     strconv.FormatBool(*footer),
			"trace":      strconv.FormatBool(*trace),
			"verbose":    strconv.FormatBool(*verbose),
			"logFile":    *logFile,
			"frameMS":    strconv.Itoa(*frameMS),
		},
		Args: append([]string(nil), args...),
	}

	return cfg, nil
}

// ReadFile parses a YAML config file.
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read config: %w", err)
	}
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return File{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return file, nil
}

func defaultStateDir(env map[string]string) string {
	if home := env["HOME"]; home != "" {
		return filepath.Join(home, stateDirName)
	}
	return stateDirName
}

func parseEnv(environ []string) map[string]string {
	values := make(map[string]string, len(environ))
	for _, entry := range environ {
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		values[parts[0]] = parts[1]
	}
	return values
}

func envOrDefault(env map[string]string, key, fallback string) string {
	if v, ok := env[key]; ok {
		return v
	}
	return fallback
}

func envOrInt(env map[string]string, key string, fallback int) int {
	v, ok := env[key]
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrUint64(env map[string]string, key string, fallback uint64) uint64 {
	v, ok := env[key]
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	parsed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrBool(env map[string]string, key string, fallback bool) bool {
	v, ok := env[key]
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// MustLoad returns configuration or exits.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(2)
	}
	return cfg
}

// Validate ensures required minimum configuration is present. Approving a
// device code only needs the mirror directory.
func Validate(cfg Config) error {
	if cfg.App.MirrorDir == "" {
		return errors.New("mirror-dir must be set")
	}
	if cfg.Approve != "" {
		return nil
	}
	if cfg.App.StateDir == "" {
		return errors.New("state-dir must be set")
	}
	if cfg.App.AccountID == 0 {
		return errors.New("account-id must be set")
	}
	if cfg.App.FrameInterval <= 0 {
		return fmt.Errorf("frame-ms must be > 0 (got %s)", cfg.App.FrameInterval)
	}
	if len(cfg.App.Devices) == 0 {
		return errors.New("device table is empty")
	}
	seen := map[string]bool{}
	for _, m := range cfg.App.Devices {
		if strings.TrimSpace(m.Device) == "" || strings.TrimSpace(m.Root) == "" {
			return fmt.Errorf("device mount %q needs a device and a root", m.Device)
		}
		if seen[m.Device] {
			return fmt.Errorf("device %s mounted twice", m.Device)
		}
		seen[m.Device] = true
	}
	return nil
}
