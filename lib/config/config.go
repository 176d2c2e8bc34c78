// Copyright 2026 The x730 Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/x730-project/x730/lib/board"
)

// Config is the master configuration for the x730 daemon and client.
type Config struct {
	// Paths configures the runtime directory, socket, and lock file.
	Paths PathsConfig `yaml:"paths"`

	// Pins assigns the three BCM GPIO lines.
	Pins board.PinConfig `yaml:"pins"`

	// Pulse configures the board protocol timings.
	Pulse PulseConfig `yaml:"pulse"`

	// Server configures the control socket.
	Server ServerConfig `yaml:"server"`

	// Log configures daemon logging.
	Log LogConfig `yaml:"log"`
}

// PathsConfig configures file locations. SocketPath and LockPath
// default to well-known names under RunDir when left empty.
type PathsConfig struct {
	// RunDir is the runtime state directory.
	// Default: /run/x730
	RunDir string `yaml:"run_dir"`

	// SocketPath is the Unix socket for the control API.
	// Default: <run_dir>/x730d.sock
	SocketPath string `yaml:"socket_path"`

	// LockPath is the singleton lock file.
	// Default: <run_dir>/x730d.lock
	LockPath string `yaml:"lock_path"`
}

// PulseConfig holds the board protocol timings as duration strings.
// The zero value of any field means "use the firmware default".
type PulseConfig struct {
	// RebootMin is the debounce threshold for shutdown-status pulses.
	// Default: 200ms
	RebootMin string `yaml:"reboot_min"`

	// RebootMax is the reboot/power-off pulse boundary.
	// Default: 600ms
	RebootMax string `yaml:"reboot_max"`

	// RebootHold is the button hold duration for a reboot request.
	// Default: 1500ms
	RebootHold string `yaml:"reboot_hold"`

	// PowerOffHold is the button hold duration for a clean power-off.
	// Default: 5s
	PowerOffHold string `yaml:"poweroff_hold"`

	// CrashHold is the button hold duration for a forced power cut.
	// Default: 9s
	CrashHold string `yaml:"crash_hold"`
}

// ServerConfig configures the control socket.
type ServerConfig struct {
	// AcceptTimeout bounds each accept so the serve loop observes
	// shutdown between connections.
	// Default: 2s
	AcceptTimeout string `yaml:"accept_timeout"`

	// IOTimeout covers the read of one request or the write of one
	// response.
	// Default: 30s
	IOTimeout string `yaml:"io_timeout"`

	// MaxFrameSize bounds one encoded request in bytes.
	// Default: 65536
	MaxFrameSize int64 `yaml:"max_frame_size"`
}

// LogConfig configures daemon logging.
type LogConfig struct {
	// Level is the minimum level: debug, info, warn, or error.
	// Default: info
	Level string `yaml:"level"`
}

// Default returns the stock X730 configuration. Unlike most fields
// elsewhere in the system, these defaults are fully functional: a
// daemon started with no config file controls a stock board.
func Default() *Config {
	runDir := "/run/x730"
	return &Config{
		Paths: PathsConfig{
			RunDir:     runDir,
			SocketPath: filepath.Join(runDir, "x730d.sock"),
			LockPath:   filepath.Join(runDir, "x730d.lock"),
		},
		Pins: board.DefaultPins(),
		Pulse: PulseConfig{
			RebootMin:    "200ms",
			RebootMax:    "600ms",
			RebootHold:   "1500ms",
			PowerOffHold: "5s",
			CrashHold:    "9s",
		},
		Server: ServerConfig{
			AcceptTimeout: "2s",
			IOTimeout:     "30s",
			MaxFrameSize:  64 * 1024,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the X730_CONFIG environment variable.
//
// If X730_CONFIG is not set, Load fails. Callers wanting the stock
// configuration should use Default directly; this keeps "config file
// requested but missing" a hard error rather than a silent fallback.
func Load() (*Config, error) {
	configPath := os.Getenv("X730_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("X730_CONFIG environment variable not set; " +
			"set it to the path of your x730.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, merged over
// the defaults. The config file is the single source of truth:
// environment variables do not override config values. The only
// expansion performed is ${HOME} and similar path variables.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.expandVariables()
	cfg.applyPathDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// expandVariables expands ${VAR} references in path fields.
func (c *Config) expandVariables() {
	expand := func(s string) string { return os.Expand(s, os.Getenv) }
	c.Paths.RunDir = expand(c.Paths.RunDir)
	c.Paths.SocketPath = expand(c.Paths.SocketPath)
	c.Paths.LockPath = expand(c.Paths.LockPath)
}

// applyPathDefaults derives socket and lock paths from RunDir when a
// config file set run_dir but not the individual files.
func (c *Config) applyPathDefaults() {
	if c.Paths.SocketPath == "" {
		c.Paths.SocketPath = filepath.Join(c.Paths.RunDir, "x730d.sock")
	}
	if c.Paths.LockPath == "" {
		c.Paths.LockPath = filepath.Join(c.Paths.RunDir, "x730d.lock")
	}
}

// Validate checks pin assignments and parses every duration field.
func (c *Config) Validate() error {
	var errs []error

	if c.Paths.RunDir == "" {
		errs = append(errs, errors.New("paths.run_dir must not be empty"))
	}

	pins := map[string]int{
		"pins.button":          c.Pins.Button,
		"pins.shutdown_status": c.Pins.ShutdownStatus,
		"pins.boot_status":     c.Pins.BootStatus,
	}
	seen := make(map[int]string, len(pins))
	for name, pin := range pins {
		if pin <= 0 {
			errs = append(errs, fmt.Errorf("%s: invalid BCM pin %d", name, pin))
			continue
		}
		if other, duplicate := seen[pin]; duplicate {
			errs = append(errs, fmt.Errorf("%s and %s both assigned to BCM pin %d", other, name, pin))
		}
		seen[pin] = name
	}

	if _, err := c.BoardTiming(); err != nil {
		errs = append(errs, err)
	}
	if _, err := parseDuration("server.accept_timeout", c.Server.AcceptTimeout); err != nil {
		errs = append(errs, err)
	}
	if _, err := parseDuration("server.io_timeout", c.Server.IOTimeout); err != nil {
		errs = append(errs, err)
	}
	if c.Server.MaxFrameSize <= 0 {
		errs = append(errs, fmt.Errorf("server.max_frame_size must be positive, got %d", c.Server.MaxFrameSize))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// BoardTiming parses the pulse section into board timings.
func (c *Config) BoardTiming() (board.Timing, error) {
	timing := board.Timing{}
	var errs []error
	for _, field := range []struct {
		name  string
		value string
		out   *time.Duration
	}{
		{"pulse.reboot_min", c.Pulse.RebootMin, &timing.PulseRebootMin},
		{"pulse.reboot_max", c.Pulse.RebootMax, &timing.PulseRebootMax},
		{"pulse.reboot_hold", c.Pulse.RebootHold, &timing.RebootHold},
		{"pulse.poweroff_hold", c.Pulse.PowerOffHold, &timing.PowerOffHold},
		{"pulse.crash_hold", c.Pulse.CrashHold, &timing.CrashHold},
	} {
		parsed, err := parseDuration(field.name, field.value)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		*field.out = parsed
	}
	if err := errors.Join(errs...); err != nil {
		return board.Timing{}, err
	}

	if timing.PulseRebootMin >= timing.PulseRebootMax {
		return board.Timing{}, fmt.Errorf("pulse.reboot_min (%v) must be below pulse.reboot_max (%v)",
			timing.PulseRebootMin, timing.PulseRebootMax)
	}
	if timing.RebootHold >= timing.PowerOffHold || timing.PowerOffHold >= timing.CrashHold {
		return board.Timing{}, fmt.Errorf("hold durations must be strictly increasing: reboot %v, poweroff %v, crash %v",
			timing.RebootHold, timing.PowerOffHold, timing.CrashHold)
	}
	return timing, nil
}

// AcceptTimeout parses the server accept timeout.
func (c *Config) AcceptTimeout() (time.Duration, error) {
	return parseDuration("server.accept_timeout", c.Server.AcceptTimeout)
}

// IOTimeout parses the server I/O timeout.
func (c *Config) IOTimeout() (time.Duration, error) {
	return parseDuration("server.io_timeout", c.Server.IOTimeout)
}

// SlogLevel parses the log level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	return level, nil
}

// parseDuration parses a required positive duration field.
func parseDuration(name, value string) (time.Duration, error) {
	if value == "" {
		return 0, fmt.Errorf("%s must not be empty", name)
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", name, value)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %v", name, parsed)
	}
	return parsed, nil
}
