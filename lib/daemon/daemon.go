// Copyright 2026 The x730 Authors
// SPDX-License-Identifier: Apache-2.0

package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/x730-project/x730/lib/board"
	"github.com/x730-project/x730/lib/clock"
	"github.com/x730-project/x730/lib/codec"
	"github.com/x730-project/x730/lib/config"
	"github.com/x730-project/x730/lib/ipc"
	"github.com/x730-project/x730/lib/lockfile"
)

// Options configures a Daemon. Config is required; everything else
// has a production default.
type Options struct {
	Config *config.Config
	Clock  clock.Clock  // nil → clock.Real()
	Logger *slog.Logger // nil → slog.Default()

	// OpenLines opens the three GPIO lines. Nil uses the periph.io
	// driver. Injectable so tests run against fake lines.
	OpenLines func(board.PinConfig) (board.Lines, error)

	// SystemReboot and SystemPowerOff are passed through to the
	// board. Nil uses systemctl.
	SystemReboot   func(context.Context) error
	SystemPowerOff func(context.Context) error
}

// Daemon is one running x730 instance: singleton lock, board, pulse
// monitor, signal transport, and control socket.
type Daemon struct {
	cfg       *config.Config
	clock     clock.Clock
	logger    *slog.Logger
	openLines func(board.PinConfig) (board.Lines, error)

	systemReboot   func(context.Context) error
	systemPowerOff func(context.Context) error

	mu          sync.Mutex
	opened      bool
	lock        *lockfile.Handle
	lines       board.Lines
	board       *board.Board
	monitor     *board.Monitor
	server      *ipc.Server
	stopSignals func()
}

// New validates the configuration and creates a Daemon. No resources
// are acquired until Open.
func New(options Options) (*Daemon, error) {
	if options.Config == nil {
		return nil, fmt.Errorf("daemon: config is required")
	}
	if err := options.Config.Validate(); err != nil {
		return nil, fmt.Errorf("daemon: %w", err)
	}

	daemon := &Daemon{
		cfg:            options.Config,
		clock:          options.Clock,
		logger:         options.Logger,
		openLines:      options.OpenLines,
		systemReboot:   options.SystemReboot,
		systemPowerOff: options.SystemPowerOff,
	}
	if daemon.clock == nil {
		daemon.clock = clock.Real()
	}
	if daemon.logger == nil {
		daemon.logger = slog.Default()
	}
	if daemon.openLines == nil {
		daemon.openLines = board.OpenLines
	}
	return daemon, nil
}

// Open acquires the daemon's resources in dependency order: singleton
// lock, GPIO lines, board (boot-status raised), signal transport,
// control socket. Any failure unwinds what was already acquired, in
// reverse, before returning.
func (d *Daemon) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.opened {
		return nil
	}

	if err := os.MkdirAll(d.cfg.Paths.RunDir, 0755); err != nil {
		return fmt.Errorf("creating run directory %s: %w", d.cfg.Paths.RunDir, err)
	}
	if dir := filepath.Dir(d.cfg.Paths.SocketPath); dir != d.cfg.Paths.RunDir {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating socket directory %s: %w", dir, err)
		}
	}

	lock, err := lockfile.Acquire(d.cfg.Paths.LockPath)
	if err != nil {
		if errors.Is(err, lockfile.ErrLocked) {
			return fmt.Errorf("another daemon instance is running: %w", err)
		}
		return fmt.Errorf("acquiring singleton lock: %w", err)
	}

	lines, err := d.openLines(d.cfg.Pins)
	if err != nil {
		lock.Release()
		return fmt.Errorf("opening GPIO lines: %w", err)
	}

	timing, err := d.cfg.BoardTiming()
	if err != nil {
		// Config was validated in New; reaching this means it was
		// mutated since.
		closeLines(lines)
		lock.Release()
		return fmt.Errorf("board timing: %w", err)
	}

	brd, err := board.New(board.Options{
		Lines:          lines,
		Timing:         timing,
		Clock:          d.clock,
		Logger:         d.logger,
		SystemReboot:   d.systemReboot,
		SystemPowerOff: d.systemPowerOff,
	})
	if err != nil {
		closeLines(lines)
		lock.Release()
		return fmt.Errorf("creating board: %w", err)
	}
	if err := brd.Open(); err != nil {
		closeLines(lines)
		lock.Release()
		return fmt.Errorf("opening board: %w", err)
	}

	registry := ipc.NewRegistry()
	if err := d.registerCalls(registry, brd); err != nil {
		brd.Close()
		lock.Release()
		return fmt.Errorf("registering calls: %w", err)
	}

	stopSignals := ipc.ListenSignals(context.Background(), registry, d.logger)

	acceptTimeout, _ := d.cfg.AcceptTimeout()
	ioTimeout, _ := d.cfg.IOTimeout()
	server := ipc.NewServer(ipc.ServerOptions{
		SocketPath:    d.cfg.Paths.SocketPath,
		Registry:      registry,
		Logger:        d.logger,
		AcceptTimeout: acceptTimeout,
		IOTimeout:     ioTimeout,
		MaxFrameSize:  d.cfg.Server.MaxFrameSize,
	})
	if err := server.Open(); err != nil {
		stopSignals()
		brd.Close()
		lock.Release()
		return fmt.Errorf("opening control socket: %w", err)
	}

	d.lock = lock
	d.lines = lines
	d.board = brd
	d.monitor = board.NewMonitor(lines.ShutdownStatus, timing, brd, d.clock, d.logger)
	d.server = server
	d.stopSignals = stopSignals
	d.opened = true

	d.logger.Info("daemon open",
		"socket", d.cfg.Paths.SocketPath,
		"lock", d.cfg.Paths.LockPath,
		"pid", os.Getpid())
	return nil
}

// registerCalls binds the control API to the board.
func (d *Daemon) registerCalls(registry *ipc.Registry, brd *board.Board) error {
	// Board actions run detached from the serve context: a call
	// accepted before shutdown still holds the button and invokes the
	// system operation even when the serve loop is cancelled mid-hold.
	err := registry.Register(ipc.CallReboot, func(ctx context.Context, args []codec.RawMessage, kwargs map[string]codec.RawMessage) (any, error) {
		return nil, brd.Reboot(context.WithoutCancel(ctx))
	})
	if err != nil {
		return err
	}
	return registry.Register(ipc.CallPowerOff, func(ctx context.Context, args []codec.RawMessage, kwargs map[string]codec.RawMessage) (any, error) {
		var force bool
		if _, err := ipc.DecodeKwarg(kwargs, "force", &force); err != nil {
			return nil, err
		}
		return nil, brd.PowerOff(context.WithoutCancel(ctx), force)
	})
}

// Run starts the autonomous pulse monitor and serves control calls
// until ctx is cancelled. An in-flight call runs to completion. Run
// returns after the monitor has stopped; Close still must be called
// to release resources.
func (d *Daemon) Run(ctx context.Context) error {
	d.mu.Lock()
	if !d.opened {
		d.mu.Unlock()
		return fmt.Errorf("daemon is not open")
	}
	monitor := d.monitor
	server := d.server
	d.mu.Unlock()

	monitorCtx, cancelMonitor := context.WithCancel(ctx)
	defer cancelMonitor()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		monitor.Run(monitorCtx)
	}()

	err := server.Serve(ctx)

	cancelMonitor()
	wg.Wait()
	return err
}

// Close releases everything Open acquired, in reverse order: socket,
// signal transport, board (boot-status lowered, pins released), lock.
// Idempotent, and safe when Open never succeeded.
func (d *Daemon) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened {
		return nil
	}
	d.opened = false

	var errs []error
	if err := d.server.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing control socket: %w", err))
	}
	d.stopSignals()
	if err := d.board.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing board: %w", err))
	}
	if err := d.lock.Release(); err != nil {
		errs = append(errs, fmt.Errorf("releasing lock: %w", err))
	}

	d.logger.Info("daemon closed")
	return errors.Join(errs...)
}

// closeLines releases lines during a failed Open, before any Board
// owns them.
func closeLines(lines board.Lines) {
	if lines.ShutdownStatus != nil {
		lines.ShutdownStatus.Close()
	}
	if lines.BootStatus != nil {
		lines.BootStatus.Close()
	}
	if lines.Button != nil {
		lines.Button.Close()
	}
}
