// Copyright 2026 The x730 Authors
// SPDX-License-Identifier: Apache-2.0

package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/x730-project/x730/lib/clock"
)

// ErrHardwareUnavailable reports that an output line could not be
// driven (pin closed, driver failure).
var ErrHardwareUnavailable = errors.New("hardware unavailable")

// ErrSystemCall reports that the board sequence completed but the
// OS-level reboot or power-off operation failed.
var ErrSystemCall = errors.New("system call failed")

var errLineClosed = errors.New("line closed")

// Options configures a Board. Lines is required; everything else has
// a production default.
type Options struct {
	Lines  Lines
	Timing Timing       // zero value → DefaultTiming()
	Clock  clock.Clock  // nil → clock.Real()
	Logger *slog.Logger // nil → slog.Default()

	// SystemReboot and SystemPowerOff invoke the OS-level operation
	// after the button sequence. Nil uses systemctl. Injectable so
	// tests never reboot the host.
	SystemReboot   func(context.Context) error
	SystemPowerOff func(context.Context) error
}

// Board owns the X730 output lines and executes classified actions.
// Exactly one Board exists per daemon; both the RPC path and the
// autonomous button path go through its mutex, so pin toggling is
// strictly serialized.
type Board struct {
	lines  Lines
	timing Timing
	clock  clock.Clock
	logger *slog.Logger

	systemReboot   func(context.Context) error
	systemPowerOff func(context.Context) error

	// mu serializes Reboot and PowerOff against each other and
	// against Close. Held for the full button hold duration: callers
	// must expect multi-second latency.
	mu     sync.Mutex
	opened bool
}

// New creates a Board over the given lines. The lines are not touched
// until Open.
func New(options Options) (*Board, error) {
	if options.Lines.Button == nil || options.Lines.BootStatus == nil {
		return nil, fmt.Errorf("board: output lines are required")
	}
	board := &Board{
		lines:          options.Lines,
		timing:         options.Timing,
		clock:          options.Clock,
		logger:         options.Logger,
		systemReboot:   options.SystemReboot,
		systemPowerOff: options.SystemPowerOff,
	}
	if board.timing == (Timing{}) {
		board.timing = DefaultTiming()
	}
	if board.clock == nil {
		board.clock = clock.Real()
	}
	if board.logger == nil {
		board.logger = slog.Default()
	}
	if board.systemReboot == nil {
		board.systemReboot = systemctl("reboot")
	}
	if board.systemPowerOff == nil {
		board.systemPowerOff = systemctl("poweroff")
	}
	return board, nil
}

// Timing returns the board's pulse-width configuration.
func (b *Board) Timing() Timing { return b.timing }

// Open raises the boot-status line, telling the board the OS is up.
func (b *Board) Open() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.opened {
		return nil
	}
	if err := b.lines.BootStatus.Set(true); err != nil {
		return fmt.Errorf("%w: raising boot-status line: %v", ErrHardwareUnavailable, err)
	}
	b.opened = true
	return nil
}

// Close lowers the boot-status line and releases all pins. Idempotent.
func (b *Board) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.opened {
		return nil
	}
	b.opened = false

	var errs []error
	if err := b.lines.BootStatus.Set(false); err != nil {
		errs = append(errs, fmt.Errorf("lowering boot-status line: %w", err))
	}
	if b.lines.ShutdownStatus != nil {
		if err := b.lines.ShutdownStatus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing shutdown-status line: %w", err))
		}
	}
	if err := b.lines.BootStatus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing boot-status line: %w", err))
	}
	if err := b.lines.Button.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing button line: %w", err))
	}
	return errors.Join(errs...)
}

// Reboot holds the simulated button for the reboot band, then invokes
// the OS reboot. Blocks until any in-flight action completes.
func (b *Board) Reboot(ctx context.Context) error {
	return b.execute(ctx, ActionReboot)
}

// PowerOff holds the simulated button for the power-off band (or the
// crash band when force is set), then invokes the OS power-off.
func (b *Board) PowerOff(ctx context.Context, force bool) error {
	action := ActionPowerOff
	if force {
		action = ActionPowerOffForced
	}
	return b.execute(ctx, action)
}

// Execute runs a classified action. ActionNone is a no-op.
func (b *Board) Execute(ctx context.Context, action Action) error {
	switch action {
	case ActionNone:
		return nil
	case ActionReboot:
		return b.Reboot(ctx)
	case ActionPowerOff:
		return b.PowerOff(ctx, false)
	case ActionPowerOffForced:
		return b.PowerOff(ctx, true)
	default:
		return fmt.Errorf("unknown action %d", action)
	}
}

func (b *Board) execute(ctx context.Context, action Action) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.opened {
		return fmt.Errorf("%w: board is closed", ErrHardwareUnavailable)
	}

	hold := b.timing.holdFor(action)
	b.logger.Info("executing board action", "action", action.String(), "hold", hold)

	if err := b.pressButton(hold); err != nil {
		return err
	}

	var systemOp func(context.Context) error
	if action == ActionReboot {
		systemOp = b.systemReboot
	} else {
		systemOp = b.systemPowerOff
	}
	if err := systemOp(ctx); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSystemCall, action, err)
	}
	return nil
}

// pressButton drives the button line active for hold, then inactive.
// The line is always released, even when the active drive failed.
func (b *Board) pressButton(hold time.Duration) error {
	if err := b.lines.Button.Set(true); err != nil {
		b.lines.Button.Set(false)
		return fmt.Errorf("%w: driving button line: %v", ErrHardwareUnavailable, err)
	}
	b.clock.Sleep(hold)
	if err := b.lines.Button.Set(false); err != nil {
		return fmt.Errorf("%w: releasing button line: %v", ErrHardwareUnavailable, err)
	}
	return nil
}

// systemctl returns a system operation that syncs filesystems and
// then runs "systemctl <verb>".
func systemctl(verb string) func(context.Context) error {
	return func(ctx context.Context) error {
		path, err := exec.LookPath("systemctl")
		if err != nil {
			return fmt.Errorf("systemctl not found: %w", err)
		}
		// Flush pending writes first. systemctl does this too on the
		// clean paths, but the forced power-off band cuts power with
		// no further cooperation from the OS.
		unix.Sync()
		output, err := exec.CommandContext(ctx, path, verb).CombinedOutput()
		if err != nil {
			return fmt.Errorf("systemctl %s: %w (output: %s)", verb, err, string(output))
		}
		return nil
	}
}
