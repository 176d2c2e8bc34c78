// Copyright 2026 The x730 Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"

	"github.com/x730-project/x730/lib/lockfile"
)

// The signal transport maps two signals 1:1 to the two control calls.
// It carries no arguments, so a signal power-off is always the clean
// variant.
var signalCalls = map[string]unix.Signal{
	CallReboot:   unix.SIGUSR1,
	CallPowerOff: unix.SIGUSR2,
}

// ListenSignals installs the signal transport on the daemon side:
// SIGUSR1 triggers x730.reboot and SIGUSR2 triggers x730.poweroff,
// dispatched through the same registry as socket calls. Returns a
// stop function that uninstalls the handlers and waits for the
// listener goroutine to exit.
func ListenSignals(ctx context.Context, registry *Registry, logger *slog.Logger) func() {
	if logger == nil {
		logger = slog.Default()
	}

	signals := make(chan os.Signal, 4)
	signal.Notify(signals, unix.SIGUSR1, unix.SIGUSR2)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case received, ok := <-signals:
				if !ok {
					return
				}
				call := CallReboot
				if received == unix.SIGUSR2 {
					call = CallPowerOff
				}
				logger.Info("signal transport call", "signal", received.String(), "call", call)

				bound, exists := registry.Lookup(call)
				if !exists {
					logger.Error("signal transport: call not registered", "call", call)
					continue
				}
				if _, err := bound(ctx, nil, nil); err != nil {
					logger.Error("signal transport call failed", "call", call, "error", err)
				}
			}
		}
	}()

	return func() {
		signal.Stop(signals)
		close(signals)
		<-done
	}
}

// SendSignal delivers a call over the signal transport: it probes the
// singleton lock for liveness, reads the daemon's pid from the lock
// file, and sends the mapped signal. Only argument-less calls are
// supported.
func SendSignal(lockPath string, call string) error {
	sig, supported := signalCalls[call]
	if !supported {
		return fmt.Errorf("call %q has no signal mapping", call)
	}

	if !lockfile.Probe(lockPath) {
		return fmt.Errorf("%w (no lock held on %s)", ErrDaemonNotRunning, lockPath)
	}
	pid, err := lockfile.ReadPID(lockPath)
	if err != nil {
		return fmt.Errorf("resolving daemon pid: %w", err)
	}

	if err := unix.Kill(pid, sig); err != nil {
		return fmt.Errorf("signaling daemon pid %d: %w", pid, err)
	}
	return nil
}
