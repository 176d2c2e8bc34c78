// Copyright 2026 The x730 Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/x730-project/x730/lib/codec"
	"github.com/x730-project/x730/lib/lockfile"
	"github.com/x730-project/x730/lib/testutil"
)

func TestSignalDispatch(t *testing.T) {
	directory := testutil.SocketDir(t)
	lockPath := filepath.Join(directory, "x730d.lock")

	handle, err := lockfile.Acquire(lockPath)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer handle.Release()

	dispatched := make(chan string, 4)
	registry := NewRegistry()
	for _, call := range []string{CallReboot, CallPowerOff} {
		call := call
		err := registry.Register(call, func(ctx context.Context, args []codec.RawMessage, kwargs map[string]codec.RawMessage) (any, error) {
			dispatched <- call
			return nil, nil
		})
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
	}

	stop := ListenSignals(context.Background(), registry, testLogger(t))
	defer stop()

	// SendSignal probes the lock and signals our own pid, exercising
	// the full client-side path.
	if err := SendSignal(lockPath, CallReboot); err != nil {
		t.Fatalf("SendSignal: %v", err)
	}
	call := testutil.RequireReceive(t, dispatched, 5*time.Second, "waiting for reboot dispatch")
	if call != CallReboot {
		t.Errorf("dispatched %q, want %q", call, CallReboot)
	}

	if err := SendSignal(lockPath, CallPowerOff); err != nil {
		t.Fatalf("SendSignal: %v", err)
	}
	call = testutil.RequireReceive(t, dispatched, 5*time.Second, "waiting for poweroff dispatch")
	if call != CallPowerOff {
		t.Errorf("dispatched %q, want %q", call, CallPowerOff)
	}
}

func TestSendSignalRequiresRunningDaemon(t *testing.T) {
	directory := testutil.SocketDir(t)
	lockPath := filepath.Join(directory, "absent.lock")

	err := SendSignal(lockPath, CallReboot)
	if !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("error = %v, want ErrDaemonNotRunning", err)
	}
}

func TestSendSignalRejectsUnknownCall(t *testing.T) {
	directory := testutil.SocketDir(t)
	lockPath := filepath.Join(directory, "x730d.lock")

	handle, err := lockfile.Acquire(lockPath)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer handle.Release()

	if err := SendSignal(lockPath, "test.echo"); err == nil {
		t.Fatal("unknown call accepted")
	}
}
