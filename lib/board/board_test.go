// Copyright 2026 The x730 Authors
// SPDX-License-Identifier: Apache-2.0

package board

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/x730-project/x730/lib/clock"
	"github.com/x730-project/x730/lib/testutil"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testBoard builds an opened board over fake lines with a fake clock
// and counting system operations.
type testBoard struct {
	board     *Board
	clock     *clock.FakeClock
	button    *FakeOutput
	boot      *FakeOutput
	reboots   atomic.Int32
	poweroffs atomic.Int32
}

func newTestBoard(t *testing.T) *testBoard {
	t.Helper()

	fakeClock := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	fixture := &testBoard{
		clock:  fakeClock,
		button: NewFakeOutput(fakeClock),
		boot:   NewFakeOutput(fakeClock),
	}

	board, err := New(Options{
		Lines: Lines{
			Button:         fixture.button,
			BootStatus:     fixture.boot,
			ShutdownStatus: NewFakeInput(),
		},
		Clock:  fakeClock,
		Logger: testLogger(t),
		SystemReboot: func(context.Context) error {
			fixture.reboots.Add(1)
			return nil
		},
		SystemPowerOff: func(context.Context) error {
			fixture.poweroffs.Add(1)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := board.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	fixture.board = board
	return fixture
}

// run starts action in a goroutine and returns its result channel.
func run(action func() error) <-chan error {
	done := make(chan error, 1)
	go func() { done <- action() }()
	return done
}

func TestOpenRaisesBootStatus(t *testing.T) {
	fixture := newTestBoard(t)

	if !fixture.boot.Level() {
		t.Error("boot-status line not high after Open")
	}
	if err := fixture.board.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if fixture.boot.Level() {
		t.Error("boot-status line still high after Close")
	}
	if err := fixture.board.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestRebootHoldsButton(t *testing.T) {
	fixture := newTestBoard(t)

	done := run(func() error { return fixture.board.Reboot(context.Background()) })
	fixture.clock.WaitForSleepers(1)
	fixture.clock.Advance(fixture.board.Timing().RebootHold)

	if err := testutil.RequireReceive(t, done, 5*time.Second, "reboot"); err != nil {
		t.Fatalf("Reboot: %v", err)
	}

	transitions := fixture.button.Transitions()
	if len(transitions) != 2 {
		t.Fatalf("button transitions = %d, want 2", len(transitions))
	}
	if !transitions[0].Active || transitions[1].Active {
		t.Errorf("button sequence %v, want press then release", transitions)
	}
	if held := transitions[1].At.Sub(transitions[0].At); held != fixture.board.Timing().RebootHold {
		t.Errorf("button held %v, want %v", held, fixture.board.Timing().RebootHold)
	}
	if got := fixture.reboots.Load(); got != 1 {
		t.Errorf("system reboot called %d times, want 1", got)
	}
	if got := fixture.poweroffs.Load(); got != 0 {
		t.Errorf("system poweroff called %d times, want 0", got)
	}
}

func TestPowerOffHoldsButton(t *testing.T) {
	fixture := newTestBoard(t)

	done := run(func() error { return fixture.board.PowerOff(context.Background(), false) })
	fixture.clock.WaitForSleepers(1)
	fixture.clock.Advance(fixture.board.Timing().PowerOffHold)

	if err := testutil.RequireReceive(t, done, 5*time.Second, "poweroff"); err != nil {
		t.Fatalf("PowerOff: %v", err)
	}

	transitions := fixture.button.Transitions()
	if held := transitions[1].At.Sub(transitions[0].At); held != fixture.board.Timing().PowerOffHold {
		t.Errorf("button held %v, want %v", held, fixture.board.Timing().PowerOffHold)
	}
	if got := fixture.poweroffs.Load(); got != 1 {
		t.Errorf("system poweroff called %d times, want 1", got)
	}
	if got := fixture.reboots.Load(); got != 0 {
		t.Errorf("system reboot called %d times, want 0", got)
	}
}

func TestForcedPowerOffUsesCrashHold(t *testing.T) {
	fixture := newTestBoard(t)

	done := run(func() error { return fixture.board.PowerOff(context.Background(), true) })
	fixture.clock.WaitForSleepers(1)
	fixture.clock.Advance(fixture.board.Timing().CrashHold)

	if err := testutil.RequireReceive(t, done, 5*time.Second, "forced poweroff"); err != nil {
		t.Fatalf("PowerOff(force): %v", err)
	}

	transitions := fixture.button.Transitions()
	held := transitions[1].At.Sub(transitions[0].At)
	if held != fixture.board.Timing().CrashHold {
		t.Errorf("button held %v, want crash hold %v", held, fixture.board.Timing().CrashHold)
	}
	if held == fixture.board.Timing().PowerOffHold {
		t.Error("crash hold equals the normal power-off hold")
	}
	if got := fixture.poweroffs.Load(); got != 1 {
		t.Errorf("system poweroff called %d times, want exactly 1", got)
	}
}

func TestActionsAreSerialized(t *testing.T) {
	fixture := newTestBoard(t)

	first := run(func() error { return fixture.board.Reboot(context.Background()) })
	second := run(func() error { return fixture.board.PowerOff(context.Background(), false) })

	// Whichever call holds the mutex registers a sleeper; fire it,
	// then the other call proceeds. Advancing by the longest hold
	// covers either order.
	fixture.clock.WaitForSleepers(1)
	fixture.clock.Advance(fixture.board.Timing().CrashHold)
	fixture.clock.WaitForSleepers(1)
	fixture.clock.Advance(fixture.board.Timing().CrashHold)

	if err := testutil.RequireReceive(t, first, 5*time.Second, "first action"); err != nil {
		t.Fatalf("Reboot: %v", err)
	}
	if err := testutil.RequireReceive(t, second, 5*time.Second, "second action"); err != nil {
		t.Fatalf("PowerOff: %v", err)
	}

	// Strict serialization: press, release, press, release — never
	// two presses in flight.
	transitions := fixture.button.Transitions()
	if len(transitions) != 4 {
		t.Fatalf("button transitions = %d, want 4", len(transitions))
	}
	for i, transition := range transitions {
		wantActive := i%2 == 0
		if transition.Active != wantActive {
			t.Fatalf("transition %d active=%v, want %v (interleaved pin toggling)", i, transition.Active, wantActive)
		}
	}
}

func TestSystemCallFailure(t *testing.T) {
	fixture := newTestBoard(t)
	board, err := New(Options{
		Lines: Lines{
			Button:         fixture.button,
			BootStatus:     fixture.boot,
			ShutdownStatus: NewFakeInput(),
		},
		Clock:          fixture.clock,
		Logger:         testLogger(t),
		SystemReboot:   func(context.Context) error { return errors.New("exec failed") },
		SystemPowerOff: func(context.Context) error { return nil },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := board.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}

	done := run(func() error { return board.Reboot(context.Background()) })
	fixture.clock.WaitForSleepers(1)
	fixture.clock.Advance(board.Timing().RebootHold)

	err = testutil.RequireReceive(t, done, 5*time.Second, "reboot")
	if !errors.Is(err, ErrSystemCall) {
		t.Errorf("error = %v, want ErrSystemCall", err)
	}
}

func TestHardwareFailure(t *testing.T) {
	fixture := newTestBoard(t)
	fixture.button.FailWith(errors.New("pin gone"))

	err := fixture.board.Reboot(context.Background())
	if !errors.Is(err, ErrHardwareUnavailable) {
		t.Errorf("error = %v, want ErrHardwareUnavailable", err)
	}
	if got := fixture.reboots.Load(); got != 0 {
		t.Errorf("system reboot called %d times after hardware failure, want 0", got)
	}
}

func TestClosedBoardRejectsActions(t *testing.T) {
	fixture := newTestBoard(t)
	if err := fixture.board.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	err := fixture.board.PowerOff(context.Background(), false)
	if !errors.Is(err, ErrHardwareUnavailable) {
		t.Errorf("error = %v, want ErrHardwareUnavailable", err)
	}
}
