// Copyright 2026 The x730 Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClockNow(t *testing.T) {
	clock := Fake(epoch)
	if got := clock.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", got, epoch)
	}
	clock.Advance(5 * time.Second)
	want := epoch.Add(5 * time.Second)
	if got := clock.Now(); !got.Equal(want) {
		t.Fatalf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestFakeClockAfterFiresOnAdvance(t *testing.T) {
	clock := Fake(epoch)
	channel := clock.After(3 * time.Second)

	// Should not fire yet.
	select {
	case <-channel:
		t.Fatal("After fired before Advance")
	default:
	}

	clock.Advance(3 * time.Second)

	select {
	case <-channel:
	default:
		t.Fatal("After did not fire after Advance")
	}
}

func TestFakeClockAfterZeroDuration(t *testing.T) {
	clock := Fake(epoch)
	select {
	case fired := <-clock.After(0):
		if !fired.Equal(epoch) {
			t.Fatalf("After(0) delivered %v, want %v", fired, epoch)
		}
	default:
		t.Fatal("After(0) did not fire immediately")
	}
}

func TestFakeClockPartialAdvance(t *testing.T) {
	clock := Fake(epoch)
	channel := clock.After(10 * time.Second)

	clock.Advance(4 * time.Second)
	select {
	case <-channel:
		t.Fatal("After fired before its deadline")
	default:
	}

	clock.Advance(6 * time.Second)
	select {
	case <-channel:
	default:
		t.Fatal("After did not fire once the deadline passed")
	}
}

func TestFakeClockSleepBlocksUntilAdvance(t *testing.T) {
	clock := Fake(epoch)
	done := make(chan struct{})

	go func() {
		clock.Sleep(2 * time.Second)
		close(done)
	}()

	clock.WaitForSleepers(1)
	select {
	case <-done:
		t.Fatal("Sleep returned before Advance")
	default:
	}

	clock.Advance(2 * time.Second)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Sleep did not return after Advance")
	}
}

func TestFakeClockMultipleWaitersFireInOrder(t *testing.T) {
	clock := Fake(epoch)
	first := clock.After(1 * time.Second)
	second := clock.After(2 * time.Second)

	clock.Advance(3 * time.Second)

	firedAt := <-first
	if !firedAt.Equal(epoch.Add(3 * time.Second)) {
		t.Errorf("first waiter fired at %v, want %v", firedAt, epoch.Add(3*time.Second))
	}
	select {
	case <-second:
	default:
		t.Fatal("second waiter did not fire")
	}
}
