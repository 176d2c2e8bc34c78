// Copyright 2026 The x730 Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// Production code accepts a Clock parameter instead of calling time.Now,
// time.After, or time.Sleep directly. In production, Real() provides the
// standard library behavior. In tests, Fake() provides a deterministic
// clock that advances only when Advance is called.
//
// The board executor holds the simulated power button for durations
// ranging from hundreds of milliseconds to several seconds; the pulse
// classifier measures elapsed time between edges. Both take a Clock so
// their tests run in microseconds instead of wall-clock seconds.
//
// When a goroutine calls Sleep or After on a FakeClock, it registers a
// pending waiter. Use WaitForSleepers to block until a specific number
// of waiters are registered before calling Advance. This eliminates the
// race between waiter registration and time advancement.
package clock
