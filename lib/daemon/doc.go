// Copyright 2026 The x730 Authors
// SPDX-License-Identifier: Apache-2.0

// Package daemon assembles one running x730 daemon instance: the
// singleton lock, the board, the autonomous pulse monitor, the signal
// transport, and the control socket.
//
// Lifecycle is strictly ordered. [Daemon.Open] acquires resources in
// dependency order (lock, GPIO lines, board, signal transport,
// socket) and unwinds everything already acquired when any step
// fails, so a partially failed Open leaves nothing behind — no lock,
// no socket file, no driven pins. [Daemon.Run] serves until the
// context is cancelled. [Daemon.Close] releases in reverse order and
// is idempotent, including after a failed Open.
//
// The daemon is a singleton per lock path: a second instance fails
// Open with [lockfile.ErrLocked] before touching any hardware.
package daemon
