// Copyright 2026 The x730 Authors
// SPDX-License-Identifier: Apache-2.0

// Package lockfile provides the daemon's singleton lock and the
// client's liveness probe.
//
// The lock is an advisory flock on a well-known file under the runtime
// directory. The kernel releases it when the holding process exits for
// any reason, so a held lock is proof of a live daemon — unlike a bare
// pid file, which can outlive its writer and point at a recycled pid.
// Clients therefore probe the lock (non-blocking acquire, immediate
// release) instead of reading the pid and signaling it.
//
// The file itself is left in place on release: a present-but-unlocked
// file means a daemon ran here and stopped; an absent file means none
// ever started.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

// ErrLocked is returned by Acquire when another process holds the lock.
var ErrLocked = errors.New("lock held by another process")

// Handle is exclusive ownership of the lock from a successful Acquire
// until Release. Release is idempotent; the kernel also drops the lock
// when the process exits.
type Handle struct {
	path string

	mu   sync.Mutex
	file *os.File
}

// Acquire takes the exclusive advisory lock at path without blocking.
// The file is created if missing (parent directories too) and the
// holder's pid is written into it for diagnostics and for the signal
// transport. Returns ErrLocked when another process holds the lock.
func Acquire(path string) (*Handle, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file %s: %w", path, err)
	}

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		if err == unix.EWOULDBLOCK {
			return nil, fmt.Errorf("%s: %w", path, ErrLocked)
		}
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}

	// Record the pid only after the lock is ours so two racing
	// daemons never interleave writes.
	if err := file.Truncate(0); err != nil {
		file.Close()
		return nil, fmt.Errorf("truncating lock file %s: %w", path, err)
	}
	if _, err := file.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0); err != nil {
		file.Close()
		return nil, fmt.Errorf("writing pid to lock file %s: %w", path, err)
	}

	return &Handle{path: path, file: file}, nil
}

// Path returns the lock file path.
func (h *Handle) Path() string { return h.path }

// Release drops the lock. Safe to call more than once; only the first
// call does anything.
func (h *Handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.file == nil {
		return nil
	}
	file := h.file
	h.file = nil

	// Closing the descriptor releases the flock; the explicit unlock
	// just makes the release visible to probers before the close.
	unix.Flock(int(file.Fd()), unix.LOCK_UN)
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing lock file %s: %w", h.path, err)
	}
	return nil
}

// Probe reports whether another process currently holds the lock at
// path. It attempts a non-blocking acquire and immediately releases it
// on success. A missing file, an acquirable lock, or an unreadable
// path all report false: no live daemon could be holding it.
func Probe(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		return err == unix.EWOULDBLOCK
	}
	unix.Flock(int(file.Fd()), unix.LOCK_UN)
	return false
}

// ReadPID returns the pid recorded in the lock file. Used by the
// signal transport to target the daemon after Probe has confirmed the
// lock is held.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading lock file %s: %w", path, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("lock file %s does not contain a pid: %w", path, err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("lock file %s contains invalid pid %d", path, pid)
	}
	return pid, nil
}
