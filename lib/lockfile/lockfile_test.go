// Copyright 2026 The x730 Authors
// SPDX-License-Identifier: Apache-2.0

package lockfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func lockPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "x730d.lock")
}

func TestAcquireRelease(t *testing.T) {
	path := lockPath(t)

	handle, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if handle.Path() != path {
		t.Errorf("Path() = %q, want %q", handle.Path(), path)
	}
	if err := handle.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	// The file stays behind after release.
	if _, err := os.Stat(path); err != nil {
		t.Errorf("lock file removed on release: %v", err)
	}
}

func TestSecondAcquireFails(t *testing.T) {
	path := lockPath(t)

	first, err := Acquire(path)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	defer first.Release()

	// flock is per open file description, so a second open in the same
	// process conflicts just like a second process would.
	second, err := Acquire(path)
	if !errors.Is(err, ErrLocked) {
		if second != nil {
			second.Release()
		}
		t.Fatalf("second Acquire error = %v, want ErrLocked", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	third, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	third.Release()
}

func TestReleaseIdempotent(t *testing.T) {
	handle, err := Acquire(lockPath(t))
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := handle.Release(); err != nil {
		t.Fatalf("first Release: %v", err)
	}
	if err := handle.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
}

func TestProbe(t *testing.T) {
	path := lockPath(t)

	if Probe(path) {
		t.Error("Probe reported a held lock for a missing file")
	}

	handle, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !Probe(path) {
		t.Error("Probe did not detect the held lock")
	}

	handle.Release()
	if Probe(path) {
		t.Error("Probe still reports a held lock after release")
	}
}

func TestReadPID(t *testing.T) {
	path := lockPath(t)

	handle, err := Acquire(path)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer handle.Release()

	pid, err := ReadPID(path)
	if err != nil {
		t.Fatalf("ReadPID: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("ReadPID = %d, want %d", pid, os.Getpid())
	}
}

func TestReadPIDInvalid(t *testing.T) {
	path := lockPath(t)
	if err := os.WriteFile(path, []byte("not-a-pid\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := ReadPID(path); err == nil {
		t.Error("ReadPID accepted garbage")
	}
}
