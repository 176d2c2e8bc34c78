// Copyright 2026 The x730 Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"

	"github.com/x730-project/x730/lib/ipc"
)

// Exit codes beyond the conventional 0 and 1. Scripts key off these,
// so they are part of the CLI's contract.
const (
	exitNotRunning = 2
	exitRemote     = 3
	exitTransport  = 4
)

// exitError couples an error with the process exit code it maps to.
// main checks for the ExitCode method on returned errors.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) ExitCode() int { return e.code }

func (e *exitError) Unwrap() error { return e.err }

// callError maps a call failure onto the CLI exit code contract:
// daemon not running, remote failure, or transport failure.
func callError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ipc.ErrDaemonNotRunning):
		return &exitError{code: exitNotRunning, err: err}
	case isRemote(err):
		return &exitError{code: exitRemote, err: err}
	default:
		return &exitError{code: exitTransport, err: err}
	}
}

func isRemote(err error) bool {
	var remoteErr *ipc.RemoteError
	return errors.As(err, &remoteErr)
}
