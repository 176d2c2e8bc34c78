// Copyright 2026 The x730 Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/x730-project/x730/lib/codec"
	"github.com/x730-project/x730/lib/lockfile"
)

// ErrDaemonNotRunning is returned by Call when the liveness probe
// finds no live daemon holding the singleton lock. The client fails
// fast instead of dialing a socket nobody is accepting on.
var ErrDaemonNotRunning = errors.New("daemon is not running")

// RemoteError is a failure reported by the daemon itself: the call
// reached it, executed, and failed. Distinct from transport faults,
// which are returned as plain wrapped errors.
type RemoteError struct {
	Call    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote call %q failed: %s", e.Call, e.Message)
}

// ClientOptions configures a Client. SocketPath and LockPath are
// required.
type ClientOptions struct {
	SocketPath string
	LockPath   string

	DialTimeout  time.Duration // zero → 5s
	CallTimeout  time.Duration // zero → 30s; covers one request/response cycle
	MaxFrameSize int64         // zero → defaultMaxFrameSize
}

// Client performs one-shot calls against the daemon's control socket.
type Client struct {
	socketPath   string
	lockPath     string
	dialTimeout  time.Duration
	callTimeout  time.Duration
	maxFrameSize int64
}

// NewClient creates a client. No connection is made until Call.
func NewClient(options ClientOptions) *Client {
	client := &Client{
		socketPath:   options.SocketPath,
		lockPath:     options.LockPath,
		dialTimeout:  options.DialTimeout,
		callTimeout:  options.CallTimeout,
		maxFrameSize: options.MaxFrameSize,
	}
	if client.dialTimeout == 0 {
		client.dialTimeout = 5 * time.Second
	}
	if client.callTimeout == 0 {
		client.callTimeout = 30 * time.Second
	}
	if client.maxFrameSize == 0 {
		client.maxFrameSize = defaultMaxFrameSize
	}
	return client
}

// Call probes daemon liveness, then performs one request/response
// cycle. On a daemon-reported failure the returned error is a
// *RemoteError; when no daemon is running it wraps
// ErrDaemonNotRunning; all other errors are transport faults.
//
// If result is non-nil and the response carries a value, it is
// decoded into result.
func (c *Client) Call(ctx context.Context, call string, args []any, kwargs map[string]any, result any) error {
	if !lockfile.Probe(c.lockPath) {
		return fmt.Errorf("%w (no lock held on %s)", ErrDaemonNotRunning, c.lockPath)
	}

	encodedArgs, err := EncodeArgs(args...)
	if err != nil {
		return err
	}
	encodedKwargs, err := EncodeKwargs(kwargs)
	if err != nil {
		return err
	}
	request := Request{Call: call, Args: encodedArgs, Kwargs: encodedKwargs}

	dialer := net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", c.socketPath, err)
	}
	defer conn.Close()

	// One deadline for the whole cycle. The server may legitimately
	// hold the response for several seconds while the button sequence
	// runs.
	conn.SetDeadline(time.Now().Add(c.callTimeout))

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return fmt.Errorf("sending %q: %w", call, err)
	}

	var response Response
	if err := codec.NewDecoder(io.LimitReader(conn, c.maxFrameSize)).Decode(&response); err != nil {
		return fmt.Errorf("reading response for %q: %w", call, err)
	}

	if response.Call != call {
		return fmt.Errorf("response call id %q does not match request %q", response.Call, call)
	}
	if !response.OK {
		return &RemoteError{Call: call, Message: response.Error}
	}

	if result != nil && len(response.Result) > 0 {
		if err := codec.Unmarshal(response.Result, result); err != nil {
			return fmt.Errorf("decoding result for %q: %w", call, err)
		}
	}
	return nil
}
