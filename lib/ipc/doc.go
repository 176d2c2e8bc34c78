// Copyright 2026 The x730 Authors
// SPDX-License-Identifier: Apache-2.0

// Package ipc implements the daemon's local control plane: a CBOR
// request/response protocol over a Unix domain socket, a registry of
// remotely callable operations, and a client that probes the daemon's
// singleton lock before connecting.
//
// The protocol is deliberately minimal. Each connection carries
// exactly one call: the client writes a single Request, the server
// writes a single Response echoing the request's call id, and the
// connection closes. The server accepts one connection at a time —
// the board admits only strictly serialized actions, so connection
// concurrency would buy nothing and complicate ordering.
//
// A second, degraded transport maps SIGUSR1 and SIGUSR2 to the two
// actions for environments without socket access; see signal.go. Both
// transports share the lock-probe liveness check: a held flock is the
// only accepted proof that a daemon is alive.
package ipc
