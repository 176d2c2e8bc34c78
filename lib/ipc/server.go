// Copyright 2026 The x730 Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/x730-project/x730/lib/codec"
)

const (
	// defaultAcceptTimeout bounds each Accept so the serve loop
	// observes context cancellation between connections.
	defaultAcceptTimeout = 2 * time.Second

	// defaultIOTimeout covers the read of one request or the write of
	// one response. Handler execution is not under this deadline —
	// a power-off call legitimately holds the button for seconds.
	defaultIOTimeout = 30 * time.Second

	// defaultMaxFrameSize bounds one encoded request. Control calls
	// are tiny; anything near this limit is a broken or hostile peer.
	defaultMaxFrameSize = 64 * 1024
)

// ServerOptions configures a Server. SocketPath and Registry are
// required.
type ServerOptions struct {
	SocketPath string
	Registry   *Registry
	Logger     *slog.Logger // nil → slog.Default()

	AcceptTimeout time.Duration // zero → defaultAcceptTimeout
	IOTimeout     time.Duration // zero → defaultIOTimeout
	MaxFrameSize  int64         // zero → defaultMaxFrameSize
}

// Server accepts one connection at a time on a Unix socket and
// executes registered calls. Per-connection failures never stop the
// serve loop; only context cancellation or Close does.
type Server struct {
	socketPath    string
	registry      *Registry
	logger        *slog.Logger
	acceptTimeout time.Duration
	ioTimeout     time.Duration
	maxFrameSize  int64

	listener *net.UnixListener
}

// NewServer creates a server. The socket is not bound until Open.
func NewServer(options ServerOptions) *Server {
	server := &Server{
		socketPath:    options.SocketPath,
		registry:      options.Registry,
		logger:        options.Logger,
		acceptTimeout: options.AcceptTimeout,
		ioTimeout:     options.IOTimeout,
		maxFrameSize:  options.MaxFrameSize,
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	if server.acceptTimeout == 0 {
		server.acceptTimeout = defaultAcceptTimeout
	}
	if server.ioTimeout == 0 {
		server.ioTimeout = defaultIOTimeout
	}
	if server.maxFrameSize == 0 {
		server.maxFrameSize = defaultMaxFrameSize
	}
	return server
}

// Open binds the socket, removing any stale socket file from a
// previous run. The socket is group-accessible (0660) so local
// unprivileged callers in the daemon's group can connect.
func (s *Server) Open() error {
	if s.listener != nil {
		return nil
	}
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, 0660); err != nil {
		listener.Close()
		os.Remove(s.socketPath)
		return fmt.Errorf("setting socket permissions on %s: %w", s.socketPath, err)
	}

	s.listener = listener.(*net.UnixListener)
	s.logger.Info("control socket listening", "path", s.socketPath)
	return nil
}

// Serve accepts and handles connections one at a time until ctx is
// cancelled or the server is closed. An in-flight call runs to
// completion; cancellation is observed between connections.
func (s *Server) Serve(ctx context.Context) error {
	listener := s.listener
	if listener == nil {
		return fmt.Errorf("server is not open")
	}
	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := listener.SetDeadline(time.Now().Add(s.acceptTimeout)); err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Error("setting accept deadline", "error", err)
		}
		conn, err := listener.Accept()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		// One connection at a time: handled inline, not in a
		// goroutine. The board serializes actions anyway.
		s.handleConnection(ctx, conn)
	}
}

// handleConnection processes one request/response cycle.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(s.ioTimeout))

	// CBOR is self-delimiting; one decode is one frame. The limit
	// makes an oversized frame a hard receive error for this
	// connection, not a memory sink.
	var request Request
	if err := codec.NewDecoder(io.LimitReader(conn, s.maxFrameSize)).Decode(&request); err != nil {
		if errors.Is(err, io.EOF) {
			// Peer connected and sent nothing (a port probe).
			return
		}
		// Framing failed: no call id to echo, so there is nothing
		// useful to send back. Log and drop.
		s.logger.Warn("dropping malformed request", "error", err)
		return
	}

	s.logger.Info("control call", "call", request.Call)

	bound, exists := s.registry.Lookup(request.Call)
	if !exists {
		s.respond(conn, Response{Call: request.Call, OK: false, Error: fmt.Sprintf("unknown call %q", request.Call)})
		return
	}

	result, err := bound(ctx, request.Args, request.Kwargs)
	if err != nil {
		s.logger.Error("call failed", "call", request.Call, "error", err)
		s.respond(conn, Response{Call: request.Call, OK: false, Error: err.Error()})
		return
	}

	response := Response{Call: request.Call, OK: true}
	if result != nil {
		encoded, err := codec.Marshal(result)
		if err != nil {
			s.respond(conn, Response{Call: request.Call, OK: false, Error: fmt.Sprintf("encoding result: %v", err)})
			return
		}
		response.Result = encoded
	}
	s.respond(conn, response)
}

// respond writes exactly one response. Write failures are logged at
// debug level: the connection is closing regardless.
func (s *Server) respond(conn net.Conn, response Response) {
	conn.SetWriteDeadline(time.Now().Add(s.ioTimeout))
	if err := codec.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Debug("failed to write response", "call", response.Call, "error", err)
	}
}

// Close tears down the listener and removes the socket file.
// Idempotent and safe when Open never succeeded.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	listener := s.listener
	s.listener = nil

	err := listener.Close()
	if removeErr := os.Remove(s.socketPath); removeErr != nil && !os.IsNotExist(removeErr) && err == nil {
		err = removeErr
	}
	return err
}
