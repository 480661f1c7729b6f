// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/samber/oops"

	"github.com/holomush/plugincall/internal/xdg"
)

// Error codes for gateway server failures.
const (
	CodeListen         = "GATEWAY_LISTEN_FAILED"
	CodeAlreadyStarted = "GATEWAY_ALREADY_STARTED"
)

// SocketPath returns the default gateway socket path in the runtime directory.
func SocketPath() string {
	return filepath.Join(xdg.RuntimeDir(), "gateway.sock")
}

// Server accepts plugin connections on a Unix socket and hands each one to
// the Handler on its own goroutine.
type Server struct {
	path    string
	handler *Handler

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	cancel   context.CancelFunc
	// stopHandlers cancels the context handlers run with.
	stopHandlers context.CancelFunc
	loopDone     chan struct{}
	handlers     sync.WaitGroup
}

// NewServer creates a server that will listen on path.
func NewServer(path string, handler *Handler) *Server {
	return &Server{
		path:    path,
		handler: handler,
		conns:   make(map[net.Conn]struct{}),
	}
}

// Path returns the socket path.
func (s *Server) Path() string { return s.path }

// Start binds the socket and starts the accept loop. A stale socket file at
// the path is removed first; the new one is readable only by the owner.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return oops.Code(CodeAlreadyStarted).With("path", s.path).Errorf("gateway already started")
	}

	if err := xdg.EnsureDir(filepath.Dir(s.path)); err != nil {
		// Not wrapped: the directory error's own code would shadow CodeListen.
		return oops.Code(CodeListen).With("path", s.path).With("cause", err.Error()).
			Errorf("create socket directory: %v", err)
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return oops.Code(CodeListen).With("path", s.path).Wrapf(err, "remove existing socket")
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "unix", s.path)
	if err != nil {
		return oops.Code(CodeListen).With("path", s.path).Wrapf(err, "listen on socket")
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		_ = listener.Close() //nolint:errcheck // the chmod error is the one worth reporting
		return oops.Code(CodeListen).With("path", s.path).Wrapf(err, "set socket permissions")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	handlerCtx, stopHandlers := context.WithCancel(context.WithoutCancel(ctx))
	s.listener = listener
	s.cancel = cancel
	s.stopHandlers = stopHandlers
	s.loopDone = make(chan struct{})

	// Closing the listener is the only way to unblock Accept.
	go func() {
		<-loopCtx.Done()
		if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			slog.Debug("error closing gateway listener", "error", err)
		}
	}()
	go s.acceptLoop(loopCtx, handlerCtx, listener)

	slog.Info("gateway server started", "path", s.path)
	return nil
}

func (s *Server) acceptLoop(loopCtx, handlerCtx context.Context, listener net.Listener) {
	defer close(s.loopDone)

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-loopCtx.Done():
				slog.Debug("gateway accept loop stopped")
			default:
				slog.Error("gateway accept failed, stopping accept loop", "error", err)
			}
			return
		}
		s.serve(handlerCtx, conn)
	}
}

func (s *Server) serve(ctx context.Context, conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.handlers.Add(1)
	s.mu.Unlock()
	gatewayConnections.Inc()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.conns, conn)
			s.mu.Unlock()
			gatewayConnections.Dec()
			s.handlers.Done()
		}()
		s.handler.Serve(ctx, conn)
	}()
}

// Shutdown stops the accept loop and waits for it to exit, then closes any
// connection still open, waits for their handlers until ctx is done, and
// removes the socket file.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	listener, cancel, loopDone := s.listener, s.cancel, s.loopDone
	s.mu.Unlock()
	if listener == nil {
		return nil
	}

	cancel()
	select {
	case <-loopDone:
	case <-ctx.Done():
		return oops.With("path", s.path).Wrapf(ctx.Err(), "wait for gateway accept loop")
	}

	s.mu.Lock()
	open := len(s.conns)
	for conn := range s.conns {
		_ = conn.Close() //nolint:errcheck // forced close; the handler logs its own I/O errors
	}
	s.stopHandlers()
	s.mu.Unlock()
	if open > 0 {
		slog.Warn("closed gateway connections still open at shutdown", "count", open)
	}

	handlersDone := make(chan struct{})
	go func() {
		s.handlers.Wait()
		close(handlersDone)
	}()

	var waitErr error
	select {
	case <-handlersDone:
	case <-ctx.Done():
		waitErr = oops.With("path", s.path).Wrapf(ctx.Err(), "wait for gateway handlers")
	}

	if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		slog.Warn("failed to close gateway listener", "error", err)
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove gateway socket", "path", s.path, "error", err)
	}

	s.mu.Lock()
	s.listener = nil
	s.mu.Unlock()

	slog.Info("gateway server stopped", "path", s.path)
	return waitErr
}
