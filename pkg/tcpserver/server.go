// Package tcpserver runs a plain TCP accept loop with context-driven shutdown.
package tcpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"
)

// ConnHandler serves one accepted connection. ctx is cancelled when the server stops.
// The server closes conn after the handler returns.
type ConnHandler func(ctx context.Context, conn net.Conn)

// Server wraps the TCP listener lifecycle.
type Server struct {
	Addr string

	logger zerolog.Logger
	conns  sync.WaitGroup
}

// New creates a Server for addr.
func New(addr string, logger zerolog.Logger) *Server {
	return &Server{
		Addr:   addr,
		logger: logger,
	}
}

// ListenAndServe listens on Addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, handler ConnHandler) error {
	listener, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("tcpserver: listen %q: %w", s.Addr, err)
	}
	return s.Serve(ctx, listener, handler)
}

// Serve accepts connections from listener until ctx is cancelled, then waits for
// running handlers to return. It always returns a non-nil error; ctx.Err() after
// a clean shutdown.
func (s *Server) Serve(ctx context.Context, listener net.Listener, handler ConnHandler) error {
	if handler == nil {
		return errors.New("tcpserver: connection handler required")
	}
	defer listener.Close()
	defer s.conns.Wait()

	stop := context.AfterFunc(ctx, func() {
		if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Warn().Err(err).Msg("listener close error")
		}
	})
	defer stop()

	s.logger.Info().Str("addr", listener.Addr().String()).Msg("listening")

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.logger.Warn().Err(err).Msg("accept error")
			continue
		}

		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			defer conn.Close()

			s.logger.Debug().Str("remote_addr", conn.RemoteAddr().String()).Msg("accepted connection")
			handler(ctx, conn)
		}()
	}
}
