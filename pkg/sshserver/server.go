// Package sshserver accepts SSH connections and hands "session" channels to a handler.
package sshserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

// SessionHandler handles an accepted SSH "session" channel. ctx is cancelled when the server stops.
type SessionHandler func(ctx context.Context, conn *ssh.ServerConn, channel ssh.Channel, requests <-chan *ssh.Request)

// Server wraps the SSH listener lifecycle.
type Server struct {
	Addr   string
	Config *ssh.ServerConfig

	logger   zerolog.Logger
	handlers sync.WaitGroup
}

// New creates a Server with the provided host signer. Clients are not authenticated;
// the chat asks for a nick after the channel opens.
func New(addr string, signer ssh.Signer, logger zerolog.Logger) *Server {
	cfg := &ssh.ServerConfig{
		NoClientAuth: true,
	}
	cfg.AddHostKey(signer)

	return &Server{
		Addr:   addr,
		Config: cfg,
		logger: logger,
	}
}

// ListenAndServe starts the SSH server until the context is cancelled or an error occurs.
func (s *Server) ListenAndServe(ctx context.Context, handler SessionHandler) error {
	listener, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("sshserver: listen %q: %w", s.Addr, err)
	}
	return s.Serve(ctx, listener, handler)
}

// Serve runs the accept loop on listener until ctx is cancelled, then waits for
// open connections and their session handlers to return.
func (s *Server) Serve(ctx context.Context, listener net.Listener, handler SessionHandler) error {
	if handler == nil {
		return errors.New("sshserver: session handler required")
	}
	defer listener.Close()
	defer s.handlers.Wait()

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

		s.handlers.Add(1)
		go func() {
			defer s.handlers.Done()
			s.handleConn(ctx, conn, handler)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, tcpConn net.Conn, handler SessionHandler) {
	defer tcpConn.Close()

	sshConn, chans, reqs, err := ssh.NewServerConn(tcpConn, s.Config)
	if err != nil {
		s.logger.Debug().Err(err).Msg("handshake failed")
		return
	}
	defer sshConn.Close()

	s.logger.Debug().
		Str("remote_addr", sshConn.RemoteAddr().String()).
		Str("client_version", string(sshConn.ClientVersion())).
		Msg("new connection")

	go ssh.DiscardRequests(reqs)

	for {
		select {
		case <-ctx.Done():
			return
		case newChannel, ok := <-chans:
			if !ok {
				return
			}
			if newChannel.ChannelType() != "session" {
				_ = newChannel.Reject(ssh.UnknownChannelType, "only session channels are supported")
				continue
			}

			channel, requests, err := newChannel.Accept()
			if err != nil {
				s.logger.Warn().Err(err).Msg("channel accept failed")
				continue
			}

			// The connection already holds a count, so Serve cannot be waiting yet.
			s.handlers.Add(1)
			go func() {
				defer s.handlers.Done()
				handler(ctx, sshConn, channel, requests)
			}()
		}
	}
}
