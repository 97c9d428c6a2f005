package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ledzpl/budgetchat/internal/pkg/errs"
	"github.com/ledzpl/budgetchat/internal/pkg/logx"
)

const (
	nickPrompt   = "Nick?\n"
	rosterPrefix = "* The room contains: "
)

// errDisconnected ends the relay when the peer hangs up or the session is cancelled.
var errDisconnected = errors.New("session disconnected")

// State is a session's position in its lifecycle.
type State int32

const (
	StateAwaitingNick State = iota
	StateJoined
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAwaitingNick:
		return "awaiting-nick"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithMaxMessageLength bounds inbound message bodies. Longer lines end the session.
func WithMaxMessageLength(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.maxMessageLength = n
		}
	}
}

// WithRemoteAddr tags the session's log lines with the peer address.
func WithRemoteAddr(addr string) SessionOption {
	return func(s *Session) {
		s.logger = s.logger.With().Str("remote_addr", addr).Logger()
	}
}

// Session drives one client connection: nick handshake, then relaying lines
// between the transport and the room until either side goes away.
type Session struct {
	id   string
	room *Room
	conn Transport

	writer           *sessionWriter
	maxMessageLength int

	nick    string
	mailbox *Mailbox
	state   atomic.Int32

	logger  zerolog.Logger
	cleanup sync.Once
}

// NewSession prepares a session for conn. Call Run to start it.
func NewSession(room *Room, conn Transport, opts ...SessionOption) *Session {
	id := uuid.NewString()
	s := &Session{
		id:               id,
		room:             room,
		conn:             conn,
		writer:           newSessionWriter(conn),
		maxMessageLength: DefaultMaxMessageLength,
		logger:           logx.Component("session").With().Str("session_id", id).Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Nick returns the joined nick, or "" before the handshake completes.
func (s *Session) Nick() string {
	if s.State() == StateAwaitingNick {
		return ""
	}
	return s.nick
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Run performs the handshake and relays until the connection ends or ctx is
// cancelled. The transport is closed and the nick released before Run returns.
// A peer hang-up is not an error.
func (s *Session) Run(ctx context.Context) error {
	defer s.close()

	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.Close()
	})
	defer stop()

	if err := s.join(); err != nil {
		if ctx.Err() != nil || errors.Is(err, io.EOF) {
			return nil
		}
		s.logger.Info().Err(err).Msg("join rejected")
		return err
	}
	s.state.Store(int32(StateJoined))

	err := s.relay(ctx)
	if errors.Is(err, errDisconnected) {
		err = nil
	}
	s.logger.Debug().Err(err).Msg("session ended")
	return err
}

func (s *Session) join() error {
	if err := s.writer.writeString(nickPrompt); err != nil {
		return fmt.Errorf("write prompt: %w", err)
	}

	line, err := s.conn.ReadLine()
	if errors.Is(err, ErrMessageTooLong) {
		s.reject(ErrInvalidNick)
		return ErrInvalidNick
	}
	if err != nil {
		return fmt.Errorf("read nick: %w", err)
	}

	nick, err := NormalizeNick(line)
	if err != nil {
		s.reject(err)
		return err
	}

	mailbox, roster, err := s.room.TryJoin(nick)
	if err != nil {
		s.reject(err)
		return err
	}

	s.nick, s.mailbox = nick, mailbox
	s.logger = s.logger.With().Str("nick", nick).Logger()

	if err := s.writer.writeString(rosterPrefix + strings.Join(roster, ", ") + "\n"); err != nil {
		return fmt.Errorf("write roster: %w", err)
	}
	return nil
}

// relay runs the inbound and outbound duties until one of them stops.
func (s *Session) relay(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	stop := context.AfterFunc(gctx, func() {
		_ = s.conn.Close()
	})
	defer stop()

	g.Go(func() error {
		return s.outbound(gctx)
	})
	g.Go(func() error {
		return s.inbound(gctx)
	})

	return g.Wait()
}

func (s *Session) outbound(ctx context.Context) error {
	for {
		select {
		case ev := <-s.mailbox.Events():
			if err := s.writer.writeString(formatEvent(ev)); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		case <-s.mailbox.Done():
			return ErrMailboxClosed
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Session) inbound(ctx context.Context) error {
	for {
		line, err := s.conn.ReadLine()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF) || ctx.Err() != nil:
				return errDisconnected
			case errors.Is(err, ErrMessageTooLong):
				s.reject(ErrMessageTooLong)
				return ErrMessageTooLong
			}
			return fmt.Errorf("read line: %w", err)
		}

		text := trimTerminator(line)
		if text == "" {
			continue
		}
		if len(text) > s.maxMessageLength {
			s.reject(ErrMessageTooLong)
			return ErrMessageTooLong
		}

		if _, err := s.room.Broadcast(ctx, s.nick, withTerminator(line)); err != nil {
			return errDisconnected
		}
	}
}

// reject tells the client why it is being disconnected. Write failures are ignored.
func (s *Session) reject(err error) {
	var ce *errs.CustomError
	if !errors.As(err, &ce) {
		return
	}
	_ = s.writer.writeString("* " + ce.Message + "\n")
}

func (s *Session) close() {
	s.cleanup.Do(func() {
		s.state.Store(int32(StateClosed))
		if s.mailbox != nil {
			s.room.release(s.nick, s.mailbox)
		}
		_ = s.conn.Close()
	})
}

func formatEvent(ev Event) string {
	return "[" + ev.From + "]: " + ev.Text
}

type sessionWriter struct {
	mu   sync.Mutex
	conn Transport
}

func newSessionWriter(conn Transport) *sessionWriter {
	return &sessionWriter{conn: conn}
}

func (w *sessionWriter) writeString(s string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.conn.WriteString(s)
}
