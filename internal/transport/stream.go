// Package transport adapts network connections to the line-oriented chat.Transport.
package transport

import (
	"bufio"
	"errors"
	"io"
	"time"

	"github.com/ledzpl/budgetchat/internal/pkg/errs"
)

const (
	// DefaultMaxLineBytes caps how much a single inbound line may buffer.
	DefaultMaxLineBytes = 64 * 1024

	// DefaultWriteTimeout bounds a single outbound write.
	DefaultWriteTimeout = 10 * time.Second
)

// ErrLineTooLong is returned when a peer sends more than the line cap without
// a newline. It carries the message-too-long code so sessions report it the
// same way as an over-length chat line.
var ErrLineTooLong = errs.NewError(errs.ErrMessageTooLong)

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// StreamOption configures a StreamConn.
type StreamOption func(*StreamConn)

// WithIdleTimeout bounds the wait for each inbound line. It applies only to
// streams that support read deadlines, such as net.Conn.
func WithIdleTimeout(d time.Duration) StreamOption {
	return func(c *StreamConn) {
		c.idleTimeout = d
	}
}

// WithWriteTimeout overrides DefaultWriteTimeout. Zero disables it.
func WithWriteTimeout(d time.Duration) StreamOption {
	return func(c *StreamConn) {
		if d >= 0 {
			c.writeTimeout = d
		}
	}
}

// WithMaxLineBytes overrides DefaultMaxLineBytes.
func WithMaxLineBytes(n int) StreamOption {
	return func(c *StreamConn) {
		if n > 0 {
			c.maxLineBytes = n
		}
	}
}

// StreamConn frames a byte stream into newline-terminated lines.
type StreamConn struct {
	rwc    io.ReadWriteCloser
	reader *bufio.Reader

	idleTimeout  time.Duration
	writeTimeout time.Duration
	maxLineBytes int
}

// NewStreamConn wraps rwc. Reads must come from a single goroutine.
func NewStreamConn(rwc io.ReadWriteCloser, opts ...StreamOption) *StreamConn {
	c := &StreamConn{
		rwc:          rwc,
		reader:       bufio.NewReader(rwc),
		writeTimeout: DefaultWriteTimeout,
		maxLineBytes: DefaultMaxLineBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReadLine returns the next line including its "\n". Bytes left over when the
// stream ends without a newline are discarded and io.EOF is returned.
func (c *StreamConn) ReadLine() (string, error) {
	if c.idleTimeout > 0 {
		if d, ok := c.rwc.(readDeadliner); ok {
			if err := d.SetReadDeadline(time.Now().Add(c.idleTimeout)); err != nil {
				return "", err
			}
		}
	}

	var line []byte
	for {
		chunk, err := c.reader.ReadSlice('\n')
		line = append(line, chunk...)
		if len(line) > c.maxLineBytes {
			return "", ErrLineTooLong
		}

		switch {
		case err == nil:
			return string(line), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		default:
			return "", err
		}
	}
}

// WriteString writes s unchanged. A peer that does not drain the write within
// the write timeout gets a deadline error; streams without deadlines, such as
// SSH channels, are closed instead so the blocked write fails.
func (c *StreamConn) WriteString(s string) error {
	if c.writeTimeout <= 0 {
		_, err := io.WriteString(c.rwc, s)
		return err
	}

	if d, ok := c.rwc.(writeDeadliner); ok {
		if err := d.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
		_, err := io.WriteString(c.rwc, s)
		return err
	}

	timer := time.AfterFunc(c.writeTimeout, func() {
		_ = c.rwc.Close()
	})
	defer timer.Stop()

	_, err := io.WriteString(c.rwc, s)
	return err
}

// Close closes the underlying stream.
func (c *StreamConn) Close() error {
	return c.rwc.Close()
}
