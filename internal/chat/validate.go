package chat

import (
	"errors"
	"strings"

	"github.com/ledzpl/budgetchat/internal/pkg/errs"
)

const (
	// MaxNickLength bounds a nick in bytes.
	MaxNickLength = 128
	// DefaultMaxMessageLength bounds a message body in bytes, terminator excluded.
	DefaultMaxMessageLength = 1000
)

var (
	ErrInvalidNick        = errs.NewError(errs.ErrInvalidNick)
	ErrNickTaken          = errs.NewError(errs.ErrNickTaken)
	ErrMessageTooLong     = errs.NewError(errs.ErrMessageTooLong)
	ErrServerShuttingDown = errs.NewError(errs.ErrServerShuttingDown)

	// ErrMailboxClosed reports a delivery to a member that has already left.
	ErrMailboxClosed = errors.New("mailbox closed")

	errDropped = errors.New("mailbox full, event dropped")
)

// NormalizeNick strips the line terminator and surrounding whitespace from a
// candidate nick and checks its shape.
func NormalizeNick(raw string) (string, error) {
	nick := strings.TrimSpace(raw)
	if !validNick(nick) {
		return "", ErrInvalidNick
	}
	return nick, nil
}

func validNick(nick string) bool {
	if len(nick) == 0 || len(nick) > MaxNickLength {
		return false
	}
	for i := 0; i < len(nick); i++ {
		c := nick[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

// trimTerminator returns line without its trailing "\n" or "\r\n".
func trimTerminator(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

// withTerminator guarantees line ends in a newline.
func withTerminator(line string) string {
	if strings.HasSuffix(line, "\n") {
		return line
	}
	return line + "\n"
}
