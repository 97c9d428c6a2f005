/*
Package errs defines the chat server's application error codes.

Every code maps to a CustomError carrying a short message that is safe to show to
the connected client. Codes are grouped by range:

	2xxx  join handshake and message validation
	3xxx  server lifecycle
	5xxx  unclassified
*/
package errs

import (
	"fmt"

	"github.com/ledzpl/budgetchat/internal/pkg/logx"
)

// 2xxx: handshake and message validation
const (
	// ErrInvalidNick indicates the requested nick failed shape validation.
	ErrInvalidNick = 2001

	// ErrNickTaken indicates another present user already holds the nick.
	ErrNickTaken = 2002

	// ErrMessageTooLong indicates an inbound line exceeded the message length limit.
	ErrMessageTooLong = 2003
)

// 3xxx: server lifecycle
const (
	// ErrServerShuttingDown indicates the room no longer accepts members.
	ErrServerShuttingDown = 3001
)

// 5xxx: internal
const (
	// ErrUnknown is the fallback for codes missing from the table.
	ErrUnknown = 5000
)

var errorMap = map[int]CustomError{
	ErrInvalidNick:        {Code: ErrInvalidNick, Message: "Nick must be 1-128 letters or digits."},
	ErrNickTaken:          {Code: ErrNickTaken, Message: "Nick is already in use."},
	ErrMessageTooLong:     {Code: ErrMessageTooLong, Message: "Message is too long."},
	ErrServerShuttingDown: {Code: ErrServerShuttingDown, Message: "Server is shutting down."},
	ErrUnknown:            {Code: ErrUnknown, Message: "Something went wrong."},
}

// CustomError is an application error with a stable code and a client-facing message.
type CustomError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *CustomError) Error() string {
	return fmt.Sprintf("error code %d: %s", e.Code, e.Message)
}

// Is reports whether target is a CustomError with the same code, so copies
// returned by NewError match the package-level sentinels built from it.
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError returns a fresh CustomError for code. Unknown codes are logged and
// mapped to ErrUnknown.
func NewError(code int) *CustomError {
	templateErr, ok := errorMap[code]
	if !ok {
		logx.Warn("unknown error code requested", "requested_code", code)
		templateErr = errorMap[ErrUnknown]
	}

	customErr := templateErr
	return &customErr
}
