package chat

// Transport is the line-oriented connection a Session drives.
//
// ReadLine returns the next complete line including its terminator. WriteString
// sends s as-is. Close must unblock a pending ReadLine. A ReadLine error
// matching ErrMessageTooLong means the peer overran the transport's line cap.
type Transport interface {
	ReadLine() (string, error)
	WriteString(s string) error
	Close() error
}
