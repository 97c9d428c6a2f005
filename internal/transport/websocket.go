package transport

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteWait = 10 * time.Second

// WebSocketConn treats every text frame as one or more lines. Outbound strings
// are sent one frame each.
type WebSocketConn struct {
	conn    *websocket.Conn
	pending []string

	closeOnce sync.Once
	closeErr  error
}

// NewWebSocketConn wraps an upgraded connection and caps inbound frame size.
func NewWebSocketConn(conn *websocket.Conn, maxFrameBytes int64) *WebSocketConn {
	if maxFrameBytes <= 0 {
		maxFrameBytes = DefaultMaxLineBytes
	}
	conn.SetReadLimit(maxFrameBytes)
	return &WebSocketConn{conn: conn}
}

// ReadLine returns the next line, adding "\n" when a frame's last line has none.
// A close frame from the peer reads as io.EOF.
func (c *WebSocketConn) ReadLine() (string, error) {
	for len(c.pending) == 0 {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return "", io.EOF
			}
			return "", err
		}
		if mt != websocket.TextMessage {
			continue
		}
		c.pending = splitLines(string(data))
	}

	line := c.pending[0]
	c.pending = c.pending[1:]
	return line, nil
}

// WriteString sends s as a single text frame.
func (c *WebSocketConn) WriteString(s string) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, []byte(s))
}

// Close sends a close frame on a best-effort basis and closes the connection.
func (c *WebSocketConn) Close() error {
	c.closeOnce.Do(func() {
		deadline := time.Now().Add(time.Second)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func splitLines(frame string) []string {
	if frame == "" {
		return []string{"\n"}
	}
	lines := strings.SplitAfter(frame, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if last := lines[len(lines)-1]; !strings.HasSuffix(last, "\n") {
		lines[len(lines)-1] = last + "\n"
	}
	return lines
}
