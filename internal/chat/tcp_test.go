package chat_test

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ledzpl/budgetchat/internal/chat"
	"github.com/ledzpl/budgetchat/internal/transport"
	"github.com/ledzpl/budgetchat/pkg/tcpserver"
)

func TestChatOverTCP(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	room := chat.NewRoom(chat.WithMailboxCapacity(1))
	ctx, cancel := context.WithCancel(context.Background())

	served := make(chan error, 1)
	go func() {
		served <- tcpserver.New("", zerolog.Nop()).Serve(ctx, listener, func(ctx context.Context, conn net.Conn) {
			_ = chat.NewSession(room, transport.NewStreamConn(conn)).Run(ctx)
		})
	}()

	alice := dialChat(t, listener.Addr().String())
	alice.expect("Nick?\n")
	alice.send("alice\n")
	alice.expect("* The room contains: \n")

	bob := dialChat(t, listener.Addr().String())
	bob.expect("Nick?\n")
	bob.send("bob\n")
	bob.expect("* The room contains: alice\n")

	alice.send("hello\n")
	bob.expect("[alice]: hello\n")
	bob.send("hi\n")
	alice.expect("[bob]: hi\n")

	require.NoError(t, bob.conn.Close())
	require.Eventually(t, func() bool {
		return len(room.Members()) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-served:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not drain sessions after cancel")
	}

	// Cancelling the server closed alice's connection too.
	require.NoError(t, alice.conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, err = alice.reader.ReadString('\n')
	require.ErrorIs(t, err, io.EOF)
	require.Empty(t, room.Members())
}

func TestStalledReaderDoesNotFreezeRoom(t *testing.T) {
	room := chat.NewRoom()
	opts := []transport.StreamOption{transport.WithWriteTimeout(50 * time.Millisecond)}

	alice := pipeChat(t, room, opts...)
	alice.expect("Nick?\n")
	alice.send("alice\n")
	alice.expect("* The room contains: \n")

	bob := pipeChat(t, room, opts...)
	bob.expect("Nick?\n")
	bob.send("bob\n")
	bob.expect("* The room contains: alice\n")
	// bob never reads again.

	carol := pipeChat(t, room, opts...)
	carol.expect("Nick?\n")
	carol.send("carol\n")
	carol.expect("* The room contains: alice, bob\n")

	const total = 40
	require.NoError(t, carol.conn.SetReadDeadline(time.Time{}))
	received := make(chan string, total)
	go func() {
		for {
			line, err := carol.reader.ReadString('\n')
			if err != nil {
				return
			}
			received <- line
		}
	}()

	for i := 0; i < total; i++ {
		alice.send(fmt.Sprintf("msg %d\n", i))
	}

	deadline := time.After(3 * time.Second)
	for i := 0; i < total; i++ {
		select {
		case line := <-received:
			require.Equal(t, fmt.Sprintf("[alice]: msg %d\n", i), line)
		case <-deadline:
			t.Fatalf("carol received %d of %d messages", i, total)
		}
	}

	require.Eventually(t, func() bool {
		return strings.Join(room.Members(), ",") == "alice,carol"
	}, time.Second, 10*time.Millisecond)
}

func TestOverlongLineIsReportedBeforeDisconnect(t *testing.T) {
	room := chat.NewRoom()

	alice := pipeChat(t, room, transport.WithMaxLineBytes(64))
	alice.expect("Nick?\n")
	alice.send("alice\n")
	alice.expect("* The room contains: \n")

	go func() {
		_, _ = io.WriteString(alice.conn, strings.Repeat("z", 200)+"\n")
	}()
	alice.expect("* Message is too long.\n")

	require.Eventually(t, func() bool {
		return room.Len() == 0
	}, time.Second, 10*time.Millisecond)
}

// pipeChat runs a session over an in-memory pipe and returns the client end.
func pipeChat(t *testing.T, room *chat.Room, opts ...transport.StreamOption) *chatConn {
	t.Helper()

	server, client := net.Pipe()
	session := chat.NewSession(room, transport.NewStreamConn(server, opts...))
	go func() { _ = session.Run(context.Background()) }()

	t.Cleanup(func() { _ = client.Close() })
	return &chatConn{t: t, conn: client, reader: bufio.NewReader(client)}
}

type chatConn struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

func dialChat(t *testing.T, addr string) *chatConn {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &chatConn{t: t, conn: conn, reader: bufio.NewReader(conn)}
}

func (c *chatConn) send(line string) {
	c.t.Helper()
	_, err := io.WriteString(c.conn, line)
	require.NoError(c.t, err)
}

func (c *chatConn) expect(want string) {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(time.Second)))
	got, err := c.reader.ReadString('\n')
	require.NoError(c.t, err)
	require.Equal(c.t, want, got)
}
