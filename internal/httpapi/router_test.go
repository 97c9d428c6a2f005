package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/ledzpl/budgetchat/internal/chat"
)

func TestHealthz(t *testing.T) {
	srv := httptest.NewServer(Router(Deps{Room: chat.NewRoom()}))
	defer srv.Close()

	res, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "ok", string(body))
}

func TestRoomView(t *testing.T) {
	room := chat.NewRoom()
	srv := httptest.NewServer(Router(Deps{Room: room}))
	defer srv.Close()

	view := getRoom(t, srv.URL)
	require.Equal(t, RoomView{Members: []string{}, Count: 0}, view)

	_, _, err := room.TryJoin("alice")
	require.NoError(t, err)
	_, _, err = room.TryJoin("bob")
	require.NoError(t, err)

	view = getRoom(t, srv.URL)
	require.Equal(t, RoomView{Members: []string{"alice", "bob"}, Count: 2}, view)
}

func TestWebSocketSessionsChat(t *testing.T) {
	room := chat.NewRoom()
	srv := httptest.NewServer(Router(Deps{Room: room}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	alice := dial(t, wsURL)
	expectFrame(t, alice, "Nick?\n")
	send(t, alice, "alice")
	expectFrame(t, alice, "* The room contains: \n")

	bob := dial(t, wsURL)
	expectFrame(t, bob, "Nick?\n")
	send(t, bob, "bob\n")
	expectFrame(t, bob, "* The room contains: alice\n")

	send(t, alice, "hello")
	expectFrame(t, bob, "[alice]: hello\n")

	require.NoError(t, bob.Close())
	require.Eventually(t, func() bool {
		return room.Len() == 1
	}, time.Second, 10*time.Millisecond)
}

func getRoom(t *testing.T, base string) RoomView {
	t.Helper()

	res, err := http.Get(base + "/room")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, "application/json", res.Header.Get("Content-Type"))

	var view RoomView
	require.NoError(t, json.NewDecoder(res.Body).Decode(&view))
	return view
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(text)))
}

func expectFrame(t *testing.T, conn *websocket.Conn, want string) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	mt, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, mt)
	require.Equal(t, want, string(data))
}
