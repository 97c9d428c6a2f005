/*
Package httpapi exposes the optional HTTP surface of the chat server.

It serves a health probe, a read-only view of the room, and a WebSocket endpoint
that speaks the same line protocol as the TCP listener: every text frame is a
line in, every chat line goes out as a frame.
*/
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/ledzpl/budgetchat/internal/chat"
	"github.com/ledzpl/budgetchat/internal/pkg/logx"
	"github.com/ledzpl/budgetchat/internal/transport"
)

// Deps carries what the handlers need.
type Deps struct {
	Room *chat.Room

	// SessionOptions are applied to every WebSocket session.
	SessionOptions []chat.SessionOption

	// MaxFrameBytes caps inbound WebSocket frames.
	MaxFrameBytes int64

	// AllowAnyOrigin disables the same-origin check on upgrades.
	AllowAnyOrigin bool

	// Context bounds WebSocket sessions; cancelling it disconnects them.
	// Defaults to the request context.
	Context context.Context
}

// RoomView is the body of GET /room.
type RoomView struct {
	Members []string `json:"members"`
	Count   int      `json:"count"`
}

// Router builds the chi router for deps.
func Router(deps Deps) http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
	if deps.AllowAnyOrigin {
		upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/room", handleRoom(deps.Room))
	r.Get("/ws", handleWebSocket(deps, upgrader))

	return r
}

func handleRoom(room *chat.Room) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		members := room.Members()
		if members == nil {
			members = []string{}
		}

		body, err := json.Marshal(RoomView{Members: members, Count: len(members)})
		if err != nil {
			logx.Error(err, "encode room view")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}
}

func handleWebSocket(deps Deps, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Warn("websocket upgrade failed", "error", err.Error())
			return
		}

		ctx := deps.Context
		if ctx == nil {
			ctx = r.Context()
		}

		opts := append([]chat.SessionOption{chat.WithRemoteAddr(r.RemoteAddr)}, deps.SessionOptions...)
		session := chat.NewSession(deps.Room, transport.NewWebSocketConn(ws, deps.MaxFrameBytes), opts...)
		if err := session.Run(ctx); err != nil {
			logx.Info("websocket session ended", "session_id", session.ID(), "reason", err.Error())
		}
	}
}
