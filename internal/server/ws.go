package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/IETI-Group/SOPHIA-TutorChatService/internal/chat"
)

const (
	wsReadLimit  = 1 << 20
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 50 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The API is called from browser frontends on other origins.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleChatSocket answers every text frame {message, chatId?, model?} with
// one chat response frame. Frames are handled in order.
func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsReadLimit)

	// The reader cancels ctx when the peer goes away so an in-flight chat
	// turn stops with it.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	frames := make(chan any)
	done := make(chan struct{})
	go func() {
		defer close(done)
		writeLoop(conn, frames)
	}()
	defer func() {
		close(frames)
		<-done
	}()

	incoming := make(chan []byte)
	go readLoop(ctx, cancel, conn, incoming)

	slog.Debug("WebSocket chat connected", "remote", r.RemoteAddr)
	for data := range incoming {
		if err := validators.chat.Validate(data); err != nil {
			frames <- errorBody(err.Error())
			continue
		}
		var req chat.Request
		if err := json.Unmarshal(data, &req); err != nil {
			frames <- errorBody("Invalid JSON body")
			continue
		}

		resp, err := s.deps.Chats.Chat(ctx, req)
		if err != nil {
			if ctx.Err() == nil {
				slog.Error("WebSocket chat failed", "err", err)
			}
			frames <- errorBody(err.Error())
			continue
		}
		frames <- chatReply{Success: true, Response: resp}
	}
}

// readLoop forwards text frames to incoming until the connection fails, then
// cancels the connection context and closes incoming.
func readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, incoming chan<- []byte) {
	defer close(incoming)
	defer cancel()

	for {
		typ, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("WebSocket read failed", "err", err)
			}
			return
		}
		if typ != websocket.TextMessage {
			continue
		}
		select {
		case incoming <- data:
		case <-ctx.Done():
			return
		}
	}
}

// writeLoop owns all writes to conn: reply frames and keepalive pings.
func writeLoop(conn *websocket.Conn, frames <-chan any) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(wsWriteWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(frame); err != nil {
				slog.Warn("WebSocket write failed", "err", err)
				// Keep draining so the reader never blocks.
				for range frames {
				}
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				for range frames {
				}
				return
			}
		}
	}
}
