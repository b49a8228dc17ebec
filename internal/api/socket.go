package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/linggen/linggen-editor/internal/bridge"
)

const (
	socketWriteWait  = 10 * time.Second
	socketPongWait   = 60 * time.Second
	socketPingPeriod = socketPongWait * 9 / 10
	socketReadLimit  = 16 << 10
)

// GET /views/{id}/ws
//
// Frames flow out on a writer goroutine; UI events are read on the handler
// goroutine and dispatched to the panel.
func (s *Server) handleViewSocket(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookupView(w, r)
	if !ok {
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "view_id", p.ID(), "error", err)
		return
	}
	defer ws.Close()

	subID, frames := p.Subscribe()
	defer p.Unsubscribe(subID)
	slog.Debug("view surface connected", "view_id", p.ID(), "surface", subID)

	done := make(chan struct{})
	go s.writeFrames(ws, frames, done)

	ws.SetReadLimit(socketReadLimit)
	ws.SetReadDeadline(time.Now().Add(socketPongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(socketPongWait))
	})

	for {
		var ev bridge.UIEvent
		if err := ws.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("view surface read failed", "view_id", p.ID(), "error", err)
			}
			break
		}
		if ev.Type == "" {
			continue
		}
		p.Dispatch(ev)
	}
	close(done)
	slog.Debug("view surface disconnected", "view_id", p.ID(), "surface", subID)
}

// writeFrames pushes encoded frames to the socket until the frame channel
// closes, the reader stops, or a write fails.
func (s *Server) writeFrames(ws *websocket.Conn, frames <-chan []byte, done <-chan struct{}) {
	ping := time.NewTicker(socketPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case data, ok := <-frames:
			ws.SetWriteDeadline(time.Now().Add(socketWriteWait))
			if !ok {
				ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "view closed"))
				ws.Close()
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				ws.Close()
				return
			}
		case <-ping.C:
			ws.SetWriteDeadline(time.Now().Add(socketWriteWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				ws.Close()
				return
			}
		}
	}
}
