package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const streamWriteTimeout = 10 * time.Second

// handleStream pushes a widget's snapshot to the client on every
// reconciliation until the client disconnects or the widget is removed.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	p, ok := s.widgetFromRequest(w, r)
	if !ok {
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Error("Stream upgrade failed")
		return
	}
	defer ws.Close()

	updates, cancel := p.Subscribe()
	defer cancel()

	// Drain client frames so close/ping handling works; the stream is
	// one-directional otherwise.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Current state first, then live updates.
	ws.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	if err := ws.WriteJSON(p.Snapshot()); err != nil {
		return
	}

	for {
		select {
		case snap, open := <-updates:
			if !open {
				// Widget torn down.
				ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "widget removed"),
					time.Now().Add(time.Second))
				return
			}
			ws.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := ws.WriteJSON(snap); err != nil {
				return
			}
		case <-clientGone:
			return
		}
	}
}
