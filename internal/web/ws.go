package web

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cjeanneret/ScanGo/internal/debug"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// HandleWS handles GET /ws: the same events as the SSE stream, one JSON
// text message per event.
func (h *Handlers) HandleWS(w http.ResponseWriter, r *http.Request) {
	// Subscribe before the upgrade so no event is lost once the client is connected.
	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		debug.Verbose("ws upgrade error: %v", err)
		return
	}
	defer conn.Close()
	debug.Verbose("WebSocket client connected: %s", r.RemoteAddr)

	// The client sends nothing; reading only detects the disconnect.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			debug.Verbose("WebSocket client disconnected: %s", r.RemoteAddr)
			return
		}
	}
}
