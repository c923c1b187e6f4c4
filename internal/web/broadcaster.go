package web

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/cjeanneret/ScanGo/internal/logic/listener"
)

// Event types.
const (
	EventLog         = "log"
	EventDetected    = "detected"
	EventNotDetected = "not_detected"
)

// StatusEvent is a single message for SSE and WebSocket clients.
type StatusEvent struct {
	Time   string `json:"t"`
	Type   string `json:"type"`
	Level  string `json:"l,omitempty"`
	Msg    string `json:"msg,omitempty"`
	Code   string `json:"code,omitempty"`
	Format string `json:"format,omitempty"`
}

// EventBroadcaster distributes log lines and detection outcomes to
// multiple clients. It is a listener.Observer.
type EventBroadcaster struct {
	mu      sync.RWMutex
	clients map[chan string]struct{}
}

var _ listener.Observer = (*EventBroadcaster)(nil)

// NewEventBroadcaster creates a new broadcaster.
func NewEventBroadcaster() *EventBroadcaster {
	return &EventBroadcaster{
		clients: make(map[chan string]struct{}),
	}
}

// Subscribe returns a channel that receives broadcast messages and a cleanup function.
// The caller must call the returned cleanup when done (e.g. on client disconnect).
func (b *EventBroadcaster) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 64)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.clients, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}

// Broadcast sends a log message to all subscribed clients.
// Messages are sent as JSON: {"t":"...","type":"log","l":"info","msg":"..."}
func (b *EventBroadcaster) Broadcast(level, msg string) {
	b.send(StatusEvent{Type: EventLog, Level: level, Msg: msg})
}

// BroadcastMsg is a convenience for level "info".
func (b *EventBroadcaster) BroadcastMsg(msg string) {
	b.Broadcast("info", msg)
}

func (b *EventBroadcaster) OnDetected(code, symbology string) {
	b.send(StatusEvent{Type: EventDetected, Code: code, Format: symbology})
}

func (b *EventBroadcaster) OnNotDetected() {
	b.send(StatusEvent{Type: EventNotDetected, Code: NotFound})
}

// send delivers evt to every client. Slow clients may miss messages
// (non-blocking, buffered).
func (b *EventBroadcaster) send(evt StatusEvent) {
	evt.Time = time.Now().Format(time.RFC3339)
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	payload := string(data)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- payload:
		default:
			// channel full, skip
		}
	}
}

// BroadcastWriter implements io.Writer; each Write broadcasts the content to clients.
func BroadcastWriter(b *EventBroadcaster) *broadcastWriter {
	return &broadcastWriter{b: b}
}

// broadcastWriter wraps EventBroadcaster as io.Writer for use with debug.SetOutput.
type broadcastWriter struct {
	b *EventBroadcaster
}

func (w *broadcastWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	if msg != "" {
		w.b.BroadcastMsg(msg)
	}
	return len(p), nil
}
