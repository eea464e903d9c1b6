package stream

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

// WSWriter writes events to a WebSocket connection as JSON envelopes
type WSWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWSWriter wraps an upgraded connection
func NewWSWriter(conn *websocket.Conn) *WSWriter {
	return &WSWriter{conn: conn}
}

// WriteEvent sends one envelope as a text message
func (w *WSWriter) WriteEvent(event string, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return w.conn.WriteJSON(Envelope{Event: event, Data: data})
}

// KeepAlive pings the peer until ctx is done. It blocks; run it in its own goroutine.
func (w *WSWriter) KeepAlive(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = wsPingPeriod
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.mu.Lock()
			err := w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
			w.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// Close sends a normal closure message and closes the connection
func (w *WSWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
	return w.conn.Close()
}
