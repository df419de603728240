package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// connWrapper serializes writes and close against each other. Reads are
// left unguarded; only the read pump touches them.
type connWrapper struct {
	conn  *websocket.Conn
	mutex sync.Mutex
}

func newConnWrapper(c *websocket.Conn) *connWrapper {
	return &connWrapper{conn: c}
}

func (w *connWrapper) WriteMessage(messageType int, data []byte, deadline time.Time) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.conn.SetWriteDeadline(deadline)
	return w.conn.WriteMessage(messageType, data)
}

func (w *connWrapper) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.conn.Close()
}

func (w *connWrapper) ReadMessage() (int, []byte, error) {
	return w.conn.ReadMessage()
}

func (w *connWrapper) SetReadLimit(limit int64) {
	w.conn.SetReadLimit(limit)
}

func (w *connWrapper) SetReadDeadline(t time.Time) error {
	return w.conn.SetReadDeadline(t)
}

func (w *connWrapper) SetPongHandler(h func(string) error) {
	w.conn.SetPongHandler(h)
}
