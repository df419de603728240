package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client is one connected editor session. The connection pumps run on
// their own goroutines; name, roomID, delivered and closed are owned by
// the core event loop and must not be touched anywhere else.
type Client struct {
	id   string
	conn *connWrapper
	send chan []byte
	core *Core

	name      string // set on join
	roomID    string // empty until the session is bound to a room
	delivered bool   // document-content already pushed
	closed    bool

	logger *zap.SugaredLogger
}

func NewClient(conn *websocket.Conn, id string, core *Core, sendBuffer int, logger *zap.SugaredLogger) *Client {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	return &Client{
		id:     id,
		conn:   newConnWrapper(conn),
		send:   make(chan []byte, sendBuffer),
		core:   core,
		logger: logger,
	}
}

func (c *Client) ID() string { return c.id }

// queue hands a frame to the write pump without blocking. Frames for slow
// clients are dropped; the caller decides whether that is worth a log line.
func (c *Client) queue(frame []byte) bool {
	if frame == nil || c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// ReadMessage pumps inbound frames into the core until the connection
// drops, then hands the client over for disconnect handling.
func (c *Client) ReadMessage() {
	defer func() {
		select {
		case c.core.Unregister() <- c:
		case <-c.core.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.core.readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warnw("websocket read failed", "session", c.id, "error", err)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.logger.Debugw("dropping malformed frame", "session", c.id, "error", err)
			continue
		}

		select {
		case c.core.events <- inbound{client: c, frame: frame}:
		case <-c.core.done:
			return
		}
	}
}

// WriteMessage drains the send channel and keeps the connection alive
// with pings.
func (c *Client) WriteMessage() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
