package ws

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/freetex/texsync/internal/domain"
)

type inbound struct {
	client *Client
	frame  Frame
}

// Core is the per-room synchronization engine. A single Run goroutine
// applies every session event, so a join, an edit or a cursor move is
// always an indivisible unit with respect to the roster and the document
// store. Read pumps feed it in per-connection FIFO order.
type Core struct {
	docs   domain.DocumentRepository
	roster *Roster

	register   chan *Client
	unregister chan *Client
	events     chan inbound
	done       chan struct{}
	stopOnce   sync.Once

	readLimit     int64
	sweepInterval time.Duration

	logger *zap.SugaredLogger
}

func NewCore(docs domain.DocumentRepository, roster *Roster, readLimit int64, sweepInterval time.Duration, logger *zap.SugaredLogger) *Core {
	if readLimit <= 0 {
		readLimit = 1 << 20
	}
	if sweepInterval <= 0 {
		sweepInterval = 5 * time.Minute
	}
	return &Core{
		docs:          docs,
		roster:        roster,
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		events:        make(chan inbound),
		done:          make(chan struct{}),
		readLimit:     readLimit,
		sweepInterval: sweepInterval,
		logger:        logger,
	}
}

func (c *Core) Register() chan<- *Client   { return c.register }
func (c *Core) Unregister() chan<- *Client { return c.unregister }

func (c *Core) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

func (c *Core) Run() {
	sweep := time.NewTicker(c.sweepInterval)
	defer sweep.Stop()

	for {
		select {
		case client := <-c.register:
			c.logger.Debugw("session connected", "session", client.id)

		case client := <-c.unregister:
			c.handleDisconnect(client)

		case in := <-c.events:
			c.handle(in.client, in.frame)

		case <-sweep.C:
			if n := c.docs.EvictIdle(c.roster.ActiveRooms()); n > 0 {
				c.logger.Infow("evicted idle rooms", "count", n)
			}

		case <-c.done:
			return
		}
	}
}

func (c *Core) handle(cl *Client, frame Frame) {
	if cl.closed {
		return
	}

	switch frame.Event {
	case EventJoinRoom:
		c.handleJoin(cl, frame.Data)
	case EventClientReady:
		c.handleReady(cl)
	case EventTextChange:
		c.handleTextChange(cl, frame.Data)
	case EventCursorPosition:
		c.handleCursorPosition(cl, frame.Data)
	default:
		c.logger.Debugw("dropping unknown event", "event", frame.Event, "session", cl.id)
	}
}

// handleJoin binds the session to a room, materializes the document and
// announces the newcomer. Requests with a missing room or name are dropped
// without a client-visible error; a second join on a bound session is
// rejected explicitly.
func (c *Core) handleJoin(cl *Client, raw json.RawMessage) {
	var p JoinRoomPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		c.logger.Debugw("dropping malformed join-room", "session", cl.id, "error", err)
		return
	}
	p.RoomID = strings.TrimSpace(p.RoomID)
	p.UserName = strings.TrimSpace(p.UserName)
	if p.RoomID == "" || p.UserName == "" {
		c.logger.Warnw("join-room missing roomId or userName", "session", cl.id)
		return
	}

	if cl.roomID != "" {
		cl.queue(marshalFrame(EventError, ErrorPayload{
			Code:    ErrCodeAlreadyJoined,
			Message: "session is already in a room",
		}))
		c.logger.Warnw("rejected repeated join-room", "session", cl.id, "room", cl.roomID, "requested", p.RoomID)
		return
	}

	cl.name = p.UserName
	cl.roomID = p.RoomID
	c.roster.Add(p.RoomID, cl, p.UserName)

	if _, err := c.docs.GetOrCreate(context.Background(), p.RoomID); err != nil {
		c.logger.Errorw("materializing document failed", "room", p.RoomID, "error", err)
	}

	c.broadcast(p.RoomID, cl.id, marshalFrame(EventUserJoined, UserEventPayload{
		UserID:   cl.id,
		UserName: cl.name,
	}))
	c.broadcast(p.RoomID, "", marshalFrame(EventUsersList, c.roster.Snapshot(p.RoomID)))

	c.logger.Infow("user joined room", "room", p.RoomID, "user", p.UserName, "session", cl.id)
}

// handleReady delivers the current document once the client has finished
// its own setup. The push used to race client initialization when it was
// fired straight from the join; the explicit ready signal removes that.
func (c *Core) handleReady(cl *Client) {
	if cl.roomID == "" || cl.delivered {
		c.logger.Debugw("dropping client-ready", "session", cl.id, "bound", cl.roomID != "")
		return
	}

	doc, err := c.docs.Get(context.Background(), cl.roomID)
	if err != nil {
		c.logger.Errorw("loading document failed", "room", cl.roomID, "error", err)
		return
	}

	cl.delivered = cl.queue(marshalFrame(EventDocumentContent, DocumentContentPayload{
		Content:      doc.Content,
		LastModified: doc.LastModified.UnixMilli(),
	}))
}

// handleTextChange overwrites the room document and fans the edit out to
// everyone but the sender, who already applied it locally. Writes against
// a room the session is not bound to are dropped.
func (c *Core) handleTextChange(cl *Client, raw json.RawMessage) {
	var p TextChangePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		c.logger.Debugw("dropping malformed text-change", "session", cl.id, "error", err)
		return
	}
	if cl.roomID == "" || p.RoomID != cl.roomID {
		c.logger.Debugw("dropping text-change for unbound room", "session", cl.id, "room", p.RoomID)
		return
	}

	doc, ok := c.docs.Replace(context.Background(), cl.roomID, p.Content, cl.name)
	if !ok {
		c.logger.Debugw("dropping stale text-change", "session", cl.id, "room", cl.roomID)
		return
	}

	c.broadcast(cl.roomID, cl.id, marshalFrame(EventTextChange, TextChangeBroadcast{
		Content:   p.Content,
		Operation: p.Operation,
		UserID:    cl.id,
		UserName:  cl.name,
		Timestamp: doc.LastModified.UnixMilli(),
	}))
}

func (c *Core) handleCursorPosition(cl *Client, raw json.RawMessage) {
	var p CursorPositionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		c.logger.Debugw("dropping malformed cursor-position", "session", cl.id, "error", err)
		return
	}
	if cl.roomID == "" || p.RoomID != cl.roomID {
		return
	}
	if !c.roster.UpdateCursor(cl.roomID, cl.id, p.Position) {
		return
	}

	c.broadcast(cl.roomID, cl.id, marshalFrame(EventCursorUpdate, CursorUpdatePayload{
		UserID:   cl.id,
		UserName: cl.name,
		Position: p.Position,
	}))
}

func (c *Core) handleDisconnect(cl *Client) {
	if cl.closed {
		return
	}
	cl.closed = true
	close(cl.send)

	if cl.roomID == "" {
		c.logger.Debugw("session disconnected", "session", cl.id)
		return
	}

	removed, _ := c.roster.Remove(cl.roomID, cl.id)
	if removed {
		c.broadcast(cl.roomID, cl.id, marshalFrame(EventUserLeft, UserEventPayload{
			UserID:   cl.id,
			UserName: cl.name,
		}))
		c.broadcast(cl.roomID, "", marshalFrame(EventUsersList, c.roster.Snapshot(cl.roomID)))
	}

	c.logger.Infow("user left room", "room", cl.roomID, "user", cl.name, "session", cl.id)
}

// broadcast fans a frame out to a room, optionally excluding the
// originator. Slow clients have the frame dropped rather than stalling
// the loop.
func (c *Core) broadcast(roomID, excludeID string, frame []byte) {
	if frame == nil {
		return
	}
	for _, cl := range c.roster.Clients(roomID) {
		if cl.id == excludeID {
			continue
		}
		if !cl.queue(frame) {
			c.logger.Warnw("send buffer full, dropping frame", "session", cl.id, "room", roomID)
		}
	}
}
