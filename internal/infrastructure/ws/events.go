package ws

import "encoding/json"

// Event names exchanged with editor clients. Inbound events carry the
// room binding; outbound events identify the acting session.
const (
	EventJoinRoom       = "join-room"
	EventClientReady    = "client-ready"
	EventTextChange     = "text-change"
	EventCursorPosition = "cursor-position"

	EventDocumentContent = "document-content"
	EventUsersList       = "users-list"
	EventUserJoined      = "user-joined"
	EventUserLeft        = "user-left"
	EventCursorUpdate    = "cursor-update"
	EventError           = "error"
)

// Frame is the wire envelope for both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type JoinRoomPayload struct {
	RoomID   string `json:"roomId"`
	UserName string `json:"userName"`
}

type TextChangePayload struct {
	RoomID    string `json:"roomId"`
	Content   string `json:"content"`
	Operation string `json:"operation"`
}

type CursorPositionPayload struct {
	RoomID   string `json:"roomId"`
	Position int    `json:"position"`
}

type DocumentContentPayload struct {
	Content      string `json:"content"`
	LastModified int64  `json:"lastModified"` // unix millis
}

type UserEventPayload struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

type TextChangeBroadcast struct {
	Content   string `json:"content"`
	Operation string `json:"operation"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	Timestamp int64  `json:"timestamp"` // unix millis
}

type CursorUpdatePayload struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Position int    `json:"position"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	ErrCodeAlreadyJoined = "already_joined"
)

// marshalFrame encodes an outbound event; payloads are plain structs so
// encoding cannot realistically fail, and a nil slice is returned if it does.
func marshalFrame(event string, payload any) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	raw, err := json.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		return nil
	}
	return raw
}
