package editor

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/freetex/texsync/internal/domain"
	"github.com/freetex/texsync/internal/infrastructure/json"
	"github.com/freetex/texsync/internal/infrastructure/ws"
)

type Handler struct {
	docs       domain.DocumentRepository
	roster     *ws.Roster
	core       *ws.Core
	upgrader   websocket.Upgrader
	sendBuffer int
	logger     *zap.SugaredLogger
}

func NewHandler(
	docs domain.DocumentRepository,
	roster *ws.Roster,
	core *ws.Core,
	sendBuffer int,
	logger *zap.SugaredLogger,
) *Handler {
	return &Handler{
		docs:       docs,
		roster:     roster,
		core:       core,
		sendBuffer: sendBuffer,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The editor is served from arbitrary origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades the connection and starts the session pumps. Room
// binding happens on the socket via the join-room event.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnw("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := ws.NewClient(conn, uuid.NewString(), h.core, h.sendBuffer, h.logger)
	h.core.Register() <- client
	h.logger.Debugw("websocket session opened", "session", client.ID(), "remote", r.RemoteAddr)

	go client.WriteMessage()
	go client.ReadMessage()
}

// GetRoomHandler returns a read-only snapshot of a room: its document and
// the sessions currently in it.
func (h *Handler) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	if roomID == "" {
		json.WriteValidationError(w, errors.New("room ID is missing"))
		return
	}

	doc, err := h.docs.Get(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			json.WriteNotFoundError(w, err, "Room not found")
			return
		}
		json.WriteInternalError(w, err)
		return
	}

	json.Write(w, http.StatusOK, newRoomResponse(doc, h.roster.Snapshot(roomID)))
}
