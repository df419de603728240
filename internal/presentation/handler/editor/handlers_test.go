package editor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/freetex/texsync/internal/infrastructure/repository"
	"github.com/freetex/texsync/internal/infrastructure/ws"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := zap.NewNop().Sugar()
	roster := ws.NewRoster()
	repo := repository.NewDocumentRepository(10, time.Hour, roster.ActiveRooms)
	core := ws.NewCore(repo, roster, 0, time.Hour, logger)
	go core.Run()
	t.Cleanup(core.Stop)

	handler := NewHandler(repo, roster, core, 8, logger)

	r := chi.NewRouter()
	r.Get("/ws", handler.ServeWS)
	r.Get("/v1/rooms/{roomId}", handler.GetRoomHandler)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()

	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshaling payload: %v", err)
		}
		data = b
	}
	if err := conn.WriteJSON(ws.Frame{Event: event, Data: data}); err != nil {
		t.Fatalf("writing %s: %v", event, err)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn, event string) ws.Frame {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f ws.Frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("reading %s: %v", event, err)
	}
	if f.Event != event {
		t.Fatalf("expected event %q, got %q", event, f.Event)
	}
	return f
}

func TestSessionOverRealSocket(t *testing.T) {
	srv := newTestServer(t)

	alice := dial(t, srv)
	sendEvent(t, alice, ws.EventJoinRoom, ws.JoinRoomPayload{RoomID: "abc", UserName: "Alice"})
	readEvent(t, alice, ws.EventUsersList)

	sendEvent(t, alice, ws.EventClientReady, nil)
	frame := readEvent(t, alice, ws.EventDocumentContent)

	var doc ws.DocumentContentPayload
	if err := json.Unmarshal(frame.Data, &doc); err != nil {
		t.Fatalf("decoding document: %v", err)
	}
	if !strings.Contains(doc.Content, "abc") {
		t.Errorf("template should mention the room ID")
	}

	bob := dial(t, srv)
	sendEvent(t, bob, ws.EventJoinRoom, ws.JoinRoomPayload{RoomID: "abc", UserName: "Bob"})
	readEvent(t, bob, ws.EventUsersList)
	readEvent(t, alice, ws.EventUserJoined)
	readEvent(t, alice, ws.EventUsersList)

	sendEvent(t, bob, ws.EventTextChange, ws.TextChangePayload{
		RoomID:    "abc",
		Content:   "hello",
		Operation: "insert",
	})

	frame = readEvent(t, alice, ws.EventTextChange)
	var change ws.TextChangeBroadcast
	if err := json.Unmarshal(frame.Data, &change); err != nil {
		t.Fatalf("decoding text-change: %v", err)
	}
	if change.Content != "hello" || change.UserName != "Bob" {
		t.Fatalf("unexpected broadcast: %+v", change)
	}

	// the snapshot endpoint sees the same state
	resp, err := http.Get(srv.URL + "/v1/rooms/abc")
	if err != nil {
		t.Fatalf("GET room: %v", err)
	}
	defer resp.Body.Close()

	var snapshot struct {
		Content      string `json:"content"`
		Participants []struct {
			UserName string `json:"userName"`
		} `json:"participants"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	if snapshot.Content != "hello" {
		t.Errorf("expected snapshot content hello, got %q", snapshot.Content)
	}
	if len(snapshot.Participants) != 2 {
		t.Errorf("expected 2 participants, got %d", len(snapshot.Participants))
	}

	// closing bob notifies alice
	bob.Close()
	readEvent(t, alice, ws.EventUserLeft)
	readEvent(t, alice, ws.EventUsersList)
}
