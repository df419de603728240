package ws

import (
	"sort"
	"sync"

	"github.com/freetex/texsync/internal/domain"
)

type rosterEntry struct {
	client *Client
	name   string
	cursor int
	seq    uint64 // join order within the room
}

// Roster tracks which sessions are in which room, along with the presence
// state (display name, last cursor offset) each one reported. It has its
// own lock because the HTTP snapshot endpoint and expvar gauges read it
// outside the core loop.
type Roster struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*rosterEntry // roomID -> sessionID -> entry
	seq   uint64
}

func NewRoster() *Roster {
	return &Roster{rooms: make(map[string]map[string]*rosterEntry)}
}

// Add registers a session in a room. Re-adding the same session overwrites
// its record and resets the cursor.
func (r *Roster) Add(roomID string, c *Client, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, ok := r.rooms[roomID]
	if !ok {
		sessions = make(map[string]*rosterEntry)
		r.rooms[roomID] = sessions
	}
	r.seq++
	sessions[c.id] = &rosterEntry{client: c, name: name, seq: r.seq}
}

// Remove deletes a session record. It reports whether the record existed
// and whether the room is now empty.
func (r *Roster) Remove(roomID, sessionID string) (removed, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, ok := r.rooms[roomID]
	if !ok {
		return false, false
	}
	if _, ok := sessions[sessionID]; !ok {
		return false, len(sessions) == 0
	}
	delete(sessions, sessionID)
	if len(sessions) == 0 {
		delete(r.rooms, roomID)
		return true, true
	}
	return true, false
}

// UpdateCursor records the session's caret offset, ignored when the
// session is not in that room.
func (r *Roster) UpdateCursor(roomID, sessionID string, offset int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	entry, ok := sessions[sessionID]
	if !ok {
		return false
	}
	entry.cursor = offset
	return true
}

// Snapshot returns the room's presence list in join order. Unknown rooms
// yield an empty list.
func (r *Roster) Snapshot(roomID string) []domain.Presence {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := r.rooms[roomID]
	entries := make([]*rosterEntry, 0, len(sessions))
	for _, e := range sessions {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	out := make([]domain.Presence, 0, len(entries))
	for _, e := range entries {
		out = append(out, domain.Presence{UserID: e.client.id, UserName: e.name})
	}
	return out
}

// Clients returns the connected clients of a room for fan-out.
func (r *Roster) Clients(roomID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := r.rooms[roomID]
	out := make([]*Client, 0, len(sessions))
	for _, e := range sessions {
		out = append(out, e.client)
	}
	return out
}

// ActiveRooms returns the set of rooms that still have sessions, used to
// shield them from idle eviction.
func (r *Roster) ActiveRooms() map[string]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]struct{}, len(r.rooms))
	for id := range r.rooms {
		out[id] = struct{}{}
	}
	return out
}

func (r *Roster) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func (r *Roster) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, sessions := range r.rooms {
		n += len(sessions)
	}
	return n
}
