package repository

import (
	"context"
	"sync"
	"time"

	"github.com/freetex/texsync/internal/domain"
)

type documentRepository struct {
	docs       map[string]*domain.Document // roomID -> Document
	lastAccess map[string]time.Time        // roomID -> last read/write time
	capacity   uint
	idleExpiry time.Duration
	active     func() map[string]struct{} // rooms with connected sessions
	mu         *sync.RWMutex
}

// NewDocumentRepository builds an in-memory store. active reports the rooms
// that currently have sessions; their documents are never evicted. A nil
// active treats every room as unoccupied.
func NewDocumentRepository(capacity uint, idleExpiry time.Duration, active func() map[string]struct{}) domain.DocumentRepository {
	if capacity == 0 {
		capacity = 100
	}
	if idleExpiry == 0 {
		idleExpiry = 30 * time.Minute
	}

	return &documentRepository{
		docs:       make(map[string]*domain.Document),
		lastAccess: make(map[string]time.Time),
		capacity:   capacity,
		idleExpiry: idleExpiry,
		active:     active,
		mu:         &sync.RWMutex{},
	}
}

func (r *documentRepository) touch(roomID string) {
	r.lastAccess[roomID] = time.Now()
}

// enforceCapacity drops oldest-accessed documents until the store fits.
// Rooms with connected sessions are skipped, like in EvictIdle; when every
// room is occupied the store is allowed to exceed its capacity.
func (r *documentRepository) enforceCapacity() {
	if uint(len(r.docs)) < r.capacity {
		return
	}

	occupied := map[string]struct{}{}
	if r.active != nil {
		occupied = r.active()
	}

	for uint(len(r.docs)) >= r.capacity {
		var (
			oldestID string
			oldestAt time.Time
		)
		for id, at := range r.lastAccess {
			if _, inUse := occupied[id]; inUse {
				continue
			}
			if oldestID == "" || at.Before(oldestAt) {
				oldestID, oldestAt = id, at
			}
		}
		if oldestID == "" {
			return
		}
		delete(r.docs, oldestID)
		delete(r.lastAccess, oldestID)
	}
}

// GetOrCreate returns the room's document, seeding a fresh template on the
// first join of a room.
func (r *documentRepository) GetOrCreate(ctx context.Context, roomID string) (*domain.Document, error) {
	if roomID == "" {
		return nil, domain.ErrInvalidInput
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, exists := r.docs[roomID]
	if !exists {
		r.enforceCapacity()
		doc = domain.NewDocument(roomID)
		r.docs[roomID] = doc
	}
	r.touch(roomID)

	cpy := *doc
	return &cpy, nil
}

// Replace overwrites the document body. Writes to rooms that were never
// joined are dropped, reported by the second return value.
func (r *documentRepository) Replace(ctx context.Context, roomID, content, editorName string) (*domain.Document, bool) {
	if roomID == "" {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, exists := r.docs[roomID]
	if !exists {
		return nil, false
	}

	doc.Content = content
	doc.LastModified = time.Now()
	doc.LastEditorName = editorName
	r.touch(roomID)

	cpy := *doc
	return &cpy, true
}

func (r *documentRepository) Get(ctx context.Context, roomID string) (*domain.Document, error) {
	if roomID == "" {
		return nil, domain.ErrInvalidInput
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, exists := r.docs[roomID]
	if !exists {
		return nil, domain.ErrRoomNotFound
	}

	cpy := *doc
	return &cpy, nil
}

// EvictIdle deletes documents whose rooms have been idle past the expiry
// and are not in the active set. Rooms with connected sessions survive
// regardless of idle time.
func (r *documentRepository) EvictIdle(active map[string]struct{}) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-r.idleExpiry)
	evicted := 0
	for id, last := range r.lastAccess {
		if _, inUse := active[id]; inUse {
			continue
		}
		if last.Before(cutoff) {
			delete(r.docs, id)
			delete(r.lastAccess, id)
			evicted++
		}
	}
	return evicted
}

func (r *documentRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}
