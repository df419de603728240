package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/freetex/texsync/internal/domain"
)

func TestGetOrCreateSeedsTemplate(t *testing.T) {
	repo := NewDocumentRepository(10, time.Hour, nil)

	doc, err := repo.GetOrCreate(context.Background(), "abc")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if !strings.Contains(doc.Content, `\title{Collaborative Document - abc}`) {
		t.Errorf("template title should contain the room ID, got:\n%s", doc.Content)
	}
	if doc.LastModified.IsZero() {
		t.Error("LastModified should be set on creation")
	}
	if doc.LastEditorName != "" {
		t.Errorf("LastEditorName should be unset before any edit, got %q", doc.LastEditorName)
	}
}

func TestGetOrCreateReturnsExisting(t *testing.T) {
	repo := NewDocumentRepository(10, time.Hour, nil)
	ctx := context.Background()

	if _, err := repo.GetOrCreate(ctx, "abc"); err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if _, ok := repo.Replace(ctx, "abc", "hello", "Bob"); !ok {
		t.Fatal("Replace on existing room should be stored")
	}

	doc, err := repo.GetOrCreate(ctx, "abc")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if doc.Content != "hello" {
		t.Errorf("second GetOrCreate should return the edited document, got %q", doc.Content)
	}
}

func TestReplaceLastWriteWins(t *testing.T) {
	repo := NewDocumentRepository(10, time.Hour, nil)
	ctx := context.Background()

	if _, err := repo.GetOrCreate(ctx, "abc"); err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	repo.Replace(ctx, "abc", "first", "Alice")
	doc, ok := repo.Replace(ctx, "abc", "second", "Bob")
	if !ok {
		t.Fatal("Replace should be stored")
	}
	if doc.Content != "second" {
		t.Errorf("expected last write to win, got %q", doc.Content)
	}
	if doc.LastEditorName != "Bob" {
		t.Errorf("expected LastEditorName Bob, got %q", doc.LastEditorName)
	}
}

func TestReplaceDropsStaleWrites(t *testing.T) {
	repo := NewDocumentRepository(10, time.Hour, nil)

	if _, ok := repo.Replace(context.Background(), "never-joined", "x", "Alice"); ok {
		t.Error("Replace on a room that was never joined should be dropped")
	}
	if repo.Len() != 0 {
		t.Errorf("dropped write must not create a document, have %d", repo.Len())
	}
}

func TestGetUnknownRoom(t *testing.T) {
	repo := NewDocumentRepository(10, time.Hour, nil)

	if _, err := repo.Get(context.Background(), "missing"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Errorf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestEvictIdleSkipsActiveRooms(t *testing.T) {
	repo := NewDocumentRepository(10, 10*time.Millisecond, nil)
	ctx := context.Background()

	repo.GetOrCreate(ctx, "busy")
	repo.GetOrCreate(ctx, "abandoned")

	time.Sleep(30 * time.Millisecond)

	evicted := repo.EvictIdle(map[string]struct{}{"busy": {}})
	if evicted != 1 {
		t.Fatalf("expected 1 eviction, got %d", evicted)
	}
	if _, err := repo.Get(ctx, "busy"); err != nil {
		t.Error("room with sessions must survive eviction")
	}
	if _, err := repo.Get(ctx, "abandoned"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Error("idle empty room should have been evicted")
	}
}

func TestEvictIdleKeepsFreshRooms(t *testing.T) {
	repo := NewDocumentRepository(10, time.Hour, nil)
	ctx := context.Background()

	repo.GetOrCreate(ctx, "fresh")

	if evicted := repo.EvictIdle(map[string]struct{}{}); evicted != 0 {
		t.Errorf("fresh room should not be evicted, got %d", evicted)
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	repo := NewDocumentRepository(3, time.Hour, nil)
	ctx := context.Background()

	for _, id := range []string{"r1", "r2", "r3", "r4"} {
		repo.GetOrCreate(ctx, id)
		time.Sleep(time.Millisecond)
	}

	if repo.Len() != 3 {
		t.Fatalf("expected store capped at 3, have %d", repo.Len())
	}
	if _, err := repo.Get(ctx, "r1"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Error("oldest room should have been evicted to make space")
	}
	if _, err := repo.Get(ctx, "r4"); err != nil {
		t.Error("newest room should still be present")
	}
}

func TestCapacityEvictionSkipsOccupiedRooms(t *testing.T) {
	occupied := map[string]struct{}{"r1": {}}
	repo := NewDocumentRepository(2, time.Hour, func() map[string]struct{} { return occupied })
	ctx := context.Background()

	repo.GetOrCreate(ctx, "r1")
	repo.Replace(ctx, "r1", "edited", "Alice")
	time.Sleep(time.Millisecond)
	repo.GetOrCreate(ctx, "r2")
	time.Sleep(time.Millisecond)
	repo.GetOrCreate(ctx, "r3")

	// r1 is the oldest write but has sessions; r2 goes instead.
	doc, err := repo.Get(ctx, "r1")
	if err != nil {
		t.Fatal("room with sessions must survive capacity eviction")
	}
	if doc.Content != "edited" {
		t.Errorf("occupied room must keep its edits, got %q", doc.Content)
	}
	if _, err := repo.Get(ctx, "r2"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Error("oldest unoccupied room should have been evicted instead")
	}
	if _, err := repo.Get(ctx, "r3"); err != nil {
		t.Error("newly created room should be present")
	}
}

func TestCapacityOverflowsWhenAllRoomsOccupied(t *testing.T) {
	occupied := map[string]struct{}{"r1": {}, "r2": {}}
	repo := NewDocumentRepository(2, time.Hour, func() map[string]struct{} { return occupied })
	ctx := context.Background()

	repo.GetOrCreate(ctx, "r1")
	repo.GetOrCreate(ctx, "r2")
	repo.GetOrCreate(ctx, "r3")

	if repo.Len() != 3 {
		t.Fatalf("store should exceed capacity rather than evict occupied rooms, have %d", repo.Len())
	}
}
