package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/park285/blundex/internal/domain"
)

func newTestStore(t *testing.T) (*SnapshotStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	s, err := NewSnapshotStore(context.Background(), fmt.Sprintf("redis://%s/0", mr.Addr()), time.Hour, nil)
	if err != nil {
		t.Fatalf("NewSnapshotStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestSnapshotSaveLoad(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	snap := &domain.SessionSnapshot{
		ID:        "abc",
		MovesUCI:  []string{"e2e4", "e7e5"},
		RedoUCI:   []string{"g1f3"},
		White:     "Ann",
		Version:   1,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := s.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(ctx, "abc")
	if err != nil || got == nil {
		t.Fatalf("Load: %v %v", got, err)
	}
	if len(got.MovesUCI) != 2 || got.MovesUCI[1] != "e7e5" || got.RedoUCI[0] != "g1f3" || got.White != "Ann" {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
	if !got.CreatedAt.Equal(snap.CreatedAt) {
		t.Fatalf("created_at mismatch: %v vs %v", got.CreatedAt, snap.CreatedAt)
	}
	if ttl := mr.TTL(snapshotKey("abc")); ttl != time.Hour {
		t.Fatalf("ttl = %v, want 1h", ttl)
	}
}

func TestSnapshotLoadMissing(t *testing.T) {
	s, _ := newTestStore(t)
	got, err := s.Load(context.Background(), "nope")
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil; got %v, %v", got, err)
	}
}

func TestSnapshotVersionConflict(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, &domain.SessionSnapshot{ID: "g", Version: 1}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := s.Save(ctx, &domain.SessionSnapshot{ID: "g", Version: 2, MovesUCI: []string{"d2d4"}}); err != nil {
		t.Fatalf("second save: %v", err)
	}
	// a writer still holding version 1
	err := s.Save(ctx, &domain.SessionSnapshot{ID: "g", Version: 2, MovesUCI: []string{"c2c4"}})
	if !errors.Is(err, ErrSnapshotConflict) {
		t.Fatalf("expected ErrSnapshotConflict, got %v", err)
	}
	got, _ := s.Load(ctx, "g")
	if got.MovesUCI[0] != "d2d4" {
		t.Fatalf("conflicting write landed: %+v", got)
	}

	if err := s.Save(ctx, &domain.SessionSnapshot{ID: "fresh", Version: 3}); !errors.Is(err, ErrSnapshotConflict) {
		t.Fatalf("expected conflict for unseen id at version 3, got %v", err)
	}
}

func TestSnapshotExpires(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	if err := s.Save(ctx, &domain.SessionSnapshot{ID: "old", Version: 1}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	mr.FastForward(2 * time.Hour)
	if got, _ := s.Load(ctx, "old"); got != nil {
		t.Fatalf("expected expiry, got %+v", got)
	}
}

func TestSnapshotDeleteAndIDs(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if err := s.Save(ctx, &domain.SessionSnapshot{ID: id, Version: 1}); err != nil {
			t.Fatalf("Save %s: %v", id, err)
		}
	}
	if err := s.Delete(ctx, "b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ids, err := s.IDs(ctx)
	if err != nil {
		t.Fatalf("IDs: %v", err)
	}
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "c" {
		t.Fatalf("ids = %v", ids)
	}
}

func TestNewSnapshotStoreRejectsBadURL(t *testing.T) {
	if _, err := NewSnapshotStore(context.Background(), "", 0, nil); err == nil {
		t.Fatalf("expected error for empty url")
	}
	if _, err := NewSnapshotStore(context.Background(), "http://localhost:6379", 0, nil); err == nil {
		t.Fatalf("expected error for http scheme")
	}
}
