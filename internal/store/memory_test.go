package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/park285/blundex/internal/domain"
)

func TestMemoryArchiveInsertAndGet(t *testing.T) {
	a := NewMemoryArchive()
	ctx := context.Background()

	g := &domain.ArchivedGame{SessionID: "s1", Result: "1-0", MovesUCI: []string{"e2e4"}}
	id, err := a.InsertGame(ctx, g)
	if err != nil || id != 1 {
		t.Fatalf("InsertGame: id=%d err=%v", id, err)
	}

	g.MovesUCI[0] = "d2d4"
	got, err := a.GetGame(ctx, id)
	if err != nil || got == nil {
		t.Fatalf("GetGame: %v %v", got, err)
	}
	if got.MovesUCI[0] != "e2e4" || got.ID != id {
		t.Fatalf("stored game aliased caller data: %+v", got)
	}

	got.Result = "0-1"
	again, _ := a.GetGameBySession(ctx, " s1 ")
	if again == nil || again.Result != "1-0" {
		t.Fatalf("GetGameBySession returned shared pointer: %+v", again)
	}

	if miss, err := a.GetGame(ctx, 99); miss != nil || err != nil {
		t.Fatalf("expected nil, nil for missing id; got %v %v", miss, err)
	}
}

func TestMemoryArchiveDuplicate(t *testing.T) {
	a := NewMemoryArchive()
	ctx := context.Background()
	if _, err := a.InsertGame(ctx, &domain.ArchivedGame{SessionID: "dup"}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := a.InsertGame(ctx, &domain.ArchivedGame{SessionID: "dup"}); !errors.Is(err, ErrDuplicateGame) {
		t.Fatalf("expected ErrDuplicateGame, got %v", err)
	}
}

func TestMemoryArchiveRecentGames(t *testing.T) {
	a := NewMemoryArchive()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, sid := range []string{"a", "b", "c", "d"} {
		end := base.Add(time.Duration(i) * time.Minute)
		if sid == "d" {
			end = base // ties with "a"; higher id wins
		}
		if _, err := a.InsertGame(ctx, &domain.ArchivedGame{SessionID: sid, EndedAt: end}); err != nil {
			t.Fatalf("insert %s: %v", sid, err)
		}
	}

	got, err := a.RecentGames(ctx, 3)
	if err != nil {
		t.Fatalf("RecentGames: %v", err)
	}
	want := []string{"c", "b", "d"}
	if len(got) != len(want) {
		t.Fatalf("len = %d", len(got))
	}
	for i := range want {
		if got[i].SessionID != want[i] {
			t.Fatalf("order[%d] = %s, want %s", i, got[i].SessionID, want[i])
		}
	}
}
