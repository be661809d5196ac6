package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/park285/blundex/internal/domain"
)

// Runs only against a live database: BLUNDEX_TEST_DATABASE_URL=postgres://...
func newTestArchive(t *testing.T) *PostgresArchive {
	t.Helper()
	dsn := os.Getenv("BLUNDEX_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("BLUNDEX_TEST_DATABASE_URL not set")
	}
	a, err := OpenPostgresArchive(context.Background(), dsn)
	if err != nil {
		t.Fatalf("OpenPostgresArchive: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestPostgresArchiveRoundTrip(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	sid := uuid.NewString()
	ended := time.Now().UTC().Truncate(time.Millisecond)
	in := &domain.ArchivedGame{
		SessionID:   sid,
		White:       "Ann",
		Black:       "Bo",
		Result:      "0-1",
		Termination: domain.TerminationCheckmate,
		MovesUCI:    []string{"f2f3", "e7e5", "g2g4", "d8h4"},
		MovesSAN:    []string{"f3", "e5", "g4", "Qh4#"},
		PGN:         "1. f3 e5 2. g4 Qh4# 0-1",
		StartedAt:   ended.Add(-time.Minute),
		EndedAt:     ended,
		Duration:    time.Minute,
	}
	id, err := a.InsertGame(ctx, in)
	if err != nil {
		t.Fatalf("InsertGame: %v", err)
	}
	if _, err := a.InsertGame(ctx, in); !errors.Is(err, ErrDuplicateGame) {
		t.Fatalf("expected ErrDuplicateGame, got %v", err)
	}

	got, err := a.GetGameBySession(ctx, sid)
	if err != nil || got == nil {
		t.Fatalf("GetGameBySession: %v %v", got, err)
	}
	if got.ID != id || got.Result != "0-1" || len(got.MovesSAN) != 4 || got.Duration != time.Minute {
		t.Fatalf("unexpected row: %+v", got)
	}

	if miss, err := a.GetGame(ctx, -1); miss != nil || err != nil {
		t.Fatalf("expected nil, nil; got %v %v", miss, err)
	}
}
