package store

import (
	"context"
	"errors"

	"github.com/park285/blundex/internal/domain"
)

var ErrDuplicateGame = errors.New("game already archived")

// Archive stores finished games. Lookups return nil, nil when nothing matches.
type Archive interface {
	InsertGame(ctx context.Context, game *domain.ArchivedGame) (int64, error)
	GetGame(ctx context.Context, id int64) (*domain.ArchivedGame, error)
	GetGameBySession(ctx context.Context, sessionID string) (*domain.ArchivedGame, error)
	RecentGames(ctx context.Context, limit int) ([]*domain.ArchivedGame, error)
}

var (
	_ Archive = (*PostgresArchive)(nil)
	_ Archive = (*MemoryArchive)(nil)
)
