package store

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/park285/blundex/internal/domain"
)

// MemoryArchive is the archive used when no database is configured. Contents are lost on
// restart.
type MemoryArchive struct {
	mu sync.RWMutex

	nextID int64

	byID      map[int64]*domain.ArchivedGame
	bySession map[string]*domain.ArchivedGame
}

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{
		byID:      make(map[int64]*domain.ArchivedGame),
		bySession: make(map[string]*domain.ArchivedGame),
	}
}

func (m *MemoryArchive) InsertGame(ctx context.Context, game *domain.ArchivedGame) (int64, error) {
	if game == nil {
		return 0, ErrDuplicateGame
	}
	key := strings.TrimSpace(game.SessionID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.bySession[key]; exists {
		return 0, ErrDuplicateGame
	}

	m.nextID++
	stored := cloneGame(game)
	stored.ID = m.nextID

	m.byID[stored.ID] = stored
	m.bySession[key] = stored
	return stored.ID, nil
}

func (m *MemoryArchive) GetGame(ctx context.Context, id int64) (*domain.ArchivedGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.byID[id]; ok {
		return cloneGame(g), nil
	}
	return nil, nil
}

func (m *MemoryArchive) GetGameBySession(ctx context.Context, sessionID string) (*domain.ArchivedGame, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.bySession[strings.TrimSpace(sessionID)]; ok {
		return cloneGame(g), nil
	}
	return nil, nil
}

// RecentGames returns games by EndedAt descending, newest id first on ties.
func (m *MemoryArchive) RecentGames(ctx context.Context, limit int) ([]*domain.ArchivedGame, error) {
	m.mu.RLock()
	items := make([]*domain.ArchivedGame, 0, len(m.byID))
	for _, g := range m.byID {
		items = append(items, cloneGame(g))
	}
	m.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return items[i].ID > items[j].ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func cloneGame(g *domain.ArchivedGame) *domain.ArchivedGame {
	c := *g
	c.MovesUCI = slices.Clone(g.MovesUCI)
	c.MovesSAN = slices.Clone(g.MovesSAN)
	return &c
}
