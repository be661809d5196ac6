package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/park285/blundex/internal/domain"
	"github.com/park285/blundex/internal/store"
)

const maxRecentGames = 50

var ErrArchiveUnavailable = errors.New("game archive not configured")

// Close ends a session. Finished games are written to the archive and returned; an
// unfinished game with moves is archived as abandoned. An empty game is simply dropped.
func (r *Registry) Close(ctx context.Context, id string) (*domain.ArchivedGame, error) {
	e, err := r.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	game := r.archivedGame(e)
	e.mu.Unlock()

	var archived *domain.ArchivedGame
	if game != nil && r.deps.Archive != nil {
		gameID, err := r.deps.Archive.InsertGame(ctx, game)
		switch {
		case errors.Is(err, store.ErrDuplicateGame):
			if archived, err = r.deps.Archive.GetGameBySession(ctx, id); err != nil {
				return nil, fmt.Errorf("load archived game: %w", err)
			}
		case err != nil:
			return nil, fmt.Errorf("archive game: %w", err)
		default:
			game.ID = gameID
			archived = game
		}
		if archived != nil {
			r.logger.Info("session_archived",
				zap.String("session_id", id),
				zap.Int64("game_id", archived.ID),
				zap.String("result", archived.Result),
				zap.String("termination", archived.Termination),
			)
		}
	}

	if err := r.Drop(ctx, id); err != nil {
		return archived, err
	}
	return archived, nil
}

func (r *Registry) archivedGame(e *entry) *domain.ArchivedGame {
	moves := e.sess.UCIMoves()
	if len(moves) == 0 {
		return nil
	}
	termination := domain.TerminationAbandoned
	switch {
	case e.sess.IsCheckmate():
		termination = domain.TerminationCheckmate
	case e.sess.IsStalemate():
		termination = domain.TerminationStalemate
	}
	ended := r.now()
	return &domain.ArchivedGame{
		SessionID:   e.id,
		White:       e.white,
		Black:       e.black,
		Result:      e.sess.Outcome(),
		Termination: termination,
		MovesUCI:    moves,
		MovesSAN:    e.sess.SANMoves(),
		PGN:         r.exportGame(e).String(),
		StartedAt:   e.createdAt,
		EndedAt:     ended,
		Duration:    ended.Sub(e.createdAt),
	}
}

func (r *Registry) RecentGames(ctx context.Context, limit int) ([]*domain.ArchivedGame, error) {
	if r.deps.Archive == nil {
		return nil, ErrArchiveUnavailable
	}
	if limit <= 0 || limit > maxRecentGames {
		limit = maxRecentGames
	}
	return r.deps.Archive.RecentGames(ctx, limit)
}

// Game returns an archived game, or nil when id is unknown.
func (r *Registry) Game(ctx context.Context, id int64) (*domain.ArchivedGame, error) {
	if r.deps.Archive == nil {
		return nil, ErrArchiveUnavailable
	}
	return r.deps.Archive.GetGame(ctx, id)
}
