package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/blundex/internal/domain"
)

const schema = `
	CREATE TABLE IF NOT EXISTS blundex_games (
		id           BIGSERIAL PRIMARY KEY,
		session_id   TEXT NOT NULL UNIQUE,
		white        TEXT NOT NULL DEFAULT '',
		black        TEXT NOT NULL DEFAULT '',
		result       TEXT NOT NULL,
		termination  TEXT NOT NULL DEFAULT '',
		moves_uci    JSONB NOT NULL,
		moves_san    JSONB NOT NULL,
		pgn          TEXT NOT NULL,
		started_at   TIMESTAMPTZ NOT NULL,
		ended_at     TIMESTAMPTZ NOT NULL,
		duration_ms  BIGINT
	)`

const selectGame = `
	SELECT
		id,
		session_id,
		white,
		black,
		result,
		termination,
		moves_uci,
		moves_san,
		pgn,
		started_at,
		ended_at,
		duration_ms
	FROM blundex_games`

// PostgresArchive keeps finished games in the blundex_games table.
type PostgresArchive struct {
	db *sql.DB
}

// OpenPostgresArchive opens databaseURL with the lib/pq driver, pings it and makes sure
// the table exists.
func OpenPostgresArchive(ctx context.Context, databaseURL string) (*PostgresArchive, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the archive")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	a := NewPostgresArchive(db)
	if err := a.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return a, nil
}

func NewPostgresArchive(db *sql.DB) *PostgresArchive {
	return &PostgresArchive{db: db}
}

func (a *PostgresArchive) EnsureSchema(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create blundex_games: %w", err)
	}
	return nil
}

func (a *PostgresArchive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *PostgresArchive) InsertGame(ctx context.Context, game *domain.ArchivedGame) (int64, error) {
	if game == nil {
		return 0, fmt.Errorf("nil archived game")
	}

	movesUCI, err := json.Marshal(nonNil(game.MovesUCI))
	if err != nil {
		return 0, fmt.Errorf("marshal moves_uci: %w", err)
	}
	movesSAN, err := json.Marshal(nonNil(game.MovesSAN))
	if err != nil {
		return 0, fmt.Errorf("marshal moves_san: %w", err)
	}

	const query = `
		INSERT INTO blundex_games (
			session_id,
			white,
			black,
			result,
			termination,
			moves_uci,
			moves_san,
			pgn,
			started_at,
			ended_at,
			duration_ms
		)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb, $8, $9, $10, $11)
		ON CONFLICT (session_id) DO NOTHING
		RETURNING id`

	var id sql.NullInt64
	err = a.db.QueryRowContext(
		ctx,
		query,
		game.SessionID,
		game.White,
		game.Black,
		game.Result,
		game.Termination,
		movesUCI,
		movesSAN,
		game.PGN,
		game.StartedAt,
		game.EndedAt,
		game.Duration.Milliseconds(),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !id.Valid) {
		return 0, ErrDuplicateGame
	}
	if err != nil {
		return 0, fmt.Errorf("insert archived game: %w", err)
	}
	return id.Int64, nil
}

func (a *PostgresArchive) GetGame(ctx context.Context, id int64) (*domain.ArchivedGame, error) {
	return a.getOne(ctx, selectGame+` WHERE id = $1`, id)
}

func (a *PostgresArchive) GetGameBySession(ctx context.Context, sessionID string) (*domain.ArchivedGame, error) {
	return a.getOne(ctx, selectGame+` WHERE session_id = $1`, strings.TrimSpace(sessionID))
}

func (a *PostgresArchive) RecentGames(ctx context.Context, limit int) ([]*domain.ArchivedGame, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := a.db.QueryContext(ctx, selectGame+` ORDER BY ended_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select archived games: %w", err)
	}
	defer rows.Close()

	games := make([]*domain.ArchivedGame, 0, limit)
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archived games: %w", err)
	}
	return games, nil
}

func (a *PostgresArchive) getOne(ctx context.Context, query string, arg any) (*domain.ArchivedGame, error) {
	game, err := scanGame(a.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return game, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*domain.ArchivedGame, error) {
	var (
		game         domain.ArchivedGame
		movesUCIJSON []byte
		movesSANJSON []byte
		durationMS   sql.NullInt64
	)
	err := row.Scan(
		&game.ID,
		&game.SessionID,
		&game.White,
		&game.Black,
		&game.Result,
		&game.Termination,
		&movesUCIJSON,
		&movesSANJSON,
		&game.PGN,
		&game.StartedAt,
		&game.EndedAt,
		&durationMS,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan archived game: %w", err)
	}
	if durationMS.Valid {
		game.Duration = time.Duration(durationMS.Int64) * time.Millisecond
	}
	if err := json.Unmarshal(movesUCIJSON, &game.MovesUCI); err != nil {
		return nil, fmt.Errorf("unmarshal moves_uci: %w", err)
	}
	if err := json.Unmarshal(movesSANJSON, &game.MovesSAN); err != nil {
		return nil, fmt.Errorf("unmarshal moves_san: %w", err)
	}
	return &game, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
