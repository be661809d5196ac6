// Package service hosts many game sessions behind ids, persisting each one after every change.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/blundex/internal/domain"
	"github.com/park285/blundex/internal/msgcat"
	"github.com/park285/blundex/internal/pgn"
	"github.com/park285/blundex/internal/render"
	"github.com/park285/blundex/internal/session"
	"github.com/park285/blundex/internal/settings"
	"github.com/park285/blundex/internal/store"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyMove       = errors.New("move is empty")
	ErrConflict        = errors.New("session was changed elsewhere")
)

// SnapshotStore persists live sessions. *store.SnapshotStore satisfies it.
type SnapshotStore interface {
	Load(ctx context.Context, id string) (*domain.SessionSnapshot, error)
	Save(ctx context.Context, snap *domain.SessionSnapshot) error
	Delete(ctx context.Context, id string) error
}

var _ SnapshotStore = (*store.SnapshotStore)(nil)

// Deps are optional collaborators. Nil snapshots keep sessions in memory only; a nil
// archive drops finished games on Close.
type Deps struct {
	Snapshots SnapshotStore
	Archive   store.Archive
	Settings  *settings.Store
	Catalog   *msgcat.Catalog
	Renderer  *render.Renderer
}

type Config struct {
	White string
	Black string
	Event string
	Site  string
}

type entry struct {
	mu sync.Mutex

	id        string
	sess      *session.Session
	startFEN  string
	white     string
	black     string
	version   int64
	createdAt time.Time
	updatedAt time.Time
}

type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry

	deps     Deps
	cfg      Config
	resolver *pgn.Resolver
	hub      *hub
	now      func() time.Time
	logger   *zap.Logger
}

func NewRegistry(deps Deps, cfg Config, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Renderer == nil {
		deps.Renderer = render.New()
	}
	if cfg.White == "" {
		cfg.White = "Player"
	}
	if cfg.Black == "" {
		cfg.Black = "Opponent"
	}
	return &Registry{
		entries:  make(map[string]*entry),
		deps:     deps,
		cfg:      cfg,
		resolver: pgn.NewResolver(logger),
		hub:      newHub(),
		now:      time.Now,
		logger:   logger,
	}
}

type CreateRequest struct {
	FEN   string `json:"fen,omitempty"`
	White string `json:"white,omitempty"`
	Black string `json:"black,omitempty"`
}

// Create starts a session at the standard position, or at req.FEN when given.
func (r *Registry) Create(ctx context.Context, req CreateRequest) (*State, error) {
	sess := session.New(session.WithLogger(r.logger))
	fen := strings.TrimSpace(req.FEN)
	if fen != "" {
		var err error
		if sess, err = session.FromFEN(fen, session.WithLogger(r.logger)); err != nil {
			return nil, err
		}
	}

	now := r.now()
	e := &entry{
		id:        uuid.NewString(),
		sess:      sess,
		startFEN:  fen,
		white:     firstNonEmpty(req.White, r.cfg.White),
		black:     firstNonEmpty(req.Black, r.cfg.Black),
		version:   1,
		createdAt: now,
		updatedAt: now,
	}
	if err := r.persist(ctx, e); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.entries[e.id] = e
	r.mu.Unlock()

	r.logger.Info("session_created", zap.String("session_id", e.id), zap.Bool("custom_start", fen != ""))
	return stateOf(e.id, e.sess, e), nil
}

func (r *Registry) Get(ctx context.Context, id string) (*State, error) {
	e, err := r.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return stateOf(e.id, e.sess, e), nil
}

// Move plays a castling, coordinate or SAN token for the side to move.
func (r *Registry) Move(ctx context.Context, id, token string) (*State, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrEmptyMove
	}
	return r.mutate(ctx, id, func(e *entry) (bool, error) {
		if err := r.resolver.ApplyMove(e.sess, token); err != nil {
			return false, err
		}
		return true, nil
	})
}

func (r *Registry) Undo(ctx context.Context, id string) (*State, error) {
	return r.mutate(ctx, id, func(e *entry) (bool, error) {
		if err := e.sess.Undo(); err != nil {
			return false, err
		}
		return true, nil
	})
}

func (r *Registry) Redo(ctx context.Context, id string) (*State, error) {
	return r.mutate(ctx, id, func(e *entry) (bool, error) {
		if err := e.sess.Redo(); err != nil {
			return false, err
		}
		return true, nil
	})
}

// Reset returns the session to the standard initial position, even when it was created
// from a FEN.
func (r *Registry) Reset(ctx context.Context, id string) (*State, error) {
	return r.mutate(ctx, id, func(e *entry) (bool, error) {
		e.sess.Reset()
		e.startFEN = ""
		return true, nil
	})
}

// Preview plays token on a copy and returns the resulting state. The live session is
// left untouched.
func (r *Registry) Preview(ctx context.Context, id, token string) (*State, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrEmptyMove
	}
	e, err := r.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	cp := e.sess.Copy()
	e.mu.Unlock()

	if err := r.resolver.ApplyMove(cp, token); err != nil {
		return nil, err
	}
	st := stateOf(id, cp, nil)
	st.White, st.Black = e.white, e.black
	st.Preview = true
	return st, nil
}

// ExportPGN renders the session as a single PGN game.
func (r *Registry) ExportPGN(ctx context.Context, id string) (string, error) {
	e, err := r.lookup(ctx, id)
	if err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return r.exportGame(e).String(), nil
}

func (r *Registry) exportGame(e *entry) *pgn.Game {
	return pgn.FromSession(e.sess, pgn.ExportOptions{
		Event: r.cfg.Event,
		Site:  r.cfg.Site,
		White: e.white,
		Black: e.black,
		Date:  e.createdAt,
	})
}

// ImportPGN replays the first game of text onto the session. Moves before a failing token
// stay applied and are persisted; the returned state reflects them alongside the error.
func (r *Registry) ImportPGN(ctx context.Context, id, text string) (*State, error) {
	games := pgn.Parse(text)
	if len(games) == 0 {
		return nil, pgn.ErrNoGames
	}
	g := games[0]
	return r.mutate(ctx, id, func(e *entry) (bool, error) {
		err := r.resolver.Apply(e.sess, g)
		e.startFEN = ""
		if w := g.Tag("White", "?"); w != "?" {
			e.white = w
		}
		if b := g.Tag("Black", "?"); b != "?" {
			e.black = b
		}
		return true, err
	})
}

// Drop forgets a session without archiving it.
func (r *Registry) Drop(ctx context.Context, id string) error {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
	if r.deps.Snapshots != nil {
		if err := r.deps.Snapshots.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete snapshot: %w", err)
		}
	}
	r.hub.close(id)
	return nil
}

// entryState is what mutate restores when a change cannot be persisted.
type entryState struct {
	sess      *session.Session
	startFEN  string
	white     string
	black     string
	version   int64
	updatedAt time.Time
}

func (e *entry) save() entryState {
	return entryState{
		sess:      e.sess.Clone(),
		startFEN:  e.startFEN,
		white:     e.white,
		black:     e.black,
		version:   e.version,
		updatedAt: e.updatedAt,
	}
}

func (e *entry) rollback(st entryState) {
	e.sess = st.sess
	e.startFEN = st.startFEN
	e.white = st.white
	e.black = st.black
	e.version = st.version
	e.updatedAt = st.updatedAt
}

// mutate runs fn under the session lock. When fn reports a change the session is persisted
// and broadcast, and its state is returned together with fn's error. A failed save rolls the
// entry back to where it was before fn ran.
func (r *Registry) mutate(ctx context.Context, id string, fn func(e *entry) (bool, error)) (*State, error) {
	e, err := r.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	before := e.save()
	changed, opErr := fn(e)
	if !changed {
		return nil, opErr
	}
	e.version++
	e.updatedAt = r.now()
	if err := r.persist(ctx, e); err != nil {
		e.rollback(before)
		if errors.Is(err, store.ErrSnapshotConflict) {
			r.evict(id)
			return nil, fmt.Errorf("%w: %s", ErrConflict, id)
		}
		return nil, err
	}
	st := stateOf(e.id, e.sess, e)
	r.hub.publish(id, st)
	return st, opErr
}

// lookup finds a live entry, restoring it from the snapshot store when it is not in memory.
func (r *Registry) lookup(ctx context.Context, id string) (*entry, error) {
	id = strings.TrimSpace(id)
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if ok {
		return e, nil
	}
	if r.deps.Snapshots == nil || id == "" {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	snap, err := r.deps.Snapshots.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	restored, err := r.restore(snap)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		return e, nil
	}
	r.entries[id] = restored
	r.logger.Info("session_restored",
		zap.String("session_id", id),
		zap.Int("moves", len(snap.MovesUCI)),
		zap.Int("redo", len(snap.RedoUCI)),
		zap.Int64("version", snap.Version),
	)
	return restored, nil
}

// restore rebuilds a session by replaying its moves and undone moves, then undoing the
// latter so the redo stack matches what was saved.
func (r *Registry) restore(snap *domain.SessionSnapshot) (*entry, error) {
	sess := session.New(session.WithLogger(r.logger))
	if snap.StartFEN != "" {
		var err error
		if sess, err = session.FromFEN(snap.StartFEN, session.WithLogger(r.logger)); err != nil {
			return nil, fmt.Errorf("restore %s: %w", snap.ID, err)
		}
	}
	for i, uci := range append(append([]string{}, snap.MovesUCI...), snap.RedoUCI...) {
		if err := r.resolver.ApplyMove(sess, uci); err != nil {
			return nil, fmt.Errorf("restore %s: %w", snap.ID, &pgn.ReplayError{Index: i, Token: uci, Err: err})
		}
	}
	for range snap.RedoUCI {
		if err := sess.Undo(); err != nil {
			return nil, fmt.Errorf("restore %s: %w", snap.ID, err)
		}
	}
	return &entry{
		id:        snap.ID,
		sess:      sess,
		startFEN:  snap.StartFEN,
		white:     snap.White,
		black:     snap.Black,
		version:   snap.Version,
		createdAt: snap.CreatedAt,
		updatedAt: snap.UpdatedAt,
	}, nil
}

func (r *Registry) persist(ctx context.Context, e *entry) error {
	if r.deps.Snapshots == nil {
		return nil
	}
	snap := &domain.SessionSnapshot{
		ID:        e.id,
		StartFEN:  e.startFEN,
		MovesUCI:  e.sess.UCIMoves(),
		RedoUCI:   e.sess.RedoUCIMoves(),
		White:     e.white,
		Black:     e.black,
		Version:   e.version,
		CreatedAt: e.createdAt,
		UpdatedAt: e.updatedAt,
	}
	if err := r.deps.Snapshots.Save(ctx, snap); err != nil {
		r.logger.Warn("session_persist_failed", zap.String("session_id", e.id), zap.Int64("version", e.version), zap.Error(err))
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *Registry) evict(id string) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
