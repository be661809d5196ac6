package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/blundex/internal/domain"
)

var ErrSnapshotConflict = errors.New("session snapshot changed concurrently")

const DefaultSnapshotTTL = 24 * time.Hour

// SnapshotStore keeps live session snapshots in Redis as JSON with a sliding TTL.
type SnapshotStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewSnapshotStore connects to redisURL (redis:// or rediss://) and pings it.
func NewSnapshotStore(ctx context.Context, redisURL string, ttl time.Duration, logger *zap.Logger) (*SnapshotStore, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL is required for the snapshot store")
	}
	opts, err := redis.ParseURL(strings.TrimSpace(redisURL))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewSnapshotStoreFromClient(rdb, ttl, logger), nil
}

func NewSnapshotStoreFromClient(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *SnapshotStore {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotStore{rdb: rdb, ttl: ttl, logger: logger}
}

func (s *SnapshotStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

// Load returns the snapshot for id, or nil when none is stored.
func (s *SnapshotStore) Load(ctx context.Context, id string) (*domain.SessionSnapshot, error) {
	raw, err := s.rdb.Get(ctx, snapshotKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	var snap domain.SessionSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// Save writes snap when the stored version is snap.Version-1 (or nothing is stored and
// snap.Version is 1). A lost race returns ErrSnapshotConflict.
func (s *SnapshotStore) Save(ctx context.Context, snap *domain.SessionSnapshot) error {
	if snap == nil || strings.TrimSpace(snap.ID) == "" {
		return fmt.Errorf("snapshot without id")
	}
	key := snapshotKey(snap.ID)
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		var stored int64
		cur, err := tx.Get(ctx, key).Bytes()
		switch {
		case err == redis.Nil:
		case err != nil:
			return err
		default:
			var prev domain.SessionSnapshot
			if jerr := json.Unmarshal(cur, &prev); jerr != nil {
				return jerr
			}
			stored = prev.Version
		}
		if stored != snap.Version-1 {
			return redis.TxFailedErr
		}

		pipe := tx.TxPipeline()
		pipe.Set(ctx, key, raw, s.ttl)
		_, err = pipe.Exec(ctx)
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		s.logger.Warn("snapshot_conflict", zap.String("session_id", snap.ID), zap.Int64("version", snap.Version))
		return ErrSnapshotConflict
	}
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	s.logger.Debug("snapshot_saved",
		zap.String("session_id", snap.ID),
		zap.Int64("version", snap.Version),
		zap.Int("plies", len(snap.MovesUCI)),
	)
	return nil
}

func (s *SnapshotStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, snapshotKey(id)).Err(); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// IDs lists the session ids with a stored snapshot.
func (s *SnapshotStore) IDs(ctx context.Context) ([]string, error) {
	var ids []string
	iter := s.rdb.Scan(ctx, 0, snapshotPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), snapshotPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan snapshots: %w", err)
	}
	return ids, nil
}

const snapshotPrefix = "blundex:session:"

func snapshotKey(id string) string { return snapshotPrefix + strings.TrimSpace(id) }
