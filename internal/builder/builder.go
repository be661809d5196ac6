// Package builder wires the registry and its backends from the application config.
package builder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/blundex/internal/config"
	"github.com/park285/blundex/internal/msgcat"
	"github.com/park285/blundex/internal/render"
	"github.com/park285/blundex/internal/service"
	"github.com/park285/blundex/internal/settings"
	"github.com/park285/blundex/internal/store"
)

type Deps struct {
	Registry  *service.Registry
	Settings  *settings.Store
	Catalog   *msgcat.Catalog
	Snapshots *store.SnapshotStore
	Archive   store.Archive

	closers []func() error
}

// New builds every collaborator. Redis and Postgres are optional; without them sessions
// live in memory and finished games go to an in-memory archive.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Deps{}

	// Snapshots (Redis optional)
	if strings.TrimSpace(cfg.RedisURL) != "" {
		snaps, err := store.NewSnapshotStore(ctx, cfg.RedisURL, cfg.SessionTTL, logger)
		if err != nil {
			return nil, fmt.Errorf("init snapshots: %w", err)
		}
		d.Snapshots = snaps
		d.closers = append(d.closers, snaps.Close)
	} else {
		logger.Info("snapshots_in_memory")
	}

	// Archive (Postgres optional)
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		pg, err := store.OpenPostgresArchive(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("init archive: %w", err)
		}
		d.Archive = pg
		d.closers = append(d.closers, pg.Close)
	} else {
		logger.Info("archive_in_memory")
		d.Archive = store.NewMemoryArchive()
	}

	prefs, err := settings.Open(cfg.SettingsFile, logger)
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("init settings: %w", err)
	}
	d.Settings = prefs

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("init messages: %w", err)
	}
	d.Catalog = catalog

	deps := service.Deps{
		Archive:  d.Archive,
		Settings: prefs,
		Catalog:  catalog,
		Renderer: render.New(),
	}
	// Snapshots stays a nil interface when Redis is off.
	if d.Snapshots != nil {
		deps.Snapshots = d.Snapshots
	}
	d.Registry = service.NewRegistry(deps, service.Config{
		White: cfg.PlayerName,
		Black: cfg.OpponentName,
		Event: cfg.Event,
	}, logger)
	return d, nil
}

// Close releases the backends in reverse order of creation.
func (d *Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
