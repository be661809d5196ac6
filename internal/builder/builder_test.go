package builder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/blundex/internal/config"
	"github.com/park285/blundex/internal/service"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	return &config.AppConfig{
		SessionTTL:   time.Hour,
		SettingsFile: filepath.Join(t.TempDir(), "settings.yaml"),
		PlayerName:   "Ann",
		OpponentName: "Bob",
		Event:        "Club Night",
	}
}

func TestNewInMemory(t *testing.T) {
	d, err := New(context.Background(), testConfig(t), nil)
	require.NoError(t, err)
	defer d.Close()

	assert.Nil(t, d.Snapshots)
	require.NotNil(t, d.Archive)

	ctx := context.Background()
	st, err := d.Registry.Create(ctx, service.CreateRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Ann", st.White)
	assert.Equal(t, "Bob", st.Black)

	text, err := d.Registry.ExportPGN(ctx, st.ID)
	require.NoError(t, err)
	assert.Contains(t, text, `[Event "Club Night"]`)
}

func TestNewWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"

	d, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, d.Snapshots)

	ctx := context.Background()
	st, err := d.Registry.Create(ctx, service.CreateRequest{})
	require.NoError(t, err)
	_, err = d.Registry.Move(ctx, st.ID, "e4")
	require.NoError(t, err)

	snap, err := d.Snapshots.Load(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"e2e4"}, snap.MovesUCI)

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
}

func TestNewRejectsBadRedisURL(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisURL = "http://nowhere"
	_, err := New(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestNewRejectsNilConfig(t *testing.T) {
	_, err := New(context.Background(), nil, nil)
	require.Error(t, err)
}
