package infrastructure

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kasseta-bot/kasseta/internal/modules/music_player/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSettingsStore(t *testing.T) *SQLiteSettingsRepository {
	t.Helper()

	repo, err := NewSQLiteSettingsRepository(filepath.Join(t.TempDir(), "data", "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSQLiteSettingsRepository_Defaults(t *testing.T) {
	repo := newTestSettingsStore(t)

	settings, err := repo.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultGuildSettings(42), settings)
}

func TestSQLiteSettingsRepository_SaveUpserts(t *testing.T) {
	repo := newTestSettingsStore(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, domain.GuildSettings{GuildID: 42, VolumePercent: 30, NotificationChannelID: 7}))
	require.NoError(t, repo.Save(ctx, domain.GuildSettings{GuildID: 42, VolumePercent: 150, NotificationChannelID: 8}))
	require.NoError(t, repo.Save(ctx, domain.GuildSettings{GuildID: 43, VolumePercent: 10}))

	settings, err := repo.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, domain.GuildSettings{GuildID: 42, VolumePercent: 150, NotificationChannelID: 8}, settings)

	settings, err = repo.Get(ctx, 43)
	require.NoError(t, err)
	assert.Equal(t, 10, settings.VolumePercent)
}

func TestSQLiteSettingsRepository_Delete(t *testing.T) {
	repo := newTestSettingsStore(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, domain.GuildSettings{GuildID: 42, VolumePercent: 30}))
	require.NoError(t, repo.Delete(ctx, 42))
	require.NoError(t, repo.Delete(ctx, 99))

	settings, err := repo.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultVolumePercent, settings.VolumePercent)
}

func TestSQLiteSettingsRepository_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")
	ctx := context.Background()

	repo, err := NewSQLiteSettingsRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, domain.GuildSettings{GuildID: 42, VolumePercent: 55}))
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteSettingsRepository(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	settings, err := repo.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 55, settings.VolumePercent)
}

func TestNewSQLiteSettingsRepository_RequiresDSN(t *testing.T) {
	_, err := NewSQLiteSettingsRepository("")
	assert.Error(t, err)
}

func TestMemorySettingsRepository(t *testing.T) {
	repo := NewMemorySettingsRepository()
	ctx := context.Background()

	settings, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultGuildSettings(1), settings)

	require.NoError(t, repo.Save(ctx, domain.GuildSettings{GuildID: 1, VolumePercent: 20}))
	settings, err = repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 20, settings.VolumePercent)
	assert.Equal(t, 1, repo.Count())

	require.NoError(t, repo.Delete(ctx, 1))
	assert.Zero(t, repo.Count())
}
