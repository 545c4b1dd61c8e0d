package infrastructure

import (
	"context"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/domain"
)

// MemorySettingsRepository keeps guild settings for the lifetime of the process.
type MemorySettingsRepository struct {
	mu       sync.RWMutex
	settings map[snowflake.ID]domain.GuildSettings
}

// NewMemorySettingsRepository creates a new MemorySettingsRepository.
func NewMemorySettingsRepository() *MemorySettingsRepository {
	return &MemorySettingsRepository{
		settings: make(map[snowflake.ID]domain.GuildSettings),
	}
}

// Get returns the settings for the given guild, or the defaults.
func (r *MemorySettingsRepository) Get(
	_ context.Context,
	guildID snowflake.ID,
) (domain.GuildSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	settings, ok := r.settings[guildID]
	if !ok {
		return domain.DefaultGuildSettings(guildID), nil
	}
	return settings, nil
}

// Save stores the settings.
func (r *MemorySettingsRepository) Save(_ context.Context, settings domain.GuildSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.settings[settings.GuildID] = settings
	return nil
}

// Delete removes the settings for the given guild.
func (r *MemorySettingsRepository) Delete(_ context.Context, guildID snowflake.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.settings, guildID)
	return nil
}

// Count returns the number of guilds with stored settings.
func (r *MemorySettingsRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.settings)
}

var _ domain.GuildSettingsRepository = (*MemorySettingsRepository)(nil)
