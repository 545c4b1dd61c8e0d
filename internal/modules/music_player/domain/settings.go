package domain

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
)

// GuildSettings are the per-guild preferences that outlive a playback session.
type GuildSettings struct {
	GuildID               snowflake.ID
	VolumePercent         int
	NotificationChannelID snowflake.ID
}

// DefaultGuildSettings returns the settings used for guilds with nothing stored.
func DefaultGuildSettings(guildID snowflake.ID) GuildSettings {
	return GuildSettings{
		GuildID:       guildID,
		VolumePercent: DefaultVolumePercent,
	}
}

// GuildSettingsRepository defines the interface for storing and retrieving guild settings.
type GuildSettingsRepository interface {
	// Get returns the settings for the given guild, or the defaults if none were saved.
	Get(ctx context.Context, guildID snowflake.ID) (GuildSettings, error)

	// Save stores the settings, replacing any previous value.
	Save(ctx context.Context, settings GuildSettings) error

	// Delete removes the settings for the given guild.
	Delete(ctx context.Context, guildID snowflake.ID) error
}
