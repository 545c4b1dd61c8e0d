package usecases

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/application/session"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/domain"
)

// Re-export domain types for presentation layer use.
// This allows presentation to depend only on usecases without importing domain directly.

// Track is an alias for domain.Track.
type Track = domain.Track

// Requester is an alias for domain.Requester.
type Requester = domain.Requester

// NowPlayingSnapshot is an alias for domain.NowPlayingSnapshot.
type NowPlayingSnapshot = domain.NowPlayingSnapshot

// PlaybackMode is an alias for domain.PlaybackMode.
type PlaybackMode = domain.PlaybackMode

// Status is an alias for session.Status.
type Status = session.Status

// SessionProvider hands out playback sessions by guild.
type SessionProvider interface {
	Get(ctx context.Context, guildID snowflake.ID) (*session.Session, error)
	Lookup(guildID snowflake.ID) (*session.Session, bool)
	Remove(ctx context.Context, guildID snowflake.ID) error
}
