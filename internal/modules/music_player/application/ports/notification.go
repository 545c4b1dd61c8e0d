package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/domain"
)

// NowPlayingSink renders "Now Playing" panels.
type NowPlayingSink interface {
	// SendNowPlaying posts a new panel and returns its handle.
	SendNowPlaying(
		ctx context.Context,
		channelID snowflake.ID,
		snapshot domain.NowPlayingSnapshot,
	) (domain.NowPlayingMessage, error)

	// EditNowPlaying updates a panel in place. It fails if the message is gone.
	EditNowPlaying(
		ctx context.Context,
		message domain.NowPlayingMessage,
		snapshot domain.NowPlayingSnapshot,
	) error

	// DeleteMessage removes a panel.
	DeleteMessage(ctx context.Context, message domain.NowPlayingMessage) error
}

// NotificationSender posts one-off session notices to a text channel.
type NotificationSender interface {
	// SendQueueEnded reports that the queue ran out.
	SendQueueEnded(ctx context.Context, channelID snowflake.ID) error

	// SendPlaybackFailed reports that playback gave up.
	SendPlaybackFailed(ctx context.Context, channelID snowflake.ID, reason string) error
}
