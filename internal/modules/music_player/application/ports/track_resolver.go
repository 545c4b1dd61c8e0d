package ports

import (
	"context"

	"github.com/kasseta-bot/kasseta/internal/modules/music_player/domain"
)

// TrackResolver turns user queries into playable tracks.
type TrackResolver interface {
	// ResolveSingle resolves a URL or a prefixed search such as
	// "ytsearch:artist song" to one track. Fails with ErrNotFound if nothing matches.
	ResolveSingle(ctx context.Context, query string) (*domain.Track, error)

	// ResolvePlaylist resolves a playlist URL to its tracks.
	// Fails with ErrNotFound or ErrNotAPlaylist.
	ResolvePlaylist(ctx context.Context, url string) (*domain.TrackList, error)

	// Search returns up to limit candidates for plain keywords, best match first.
	Search(ctx context.Context, query string, limit int) ([]*domain.Track, error)
}
