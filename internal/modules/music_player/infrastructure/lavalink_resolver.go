package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/application/ports"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/domain"
)

var errNoNode = errors.New("no available Lavalink node")

// trackLoader loads tracks by identifier.
type trackLoader interface {
	LoadTracks(ctx context.Context, identifier string) (*lavalink.LoadResult, error)
}

// bestNodeLoader loads tracks on the least loaded node of a client.
type bestNodeLoader struct {
	link disgolink.Client
}

func (l bestNodeLoader) LoadTracks(ctx context.Context, identifier string) (*lavalink.LoadResult, error) {
	node := l.link.BestNode()
	if node == nil {
		return nil, errNoNode
	}
	return node.LoadTracks(ctx, identifier)
}

// LavalinkResolver resolves queries with the Lavalink track loader.
type LavalinkResolver struct {
	loader       trackLoader
	searchSource domain.SearchSource
}

// NewLavalinkResolver creates a resolver that searches YouTube for keywords.
func NewLavalinkResolver(loader trackLoader) *LavalinkResolver {
	return &LavalinkResolver{
		loader:       loader,
		searchSource: domain.SourceYouTube,
	}
}

func (r *LavalinkResolver) load(ctx context.Context, identifier string) (*lavalink.LoadResult, error) {
	result, err := r.loader.LoadTracks(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrResolutionFailed, err)
	}
	if exception, ok := result.Data.(lavalink.Exception); ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrResolutionFailed, exception.Message)
	}
	return result, nil
}

// ResolveSingle returns the track a URL points to or the best search match.
// For playlist URLs the selected entry, or else the first, is returned.
func (r *LavalinkResolver) ResolveSingle(ctx context.Context, query string) (*domain.Track, error) {
	result, err := r.load(ctx, query)
	if err != nil {
		return nil, err
	}

	switch data := result.Data.(type) {
	case lavalink.Track:
		return convertTrack(data), nil
	case lavalink.Search:
		if len(data) > 0 {
			return convertTrack(data[0]), nil
		}
	case lavalink.Playlist:
		if len(data.Tracks) > 0 {
			selected := data.Info.SelectedTrack
			if selected < 0 || selected >= len(data.Tracks) {
				selected = 0
			}
			return convertTrack(data.Tracks[selected]), nil
		}
	}
	return nil, ports.ErrNotFound
}

// ResolvePlaylist returns every track of a playlist URL.
func (r *LavalinkResolver) ResolvePlaylist(ctx context.Context, url string) (*domain.TrackList, error) {
	result, err := r.load(ctx, url)
	if err != nil {
		return nil, err
	}

	switch data := result.Data.(type) {
	case lavalink.Playlist:
		return &domain.TrackList{
			Type:   domain.TrackListTypePlaylist,
			Name:   data.Info.Name,
			URL:    url,
			Tracks: convertTracks(data.Tracks),
		}, nil
	case lavalink.Empty:
		return nil, ports.ErrNotFound
	default:
		return nil, ports.ErrNotAPlaylist
	}
}

// Search returns up to limit tracks for keywords.
func (r *LavalinkResolver) Search(ctx context.Context, query string, limit int) ([]*domain.Track, error) {
	q := domain.NewSearchQuery(query, r.searchSource)
	result, err := r.load(ctx, q.Identifier())
	if err != nil {
		return nil, err
	}

	var tracks []lavalink.Track
	switch data := result.Data.(type) {
	case lavalink.Search:
		tracks = data
	case lavalink.Track:
		tracks = []lavalink.Track{data}
	case lavalink.Playlist:
		tracks = data.Tracks
	}

	if limit > 0 && len(tracks) > limit {
		tracks = tracks[:limit]
	}
	return convertTracks(tracks), nil
}

func convertTracks(tracks []lavalink.Track) []*domain.Track {
	converted := make([]*domain.Track, len(tracks))
	for i, track := range tracks {
		converted[i] = convertTrack(track)
	}
	return converted
}

// convertTrack converts a Lavalink track into a domain track.
func convertTrack(track lavalink.Track) *domain.Track {
	info := track.Info
	uri := stringValue(info.URI)

	duration := time.Duration(info.Length) * time.Millisecond
	if info.IsStream {
		duration = 0
	}

	streamURL := uri
	if streamURL == "" {
		streamURL = info.Identifier
	}

	return &domain.Track{
		ID:         domain.TrackID(info.Identifier),
		StreamURL:  streamURL,
		Encoded:    track.Encoded,
		Title:      info.Title,
		Artist:     info.Author,
		Duration:   duration,
		URI:        uri,
		ArtworkURL: stringValue(info.ArtworkURL),
		SourceName: info.SourceName,
		IsStream:   info.IsStream,
	}
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ ports.TrackResolver = (*LavalinkResolver)(nil)
