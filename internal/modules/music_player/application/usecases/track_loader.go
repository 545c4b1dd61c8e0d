package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/kasseta-bot/kasseta/internal/modules/music_player/application/ports"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/domain"
)

// DefaultSearchLimit is the number of candidates offered by a search.
const DefaultSearchLimit = 4

// LoadTrackInput contains the input for the LoadTrack use case.
type LoadTrackInput struct {
	Query     string
	Requester domain.Requester
}

// LoadPlaylistOutput contains the result of the LoadPlaylist use case.
type LoadPlaylistOutput struct {
	Name   string
	Tracks []*domain.Track
}

// SearchTracksInput contains the input for the SearchTracks use case.
type SearchTracksInput struct {
	Query string
	Limit int // defaults to the service limit when zero
}

// TrackLoaderService validates queries and resolves them into tracks.
type TrackLoaderService struct {
	trackResolver ports.TrackResolver
	searchLimit   int
}

// NewTrackLoaderService creates a new TrackLoaderService.
func NewTrackLoaderService(trackResolver ports.TrackResolver, searchLimit int) *TrackLoaderService {
	if searchLimit <= 0 {
		searchLimit = DefaultSearchLimit
	}
	return &TrackLoaderService{
		trackResolver: trackResolver,
		searchLimit:   searchLimit,
	}
}

// LoadTrack resolves a URL or search term to one track attributed to the requester.
// Playlist URLs are rejected with ErrPlaylistURL.
func (s *TrackLoaderService) LoadTrack(ctx context.Context, input LoadTrackInput) (*domain.Track, error) {
	query := domain.NewSearchQuery(input.Query, domain.SourceDirect)
	if !query.IsValid() {
		return nil, ErrEmptyQuery
	}
	if query.IsPlaylist() {
		return nil, ErrPlaylistURL
	}

	track, err := s.trackResolver.ResolveSingle(ctx, query.Identifier())
	if err != nil {
		return nil, resolveError(err)
	}
	return track.RequestedBy(input.Requester), nil
}

// LoadPlaylist resolves a playlist URL to its tracks, each attributed to the requester.
func (s *TrackLoaderService) LoadPlaylist(ctx context.Context, input LoadTrackInput) (*LoadPlaylistOutput, error) {
	query := domain.NewSearchQuery(input.Query, domain.SourceDirect)
	if !query.IsValid() {
		return nil, ErrEmptyQuery
	}
	if !query.IsURL() {
		return nil, ErrNotAURL
	}

	list, err := s.trackResolver.ResolvePlaylist(ctx, query.Query)
	if err != nil {
		return nil, resolveError(err)
	}
	if list.Len() == 0 {
		return nil, ErrNoResults
	}

	tracks := make([]*domain.Track, 0, list.Len())
	for _, track := range list.Tracks {
		tracks = append(tracks, track.RequestedBy(input.Requester))
	}
	return &LoadPlaylistOutput{Name: list.Name, Tracks: tracks}, nil
}

// SearchTracks returns candidates for a keyword search. URLs are rejected with ErrSearchURL.
func (s *TrackLoaderService) SearchTracks(ctx context.Context, input SearchTracksInput) ([]*domain.Track, error) {
	query := domain.NewSearchQuery(input.Query, domain.SourceDirect)
	if !query.IsValid() {
		return nil, ErrEmptyQuery
	}
	if query.IsURL() {
		return nil, ErrSearchURL
	}

	limit := input.Limit
	if limit <= 0 {
		limit = s.searchLimit
	}

	tracks, err := s.trackResolver.Search(ctx, query.Query, limit)
	if err != nil {
		return nil, resolveError(err)
	}
	if len(tracks) == 0 {
		return nil, ErrNoResults
	}
	return tracks[:min(limit, len(tracks))], nil
}

// ResolveRadio checks that a radio URL is playable and returns the stream URL.
func (s *TrackLoaderService) ResolveRadio(ctx context.Context, url string) (string, error) {
	query := domain.NewSearchQuery(url, domain.SourceDirect)
	if !query.IsValid() {
		return "", ErrEmptyQuery
	}
	if !query.IsURL() {
		return "", ErrNotAURL
	}

	track, err := s.trackResolver.ResolveSingle(ctx, query.Query)
	if err != nil {
		return "", resolveError(err)
	}
	return track.StreamURL, nil
}

func resolveError(err error) error {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return ErrNoResults
	case errors.Is(err, ports.ErrNotAPlaylist), errors.Is(err, ports.ErrResolutionFailed):
		return err
	default:
		return fmt.Errorf("%w: %w", ports.ErrResolutionFailed, err)
	}
}
