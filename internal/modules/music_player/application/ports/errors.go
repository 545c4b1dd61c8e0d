package ports

import "errors"

// Adapter errors. Implementations wrap backend failures with these so callers
// can classify them with errors.Is.
var (
	// ErrNotFound is returned when a query matches nothing.
	ErrNotFound = errors.New("no tracks found")

	// ErrNotAPlaylist is returned when a playlist load resolves to something else.
	ErrNotAPlaylist = errors.New("not a playlist")

	// ErrResolutionFailed is returned when the resolver backend fails.
	ErrResolutionFailed = errors.New("failed to resolve track")

	// ErrPlaybackStartFailed is returned when an audio sink cannot start playback.
	ErrPlaybackStartFailed = errors.New("failed to start playback")

	// ErrNotConnected is returned when audio is requested without a voice connection.
	ErrNotConnected = errors.New("not connected to voice")
)
