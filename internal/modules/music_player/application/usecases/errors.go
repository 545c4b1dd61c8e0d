package usecases

import "errors"

// Use case errors. Playback state errors live in the domain package.
var (
	// ErrUserNotInVoice is returned when the user is not in a voice channel.
	ErrUserNotInVoice = errors.New("you must be in a voice channel")

	// ErrNoResults is returned when a search yields no results.
	ErrNoResults = errors.New("no results found")

	// ErrPlaylistURL is returned when a playlist URL is given to a single-track command.
	ErrPlaylistURL = errors.New("this is a playlist, use /playlist to load it")

	// ErrSearchURL is returned when a URL is given to a keyword search.
	ErrSearchURL = errors.New("search takes keywords, not a URL")

	// ErrNotAURL is returned when a command needs a URL and got free text.
	ErrNotAURL = errors.New("a URL is required")

	// ErrEmptyQuery is returned for blank queries.
	ErrEmptyQuery = errors.New("query must not be empty")
)
