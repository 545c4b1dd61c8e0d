package domain

import "errors"

// Playback session errors.
var (
	// ErrModeConflict is returned when queuing while radio mode owns playback.
	ErrModeConflict = errors.New("radio is playing, stop it before queuing tracks")

	// ErrNothingPlaying is returned when an operation needs an active track.
	ErrNothingPlaying = errors.New("nothing is currently playing")

	// ErrBadFormat is returned when a command argument cannot be parsed.
	ErrBadFormat = errors.New("malformed argument")

	// ErrOutOfRange is returned for seek targets beyond the track or volumes outside bounds.
	ErrOutOfRange = errors.New("value out of range")

	// ErrEmptyQueue is returned when a queue mutation has nothing to act on.
	ErrEmptyQueue = errors.New("the queue is empty")

	// ErrIndexOutOfRange is returned for queue positions that do not exist.
	ErrIndexOutOfRange = errors.New("invalid queue position")

	// ErrInvalidTrack is returned when a track is missing its title or stream URL.
	ErrInvalidTrack = errors.New("track requires a title and a stream URL")
)
