package ports

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// StreamSource describes what an AudioSink should play.
type StreamSource struct {
	URL     string        // playable URL
	Encoded string        // backend-specific payload; when set it takes precedence over URL
	Offset  time.Duration // position to start from
}

// CompletionFunc is invoked when a play call ends. err is non-nil if
// playback ended abnormally.
type CompletionFunc func(err error)

// AudioSink is the audio output of one scope.
//
// onComplete is invoked at most once per Play call, from a goroutine owned by
// the sink. It is never invoked for a play call that was ended by an explicit
// Stop or replaced by a later Play.
type AudioSink interface {
	// Play starts playback of source at volume. An error means nothing started
	// and onComplete will not be called.
	Play(ctx context.Context, source StreamSource, volume float64, onComplete CompletionFunc) error

	// Stop ends the current playback, suppressing its completion.
	Stop(ctx context.Context) error

	// Pause pauses the current playback.
	Pause(ctx context.Context) error

	// Resume resumes the paused playback.
	Resume(ctx context.Context) error

	// SetVolume changes the volume of the current playback.
	SetVolume(ctx context.Context, volume float64) error

	// IsPlaying returns true while audio is being produced.
	IsPlaying() bool

	// IsPaused returns true while playback is paused.
	IsPaused() bool
}

// AudioBackend owns the voice connections and hands out one AudioSink per scope.
type AudioBackend interface {
	VoiceConnection

	// SinkFor returns the sink of the given guild, creating it on first use.
	SinkFor(guildID snowflake.ID) AudioSink

	// Close releases every connection held by the backend.
	Close() error
}
