package domain

// PlaybackMode describes what drives the next completion of a session.
type PlaybackMode int

const (
	ModeIdle   PlaybackMode = iota // Nothing loaded
	ModeQueued                     // Playback consumes the queue
	ModeRadio                      // A single radio stream owns playback exclusively
)

// String returns a human-readable representation of the mode.
func (m PlaybackMode) String() string {
	switch m {
	case ModeQueued:
		return "queued"
	case ModeRadio:
		return "radio"
	default:
		return "idle"
	}
}

// AllowsQueuing reports whether tracks may be added while in this mode.
func (m PlaybackMode) AllowsQueuing() bool {
	return m != ModeRadio
}
