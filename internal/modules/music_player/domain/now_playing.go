package domain

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// NowPlayingMessage is the handle of a sent "Now Playing" message, edited in
// place on refresh. The channel is kept because notifications may have moved
// to another channel since the message was sent.
type NowPlayingMessage struct {
	ChannelID snowflake.ID
	MessageID snowflake.ID
}

// NowPlayingSnapshot is a point-in-time view of the playing track.
type NowPlayingSnapshot struct {
	Track     Track
	Elapsed   time.Duration
	IsPaused  bool
	IsLooping bool
	Volume    int // percent
}

// Progress returns the played fraction in [0, 1], or 0 for live tracks.
func (s NowPlayingSnapshot) Progress() float64 {
	if s.Track.IsLive() {
		return 0
	}
	return min(1, max(0, float64(s.Elapsed)/float64(s.Track.Duration)))
}
