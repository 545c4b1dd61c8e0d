package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
)

// TrackID identifies one queued request for a track. Queuing the same song
// twice yields two IDs.
type TrackID string

// Requester is the Discord user who asked for a track.
type Requester struct {
	ID        snowflake.ID
	Name      string
	AvatarURL string
}

// Mention returns a Discord mention for the requester, or the name when the ID is unknown.
func (r Requester) Mention() string {
	if r.ID == 0 {
		return r.Name
	}
	return "<@" + r.ID.String() + ">"
}

// Track represents a playable audio track. Tracks are treated as immutable
// once created; RequestedBy returns a copy instead of modifying the receiver.
type Track struct {
	ID         TrackID
	StreamURL  string // source the audio sink plays
	Encoded    string // backend-specific track payload, empty when StreamURL is played directly
	Title      string
	Artist     string
	Duration   time.Duration // zero when the length is unknown, e.g. live streams
	URI        string
	ArtworkURL string
	SourceName string // e.g., "youtube", "soundcloud", "http"
	IsStream   bool
	Requester  Requester
	EnqueuedAt time.Time
}

// NewTrack creates a Track after checking the fields playback cannot do without.
// A negative duration is treated as unknown.
func NewTrack(streamURL, title string, duration time.Duration) (*Track, error) {
	streamURL = strings.TrimSpace(streamURL)
	title = strings.TrimSpace(title)
	if streamURL == "" || title == "" {
		return nil, ErrInvalidTrack
	}
	if duration < 0 {
		duration = 0
	}

	return &Track{
		StreamURL: streamURL,
		Title:     title,
		Duration:  duration,
	}, nil
}

// RequestedBy returns a copy of the track attributed to the given requester,
// with a fresh queue identity.
func (t *Track) RequestedBy(requester Requester) *Track {
	c := *t
	c.ID = TrackID(uuid.NewString())
	c.Requester = requester
	c.EnqueuedAt = time.Now().UTC()
	return &c
}

// Source returns the parsed TrackSource for this track.
func (t *Track) Source() TrackSource {
	return ParseTrackSource(t.SourceName)
}

// IsLive reports whether the track has no known end.
func (t *Track) IsLive() bool {
	return t.IsStream || t.Duration <= 0
}

// IsValid returns true if the track has the minimum required fields.
func (t *Track) IsValid() bool {
	return t.StreamURL != "" && t.Title != ""
}

// FormattedDuration returns the duration as a human-readable string (mm:ss or hh:mm:ss).
func (t *Track) FormattedDuration() string {
	if t.IsLive() {
		return "LIVE"
	}
	return FormatDuration(t.Duration)
}

// FormatDuration formats d as mm:ss, or hh:mm:ss when it exceeds an hour.
// Negative durations format as 00:00.
func FormatDuration(d time.Duration) string {
	totalSeconds := max(int(d.Seconds()), 0)
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return pad(hours) + ":" + pad(minutes) + ":" + pad(seconds)
	}
	return pad(minutes) + ":" + pad(seconds)
}

func pad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
