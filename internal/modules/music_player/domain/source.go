package domain

// TrackSource represents the origin platform of a track.
type TrackSource string

const (
	TrackSourceYouTube    TrackSource = "youtube"
	TrackSourceSoundCloud TrackSource = "soundcloud"
	TrackSourceTwitch     TrackSource = "twitch"
	TrackSourceBandcamp   TrackSource = "bandcamp"
	TrackSourceHTTP       TrackSource = "http"
	TrackSourceOther      TrackSource = "other"
)

// ParseTrackSource converts a source name string to a TrackSource.
func ParseTrackSource(name string) TrackSource {
	switch name {
	case "youtube":
		return TrackSourceYouTube
	case "soundcloud":
		return TrackSourceSoundCloud
	case "twitch":
		return TrackSourceTwitch
	case "bandcamp":
		return TrackSourceBandcamp
	case "http", "https":
		return TrackSourceHTTP
	default:
		return TrackSourceOther
	}
}

// Color returns the embed accent color for the source.
func (s TrackSource) Color() int {
	switch s {
	case TrackSourceYouTube:
		return 0xFF0000
	case TrackSourceSoundCloud:
		return 0xFF5500
	case TrackSourceTwitch:
		return 0x9146FF
	case TrackSourceBandcamp:
		return 0x1DA0C3
	case TrackSourceHTTP:
		return 0x1ABC9C
	default:
		return 0x5865F2
	}
}
