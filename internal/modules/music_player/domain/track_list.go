package domain

// TrackListType represents the type of track list.
type TrackListType int

const (
	TrackListTypeTrack TrackListType = iota
	TrackListTypePlaylist
	TrackListTypeSearch
)

// TrackList is the result of resolving a query.
type TrackList struct {
	Type   TrackListType
	Name   string // playlist name, empty for single tracks and searches
	URL    string
	Tracks []*Track
}

// First returns the first track, or nil if the list is empty.
func (l *TrackList) First() *Track {
	if l == nil || len(l.Tracks) == 0 {
		return nil
	}
	return l.Tracks[0]
}

// Len returns the number of tracks.
func (l *TrackList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Tracks)
}
