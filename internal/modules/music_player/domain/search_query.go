package domain

import (
	"net/url"
	"strings"
)

// SearchSource is the search prefix a resolver understands.
type SearchSource string

const (
	SourceYouTube      SearchSource = "ytsearch"
	SourceYouTubeMusic SearchSource = "ytmsearch"
	SourceSoundCloud   SearchSource = "scsearch"
	SourceDirect       SearchSource = "" // direct URL, no search prefix
)

// QueryKind classifies user input before it reaches a resolver.
type QueryKind int

const (
	QueryKindSearch   QueryKind = iota // free text
	QueryKindURL                       // a single track or stream URL
	QueryKindPlaylist                  // a URL pointing at a playlist
)

// SearchQuery is classified user input for track resolution.
type SearchQuery struct {
	Query  string
	Source SearchSource
	Kind   QueryKind
}

// NewSearchQuery classifies input. Free text is searched on source, or on
// YouTube when source is empty.
func NewSearchQuery(input string, source SearchSource) SearchQuery {
	input = strings.TrimSpace(input)

	if isURL(input) {
		kind := QueryKindURL
		if isPlaylistURL(input) {
			kind = QueryKindPlaylist
		}
		return SearchQuery{Query: input, Source: SourceDirect, Kind: kind}
	}

	if source == SourceDirect {
		source = SourceYouTube
	}
	return SearchQuery{Query: input, Source: source, Kind: QueryKindSearch}
}

// IsURL returns true if the query is a URL of any kind.
func (q SearchQuery) IsURL() bool {
	return q.Kind != QueryKindSearch
}

// IsPlaylist returns true if the query is a playlist URL.
func (q SearchQuery) IsPlaylist() bool {
	return q.Kind == QueryKindPlaylist
}

// Identifier returns the string handed to the resolver backend.
func (q SearchQuery) Identifier() string {
	if q.IsURL() {
		return q.Query
	}
	return string(q.Source) + ":" + q.Query
}

// IsValid returns true if the query is not empty.
func (q SearchQuery) IsValid() bool {
	return q.Query != ""
}

func isURL(input string) bool {
	return strings.HasPrefix(input, "http://") ||
		strings.HasPrefix(input, "https://") ||
		strings.HasPrefix(input, "www.")
}

// isPlaylistURL recognizes YouTube list parameters and SoundCloud sets.
func isPlaylistURL(input string) bool {
	if strings.HasPrefix(input, "www.") {
		input = "https://" + input
	}
	u, err := url.Parse(input)
	if err != nil {
		return false
	}

	if u.Query().Get("list") != "" {
		return true
	}
	return strings.Contains(u.Host, "soundcloud.com") && strings.Contains(u.Path, "/sets/")
}
