package infrastructure

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/application/ports"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/domain"
)

const maxPlaylistBody = 64 << 10

var errUnsupportedSearch = errors.New("keyword search needs the lavalink backend")

// DirectResolver resolves plain HTTP(S) audio URLs, including radio streams
// and .pls/.m3u station files, by probing them.
type DirectResolver struct {
	client *retryablehttp.Client
}

// NewDirectResolver creates a resolver with a retrying HTTP client.
func NewDirectResolver() *DirectResolver {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = 10 * time.Second
	client.Logger = nil

	return &DirectResolver{client: client}
}

// ResolveSingle probes a URL and describes the audio behind it.
func (r *DirectResolver) ResolveSingle(ctx context.Context, query string) (*domain.Track, error) {
	u, err := url.Parse(query)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, ports.ErrNotFound
	}

	resp, err := r.probe(ctx, u.String())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return nil, ports.ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: %s returned %s", ports.ErrResolutionFailed, u.Host, resp.Status)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	streamURL := resp.Request.URL.String()

	if isStationPlaylist(mediaType, u.Path) {
		entry, err := firstPlaylistEntry(io.LimitReader(resp.Body, maxPlaylistBody))
		if err != nil {
			return nil, err
		}
		streamURL = entry
	} else if !isAudio(mediaType) {
		return nil, fmt.Errorf("%w: %s is not audio (%s)", ports.ErrResolutionFailed, u.Host, mediaType)
	}

	title := resp.Header.Get("icy-name")
	if title == "" {
		title = titleFromURL(u)
	}
	isStream := resp.Header.Get("icy-name") != "" || resp.Header.Get("icy-br") != "" || resp.ContentLength < 0

	return &domain.Track{
		ID:         domain.TrackID(streamURL),
		StreamURL:  streamURL,
		Title:      title,
		Artist:     u.Host,
		URI:        query,
		SourceName: "http",
		IsStream:   isStream,
	}, nil
}

// ResolvePlaylist is not supported for plain URLs.
func (r *DirectResolver) ResolvePlaylist(context.Context, string) (*domain.TrackList, error) {
	return nil, ports.ErrNotAPlaylist
}

// Search is not supported for plain URLs.
func (r *DirectResolver) Search(context.Context, string, int) ([]*domain.Track, error) {
	return nil, fmt.Errorf("%w: %w", ports.ErrResolutionFailed, errUnsupportedSearch)
}

// probe issues a GET and returns the response with the body unread.
// Streams never end, so callers must close the body.
func (r *DirectResolver) probe(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrResolutionFailed, err)
	}
	req.Header.Set("Icy-MetaData", "1")
	req.Header.Set("User-Agent", "kasseta")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrResolutionFailed, err)
	}
	return resp, nil
}

func isAudio(mediaType string) bool {
	return strings.HasPrefix(mediaType, "audio/") ||
		mediaType == "application/ogg" ||
		mediaType == "application/octet-stream"
}

func isStationPlaylist(mediaType, urlPath string) bool {
	switch mediaType {
	case "audio/x-scpls", "audio/x-mpegurl", "audio/mpegurl", "application/vnd.apple.mpegurl", "application/pls+xml":
		return true
	}
	switch strings.ToLower(path.Ext(urlPath)) {
	case ".pls", ".m3u", ".m3u8":
		return true
	}
	return false
}

// firstPlaylistEntry returns the first stream URL of a PLS or M3U file.
func firstPlaylistEntry(body io.Reader) (string, error) {
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "[") {
			continue
		}

		// PLS: File1=http://...
		if key, value, ok := strings.Cut(line, "="); ok {
			if strings.HasPrefix(strings.ToLower(key), "file") {
				line = strings.TrimSpace(value)
			} else {
				continue
			}
		}

		if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
			return line, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ports.ErrResolutionFailed, err)
	}
	return "", ports.ErrNotFound
}

func titleFromURL(u *url.URL) string {
	if name := path.Base(u.Path); name != "/" && name != "." && name != "" {
		return name
	}
	return u.Host
}

var _ ports.TrackResolver = (*DirectResolver)(nil)
