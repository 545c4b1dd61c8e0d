package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	neturl "net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/application/ports"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/domain"
	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Embed colors.
const (
	colorRed  = 0xE74C3C
	colorGray = 0x95A5A6
)

const (
	progressSlots = 15

	thumbnailTimeout = 5 * time.Second

	// Discord allows roughly five edits per five seconds per channel.
	editRate  = rate.Limit(1)
	editBurst = 3
)

// messageClient is the part of the Discord REST API the notifier uses.
// *discordgo.Session satisfies it.
type messageClient interface {
	ChannelMessageSendEmbed(
		channelID string,
		embed *discordgo.MessageEmbed,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)
	ChannelMessageEditEmbed(
		channelID, messageID string,
		embed *discordgo.MessageEmbed,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

// Notifier renders "Now Playing" panels and session notices as Discord embeds.
type Notifier struct {
	client     messageClient
	httpClient *retryablehttp.Client
	thumbnails *expirable.LRU[string, string]
	lookups    singleflight.Group
	probe      func(ctx context.Context, url string) bool

	mu       sync.Mutex
	limiters map[snowflake.ID]*rate.Limiter
}

// NewNotifier creates a new Notifier.
func NewNotifier(client messageClient) *Notifier {
	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = 1
	httpClient.HTTPClient.Timeout = 5 * time.Second
	httpClient.Logger = nil

	n := &Notifier{
		client:     client,
		httpClient: httpClient,
		thumbnails: expirable.NewLRU[string, string](512, nil, time.Hour),
		limiters:   make(map[snowflake.ID]*rate.Limiter),
	}
	n.probe = n.urlExists
	return n
}

// SendNowPlaying posts a new panel. It never waits on artwork lookups: a
// thumbnail not yet resolved is shown at its original quality and upgraded
// by later edits.
func (n *Notifier) SendNowPlaying(
	ctx context.Context,
	channelID snowflake.ID,
	snapshot domain.NowPlayingSnapshot,
) (domain.NowPlayingMessage, error) {
	msg, err := n.client.ChannelMessageSendEmbed(
		channelID.String(),
		n.nowPlayingEmbed(snapshot, n.cachedThumbnail(snapshot.Track)),
		discordgo.WithContext(ctx),
	)
	if err != nil {
		return domain.NowPlayingMessage{}, err
	}

	messageID, err := snowflake.Parse(msg.ID)
	if err != nil {
		return domain.NowPlayingMessage{}, err
	}
	return domain.NowPlayingMessage{ChannelID: channelID, MessageID: messageID}, nil
}

// EditNowPlaying updates a panel, waiting for the channel's edit budget.
func (n *Notifier) EditNowPlaying(
	ctx context.Context,
	message domain.NowPlayingMessage,
	snapshot domain.NowPlayingSnapshot,
) error {
	if err := n.limiter(message.ChannelID).Wait(ctx); err != nil {
		return err
	}

	_, err := n.client.ChannelMessageEditEmbed(
		message.ChannelID.String(),
		message.MessageID.String(),
		n.nowPlayingEmbed(snapshot, n.bestThumbnail(ctx, snapshot.Track)),
		discordgo.WithContext(ctx),
	)
	return err
}

// DeleteMessage deletes a panel.
func (n *Notifier) DeleteMessage(ctx context.Context, message domain.NowPlayingMessage) error {
	return n.client.ChannelMessageDelete(
		message.ChannelID.String(),
		message.MessageID.String(),
		discordgo.WithContext(ctx),
	)
}

// SendQueueEnded reports that the queue ran out.
func (n *Notifier) SendQueueEnded(ctx context.Context, channelID snowflake.ID) error {
	embed := &discordgo.MessageEmbed{
		Description: "Queue finished. Add more with `/play`.",
		Color:       colorGray,
	}
	_, err := n.client.ChannelMessageSendEmbed(channelID.String(), embed, discordgo.WithContext(ctx))
	return err
}

// SendPlaybackFailed reports that playback gave up.
func (n *Notifier) SendPlaybackFailed(ctx context.Context, channelID snowflake.ID, reason string) error {
	embed := &discordgo.MessageEmbed{
		Title:       "Playback stopped",
		Description: reason,
		Color:       colorRed,
	}
	_, err := n.client.ChannelMessageSendEmbed(channelID.String(), embed, discordgo.WithContext(ctx))
	return err
}

func (n *Notifier) limiter(channelID snowflake.ID) *rate.Limiter {
	n.mu.Lock()
	defer n.mu.Unlock()

	l, ok := n.limiters[channelID]
	if !ok {
		l = rate.NewLimiter(editRate, editBurst)
		n.limiters[channelID] = l
	}
	return l
}

func (n *Notifier) nowPlayingEmbed(snapshot domain.NowPlayingSnapshot, thumbnailURL string) *discordgo.MessageEmbed {
	track := snapshot.Track
	source := track.Source()

	status := lo.Ternary(snapshot.IsPaused, "Paused", "Now Playing")
	if snapshot.IsLooping {
		status += " (looping)"
	}

	embed := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{Name: status},
		Title:  track.Title,
		URL:    track.URI,
		Color:  lo.Ternary(snapshot.IsPaused, colorGray, source.Color()),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Artist", Value: lo.Ternary(track.Artist != "", track.Artist, "Unknown"), Inline: true},
			{Name: "Volume", Value: fmt.Sprintf("%d%%", snapshot.Volume), Inline: true},
			{Name: "Progress", Value: progressLine(snapshot)},
		},
	}

	if track.Requester.ID != 0 || track.Requester.Name != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "Requested by",
			Value:  track.Requester.Mention(),
			Inline: true,
		})
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text:    "Requested by " + track.Requester.Name,
			IconURL: track.Requester.AvatarURL,
		}
	}

	if thumbnailURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: thumbnailURL}
	}
	return embed
}

// progressLine renders "▬▬▬🔘▬▬ 01:23 / 03:45", or the elapsed time for live tracks.
func progressLine(snapshot domain.NowPlayingSnapshot) string {
	elapsed := domain.FormatDuration(snapshot.Elapsed)
	if snapshot.Track.IsLive() {
		return "🔴 LIVE " + elapsed
	}

	knob := min(int(snapshot.Progress()*progressSlots), progressSlots-1)
	bar := strings.Repeat("▬", knob) + "🔘" + strings.Repeat("▬", progressSlots-knob-1)
	return fmt.Sprintf("%s %s / %s", bar, elapsed, snapshot.Track.FormattedDuration())
}

func thumbnailKey(track domain.Track) string {
	return track.URI + "|" + track.ArtworkURL
}

func needsProbe(source domain.TrackSource) bool {
	return source == domain.TrackSourceYouTube || source == domain.TrackSourceTwitch
}

// cachedThumbnail returns resolved artwork without blocking. On a miss it
// returns the track's own artwork and resolves the best one in the background.
func (n *Notifier) cachedThumbnail(track domain.Track) string {
	if url, ok := n.thumbnails.Get(thumbnailKey(track)); ok {
		return url
	}
	if !needsProbe(track.Source()) {
		return track.ArtworkURL
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), thumbnailTimeout)
		defer cancel()
		n.bestThumbnail(ctx, track)
	}()
	return track.ArtworkURL
}

// bestThumbnail returns the highest quality artwork available, cached per
// track. Concurrent lookups for one track share a single probe.
func (n *Notifier) bestThumbnail(ctx context.Context, track domain.Track) string {
	key := thumbnailKey(track)
	if url, ok := n.thumbnails.Get(key); ok {
		return url
	}
	if !needsProbe(track.Source()) {
		return track.ArtworkURL
	}

	v, _, _ := n.lookups.Do(key, func() (interface{}, error) {
		if url, ok := n.thumbnails.Get(key); ok {
			return url, nil
		}

		url := track.ArtworkURL
		switch track.Source() {
		case domain.TrackSourceYouTube:
			if videoID := youTubeVideoID(track.URI); videoID != "" {
				url = n.youTubeThumbnail(ctx, videoID, track.ArtworkURL)
			}
		case domain.TrackSourceTwitch:
			url = n.twitchThumbnail(ctx, track.ArtworkURL)
		}

		// An interrupted lookup is retried on the next edit.
		if ctx.Err() == nil {
			n.thumbnails.Add(key, url)
		}
		return url, nil
	})
	return v.(string)
}

// youTubeThumbnail tries the YouTube thumbnail qualities from best to worst.
func (n *Notifier) youTubeThumbnail(ctx context.Context, videoID, fallbackURL string) string {
	ctx, cancel := context.WithTimeout(ctx, thumbnailTimeout)
	defer cancel()

	for _, quality := range []string{"maxresdefault", "sddefault", "hqdefault"} {
		url := fmt.Sprintf("https://img.youtube.com/vi/%s/%s.jpg", videoID, quality)
		if n.probe(ctx, url) {
			return url
		}
	}
	return fallbackURL
}

// twitchThumbnail swaps the default preview for a 1280x720 one when it exists.
func (n *Notifier) twitchThumbnail(ctx context.Context, artworkURL string) string {
	highRes := strings.Replace(artworkURL, "440x248", "1280x720", 1)
	if highRes == artworkURL {
		return artworkURL
	}

	ctx, cancel := context.WithTimeout(ctx, thumbnailTimeout)
	defer cancel()

	if n.probe(ctx, highRes) {
		return highRes
	}
	return artworkURL
}

// youTubeVideoID extracts the video ID from watch, short and youtu.be URLs.
func youTubeVideoID(uri string) string {
	u, err := neturl.Parse(uri)
	if err != nil {
		return ""
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	if strings.HasSuffix(u.Host, "youtu.be") || strings.HasPrefix(u.Path, "/shorts/") {
		return path.Base(u.Path)
	}
	return ""
}

func (n *Notifier) urlExists(ctx context.Context, url string) bool {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

var (
	_ ports.NowPlayingSink     = (*Notifier)(nil)
	_ ports.NotificationSender = (*Notifier)(nil)
)
