package infrastructure

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentEmbed struct {
	channelID string
	messageID string
	embed     *discordgo.MessageEmbed
}

type fakeMessageClient struct {
	mu      sync.Mutex
	sent    []sentEmbed
	edited  []sentEmbed
	deleted []string
	err     error
}

func (c *fakeMessageClient) ChannelMessageSendEmbed(
	channelID string,
	embed *discordgo.MessageEmbed,
	_ ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	c.sent = append(c.sent, sentEmbed{channelID: channelID, embed: embed})
	return &discordgo.Message{ID: "555", ChannelID: channelID}, nil
}

func (c *fakeMessageClient) ChannelMessageEditEmbed(
	channelID, messageID string,
	embed *discordgo.MessageEmbed,
	_ ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	c.edited = append(c.edited, sentEmbed{channelID: channelID, messageID: messageID, embed: embed})
	return &discordgo.Message{ID: messageID, ChannelID: channelID}, nil
}

func (c *fakeMessageClient) ChannelMessageDelete(_, messageID string, _ ...discordgo.RequestOption) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, messageID)
	return c.err
}

func testSnapshot() domain.NowPlayingSnapshot {
	return domain.NowPlayingSnapshot{
		Track: domain.Track{
			ID:         "t1",
			StreamURL:  "https://soundcloud.com/artist/song",
			Title:      "Song",
			Artist:     "Artist",
			Duration:   4 * time.Minute,
			URI:        "https://soundcloud.com/artist/song",
			ArtworkURL: "https://i1.sndcdn.com/artworks-t500x500.jpg",
			SourceName: "soundcloud",
			Requester:  domain.Requester{ID: 7, Name: "listener"},
		},
		Elapsed: 2 * time.Minute,
		Volume:  80,
	}
}

func TestNotifier_SendNowPlaying(t *testing.T) {
	client := &fakeMessageClient{}
	n := NewNotifier(client)

	message, err := n.SendNowPlaying(context.Background(), 10, testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(10), message.ChannelID)
	assert.Equal(t, snowflake.ID(555), message.MessageID)

	require.Len(t, client.sent, 1)
	embed := client.sent[0].embed
	assert.Equal(t, "10", client.sent[0].channelID)
	assert.Equal(t, "Song", embed.Title)
	assert.Equal(t, "Now Playing", embed.Author.Name)
	assert.Equal(t, domain.TrackSourceSoundCloud.Color(), embed.Color)
	assert.Equal(t, "https://i1.sndcdn.com/artworks-t500x500.jpg", embed.Thumbnail.URL)
	assert.Equal(t, "80%", embed.Fields[1].Value)
	assert.Equal(t, "<@7>", embed.Fields[3].Value)
}

func TestNotifier_EditNowPlaying(t *testing.T) {
	client := &fakeMessageClient{}
	n := NewNotifier(client)

	snapshot := testSnapshot()
	snapshot.IsPaused = true
	snapshot.IsLooping = true

	message := domain.NowPlayingMessage{ChannelID: 10, MessageID: 20}
	require.NoError(t, n.EditNowPlaying(context.Background(), message, snapshot))

	require.Len(t, client.edited, 1)
	assert.Equal(t, "20", client.edited[0].messageID)
	assert.Equal(t, "Paused (looping)", client.edited[0].embed.Author.Name)
	assert.Equal(t, colorGray, client.edited[0].embed.Color)
}

func TestNotifier_EditWaitsForBudget(t *testing.T) {
	n := NewNotifier(&fakeMessageClient{})
	message := domain.NowPlayingMessage{ChannelID: 10, MessageID: 20}

	for range editBurst {
		require.NoError(t, n.EditNowPlaying(context.Background(), message, testSnapshot()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, n.EditNowPlaying(ctx, message, testSnapshot()))

	// Other channels have their own budget.
	other := domain.NowPlayingMessage{ChannelID: 11, MessageID: 21}
	assert.NoError(t, n.EditNowPlaying(context.Background(), other, testSnapshot()))
}

func TestNotifier_Errors(t *testing.T) {
	client := &fakeMessageClient{err: errors.New("unknown message")}
	n := NewNotifier(client)

	_, err := n.SendNowPlaying(context.Background(), 10, testSnapshot())
	assert.Error(t, err)
	assert.Error(t, n.DeleteMessage(context.Background(), domain.NowPlayingMessage{ChannelID: 10, MessageID: 20}))
	assert.Error(t, n.SendQueueEnded(context.Background(), 10))
}

func TestNotifier_Notices(t *testing.T) {
	client := &fakeMessageClient{}
	n := NewNotifier(client)

	require.NoError(t, n.SendQueueEnded(context.Background(), 10))
	require.NoError(t, n.SendPlaybackFailed(context.Background(), 10, "Could not start the next 3 tracks."))

	require.Len(t, client.sent, 2)
	assert.Contains(t, client.sent[0].embed.Description, "Queue finished")
	assert.Equal(t, "Playback stopped", client.sent[1].embed.Title)
	assert.Equal(t, colorRed, client.sent[1].embed.Color)
}

func TestProgressLine(t *testing.T) {
	snapshot := testSnapshot()

	line := progressLine(snapshot)
	assert.True(t, strings.HasSuffix(line, " 02:00 / 04:00"), line)
	assert.Equal(t, 1, strings.Count(line, "🔘"))
	assert.Equal(t, progressSlots-1, strings.Count(line, "▬"))
	assert.True(t, strings.HasPrefix(line, strings.Repeat("▬", 7)+"🔘"), line)

	snapshot.Elapsed = 10 * time.Minute
	line = progressLine(snapshot)
	assert.True(t, strings.HasPrefix(line, strings.Repeat("▬", progressSlots-1)+"🔘"), line)

	snapshot.Track.IsStream = true
	snapshot.Elapsed = 65 * time.Second
	assert.Equal(t, "🔴 LIVE 01:05", progressLine(snapshot))
}

func TestYouTubeVideoID(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/shorts/abc123", "abc123"},
		{"https://www.youtube.com/channel/xyz", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			assert.Equal(t, tt.want, youTubeVideoID(tt.uri))
		})
	}
}

func TestBestThumbnail_CachesResult(t *testing.T) {
	n := NewNotifier(&fakeMessageClient{})
	track := domain.Track{
		URI:        "https://twitch.tv/x",
		ArtworkURL: "https://static-cdn.jtvnw.net/previews-ttv/live_user_x.jpg",
		SourceName: "twitch",
	}

	got := n.bestThumbnail(context.Background(), track)
	assert.Equal(t, track.ArtworkURL, got)

	_, ok := n.thumbnails.Get(thumbnailKey(track))
	assert.True(t, ok)
}

func TestNotifier_SendDoesNotWaitForArtwork(t *testing.T) {
	client := &fakeMessageClient{}
	n := NewNotifier(client)

	release := make(chan struct{})
	var probes atomic.Int32
	n.probe = func(ctx context.Context, url string) bool {
		probes.Add(1)
		select {
		case <-release:
		case <-ctx.Done():
			return false
		}
		return strings.Contains(url, "maxresdefault")
	}

	snapshot := testSnapshot()
	snapshot.Track.URI = "https://www.youtube.com/watch?v=abc123"
	snapshot.Track.SourceName = "youtube"
	snapshot.Track.ArtworkURL = "https://i.ytimg.com/vi/abc123/mqdefault.jpg"

	sent := make(chan error, 1)
	go func() {
		_, err := n.SendNowPlaying(context.Background(), 10, snapshot)
		sent <- err
	}()

	select {
	case err := <-sent:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("SendNowPlaying blocked on a thumbnail lookup")
	}
	assert.Equal(t, snapshot.Track.ArtworkURL, client.sent[0].embed.Thumbnail.URL)

	close(release)
	best := "https://img.youtube.com/vi/abc123/maxresdefault.jpg"
	require.Eventually(t, func() bool {
		url, ok := n.thumbnails.Get(thumbnailKey(snapshot.Track))
		return ok && url == best
	}, time.Second, 5*time.Millisecond)

	message := domain.NowPlayingMessage{ChannelID: 10, MessageID: 555}
	require.NoError(t, n.EditNowPlaying(context.Background(), message, snapshot))
	assert.Equal(t, best, client.edited[0].embed.Thumbnail.URL)
	assert.Equal(t, int32(1), probes.Load())
}
