package infrastructure

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/application/ports"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlayer struct {
	mu      sync.Mutex
	updates int
	err     error
}

func (p *fakePlayer) Update(_ context.Context, _ ...lavalink.PlayerUpdateOpt) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates++
	return p.err
}

type fakeLoader struct {
	results    map[string]*lavalink.LoadResult
	err        error
	identifier string
}

func (l *fakeLoader) LoadTracks(_ context.Context, identifier string) (*lavalink.LoadResult, error) {
	l.identifier = identifier
	if l.err != nil {
		return nil, l.err
	}
	if result, ok := l.results[identifier]; ok {
		return result, nil
	}
	return &lavalink.LoadResult{Data: lavalink.Empty{}}, nil
}

func newTestSink(player *fakePlayer, loader *fakeLoader) *lavalinkSink {
	return newLavalinkSink(1, func() lavalinkPlayer { return player }, loader)
}

type completions struct {
	mu   sync.Mutex
	errs []error
}

func (c *completions) record(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

func (c *completions) all() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]error(nil), c.errs...)
}

func TestLavalinkSink_CompletesOnFinish(t *testing.T) {
	player := &fakePlayer{}
	sink := newTestSink(player, &fakeLoader{})
	var done completions

	err := sink.Play(context.Background(), ports.StreamSource{Encoded: "enc-a"}, 1, done.record)
	require.NoError(t, err)
	assert.True(t, sink.IsPlaying())

	sink.ended("enc-a", domain.TrackEndFinished)

	require.Len(t, done.all(), 1)
	assert.NoError(t, done.all()[0])
	assert.False(t, sink.IsPlaying())

	// A duplicate end event is not delivered twice.
	sink.ended("enc-a", domain.TrackEndFinished)
	assert.Len(t, done.all(), 1)
}

func TestLavalinkSink_IgnoresSuppressedAndStaleEnds(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
		reason  domain.TrackEndReason
	}{
		{"stopped", "enc-b", domain.TrackEndStopped},
		{"replaced", "enc-b", domain.TrackEndReplaced},
		{"stale track", "enc-a", domain.TrackEndFinished},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := newTestSink(&fakePlayer{}, &fakeLoader{})
			var done completions

			require.NoError(t, sink.Play(context.Background(), ports.StreamSource{Encoded: "enc-a"}, 1, done.record))
			require.NoError(t, sink.Play(context.Background(), ports.StreamSource{Encoded: "enc-b"}, 1, done.record))

			sink.ended(tt.encoded, tt.reason)
			assert.Empty(t, done.all())
			assert.True(t, sink.IsPlaying())
		})
	}
}

func TestLavalinkSink_AbnormalEndCarriesError(t *testing.T) {
	sink := newTestSink(&fakePlayer{}, &fakeLoader{})
	var done completions

	require.NoError(t, sink.Play(context.Background(), ports.StreamSource{Encoded: "enc-a"}, 1, done.record))
	sink.ended("enc-a", domain.TrackEndLoadFailed)

	require.Len(t, done.all(), 1)
	assert.ErrorIs(t, done.all()[0], errTrackLoadFailed)
}

func TestLavalinkSink_StopSuppressesCompletion(t *testing.T) {
	player := &fakePlayer{}
	sink := newTestSink(player, &fakeLoader{})
	var done completions

	require.NoError(t, sink.Play(context.Background(), ports.StreamSource{Encoded: "enc-a"}, 1, done.record))
	require.NoError(t, sink.Stop(context.Background()))

	sink.ended("enc-a", domain.TrackEndFinished)
	sink.abort("enc-a", errTrackStuck)

	assert.Empty(t, done.all())
	assert.False(t, sink.IsPlaying())
	assert.Equal(t, 2, player.updates)
}

func TestLavalinkSink_FailedUpdateResets(t *testing.T) {
	player := &fakePlayer{err: errors.New("node unavailable")}
	sink := newTestSink(player, &fakeLoader{})
	var done completions

	err := sink.Play(context.Background(), ports.StreamSource{Encoded: "enc-a"}, 1, done.record)
	require.Error(t, err)

	assert.False(t, sink.IsPlaying())
	sink.ended("enc-a", domain.TrackEndFinished)
	assert.Empty(t, done.all())
}

func TestLavalinkSink_LoadsStreamsByURL(t *testing.T) {
	loader := &fakeLoader{results: map[string]*lavalink.LoadResult{
		"https://radio.example/live": {
			Data: lavalink.Track{Encoded: "enc-radio"},
		},
	}}
	sink := newTestSink(&fakePlayer{}, loader)
	var done completions

	source := ports.StreamSource{URL: "https://radio.example/live"}
	require.NoError(t, sink.Play(context.Background(), source, 1, done.record))
	assert.Equal(t, "https://radio.example/live", loader.identifier)

	sink.ended("enc-radio", domain.TrackEndFinished)
	assert.Len(t, done.all(), 1)

	err := sink.Play(context.Background(), ports.StreamSource{URL: "https://radio.example/gone"}, 1, done.record)
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestLavalinkSink_PauseResume(t *testing.T) {
	sink := newTestSink(&fakePlayer{}, &fakeLoader{})

	require.NoError(t, sink.Play(context.Background(), ports.StreamSource{Encoded: "enc-a", Offset: 30 * time.Second}, 1, nil))
	require.NoError(t, sink.Pause(context.Background()))
	assert.True(t, sink.IsPaused())
	assert.False(t, sink.IsPlaying())

	require.NoError(t, sink.Resume(context.Background()))
	assert.False(t, sink.IsPaused())
	assert.True(t, sink.IsPlaying())
}

func TestVolumeToLavalink(t *testing.T) {
	tests := []struct {
		volume float64
		want   int
	}{
		{0, 0},
		{0.5, 50},
		{1, 100},
		{1.5, 150},
		{20, 1000},
		{-1, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, volumeToLavalink(tt.volume), "volume %v", tt.volume)
	}
}

func TestVoiceHandshake(t *testing.T) {
	var h voiceHandshake
	channelID := snowflakePtr(42)

	ready := h.wait()
	assert.False(t, h.state(channelID, "session"))

	select {
	case <-ready:
		t.Fatal("handshake completed with only the state half")
	default:
	}

	assert.True(t, h.server("token", "endpoint.discord.media"))
	select {
	case <-ready:
	case <-time.After(time.Second):
		t.Fatal("handshake did not complete")
	}

	gotChannel, sessionID, token, endpoint := h.take()
	assert.Equal(t, channelID, gotChannel)
	assert.Equal(t, "session", sessionID)
	assert.Equal(t, "token", token)
	assert.Equal(t, "endpoint.discord.media", endpoint)

	// take resets both halves.
	assert.False(t, h.server("token2", "endpoint2"))
}
