package usecases

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/application/ports"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/application/session"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/domain"
)

const (
	testGuildID        = snowflake.ID(1)
	testUserID         = snowflake.ID(2)
	testTextChannelID  = snowflake.ID(3)
	testVoiceChannelID = snowflake.ID(4)
)

func mockTrack(id string) *domain.Track {
	return &domain.Track{
		ID:        domain.TrackID(id),
		StreamURL: "https://example.com/" + id,
		Encoded:   "encoded-" + id,
		Title:     "Track " + id,
		Artist:    "Artist",
		Duration:  3 * time.Minute,
	}
}

// mockResolver answers from fixed tables.
type mockResolver struct {
	tracks    map[string]*domain.Track
	playlists map[string]*domain.TrackList
	results   []*domain.Track
	err       error

	searchLimit int
}

func newMockResolver() *mockResolver {
	return &mockResolver{
		tracks:    make(map[string]*domain.Track),
		playlists: make(map[string]*domain.TrackList),
	}
}

func (m *mockResolver) ResolveSingle(_ context.Context, query string) (*domain.Track, error) {
	if m.err != nil {
		return nil, m.err
	}
	track, ok := m.tracks[query]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return track, nil
}

func (m *mockResolver) ResolvePlaylist(_ context.Context, url string) (*domain.TrackList, error) {
	if m.err != nil {
		return nil, m.err
	}
	list, ok := m.playlists[url]
	if !ok {
		return nil, ports.ErrNotAPlaylist
	}
	return list, nil
}

func (m *mockResolver) Search(_ context.Context, _ string, limit int) ([]*domain.Track, error) {
	m.searchLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

type mockVoiceState struct {
	channels map[snowflake.ID]snowflake.ID // userID -> channelID
	err      error
}

func (m *mockVoiceState) GetUserVoiceChannel(_, userID snowflake.ID) (snowflake.ID, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.channels[userID], nil
}

type mockSettings struct {
	mu       sync.Mutex
	settings map[snowflake.ID]domain.GuildSettings
	saves    int
}

func newMockSettings() *mockSettings {
	return &mockSettings{settings: make(map[snowflake.ID]domain.GuildSettings)}
}

func (m *mockSettings) Get(_ context.Context, guildID snowflake.ID) (domain.GuildSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.settings[guildID]; ok {
		return s, nil
	}
	return domain.DefaultGuildSettings(guildID), nil
}

func (m *mockSettings) Save(_ context.Context, settings domain.GuildSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[settings.GuildID] = settings
	m.saves++
	return nil
}

func (m *mockSettings) Delete(_ context.Context, guildID snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.settings, guildID)
	return nil
}

// mockSink plays until the test ends it; completions are never fired unless asked.
type mockSink struct {
	mu      sync.Mutex
	sources []ports.StreamSource
	volume  float64
	playing bool
	paused  bool
	playErr error
}

func (m *mockSink) Play(_ context.Context, source ports.StreamSource, volume float64, _ ports.CompletionFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playErr != nil {
		return m.playErr
	}
	m.sources = append(m.sources, source)
	m.volume = volume
	m.playing = true
	m.paused = false
	return nil
}

func (m *mockSink) Stop(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
	m.paused = false
	return nil
}

func (m *mockSink) Pause(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
	m.paused = true
	return nil
}

func (m *mockSink) Resume(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = true
	m.paused = false
	return nil
}

func (m *mockSink) SetVolume(_ context.Context, volume float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = volume
	return nil
}

func (m *mockSink) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

func (m *mockSink) IsPaused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

func (m *mockSink) playCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sources)
}

func (m *mockSink) lastSource() ports.StreamSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sources[len(m.sources)-1]
}

func (m *mockSink) currentVolume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

type mockVoiceConnection struct {
	mu     sync.Mutex
	joins  []snowflake.ID
	leaves int
}

func (m *mockVoiceConnection) JoinChannel(_ context.Context, _, channelID snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.joins = append(m.joins, channelID)
	return nil
}

func (m *mockVoiceConnection) LeaveChannel(context.Context, snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaves++
	return nil
}

func (m *mockVoiceConnection) counts() (joins, leaves int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.joins), m.leaves
}

type mockUI struct {
	mu   sync.Mutex
	sent int
}

func (m *mockUI) SendNowPlaying(
	_ context.Context,
	channelID snowflake.ID,
	_ domain.NowPlayingSnapshot,
) (domain.NowPlayingMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent++
	return domain.NowPlayingMessage{ChannelID: channelID, MessageID: snowflake.ID(m.sent)}, nil
}

func (m *mockUI) EditNowPlaying(context.Context, domain.NowPlayingMessage, domain.NowPlayingSnapshot) error {
	return nil
}

func (m *mockUI) DeleteMessage(context.Context, domain.NowPlayingMessage) error {
	return nil
}

type mockNotifier struct{}

func (mockNotifier) SendQueueEnded(context.Context, snowflake.ID) error { return nil }

func (mockNotifier) SendPlaybackFailed(context.Context, snowflake.ID, string) error { return nil }

// testEnv wires the services to a real registry backed by mocks.
type testEnv struct {
	resolver   *mockResolver
	voiceState *mockVoiceState
	settings   *mockSettings
	sink       *mockSink
	voice      *mockVoiceConnection
	ui         *mockUI
	registry   *session.Registry

	loader   *TrackLoaderService
	voiceSvc *VoiceChannelService
	playback *PlaybackService
	queue    *QueueService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		resolver: newMockResolver(),
		voiceState: &mockVoiceState{channels: map[snowflake.ID]snowflake.ID{
			testUserID: testVoiceChannelID,
		}},
		settings: newMockSettings(),
		sink:     &mockSink{},
		voice:    &mockVoiceConnection{},
		ui:       &mockUI{},
	}

	env.registry = session.NewRegistry(func(ctx context.Context, guildID snowflake.ID) (*session.Session, error) {
		settings, err := env.settings.Get(ctx, guildID)
		if err != nil {
			return nil, err
		}
		opts := session.DefaultOptions()
		opts.PresenterInterval = time.Hour
		opts.InitialVolumePercent = settings.VolumePercent
		return session.New(guildID, session.Dependencies{
			Sink:     env.sink,
			Voice:    env.voice,
			UI:       env.ui,
			Notifier: mockNotifier{},
		}, opts), nil
	})
	t.Cleanup(func() {
		_ = env.registry.Close(context.Background())
	})

	env.loader = NewTrackLoaderService(env.resolver, DefaultSearchLimit)
	env.voiceSvc = NewVoiceChannelService(env.registry, env.voiceState)
	env.playback = NewPlaybackService(env.registry, env.loader, env.voiceSvc, env.settings)
	env.queue = NewQueueService(env.registry, DefaultPageSize)
	return env
}

// play enqueues a resolvable track through the playback service.
func (e *testEnv) play(t *testing.T, id string) *PlayOutput {
	t.Helper()

	track := mockTrack(id)
	e.resolver.tracks[track.StreamURL] = track
	out, err := e.playback.Play(context.Background(), PlayInput{
		GuildID:               testGuildID,
		UserID:                testUserID,
		NotificationChannelID: testTextChannelID,
		Query:                 track.StreamURL,
	})
	if err != nil {
		t.Fatalf("Play(%q) failed: %v", id, err)
	}
	return out
}
