package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/require"

	"github.com/kasseta-bot/kasseta/internal/modules/music_player/application/ports"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/domain"
)

const (
	testGuildID   = snowflake.ID(1)
	testChannelID = snowflake.ID(100)
	testVoiceID   = snowflake.ID(200)
)

var errPlayFailed = errors.New("play failed")

type playCall struct {
	source     ports.StreamSource
	volume     float64
	onComplete ports.CompletionFunc
}

// fakeSink records play calls; completions are fired by the test.
type fakeSink struct {
	mu         sync.Mutex
	plays      []playCall
	playing    bool
	paused     bool
	volume     float64
	stops      int
	failAll    bool
	failURLs   map[string]bool
	failNext   int
	fireOnStop bool // misbehaving sinks complete on Stop
}

func newFakeSink() *fakeSink {
	return &fakeSink{failURLs: make(map[string]bool)}
}

func (f *fakeSink) Play(_ context.Context, source ports.StreamSource, volume float64, onComplete ports.CompletionFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failAll || f.failURLs[source.URL] {
		return errPlayFailed
	}
	if f.failNext > 0 {
		f.failNext--
		return errPlayFailed
	}

	f.plays = append(f.plays, playCall{source: source, volume: volume, onComplete: onComplete})
	f.playing = true
	f.paused = false
	f.volume = volume
	return nil
}

func (f *fakeSink) Stop(context.Context) error {
	f.mu.Lock()
	f.stops++
	f.playing = false
	f.paused = false
	var onComplete ports.CompletionFunc
	if f.fireOnStop && len(f.plays) > 0 {
		onComplete = f.plays[len(f.plays)-1].onComplete
	}
	f.mu.Unlock()

	if onComplete != nil {
		onComplete(nil)
	}
	return nil
}

func (f *fakeSink) Pause(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = false
	f.paused = true
	return nil
}

func (f *fakeSink) Resume(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = true
	f.paused = false
	return nil
}

func (f *fakeSink) SetVolume(_ context.Context, volume float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume = volume
	return nil
}

func (f *fakeSink) IsPlaying() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

func (f *fakeSink) IsPaused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused
}

func (f *fakeSink) playCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.plays)
}

func (f *fakeSink) play(i int) playCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.plays[i]
}

func (f *fakeSink) lastPlay() playCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.plays[len(f.plays)-1]
}

func (f *fakeSink) currentVolume() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.volume
}

// end simulates the last play call reaching its end.
func (f *fakeSink) end(err error) {
	f.mu.Lock()
	f.playing = false
	f.paused = false
	onComplete := f.plays[len(f.plays)-1].onComplete
	f.mu.Unlock()

	onComplete(err)
}

type fakeVoice struct {
	mu     sync.Mutex
	joins  []snowflake.ID
	leaves int
}

func (f *fakeVoice) JoinChannel(_ context.Context, _, channelID snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joins = append(f.joins, channelID)
	return nil
}

func (f *fakeVoice) LeaveChannel(context.Context, snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaves++
	return nil
}

func (f *fakeVoice) leaveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.leaves
}

// fakeUI records panel traffic.
type fakeUI struct {
	mu      sync.Mutex
	nextID  snowflake.ID
	sent    []domain.NowPlayingMessage
	edits   []domain.NowPlayingMessage
	deleted []domain.NowPlayingMessage
	last    domain.NowPlayingSnapshot
	editErr error
}

func (f *fakeUI) SendNowPlaying(
	_ context.Context,
	channelID snowflake.ID,
	snapshot domain.NowPlayingSnapshot,
) (domain.NowPlayingMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	message := domain.NowPlayingMessage{ChannelID: channelID, MessageID: f.nextID}
	f.sent = append(f.sent, message)
	f.last = snapshot
	return message, nil
}

func (f *fakeUI) EditNowPlaying(
	_ context.Context,
	message domain.NowPlayingMessage,
	snapshot domain.NowPlayingSnapshot,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, message)
	f.last = snapshot
	return nil
}

func (f *fakeUI) DeleteMessage(_ context.Context, message domain.NowPlayingMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, message)
	return nil
}

func (f *fakeUI) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeUI) editCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.edits)
}

func (f *fakeUI) lastEdit() domain.NowPlayingMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.edits[len(f.edits)-1]
}

func (f *fakeUI) setEditErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.editErr = err
}

type fakeNotifier struct {
	mu          sync.Mutex
	queueEnded  int
	failed      int
	lastChannel snowflake.ID
}

func (f *fakeNotifier) SendQueueEnded(_ context.Context, channelID snowflake.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queueEnded++
	f.lastChannel = channelID
	return nil
}

func (f *fakeNotifier) SendPlaybackFailed(_ context.Context, channelID snowflake.ID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed++
	f.lastChannel = channelID
	return nil
}

func (f *fakeNotifier) counts() (queueEnded, failed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queueEnded, f.failed
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	session  *Session
	sink     *fakeSink
	voice    *fakeVoice
	ui       *fakeUI
	notifier *fakeNotifier
	clock    *fakeClock
}

func newHarness(t *testing.T, configure ...func(*Options)) *harness {
	t.Helper()

	h := &harness{
		sink:     newFakeSink(),
		voice:    &fakeVoice{},
		ui:       &fakeUI{},
		notifier: &fakeNotifier{},
		clock:    newFakeClock(),
	}

	opts := DefaultOptions()
	opts.PresenterInterval = time.Hour
	opts.Now = h.clock.Now
	for _, fn := range configure {
		fn(&opts)
	}

	h.session = New(testGuildID, Dependencies{
		Sink:     h.sink,
		Voice:    h.voice,
		UI:       h.ui,
		Notifier: h.notifier,
	}, opts)
	t.Cleanup(func() {
		_ = h.session.Close(context.Background())
	})

	require.NoError(t, h.session.SetNotificationChannel(context.Background(), testChannelID))
	return h
}

// sync waits until everything posted to the loop so far has run.
func (h *harness) sync(t *testing.T) {
	t.Helper()
	require.NoError(t, h.session.do(context.Background(), func(context.Context) error { return nil }))
}

// inspect runs fn on the loop with access to the raw state.
func (h *harness) inspect(t *testing.T, fn func(s *Session)) {
	t.Helper()
	require.NoError(t, h.session.do(context.Background(), func(context.Context) error {
		fn(h.session)
		return nil
	}))
}

func track(title string, seconds int) *domain.Track {
	return &domain.Track{
		ID:        domain.TrackID(title),
		StreamURL: "https://example.com/" + title,
		Title:     title,
		Duration:  time.Duration(seconds) * time.Second,
	}
}
