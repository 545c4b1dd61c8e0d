package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sony/gobreaker"

	"github.com/kasseta-bot/kasseta/internal/modules/music_player/application/ports"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/domain"
	"github.com/kasseta-bot/kasseta/internal/worker"
)

var (
	// ErrSessionClosed is returned by every operation once the session is closed.
	ErrSessionClosed = errors.New("playback session closed")

	// ErrCoolingDown is returned when tracks are offered to an idle session
	// whose start breaker is open.
	ErrCoolingDown = errors.New("playback paused after repeated start failures")
)

const (
	defaultMaxStartFailures = 5
	defaultBreakerCooldown  = 30 * time.Second
	defaultOpTimeout        = 10 * time.Second
	loopBacklog             = 64
)

// Dependencies are the collaborators a Session drives.
type Dependencies struct {
	Sink     ports.AudioSink
	Voice    ports.VoiceConnection
	UI       ports.NowPlayingSink
	Notifier ports.NotificationSender
}

// Options tune a Session. Zero values fall back to defaults, except
// InitialVolumePercent where 0 means muted.
type Options struct {
	PresenterInterval           time.Duration
	MaxConsecutiveStartFailures uint32
	BreakerCooldown             time.Duration
	OperationTimeout            time.Duration // bounds each unit of loop work once it starts
	InitialVolumePercent        int
	Now                         func() time.Time
}

// DefaultOptions returns the options used in production.
func DefaultOptions() Options {
	return Options{
		PresenterInterval:           DefaultPresenterInterval,
		MaxConsecutiveStartFailures: defaultMaxStartFailures,
		BreakerCooldown:             defaultBreakerCooldown,
		OperationTimeout:            defaultOpTimeout,
		InitialVolumePercent:        domain.DefaultVolumePercent,
		Now:                         time.Now,
	}
}

func (o Options) withDefaults() Options {
	if o.PresenterInterval <= 0 {
		o.PresenterInterval = DefaultPresenterInterval
	}
	if o.MaxConsecutiveStartFailures == 0 {
		o.MaxConsecutiveStartFailures = defaultMaxStartFailures
	}
	if o.BreakerCooldown <= 0 {
		o.BreakerCooldown = defaultBreakerCooldown
	}
	if o.OperationTimeout <= 0 {
		o.OperationTimeout = defaultOpTimeout
	}
	if o.InitialVolumePercent < domain.MinVolumePercent || o.InitialVolumePercent > domain.MaxVolumePercent {
		o.InitialVolumePercent = domain.DefaultVolumePercent
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// EnqueueResult reports where enqueued tracks landed.
type EnqueueResult struct {
	Position int  // 1-based queue position of the first track
	Started  bool // playback started with the first track
}

// Status is a point-in-time view of a session.
type Status struct {
	Mode          domain.PlaybackMode
	Current       *domain.NowPlayingSnapshot // nil when no track is loaded
	RadioURL      string
	Queue         []*domain.Track
	QueueDuration time.Duration
	VolumePercent int
	IsLooping     bool
	IsPaused      bool
}

// Session is the playback session of one guild.
//
// All state is owned by a single-worker loop. Public methods submit work to
// the loop and wait for it; sink completions are posted to the same loop, so
// commands and completions never interleave.
type Session struct {
	guildID snowflake.ID
	deps    Dependencies
	opts    Options

	loop    *worker.Pool
	ctx     context.Context
	cancel  context.CancelFunc
	breaker *gobreaker.CircuitBreaker

	// Fields below are only touched on the loop.
	state     *domain.PlayerState
	presenter *Presenter
	radioURL  string
	closed    bool
}

// New creates an idle session for the given guild.
func New(guildID snowflake.ID, deps Dependencies, opts Options) *Session {
	opts = opts.withDefaults()
	volume, _ := domain.VolumeFromPercent(opts.InitialVolumePercent)
	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		guildID: guildID,
		deps:    deps,
		opts:    opts,
		loop:    worker.New(1, loopBacklog),
		ctx:     ctx,
		cancel:  cancel,
		state:   domain.NewPlayerState(guildID, volume),
	}

	maxFailures := opts.MaxConsecutiveStartFailures
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "playback-" + guildID.String(),
		MaxRequests: 1,
		Timeout:     opts.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Info("playback breaker state changed",
				"guild", guildID,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return s
}

// GuildID returns the scope the session belongs to.
func (s *Session) GuildID() snowflake.ID {
	return s.guildID
}

// do runs fn on the loop. Work the caller stopped waiting for before it
// began is skipped. Once begun, fn runs to completion under its own
// OperationTimeout so side effects are never cut off halfway.
func (s *Session) do(ctx context.Context, fn func(ctx context.Context) error) error {
	err := s.loop.SubmitWaitContext(ctx, func() error {
		if s.closed {
			return ErrSessionClosed
		}
		opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.OperationTimeout)
		defer cancel()
		return fn(opCtx)
	})
	if errors.Is(err, worker.ErrPoolClosed) {
		return ErrSessionClosed
	}
	return err
}

func (s *Session) now() time.Time {
	return s.opts.Now()
}

func (s *Session) sinkActive() bool {
	return s.deps.Sink.IsPlaying() || s.deps.Sink.IsPaused()
}

// Enqueue appends a track and starts playback if the sink is idle.
func (s *Session) Enqueue(ctx context.Context, track *domain.Track) (EnqueueResult, error) {
	return s.EnqueueAll(ctx, []*domain.Track{track})
}

// EnqueueAll appends tracks in order and starts playback with the first one
// if the sink is idle. It fails with domain.ErrModeConflict in radio mode,
// and without queuing anything while the breaker is open and nothing plays.
func (s *Session) EnqueueAll(ctx context.Context, tracks []*domain.Track) (EnqueueResult, error) {
	var result EnqueueResult
	if len(tracks) == 0 {
		return result, domain.ErrEmptyQueue
	}

	err := s.do(ctx, func(ctx context.Context) error {
		idle := !s.sinkActive()
		if idle && s.breaker.State() == gobreaker.StateOpen {
			return fmt.Errorf("%w: %w", ports.ErrPlaybackStartFailed, ErrCoolingDown)
		}

		position, err := s.state.Enqueue(tracks...)
		if err != nil {
			return err
		}
		result.Position = position

		if !idle {
			return nil
		}

		slog.Debug("track enqueued and player idle, starting playback",
			"guild", s.guildID,
			"track", tracks[0].Title,
		)
		if err := s.playNext(ctx); err != nil {
			return err
		}
		result.Started = s.state.Current() == tracks[0]
		return nil
	})
	return result, err
}

// PlayNext runs the transition protocol.
func (s *Session) PlayNext(ctx context.Context) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.playNext(ctx)
	})
}

// playNext moves to the next track. It is a no-op while paused or seeking.
// Start failures drop the broken track and move on until the breaker opens.
func (s *Session) playNext(ctx context.Context) error {
	if s.state.IsPaused() || s.state.IsSeeking() {
		slog.Debug("transition suppressed",
			"guild", s.guildID,
			"paused", s.state.IsPaused(),
			"seeking", s.state.IsSeeking(),
		)
		return nil
	}

	s.stopPresenter()

	for {
		pending := s.state.QueueLen() > 0 || (s.state.IsLooping() && s.state.Current() != nil)
		if pending && s.breaker.State() == gobreaker.StateOpen {
			s.giveUp(ctx)
			return fmt.Errorf("%w: too many consecutive failures", ports.ErrPlaybackStartFailed)
		}

		wasRadio := s.state.Mode() == domain.ModeRadio
		track, repeat := s.state.NextTrack()
		if track == nil {
			s.finish(ctx, wasRadio)
			return nil
		}

		err := s.start(ctx, track, repeat)
		if err == nil {
			return nil
		}

		slog.Warn("failed to start track, skipping",
			"guild", s.guildID,
			"track", track.Title,
			"error", err,
		)
		s.state.DropCurrent()
	}
}

func (s *Session) start(ctx context.Context, track *domain.Track, repeat bool) error {
	gen := s.state.Begin(track, s.now())
	source := ports.StreamSource{URL: track.StreamURL, Encoded: track.Encoded}

	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.deps.Sink.Play(ctx, source, s.state.Volume(), s.completion(gen, false))
	})
	if err != nil {
		return err
	}

	slog.Debug("track started", "guild", s.guildID, "track", track.Title, "repeat", repeat)
	s.announce(ctx, repeat)
	return nil
}

// giveUp discards the current track and the queue and leaves the session
// idle. Voice, volume and the notification channel are kept.
func (s *Session) giveUp(ctx context.Context) {
	slog.Error("giving up on playback after repeated start failures",
		"guild", s.guildID,
		"discarded", s.state.QueueLen(),
	)

	s.deletePanel(ctx)
	s.state.Reset()

	if channelID := s.state.GetNotificationChannelID(); channelID != 0 {
		err := s.deps.Notifier.SendPlaybackFailed(ctx, channelID, "Too many tracks in a row failed to play.")
		if err != nil {
			slog.Warn("failed to send playback failed notice", "guild", s.guildID, "error", err)
		}
	}
}

// finish handles an exhausted queue. The state is already idle.
func (s *Session) finish(ctx context.Context, wasRadio bool) {
	s.deletePanel(ctx)

	if wasRadio {
		slog.Info("radio stream ended", "guild", s.guildID, "url", s.radioURL)
		s.radioURL = ""
		return
	}

	slog.Debug("queue exhausted", "guild", s.guildID)
	if channelID := s.state.GetNotificationChannelID(); channelID != 0 {
		if err := s.deps.Notifier.SendQueueEnded(ctx, channelID); err != nil {
			slog.Warn("failed to send queue ended notice", "guild", s.guildID, "error", err)
		}
	}
}

// completion binds a sink callback to the play call of generation gen.
// The callback only posts to the loop; it never touches state itself.
func (s *Session) completion(gen uint64, seekRestart bool) ports.CompletionFunc {
	return func(err error) {
		if submitErr := s.loop.Submit(func() {
			s.onComplete(gen, seekRestart, err)
		}); submitErr != nil {
			slog.Debug("completion after session close dropped", "guild", s.guildID)
		}
	}
}

func (s *Session) onComplete(gen uint64, seekRestart bool, playErr error) {
	if s.closed || gen != s.state.Generation() {
		slog.Debug("dropping stale completion",
			"guild", s.guildID,
			"generation", gen,
			"current", s.state.Generation(),
		)
		return
	}

	if seekRestart {
		s.state.EndSeek()
	} else if s.state.IsSeeking() {
		return
	}

	if playErr != nil {
		slog.Warn("track ended abnormally, skipping", "guild", s.guildID, "error", playErr)
		s.state.DropCurrent()
	} else {
		slog.Debug("track ended, advancing queue", "guild", s.guildID)
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.opts.OperationTimeout)
	defer cancel()

	if err := s.playNext(ctx); err != nil {
		slog.Error("failed to play next track after track ended", "guild", s.guildID, "error", err)
	}
}

// announce posts a fresh panel, or for a loop repeat keeps the existing one,
// and starts a presenter bound to it.
func (s *Session) announce(ctx context.Context, repeat bool) {
	if repeat && s.state.GetNowPlayingMessage() != nil {
		s.startPresenter()
		return
	}

	s.deletePanel(ctx)

	channelID := s.state.GetNotificationChannelID()
	if channelID == 0 {
		return
	}

	snapshot, ok := s.state.Snapshot(s.now())
	if !ok {
		return
	}

	message, err := s.deps.UI.SendNowPlaying(ctx, channelID, snapshot)
	if err != nil {
		slog.Warn("failed to send now playing message", "guild", s.guildID, "error", err)
		return
	}
	s.state.SetNowPlayingMessage(message)
	s.startPresenter()
}

// deletePanel removes the current panel, best-effort.
func (s *Session) deletePanel(ctx context.Context) {
	message := s.state.GetNowPlayingMessage()
	if message == nil {
		return
	}
	s.state.ClearNowPlayingMessage()

	if err := s.deps.UI.DeleteMessage(ctx, *message); err != nil {
		slog.Debug("failed to delete now playing message", "guild", s.guildID, "error", err)
	}
}

// startPresenter cancels any live presenter before starting a new one.
func (s *Session) startPresenter() {
	s.stopPresenter()

	var p *Presenter
	p = NewPresenter(s.deps.UI, s.opts.PresenterInterval, func(ctx context.Context) (domain.NowPlayingMessage, domain.NowPlayingSnapshot, bool) {
		return s.presenterSnapshot(ctx, p)
	})
	s.presenter = p
	p.Start(s.ctx)
}

func (s *Session) stopPresenter() {
	if s.presenter != nil {
		s.presenter.Stop()
		s.presenter = nil
	}
}

func (s *Session) refreshPresenter() {
	if s.presenter != nil {
		s.presenter.Refresh()
	}
}

// presenterSnapshot runs on the presenter goroutine and reads state through the loop.
func (s *Session) presenterSnapshot(
	ctx context.Context,
	p *Presenter,
) (domain.NowPlayingMessage, domain.NowPlayingSnapshot, bool) {
	var (
		message  domain.NowPlayingMessage
		snapshot domain.NowPlayingSnapshot
		ok       bool
	)

	err := s.do(ctx, func(ctx context.Context) error {
		if s.presenter != p || !s.sinkActive() {
			return nil
		}
		handle := s.state.GetNowPlayingMessage()
		if handle == nil {
			return nil
		}
		message = *handle
		snapshot, ok = s.state.Snapshot(s.now())
		return nil
	})
	if err != nil {
		return domain.NowPlayingMessage{}, domain.NowPlayingSnapshot{}, false
	}
	return message, snapshot, ok
}

// Skip ends the current track and moves on, bypassing the loop for one
// transition. It returns the skipped track, nil when skipping a radio stream.
func (s *Session) Skip(ctx context.Context) (*domain.Track, error) {
	var skipped *domain.Track

	err := s.do(ctx, func(ctx context.Context) error {
		if !s.sinkActive() {
			return domain.ErrNothingPlaying
		}
		skipped = s.state.Current()

		s.state.Invalidate()
		if err := s.deps.Sink.Stop(ctx); err != nil {
			slog.Warn("failed to stop sink for skip", "guild", s.guildID, "error", err)
		}

		s.state.EndSeek()
		s.state.Resume(s.now())
		s.state.DropCurrent()
		return s.playNext(ctx)
	})
	return skipped, err
}

// Seek moves the current track by a signed offset such as "+30" or "-15"
// and returns the new position.
func (s *Session) Seek(ctx context.Context, offset string) (time.Duration, error) {
	var position time.Duration

	err := s.do(ctx, func(ctx context.Context) error {
		track := s.state.Current()
		if track == nil || !s.deps.Sink.IsPlaying() {
			return domain.ErrNothingPlaying
		}

		delta, err := domain.ParseSeekOffset(offset)
		if err != nil {
			return err
		}

		now := s.now()
		target, err := s.state.SeekTarget(delta, now)
		if err != nil {
			return err
		}

		gen := s.state.BeginSeek(target, now)
		if err := s.deps.Sink.Stop(ctx); err != nil {
			slog.Warn("failed to stop sink for seek", "guild", s.guildID, "error", err)
		}

		source := ports.StreamSource{URL: track.StreamURL, Encoded: track.Encoded, Offset: target}
		if err := s.deps.Sink.Play(ctx, source, s.state.Volume(), s.completion(gen, true)); err != nil {
			s.state.EndSeek()
			return fmt.Errorf("%w: %w", ports.ErrPlaybackStartFailed, err)
		}

		position = target
		s.refreshPresenter()
		return nil
	})
	return position, err
}

// TogglePause pauses a playing sink or resumes a paused one, and returns
// whether playback is now paused.
func (s *Session) TogglePause(ctx context.Context) (bool, error) {
	var paused bool

	err := s.do(ctx, func(ctx context.Context) error {
		switch {
		case s.deps.Sink.IsPlaying():
			if err := s.deps.Sink.Pause(ctx); err != nil {
				return err
			}
			s.state.Pause(s.now())
			paused = true
		case s.deps.Sink.IsPaused():
			if err := s.deps.Sink.Resume(ctx); err != nil {
				return err
			}
			s.state.Resume(s.now())
			paused = false
		default:
			return domain.ErrNothingPlaying
		}

		s.refreshPresenter()
		return nil
	})
	return paused, err
}

// ToggleLoop flips repeat of the current track and returns the new value.
// In radio mode the flag only takes effect once tracks are queued again.
func (s *Session) ToggleLoop(ctx context.Context) (bool, error) {
	var looping bool

	err := s.do(ctx, func(context.Context) error {
		looping = s.state.ToggleLoop()
		s.refreshPresenter()
		return nil
	})
	return looping, err
}

// EnterRadioMode replaces everything with a single stream.
func (s *Session) EnterRadioMode(ctx context.Context, streamURL string) error {
	return s.do(ctx, func(ctx context.Context) error {
		s.stopPresenter()
		s.deletePanel(ctx)
		if err := s.deps.Sink.Stop(ctx); err != nil {
			slog.Warn("failed to stop sink for radio", "guild", s.guildID, "error", err)
		}

		gen := s.state.EnterRadio()
		s.radioURL = streamURL

		source := ports.StreamSource{URL: streamURL}
		if err := s.deps.Sink.Play(ctx, source, s.state.Volume(), s.completion(gen, false)); err != nil {
			s.state.Reset()
			s.radioURL = ""
			return fmt.Errorf("%w: %w", ports.ErrPlaybackStartFailed, err)
		}

		slog.Info("radio started", "guild", s.guildID, "url", streamURL)
		return nil
	})
}

// Stop ends playback, leaves voice and clears the session back to idle.
func (s *Session) Stop(ctx context.Context) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.teardown(ctx)
	})
}

func (s *Session) teardown(ctx context.Context) error {
	s.stopPresenter()
	s.state.Invalidate()

	var errs []error
	if err := s.deps.Sink.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop sink: %w", err))
	}
	if s.state.GetVoiceChannelID() != 0 {
		if err := s.deps.Voice.LeaveChannel(ctx, s.guildID); err != nil {
			errs = append(errs, fmt.Errorf("leave voice: %w", err))
		}
	}

	s.deletePanel(ctx)
	s.state.Reset()
	s.state.SetVoiceChannelID(0)
	s.radioURL = ""
	return errors.Join(errs...)
}

// Remove removes "all" or a 1-based position from the queue.
func (s *Session) Remove(ctx context.Context, arg string) ([]*domain.Track, error) {
	var removed []*domain.Track
	err := s.do(ctx, func(ctx context.Context) error {
		var err error
		removed, err = s.state.Remove(arg)
		return err
	})
	return removed, err
}

// Shuffle randomizes the upcoming tracks.
func (s *Session) Shuffle(ctx context.Context) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.state.Shuffle()
	})
}

// SetVolume validates percent, stores it and applies it to active playback.
func (s *Session) SetVolume(ctx context.Context, percent int) error {
	return s.do(ctx, func(ctx context.Context) error {
		if err := s.state.SetVolumePercent(percent); err != nil {
			return err
		}
		if s.sinkActive() {
			if err := s.deps.Sink.SetVolume(ctx, s.state.Volume()); err != nil {
				return fmt.Errorf("apply volume: %w", err)
			}
		}
		s.refreshPresenter()
		return nil
	})
}

// Status returns a view of the session.
func (s *Session) Status(ctx context.Context) (Status, error) {
	var status Status
	err := s.do(ctx, func(ctx context.Context) error {
		status = s.status()
		return nil
	})
	return status, err
}

func (s *Session) status() Status {
	status := Status{
		Mode:          s.state.Mode(),
		RadioURL:      s.radioURL,
		Queue:         s.state.Queue(),
		QueueDuration: s.state.QueueDuration(),
		VolumePercent: domain.VolumePercent(s.state.Volume()),
		IsLooping:     s.state.IsLooping(),
		IsPaused:      s.state.IsPaused() || s.deps.Sink.IsPaused(),
	}
	if snapshot, ok := s.state.Snapshot(s.now()); ok {
		status.Current = &snapshot
	}
	return status
}

// NowPlaying refreshes the panel immediately, posting a new one if none is
// live, and returns the current status.
func (s *Session) NowPlaying(ctx context.Context) (Status, error) {
	var status Status

	err := s.do(ctx, func(ctx context.Context) error {
		status = s.status()
		if status.Mode == domain.ModeRadio {
			return nil
		}
		if status.Current == nil || !s.sinkActive() {
			return domain.ErrNothingPlaying
		}

		if s.presenter != nil && s.presenter.Alive() && s.state.GetNowPlayingMessage() != nil {
			s.presenter.Refresh()
			return nil
		}
		s.announce(ctx, false)
		return nil
	})
	return status, err
}

// SetNotificationChannel sets where panels and notices are posted.
func (s *Session) SetNotificationChannel(ctx context.Context, channelID snowflake.ID) error {
	return s.do(ctx, func(ctx context.Context) error {
		s.state.SetNotificationChannelID(channelID)
		return nil
	})
}

// Connect joins channelID, moving from any other channel in the guild.
func (s *Session) Connect(ctx context.Context, channelID snowflake.ID) error {
	return s.do(ctx, func(ctx context.Context) error {
		if s.state.GetVoiceChannelID() == channelID {
			return nil
		}
		if err := s.deps.Voice.JoinChannel(ctx, s.guildID, channelID); err != nil {
			return fmt.Errorf("join voice channel: %w", err)
		}
		s.state.SetVoiceChannelID(channelID)
		return nil
	})
}

// SetVoiceChannel records a move made outside the session.
func (s *Session) SetVoiceChannel(ctx context.Context, channelID snowflake.ID) error {
	return s.do(ctx, func(ctx context.Context) error {
		s.state.SetVoiceChannelID(channelID)
		return nil
	})
}

// VoiceChannelID returns the connected voice channel, or 0.
func (s *Session) VoiceChannelID(ctx context.Context) (snowflake.ID, error) {
	var channelID snowflake.ID
	err := s.do(ctx, func(ctx context.Context) error {
		channelID = s.state.GetVoiceChannelID()
		return nil
	})
	return channelID, err
}

// Close tears the session down and stops its loop. The teardown is queued
// even if ctx expires before it runs. Later calls return nil.
func (s *Session) Close(ctx context.Context) error {
	result := make(chan error, 1)
	err := s.loop.Submit(func() {
		if s.closed {
			result <- nil
			return
		}
		opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.OperationTimeout)
		defer cancel()

		err := worker.ErrTaskPanicked
		defer func() {
			s.closed = true
			result <- err
		}()
		err = s.teardown(opCtx)
	})

	switch {
	case err == nil:
		select {
		case err = <-result:
		case <-ctx.Done():
			err = ctx.Err()
		}
	case errors.Is(err, worker.ErrPoolClosed):
		err = nil
	}

	s.cancel()
	s.loop.StopNow()
	return err
}
