package usecases

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/application/ports"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/application/session"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/domain"
)

// PlayInput contains the input for the Play, PlayPlaylist and Radio use cases.
type PlayInput struct {
	GuildID               snowflake.ID
	UserID                snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
	Query                 string
	Requester             domain.Requester
}

// PlayTrackInput enqueues an already resolved track, e.g. a search pick.
type PlayTrackInput struct {
	GuildID               snowflake.ID
	UserID                snowflake.ID
	NotificationChannelID snowflake.ID
	Track                 *domain.Track
}

// PlayOutput contains the result of the Play and PlayTrack use cases.
type PlayOutput struct {
	Track    *domain.Track
	Position int  // 1-based queue position
	Started  bool // playback started with this track
}

// PlayPlaylistOutput contains the result of the PlayPlaylist use case.
type PlayPlaylistOutput struct {
	Name     string
	Count    int
	Position int
	Started  bool
}

// RadioOutput contains the result of the Radio use case.
type RadioOutput struct {
	StreamURL string
}

// GuildInput identifies the guild a command is about.
type GuildInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// SeekInput contains the input for the Seek use case.
type SeekInput struct {
	GuildInput
	Offset string // signed seconds, e.g. "+30" or "-15"
}

// SeekOutput contains the result of the Seek use case.
type SeekOutput struct {
	Position time.Duration
	Duration time.Duration
}

// RemoveInput contains the input for the Remove use case.
type RemoveInput struct {
	GuildInput
	Target string // "all" or a 1-based position
}

// SetVolumeInput contains the input for the SetVolume use case.
type SetVolumeInput struct {
	GuildInput
	Percent int
}

// PlaybackService handles playback operations.
type PlaybackService struct {
	sessions SessionProvider
	loader   *TrackLoaderService
	voice    *VoiceChannelService
	settings domain.GuildSettingsRepository
}

// NewPlaybackService creates a new PlaybackService.
func NewPlaybackService(
	sessions SessionProvider,
	loader *TrackLoaderService,
	voice *VoiceChannelService,
	settings domain.GuildSettingsRepository,
) *PlaybackService {
	return &PlaybackService{
		sessions: sessions,
		loader:   loader,
		voice:    voice,
		settings: settings,
	}
}

// Play resolves a query, joins the user's voice channel and enqueues the track.
func (p *PlaybackService) Play(ctx context.Context, input PlayInput) (*PlayOutput, error) {
	track, err := p.loader.LoadTrack(ctx, LoadTrackInput{
		Query:     input.Query,
		Requester: input.Requester,
	})
	if err != nil {
		return nil, err
	}

	return p.PlayTrack(ctx, PlayTrackInput{
		GuildID:               input.GuildID,
		UserID:                input.UserID,
		NotificationChannelID: input.NotificationChannelID,
		Track:                 track,
	})
}

// PlayTrack joins the user's voice channel and enqueues a resolved track.
func (p *PlaybackService) PlayTrack(ctx context.Context, input PlayTrackInput) (*PlayOutput, error) {
	if input.Track == nil {
		return nil, domain.ErrInvalidTrack
	}

	s, err := p.prepare(ctx, input.GuildID, input.UserID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	result, err := s.Enqueue(ctx, input.Track)
	if err != nil {
		return nil, err
	}

	return &PlayOutput{
		Track:    input.Track,
		Position: result.Position,
		Started:  result.Started,
	}, nil
}

// PlayPlaylist resolves a playlist URL and enqueues all of its entries.
func (p *PlaybackService) PlayPlaylist(ctx context.Context, input PlayInput) (*PlayPlaylistOutput, error) {
	playlist, err := p.loader.LoadPlaylist(ctx, LoadTrackInput{
		Query:     input.Query,
		Requester: input.Requester,
	})
	if err != nil {
		return nil, err
	}

	s, err := p.prepare(ctx, input.GuildID, input.UserID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	result, err := s.EnqueueAll(ctx, playlist.Tracks)
	if err != nil {
		return nil, err
	}

	return &PlayPlaylistOutput{
		Name:     playlist.Name,
		Count:    len(playlist.Tracks),
		Position: result.Position,
		Started:  result.Started,
	}, nil
}

// Radio replaces the session content with a live stream.
func (p *PlaybackService) Radio(ctx context.Context, input PlayInput) (*RadioOutput, error) {
	streamURL, err := p.loader.ResolveRadio(ctx, input.Query)
	if err != nil {
		return nil, err
	}

	s, err := p.prepare(ctx, input.GuildID, input.UserID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}

	if err := s.EnterRadioMode(ctx, streamURL); err != nil {
		return nil, err
	}
	return &RadioOutput{StreamURL: streamURL}, nil
}

// TogglePause pauses or resumes playback and returns whether it is now paused.
func (p *PlaybackService) TogglePause(ctx context.Context, input GuildInput) (bool, error) {
	s, err := p.existing(ctx, input)
	if err != nil {
		return false, err
	}
	return s.TogglePause(ctx)
}

// Skip skips the current track and returns it.
func (p *PlaybackService) Skip(ctx context.Context, input GuildInput) (*domain.Track, error) {
	s, err := p.existing(ctx, input)
	if err != nil {
		return nil, err
	}
	return s.Skip(ctx)
}

// Stop stops playback, clears the queue and leaves voice.
func (p *PlaybackService) Stop(ctx context.Context, input GuildInput) error {
	if err := p.voice.Leave(ctx, input.GuildID); err != nil {
		if errors.Is(err, ports.ErrNotConnected) {
			return domain.ErrNothingPlaying
		}
		return err
	}
	return nil
}

// Seek moves the current track by a signed offset.
func (p *PlaybackService) Seek(ctx context.Context, input SeekInput) (*SeekOutput, error) {
	s, err := p.existing(ctx, input.GuildInput)
	if err != nil {
		return nil, err
	}

	position, err := s.Seek(ctx, input.Offset)
	if err != nil {
		return nil, err
	}

	output := &SeekOutput{Position: position}
	if status, err := s.Status(ctx); err == nil && status.Current != nil {
		output.Duration = status.Current.Track.Duration
	}
	return output, nil
}

// ToggleLoop flips repeat of the current track and returns the new value.
func (p *PlaybackService) ToggleLoop(ctx context.Context, input GuildInput) (bool, error) {
	s, err := p.existing(ctx, input)
	if err != nil {
		return false, err
	}
	return s.ToggleLoop(ctx)
}

// Shuffle randomizes the upcoming tracks.
func (p *PlaybackService) Shuffle(ctx context.Context, input GuildInput) error {
	s, err := p.existing(ctx, input)
	if err != nil {
		if errors.Is(err, domain.ErrNothingPlaying) {
			return domain.ErrEmptyQueue
		}
		return err
	}
	return s.Shuffle(ctx)
}

// Remove removes "all" or one position from the queue and returns what was removed.
func (p *PlaybackService) Remove(ctx context.Context, input RemoveInput) ([]*domain.Track, error) {
	s, err := p.existing(ctx, input.GuildInput)
	if err != nil {
		if errors.Is(err, domain.ErrNothingPlaying) {
			return nil, domain.ErrEmptyQueue
		}
		return nil, err
	}
	return s.Remove(ctx, input.Target)
}

// SetVolume changes the volume and remembers it for the guild.
func (p *PlaybackService) SetVolume(ctx context.Context, input SetVolumeInput) error {
	if input.Percent < domain.MinVolumePercent || input.Percent > domain.MaxVolumePercent {
		return domain.ErrOutOfRange
	}

	if s, ok := p.sessions.Lookup(input.GuildID); ok {
		if err := s.SetVolume(ctx, input.Percent); err != nil {
			return err
		}
	}

	settings, err := p.settings.Get(ctx, input.GuildID)
	if err != nil {
		return err
	}
	settings.VolumePercent = input.Percent
	return p.settings.Save(ctx, settings)
}

// Volume returns the current volume of the guild.
func (p *PlaybackService) Volume(ctx context.Context, guildID snowflake.ID) (int, error) {
	if s, ok := p.sessions.Lookup(guildID); ok {
		status, err := s.Status(ctx)
		if err != nil {
			return 0, err
		}
		return status.VolumePercent, nil
	}

	settings, err := p.settings.Get(ctx, guildID)
	if err != nil {
		return 0, err
	}
	return settings.VolumePercent, nil
}

// NowPlaying refreshes the panel and returns the session status.
func (p *PlaybackService) NowPlaying(ctx context.Context, input GuildInput) (*Status, error) {
	s, err := p.existing(ctx, input)
	if err != nil {
		return nil, err
	}

	status, err := s.NowPlaying(ctx)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// prepare makes sure the bot is in the user's voice channel and returns the session.
func (p *PlaybackService) prepare(
	ctx context.Context,
	guildID, userID, notificationChannelID snowflake.ID,
) (*session.Session, error) {
	if _, err := p.voice.Join(ctx, JoinInput{
		GuildID:               guildID,
		UserID:                userID,
		NotificationChannelID: notificationChannelID,
	}); err != nil {
		return nil, err
	}

	if notificationChannelID != 0 {
		p.rememberChannel(ctx, guildID, notificationChannelID)
	}
	return p.sessions.Get(ctx, guildID)
}

// existing returns the live session of the guild, or ErrNothingPlaying.
func (p *PlaybackService) existing(ctx context.Context, input GuildInput) (*session.Session, error) {
	s, ok := p.sessions.Lookup(input.GuildID)
	if !ok {
		return nil, domain.ErrNothingPlaying
	}

	if input.NotificationChannelID != 0 {
		if err := s.SetNotificationChannel(ctx, input.NotificationChannelID); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (p *PlaybackService) rememberChannel(ctx context.Context, guildID, channelID snowflake.ID) {
	settings, err := p.settings.Get(ctx, guildID)
	if err != nil {
		slog.Warn("failed to load guild settings", "guild", guildID, "error", err)
		return
	}
	if settings.NotificationChannelID == channelID {
		return
	}

	settings.NotificationChannelID = channelID
	if err := p.settings.Save(ctx, settings); err != nil {
		slog.Warn("failed to save notification channel", "guild", guildID, "error", err)
	}
}
