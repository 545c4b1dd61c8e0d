package usecases

import (
	"context"
	"log/slog"

	"github.com/disgoorg/snowflake/v2"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/application/ports"
)

// JoinInput contains the input for the Join use case.
type JoinInput struct {
	GuildID               snowflake.ID
	UserID                snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
	VoiceChannelID        snowflake.ID // Optional: specific channel to join (0 means use user's channel)
}

// JoinOutput contains the result of the Join use case.
type JoinOutput struct {
	VoiceChannelID snowflake.ID
}

// BotVoiceStateChangeInput describes a voice state change of the bot itself.
type BotVoiceStateChangeInput struct {
	GuildID           snowflake.ID
	PreviousChannelID snowflake.ID // channel the bot left, 0 if unknown
	NewChannelID      snowflake.ID // 0 means disconnected
}

// VoiceChannelService handles voice channel operations.
type VoiceChannelService struct {
	sessions   SessionProvider
	voiceState ports.VoiceStateProvider
}

// NewVoiceChannelService creates a new VoiceChannelService.
func NewVoiceChannelService(
	sessions SessionProvider,
	voiceState ports.VoiceStateProvider,
) *VoiceChannelService {
	return &VoiceChannelService{
		sessions:   sessions,
		voiceState: voiceState,
	}
}

// Join joins the bot to a voice channel, moving it if it is elsewhere in the guild.
func (v *VoiceChannelService) Join(ctx context.Context, input JoinInput) (*JoinOutput, error) {
	// Determine which channel to join
	voiceChannelID := input.VoiceChannelID
	if voiceChannelID == 0 {
		userChannel, err := v.voiceState.GetUserVoiceChannel(input.GuildID, input.UserID)
		if err != nil {
			return nil, err
		}
		if userChannel == 0 {
			return nil, ErrUserNotInVoice
		}
		voiceChannelID = userChannel
	}

	s, err := v.sessions.Get(ctx, input.GuildID)
	if err != nil {
		return nil, err
	}

	if input.NotificationChannelID != 0 {
		if err := s.SetNotificationChannel(ctx, input.NotificationChannelID); err != nil {
			return nil, err
		}
	}

	if err := s.Connect(ctx, voiceChannelID); err != nil {
		return nil, err
	}

	return &JoinOutput{VoiceChannelID: voiceChannelID}, nil
}

// Leave stops playback and disconnects from voice.
func (v *VoiceChannelService) Leave(ctx context.Context, guildID snowflake.ID) error {
	s, ok := v.sessions.Lookup(guildID)
	if !ok {
		return ports.ErrNotConnected
	}

	channelID, err := s.VoiceChannelID(ctx)
	if err != nil {
		return err
	}
	if channelID == 0 {
		return ports.ErrNotConnected
	}

	return s.Stop(ctx)
}

// HandleBotVoiceStateChange handles external voice state changes (bot moved or disconnected).
//
// A disconnect only tears the session down if it is about the channel the
// session believes it is in; disconnects caused by the session's own stop
// arrive after the session already forgot the channel and are ignored.
func (v *VoiceChannelService) HandleBotVoiceStateChange(ctx context.Context, input BotVoiceStateChangeInput) {
	s, ok := v.sessions.Lookup(input.GuildID)
	if !ok {
		return
	}

	current, err := s.VoiceChannelID(ctx)
	if err != nil {
		return
	}

	if input.NewChannelID == 0 {
		if current == 0 || (input.PreviousChannelID != 0 && input.PreviousChannelID != current) {
			return
		}

		slog.Info("bot disconnected from voice, removing session", "guild", input.GuildID)
		if err := v.sessions.Remove(ctx, input.GuildID); err != nil {
			slog.Warn("failed to close session after disconnect", "guild", input.GuildID, "error", err)
		}
		return
	}

	// Bot was moved to a different channel
	if input.NewChannelID != current {
		if err := s.SetVoiceChannel(ctx, input.NewChannelID); err != nil {
			slog.Warn("failed to record voice move", "guild", input.GuildID, "error", err)
		}
	}
}

// HandleGuildRemoved discards the session of a guild the bot left.
func (v *VoiceChannelService) HandleGuildRemoved(ctx context.Context, guildID snowflake.ID) {
	if err := v.sessions.Remove(ctx, guildID); err != nil {
		slog.Warn("failed to close session for removed guild", "guild", guildID, "error", err)
	}
}
