package discord

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/application/usecases"
)

// EventHandlers reacts to gateway events that change playback state.
type EventHandlers struct {
	voiceChannel *usecases.VoiceChannelService
	botID        snowflake.ID
}

// NewEventHandlers creates new EventHandlers.
func NewEventHandlers(voiceChannel *usecases.VoiceChannelService, botID snowflake.ID) *EventHandlers {
	return &EventHandlers{
		voiceChannel: voiceChannel,
		botID:        botID,
	}
}

// HandleVoiceStateUpdate follows the bot being moved or disconnected by someone else.
func (h *EventHandlers) HandleVoiceStateUpdate(_ *discordgo.Session, e *discordgo.VoiceStateUpdate) {
	input, ok := h.botVoiceStateChange(e)
	if !ok {
		return
	}
	h.voiceChannel.HandleBotVoiceStateChange(context.Background(), input)
}

func (h *EventHandlers) botVoiceStateChange(e *discordgo.VoiceStateUpdate) (usecases.BotVoiceStateChangeInput, bool) {
	if e.VoiceState == nil || parseOptionalID(e.UserID) != h.botID {
		return usecases.BotVoiceStateChangeInput{}, false
	}

	guildID := parseOptionalID(e.GuildID)
	if guildID == 0 {
		return usecases.BotVoiceStateChangeInput{}, false
	}

	var previous snowflake.ID
	if e.BeforeUpdate != nil {
		previous = parseOptionalID(e.BeforeUpdate.ChannelID)
	}

	return usecases.BotVoiceStateChangeInput{
		GuildID:           guildID,
		PreviousChannelID: previous,
		NewChannelID:      parseOptionalID(e.ChannelID),
	}, true
}

// HandleGuildDelete tears down the session when the bot is removed from a guild.
// Outages are reported as unavailable guilds and are ignored.
func (h *EventHandlers) HandleGuildDelete(_ *discordgo.Session, e *discordgo.GuildDelete) {
	if e.Guild == nil || e.Unavailable {
		return
	}

	guildID, err := snowflake.Parse(e.ID)
	if err != nil {
		slog.Warn("failed to parse guild ID in guild delete", "error", err, "guildID", e.ID)
		return
	}
	h.voiceChannel.HandleGuildRemoved(context.Background(), guildID)
}

// parseOptionalID returns 0 for empty or malformed IDs.
func parseOptionalID(id string) snowflake.ID {
	if id == "" {
		return 0
	}
	parsed, err := snowflake.Parse(id)
	if err != nil {
		return 0
	}
	return parsed
}
