package infrastructure

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/application/ports"
)

// VoiceStateProvider reads voice states from the discordgo state cache.
type VoiceStateProvider struct {
	state *discordgo.State
}

// NewVoiceStateProvider creates a new VoiceStateProvider.
func NewVoiceStateProvider(state *discordgo.State) *VoiceStateProvider {
	return &VoiceStateProvider{state: state}
}

// GetUserVoiceChannel returns the voice channel the user is in, or 0.
func (v *VoiceStateProvider) GetUserVoiceChannel(guildID, userID snowflake.ID) (snowflake.ID, error) {
	vs, err := v.state.VoiceState(guildID.String(), userID.String())
	if err != nil {
		if errors.Is(err, discordgo.ErrStateNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("look up voice state: %w", err)
	}
	if vs.ChannelID == "" {
		return 0, nil
	}

	return snowflake.Parse(vs.ChannelID)
}

var _ ports.VoiceStateProvider = (*VoiceStateProvider)(nil)
