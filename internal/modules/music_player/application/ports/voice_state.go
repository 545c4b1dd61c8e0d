package ports

import (
	"github.com/disgoorg/snowflake/v2"
)

// VoiceStateProvider reads voice state from the gateway cache.
type VoiceStateProvider interface {
	// GetUserVoiceChannel returns the voice channel the user is in, or 0.
	GetUserVoiceChannel(guildID, userID snowflake.ID) (snowflake.ID, error)
}
