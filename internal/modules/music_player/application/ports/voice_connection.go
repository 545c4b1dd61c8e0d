package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
)

// VoiceConnection joins and leaves voice channels for a scope.
type VoiceConnection interface {
	// JoinChannel connects the bot to channelID, moving it if it is already
	// connected elsewhere in the guild.
	JoinChannel(ctx context.Context, guildID, channelID snowflake.ID) error

	// LeaveChannel disconnects the bot from voice in the guild.
	LeaveChannel(ctx context.Context, guildID snowflake.ID) error
}
