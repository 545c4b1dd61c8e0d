package discord

import (
	"github.com/bwmarrin/discordgo"
)

func commandInteraction(name string, options ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:      discordgo.InteractionApplicationCommand,
			GuildID:   "1",
			ChannelID: "100",
			Member: &discordgo.Member{
				User: &discordgo.User{ID: "42", Username: "alice"},
			},
			Data: discordgo.ApplicationCommandInteractionData{
				Name:    name,
				Options: options,
			},
		},
	}
}

func componentInteraction(customID string, values ...string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:      discordgo.InteractionMessageComponent,
			GuildID:   "1",
			ChannelID: "100",
			Member: &discordgo.Member{
				User: &discordgo.User{ID: "42", Username: "alice"},
			},
			Data: discordgo.MessageComponentInteractionData{
				CustomID: customID,
				Values:   values,
			},
		},
	}
}

func stringOpt(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionString,
		Value: value,
	}
}

func intOpt(name string, value int) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionInteger,
		Value: float64(value),
	}
}

func responseDescription(response *discordgo.InteractionResponse) string {
	if response == nil || response.Data == nil || len(response.Data.Embeds) == 0 {
		return ""
	}
	return response.Data.Embeds[0].Description
}
