package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/domain"
)

// Commands returns all slash commands for the music player module.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "join",
			Description: "Join a voice channel",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Voice channel to join (defaults to your current channel)",
					Required:    false,
					ChannelTypes: []discordgo.ChannelType{
						discordgo.ChannelTypeGuildVoice,
						discordgo.ChannelTypeGuildStageVoice,
					},
				},
			},
		},
		{
			Name:        "leave",
			Description: "Stop playback and leave the voice channel",
		},
		{
			Name:        "play",
			Description: "Play a track from a link or the best search match",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionString,
					Name:         "query",
					Description:  "Link or search keywords",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		{
			Name:        "playlist",
			Description: "Queue every track of a playlist",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "url",
					Description: "Playlist link",
					Required:    true,
				},
			},
		},
		{
			Name:        "search",
			Description: "Search and pick a track from the results",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "query",
					Description: "Search keywords",
					Required:    true,
				},
			},
		},
		{
			Name:        "radio",
			Description: "Play a live radio stream (replaces the queue)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "url",
					Description: "Stream or station link",
					Required:    true,
				},
			},
		},
		{
			Name:        "pause",
			Description: "Pause or resume playback",
		},
		{
			Name:        "skip",
			Description: "Skip the current track",
		},
		{
			Name:        "stop",
			Description: "Stop playback, clear the queue and leave",
		},
		{
			Name:        "seek",
			Description: "Move within the current track",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "offset",
					Description: "Signed seconds, e.g. +30 or -15",
					Required:    true,
				},
			},
		},
		{
			Name:        "loop",
			Description: "Toggle repeating the current track",
		},
		{
			Name:        "shuffle",
			Description: "Shuffle the upcoming tracks",
		},
		{
			Name:        "remove",
			Description: "Remove a track from the queue, or all of them",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionString,
					Name:         "target",
					Description:  "Queue position (as shown in /queue) or \"all\"",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		{
			Name:        "queue",
			Description: "Show the queue",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "page",
					Description: "Page number",
					Required:    false,
					MinValue:    floatPtr(1),
				},
			},
		},
		{
			Name:        "nowplaying",
			Description: "Show the now playing panel",
		},
		{
			Name:        "volume",
			Description: "Show or set the playback volume",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "percent",
					Description: "New volume in percent",
					Required:    false,
					MinValue:    floatPtr(domain.MinVolumePercent),
					MaxValue:    domain.MaxVolumePercent,
				},
			},
		},
	}
}

func floatPtr(f float64) *float64 {
	return &f
}
