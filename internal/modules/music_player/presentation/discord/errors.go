package discord

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/kasseta-bot/kasseta/internal/bot"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/application/ports"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/application/session"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/application/usecases"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/domain"
)

// Embed colors.
const (
	colorSuccess = 0x08c404
	colorError   = 0xE74C3C
)

const genericErrorMessage = "Something went wrong. Please try again later."

var (
	errPickExpired = errors.New("search results expired")
	errNotYourPick = errors.New("search results belong to another user")
)

// userMessages maps known errors to what the user is told. The first match wins.
var userMessages = []struct {
	err     error
	message string
}{
	{usecases.ErrUserNotInVoice, "You must be in a voice channel to use this command."},
	{usecases.ErrEmptyQuery, "Please provide something to search for."},
	{usecases.ErrNoResults, "No results found."},
	{usecases.ErrPlaylistURL, "That link is a playlist. Use `/playlist` to queue it."},
	{usecases.ErrSearchURL, "`/search` takes keywords. Use `/play` for links."},
	{usecases.ErrNotAURL, "Please provide a link."},
	{domain.ErrModeConflict, "A radio stream is playing. Use `/stop` before queuing tracks."},
	{domain.ErrNothingPlaying, "Nothing is currently playing."},
	{domain.ErrEmptyQueue, "The queue is empty."},
	{domain.ErrIndexOutOfRange, "There is no track at that position."},
	{domain.ErrBadFormat, "That argument is malformed. Seek takes signed seconds like `+30` or `-15`, remove takes a position or `all`."},
	{domain.ErrOutOfRange, "That value is out of range."},
	{domain.ErrInvalidTrack, "That track cannot be played."},
	{ports.ErrNotAPlaylist, "That link is not a playlist."},
	{ports.ErrNotFound, "No tracks found."},
	{ports.ErrResolutionFailed, "Could not load that track. Please try again later."},
	{session.ErrCoolingDown, "Several tracks in a row failed to play. Try again in a little while."},
	{ports.ErrPlaybackStartFailed, "Could not start playback."},
	{ports.ErrNotConnected, "I'm not connected to a voice channel."},
	{session.ErrSessionClosed, "The player for this server just shut down. Please try again."},
	{errPickExpired, "These search results have expired. Run `/search` again."},
	{errNotYourPick, "Only the user who searched can pick a result."},
	{context.DeadlineExceeded, "That took too long. Please try again."},
}

// userMessage returns the message shown for err and whether err was recognized.
func userMessage(err error) (string, bool) {
	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return m.message, true
		}
	}
	return genericErrorMessage, false
}

func respondError(r bot.Responder, message string) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       "Error",
					Description: message,
					Color:       colorError,
				},
			},
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
}

// respondErr translates err for the user. Unrecognized errors are logged.
func respondErr(r bot.Responder, command string, err error) error {
	message, known := userMessage(err)
	if !known {
		slog.Error("command failed", "command", command, "error", err)
	}
	return respondError(r, message)
}

func respondSuccess(r bot.Responder, description string) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Description: description,
					Color:       colorSuccess,
				},
			},
		},
	})
}
