package discord

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/kasseta-bot/kasseta/internal/bot"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/application/usecases"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/domain"
	"github.com/samber/lo"
)

// DefaultCommandTimeout bounds the work done for a single command.
const DefaultCommandTimeout = 30 * time.Second

var errNotInGuild = errors.New("command used outside of a guild")

// CommandHandlers holds all the command handlers.
type CommandHandlers struct {
	voiceChannel *usecases.VoiceChannelService
	playback     *usecases.PlaybackService
	queue        *usecases.QueueService
	trackLoader  *usecases.TrackLoaderService
	picker       *SearchPicker
	timeout      time.Duration
}

// NewCommandHandlers creates new CommandHandlers.
func NewCommandHandlers(
	voiceChannel *usecases.VoiceChannelService,
	playback *usecases.PlaybackService,
	queue *usecases.QueueService,
	trackLoader *usecases.TrackLoaderService,
	picker *SearchPicker,
	timeout time.Duration,
) *CommandHandlers {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &CommandHandlers{
		voiceChannel: voiceChannel,
		playback:     playback,
		queue:        queue,
		trackLoader:  trackLoader,
		picker:       picker,
		timeout:      timeout,
	}
}

// invocation is the identity of whoever triggered an interaction.
type invocation struct {
	guildID   snowflake.ID
	userID    snowflake.ID
	channelID snowflake.ID
	requester domain.Requester
}

func (inv invocation) guildInput() usecases.GuildInput {
	return usecases.GuildInput{
		GuildID:               inv.guildID,
		NotificationChannelID: inv.channelID,
	}
}

func parseInteraction(i *discordgo.InteractionCreate) (invocation, error) {
	if i.Member == nil || i.Member.User == nil {
		return invocation{}, errNotInGuild
	}

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return invocation{}, fmt.Errorf("invalid guild: %w", err)
	}
	userID, err := snowflake.Parse(i.Member.User.ID)
	if err != nil {
		return invocation{}, fmt.Errorf("invalid user: %w", err)
	}
	channelID, err := snowflake.Parse(i.ChannelID)
	if err != nil {
		return invocation{}, fmt.Errorf("invalid channel: %w", err)
	}

	user := i.Member.User
	name := lo.CoalesceOrEmpty(i.Member.Nick, user.GlobalName, user.Username)

	return invocation{
		guildID:   guildID,
		userID:    userID,
		channelID: channelID,
		requester: domain.Requester{
			ID:        userID,
			Name:      name,
			AvatarURL: i.Member.AvatarURL(""),
		},
	}, nil
}

func respondInvalidInteraction(r bot.Responder, err error) error {
	if errors.Is(err, errNotInGuild) {
		return respondError(r, "This command can only be used in a server.")
	}
	return respondError(r, "Invalid interaction.")
}

func findOption(
	options []*discordgo.ApplicationCommandInteractionDataOption,
	name string,
) (*discordgo.ApplicationCommandInteractionDataOption, bool) {
	return lo.Find(options, func(opt *discordgo.ApplicationCommandInteractionDataOption) bool {
		return opt.Name == name
	})
}

func stringOption(i *discordgo.InteractionCreate, name string) string {
	opt, ok := findOption(i.ApplicationCommandData().Options, name)
	if !ok {
		return ""
	}
	value, _ := opt.Value.(string)
	return strings.TrimSpace(value)
}

func intOption(i *discordgo.InteractionCreate, name string) (int, bool) {
	opt, ok := findOption(i.ApplicationCommandData().Options, name)
	if !ok {
		return 0, false
	}
	value, ok := opt.Value.(float64)
	return int(value), ok
}

func (h *CommandHandlers) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), h.timeout)
}

// HandleJoin handles the /join command.
func (h *CommandHandlers) HandleJoin(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInteraction(i)
	if err != nil {
		return respondInvalidInteraction(r, err)
	}

	var voiceChannelID snowflake.ID
	if channel := stringOption(i, "channel"); channel != "" {
		voiceChannelID, err = snowflake.Parse(channel)
		if err != nil {
			return respondError(r, "Invalid voice channel.")
		}
	}

	ctx, cancel := h.context()
	defer cancel()

	output, err := h.voiceChannel.Join(ctx, usecases.JoinInput{
		GuildID:               inv.guildID,
		UserID:                inv.userID,
		NotificationChannelID: inv.channelID,
		VoiceChannelID:        voiceChannelID,
	})
	if err != nil {
		return respondErr(r, "join", err)
	}

	return respondSuccess(r, fmt.Sprintf("Connected to <#%d>.", output.VoiceChannelID))
}

// HandleLeave handles the /leave command.
func (h *CommandHandlers) HandleLeave(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInteraction(i)
	if err != nil {
		return respondInvalidInteraction(r, err)
	}

	ctx, cancel := h.context()
	defer cancel()

	if err := h.voiceChannel.Leave(ctx, inv.guildID); err != nil {
		return respondErr(r, "leave", err)
	}
	return respondSuccess(r, "Disconnected.")
}

// HandlePlay handles the /play command.
func (h *CommandHandlers) HandlePlay(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInteraction(i)
	if err != nil {
		return respondInvalidInteraction(r, err)
	}
	query := stringOption(i, "query")
	if query == "" {
		return respondErr(r, "play", usecases.ErrEmptyQuery)
	}

	if err := r.Defer(); err != nil {
		return err
	}

	ctx, cancel := h.context()
	defer cancel()

	output, err := h.playback.Play(ctx, usecases.PlayInput{
		GuildID:               inv.guildID,
		UserID:                inv.userID,
		NotificationChannelID: inv.channelID,
		Query:                 query,
		Requester:             inv.requester,
	})
	if err != nil {
		return respondErr(r, "play", err)
	}

	return respondSuccess(r, playDescription(output))
}

// HandlePlaylist handles the /playlist command.
func (h *CommandHandlers) HandlePlaylist(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInteraction(i)
	if err != nil {
		return respondInvalidInteraction(r, err)
	}
	url := stringOption(i, "url")
	if url == "" {
		return respondErr(r, "playlist", usecases.ErrNotAURL)
	}

	if err := r.Defer(); err != nil {
		return err
	}

	ctx, cancel := h.context()
	defer cancel()

	output, err := h.playback.PlayPlaylist(ctx, usecases.PlayInput{
		GuildID:               inv.guildID,
		UserID:                inv.userID,
		NotificationChannelID: inv.channelID,
		Query:                 url,
		Requester:             inv.requester,
	})
	if err != nil {
		return respondErr(r, "playlist", err)
	}

	return respondSuccess(r, playlistDescription(output))
}

// HandleSearch handles the /search command by offering the results in a select menu.
func (h *CommandHandlers) HandleSearch(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInteraction(i)
	if err != nil {
		return respondInvalidInteraction(r, err)
	}
	query := stringOption(i, "query")

	if err := r.Defer(); err != nil {
		return err
	}

	ctx, cancel := h.context()
	defer cancel()

	tracks, err := h.trackLoader.SearchTracks(ctx, usecases.SearchTracksInput{Query: query})
	if err != nil {
		return respondErr(r, "search", err)
	}

	token := h.picker.Offer(inv.guildID, inv.userID, tracks)

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{searchResultsEmbed(query, tracks)},
			Components: pickComponents(token, tracks),
		},
	})
}

// HandlePick handles a selection from a /search result menu.
func (h *CommandHandlers) HandlePick(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInteraction(i)
	if err != nil {
		return respondInvalidInteraction(r, err)
	}

	data := i.MessageComponentData()
	token := strings.TrimPrefix(data.CustomID, pickCustomIDPrefix+":")
	if len(data.Values) == 0 {
		return respondError(r, "Please pick a track.")
	}
	index, err := strconv.Atoi(data.Values[0])
	if err != nil {
		return respondErr(r, "pick", domain.ErrIndexOutOfRange)
	}

	track, err := h.picker.Take(token, inv.guildID, inv.userID, index)
	if err != nil {
		return respondErr(r, "pick", err)
	}

	if err := r.Defer(); err != nil {
		return err
	}

	ctx, cancel := h.context()
	defer cancel()

	output, err := h.playback.PlayTrack(ctx, usecases.PlayTrackInput{
		GuildID:               inv.guildID,
		UserID:                inv.userID,
		NotificationChannelID: inv.channelID,
		Track:                 track.RequestedBy(inv.requester),
	})
	if err != nil {
		return respondErr(r, "pick", err)
	}

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Description: playDescription(output),
					Color:       colorSuccess,
				},
			},
			Components: []discordgo.MessageComponent{},
		},
	})
}

// HandleRadio handles the /radio command.
func (h *CommandHandlers) HandleRadio(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInteraction(i)
	if err != nil {
		return respondInvalidInteraction(r, err)
	}
	url := stringOption(i, "url")
	if url == "" {
		return respondErr(r, "radio", usecases.ErrNotAURL)
	}

	if err := r.Defer(); err != nil {
		return err
	}

	ctx, cancel := h.context()
	defer cancel()

	output, err := h.playback.Radio(ctx, usecases.PlayInput{
		GuildID:               inv.guildID,
		UserID:                inv.userID,
		NotificationChannelID: inv.channelID,
		Query:                 url,
		Requester:             inv.requester,
	})
	if err != nil {
		return respondErr(r, "radio", err)
	}

	return respondSuccess(r, fmt.Sprintf("📻 Tuned in to <%s>.", output.StreamURL))
}

// HandlePause handles the /pause command. It toggles between paused and playing.
func (h *CommandHandlers) HandlePause(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInteraction(i)
	if err != nil {
		return respondInvalidInteraction(r, err)
	}

	ctx, cancel := h.context()
	defer cancel()

	paused, err := h.playback.TogglePause(ctx, inv.guildInput())
	if err != nil {
		return respondErr(r, "pause", err)
	}

	if paused {
		return respondSuccess(r, "Paused.")
	}
	return respondSuccess(r, "Resumed.")
}

// HandleSkip handles the /skip command.
func (h *CommandHandlers) HandleSkip(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInteraction(i)
	if err != nil {
		return respondInvalidInteraction(r, err)
	}

	ctx, cancel := h.context()
	defer cancel()

	skipped, err := h.playback.Skip(ctx, inv.guildInput())
	if err != nil {
		return respondErr(r, "skip", err)
	}

	return respondSuccess(r, fmt.Sprintf("Skipped %s.", trackLink(skipped)))
}

// HandleStop handles the /stop command.
func (h *CommandHandlers) HandleStop(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInteraction(i)
	if err != nil {
		return respondInvalidInteraction(r, err)
	}

	ctx, cancel := h.context()
	defer cancel()

	if err := h.playback.Stop(ctx, inv.guildInput()); err != nil {
		return respondErr(r, "stop", err)
	}
	return respondSuccess(r, "Stopped playback and cleared the queue.")
}

// HandleSeek handles the /seek command.
func (h *CommandHandlers) HandleSeek(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInteraction(i)
	if err != nil {
		return respondInvalidInteraction(r, err)
	}

	ctx, cancel := h.context()
	defer cancel()

	output, err := h.playback.Seek(ctx, usecases.SeekInput{
		GuildInput: inv.guildInput(),
		Offset:     stringOption(i, "offset"),
	})
	if err != nil {
		return respondErr(r, "seek", err)
	}

	return respondSuccess(r, seekDescription(output))
}

// HandleLoop handles the /loop command.
func (h *CommandHandlers) HandleLoop(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInteraction(i)
	if err != nil {
		return respondInvalidInteraction(r, err)
	}

	ctx, cancel := h.context()
	defer cancel()

	looping, err := h.playback.ToggleLoop(ctx, inv.guildInput())
	if err != nil {
		return respondErr(r, "loop", err)
	}

	if looping {
		return respondSuccess(r, "🔂 Looping the current track.")
	}
	return respondSuccess(r, "Loop disabled.")
}

// HandleShuffle handles the /shuffle command.
func (h *CommandHandlers) HandleShuffle(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInteraction(i)
	if err != nil {
		return respondInvalidInteraction(r, err)
	}

	ctx, cancel := h.context()
	defer cancel()

	if err := h.playback.Shuffle(ctx, inv.guildInput()); err != nil {
		return respondErr(r, "shuffle", err)
	}
	return respondSuccess(r, "🔀 Shuffled the queue.")
}

// HandleRemove handles the /remove command.
func (h *CommandHandlers) HandleRemove(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInteraction(i)
	if err != nil {
		return respondInvalidInteraction(r, err)
	}

	ctx, cancel := h.context()
	defer cancel()

	removed, err := h.playback.Remove(ctx, usecases.RemoveInput{
		GuildInput: inv.guildInput(),
		Target:     stringOption(i, "target"),
	})
	if err != nil {
		return respondErr(r, "remove", err)
	}

	return respondSuccess(r, removeDescription(removed))
}

// HandleQueue handles the /queue command.
func (h *CommandHandlers) HandleQueue(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInteraction(i)
	if err != nil {
		return respondInvalidInteraction(r, err)
	}

	page, _ := intOption(i, "page")

	ctx, cancel := h.context()
	defer cancel()

	output, err := h.queue.List(ctx, usecases.QueueListInput{
		GuildID: inv.guildID,
		Page:    page,
	})
	if err != nil {
		return respondErr(r, "queue", err)
	}

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{queueEmbed(output)},
		},
	})
}

// HandleNowPlaying handles the /nowplaying command. The panel itself is
// posted to the notification channel, the reply only confirms it.
func (h *CommandHandlers) HandleNowPlaying(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInteraction(i)
	if err != nil {
		return respondInvalidInteraction(r, err)
	}

	ctx, cancel := h.context()
	defer cancel()

	status, err := h.playback.NowPlaying(ctx, inv.guildInput())
	if err != nil {
		return respondErr(r, "nowplaying", err)
	}

	description := "Nothing is currently playing."
	switch {
	case status.Mode == domain.ModeRadio:
		description = fmt.Sprintf("📻 Streaming <%s>.", status.RadioURL)
	case status.Current != nil:
		description = fmt.Sprintf("Now playing %s.", trackLink(&status.Current.Track))
	}

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Description: description,
					Color:       colorSuccess,
				},
			},
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
}

// HandleVolume handles the /volume command. Without an argument it reports
// the current volume.
func (h *CommandHandlers) HandleVolume(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	inv, err := parseInteraction(i)
	if err != nil {
		return respondInvalidInteraction(r, err)
	}

	ctx, cancel := h.context()
	defer cancel()

	percent, ok := intOption(i, "percent")
	if !ok {
		current, err := h.playback.Volume(ctx, inv.guildID)
		if err != nil {
			return respondErr(r, "volume", err)
		}
		return respondSuccess(r, fmt.Sprintf("🔊 Volume is **%d%%**.", current))
	}

	if err := h.playback.SetVolume(ctx, usecases.SetVolumeInput{
		GuildInput: inv.guildInput(),
		Percent:    percent,
	}); err != nil {
		return respondErr(r, "volume", err)
	}
	return respondSuccess(r, fmt.Sprintf("🔊 Volume set to **%d%%**.", percent))
}

// Response builders.

func trackLink(track *domain.Track) string {
	if track.URI != "" {
		return fmt.Sprintf("[%s](%s)", track.Title, track.URI)
	}
	return fmt.Sprintf("**%s**", track.Title)
}

func playDescription(output *usecases.PlayOutput) string {
	if output.Started {
		return fmt.Sprintf("Now playing %s `%s`.", trackLink(output.Track), output.Track.FormattedDuration())
	}
	return fmt.Sprintf(
		"Added %s `%s` at position **%d**.",
		trackLink(output.Track),
		output.Track.FormattedDuration(),
		output.Position,
	)
}

func playlistDescription(output *usecases.PlayPlaylistOutput) string {
	description := fmt.Sprintf("Added **%d tracks** from playlist **%s**", output.Count, output.Name)
	if output.Name == "" {
		description = fmt.Sprintf("Added **%d tracks** from the playlist", output.Count)
	}
	if output.Started {
		return description + " and started playing."
	}
	return fmt.Sprintf("%s starting at position **%d**.", description, output.Position)
}

func seekDescription(output *usecases.SeekOutput) string {
	if output.Duration <= 0 {
		return fmt.Sprintf("Jumped to `%s`.", domain.FormatDuration(output.Position))
	}
	return fmt.Sprintf(
		"Jumped to `%s / %s`.",
		domain.FormatDuration(output.Position),
		domain.FormatDuration(output.Duration),
	)
}

func removeDescription(removed []*domain.Track) string {
	if len(removed) == 1 {
		return fmt.Sprintf("Removed %s.", trackLink(removed[0]))
	}
	return fmt.Sprintf("Removed **%d tracks** from the queue.", len(removed))
}

func searchResultsEmbed(query string, tracks []*domain.Track) *discordgo.MessageEmbed {
	var sb strings.Builder
	for idx, track := range tracks {
		writeTrackLine(&sb, idx+1, track)
	}
	return &discordgo.MessageEmbed{
		Title:       truncate("Results for "+query, 256),
		Description: sb.String(),
		Color:       colorSuccess,
	}
}

func pickComponents(token string, tracks []*domain.Track) []discordgo.MessageComponent {
	options := lo.Map(tracks, func(track *domain.Track, idx int) discordgo.SelectMenuOption {
		return discordgo.SelectMenuOption{
			Label:       truncate(fmt.Sprintf("%d. %s", idx+1, track.Title), 100),
			Value:       strconv.Itoa(idx),
			Description: truncate(fmt.Sprintf("%s (%s)", track.Artist, track.FormattedDuration()), 100),
		}
	})

	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					MenuType:    discordgo.StringSelectMenu,
					CustomID:    pickCustomID(token),
					Placeholder: "Pick a track",
					Options:     options,
				},
			},
		},
	}
}

func queueEmbed(output *usecases.QueueListOutput) *discordgo.MessageEmbed {
	title := "Queue"
	if output.Current != nil && output.Current.IsLooping {
		title = "Queue \U0001F502" // 🔂
	}
	embed := &discordgo.MessageEmbed{Title: title}

	if output.Mode == domain.ModeRadio {
		embed.Description = fmt.Sprintf("📻 Streaming <%s>.", output.RadioURL)
		return embed
	}

	if output.Current == nil && output.TotalTracks == 0 {
		embed.Description = "Queue is empty."
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Page %d/%d", output.CurrentPage, output.TotalPages),
		}
		return embed
	}

	var sb strings.Builder
	if output.Current != nil {
		current := output.Current
		sb.WriteString("### Now Playing\n")
		fmt.Fprintf(&sb, "%s - %s `%s / %s`\n",
			trackLink(&current.Track),
			current.Track.Artist,
			domain.FormatDuration(current.Elapsed),
			current.Track.FormattedDuration(),
		)
	}

	if len(output.Tracks) > 0 {
		sb.WriteString("### Up Next\n")
		for idx, track := range output.Tracks {
			writeTrackLine(&sb, output.StartPosition+idx, track)
		}
	}

	embed.Description = sb.String()
	embed.Footer = &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf(
			"Page %d/%d · %d tracks · %s",
			output.CurrentPage,
			output.TotalPages,
			output.TotalTracks,
			domain.FormatDuration(output.TotalDuration),
		),
	}
	return embed
}

// writeTrackLine writes a single track line to the string builder.
// Escapes period to prevent Discord markdown list formatting.
func writeTrackLine(sb *strings.Builder, position int, track *domain.Track) {
	fmt.Fprintf(sb, "%d\\. %s - %s `%s`\n", position, trackLink(track), track.Artist, track.FormattedDuration())
}
