package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/application/usecases"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/domain"
	"github.com/samber/lo"
)

const (
	autocompleteTimeout = 2500 * time.Millisecond
	maxChoiceLength     = 100
	maxChoices          = 25
	minSearchLength     = 2
)

// AutocompleteHandler handles autocomplete requests.
type AutocompleteHandler struct {
	queue       *usecases.QueueService
	trackLoader *usecases.TrackLoaderService
}

// NewAutocompleteHandler creates a new AutocompleteHandler.
func NewAutocompleteHandler(
	queue *usecases.QueueService,
	trackLoader *usecases.TrackLoaderService,
) *AutocompleteHandler {
	return &AutocompleteHandler{
		queue:       queue,
		trackLoader: trackLoader,
	}
}

func focusedValue(i *discordgo.InteractionCreate) string {
	opt, ok := lo.Find(i.ApplicationCommandData().Options, func(opt *discordgo.ApplicationCommandInteractionDataOption) bool {
		return opt.Focused
	})
	if !ok {
		return ""
	}
	value, _ := opt.Value.(string)
	return strings.TrimSpace(value)
}

// HandlePlay suggests search matches for /play. Links are passed through untouched.
func (h *AutocompleteHandler) HandlePlay(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
) []*discordgo.ApplicationCommandOptionChoice {
	query := focusedValue(i)
	if len([]rune(query)) < minSearchLength || domain.NewSearchQuery(query, "").IsURL() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), autocompleteTimeout)
	defer cancel()

	tracks, err := h.trackLoader.SearchTracks(ctx, usecases.SearchTracksInput{
		Query: query,
		Limit: maxChoices,
	})
	if err != nil {
		slog.Debug("play autocomplete search failed", "error", err)
		return nil
	}

	return trackChoices(tracks)
}

func trackChoices(tracks []*domain.Track) []*discordgo.ApplicationCommandOptionChoice {
	return lo.FilterMap(tracks, func(track *domain.Track, _ int) (*discordgo.ApplicationCommandOptionChoice, bool) {
		if track.URI == "" || len(track.URI) > maxChoiceLength {
			return nil, false
		}
		name := fmt.Sprintf("%s - %s (%s)", track.Title, track.Artist, track.FormattedDuration())
		return &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate(name, maxChoiceLength),
			Value: track.URI,
		}, true
	})
}

// HandleRemove suggests "all" and the queued positions for /remove.
func (h *AutocompleteHandler) HandleRemove(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
) []*discordgo.ApplicationCommandOptionChoice {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		slog.Warn("failed to parse guild ID in autocomplete", "error", err, "guildID", i.GuildID)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), autocompleteTimeout)
	defer cancel()

	output, err := h.queue.List(ctx, usecases.QueueListInput{
		GuildID:  guildID,
		Page:     1,
		PageSize: maxChoices - 1,
	})
	if err != nil {
		return nil
	}

	return removeChoices(output, focusedValue(i))
}

func removeChoices(output *usecases.QueueListOutput, typed string) []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(output.Tracks)+1)
	if len(output.Tracks) > 0 {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  fmt.Sprintf("all (%d tracks)", output.TotalTracks),
			Value: "all",
		})
	}
	for idx, track := range output.Tracks {
		position := output.StartPosition + idx
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate(fmt.Sprintf("%d. %s", position, track.Title), maxChoiceLength),
			Value: strconv.Itoa(position),
		})
	}

	typed = strings.ToLower(typed)
	if typed == "" {
		return choices
	}
	return lo.Filter(choices, func(choice *discordgo.ApplicationCommandOptionChoice, _ int) bool {
		return strings.Contains(strings.ToLower(choice.Name), typed)
	})
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
