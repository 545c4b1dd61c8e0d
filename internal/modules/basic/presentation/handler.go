package presentation

import (
	"github.com/bwmarrin/discordgo"
	"github.com/kasseta-bot/kasseta/internal/bot"
	"github.com/kasseta-bot/kasseta/internal/modules/basic/application"
	"github.com/kasseta-bot/kasseta/internal/modules/basic/domain"
)

const colorInfo = 0x5865F2

// PingHandler handles the /ping command.
type PingHandler struct {
	interactor *application.PingInteractor
}

// NewPingHandler creates a new PingHandler.
func NewPingHandler() *PingHandler {
	return &PingHandler{
		interactor: application.NewPingInteractor(),
	}
}

// Handle processes the ping command and sends the response.
func (h *PingHandler) Handle(
	s *discordgo.Session,
	_ *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	var result *domain.PingResult
	if s != nil {
		result = h.interactor.Execute(s.HeartbeatLatency())
	} else {
		result = h.interactor.Execute(0)
	}

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: result.Message,
		},
	})
}

// AboutHandler handles the /about command.
type AboutHandler struct {
	interactor *application.AboutInteractor
}

// NewAboutHandler creates a new AboutHandler.
func NewAboutHandler(interactor *application.AboutInteractor) *AboutHandler {
	return &AboutHandler{interactor: interactor}
}

// Handle responds with the bot's version and uptime.
func (h *AboutHandler) Handle(
	_ *discordgo.Session,
	_ *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	about := h.interactor.Execute()

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{{
				Title:       about.Name,
				Description: "Plays music and radio in your voice channel.",
				Color:       colorInfo,
				Fields: []*discordgo.MessageEmbedField{
					{Name: "Version", Value: about.Version, Inline: true},
					{Name: "Go", Value: about.GoVersion, Inline: true},
					{Name: "Uptime", Value: domain.FormatUptime(about.Uptime), Inline: true},
				},
			}},
		},
	})
}
