package basic

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/kasseta-bot/kasseta/internal/bot"
	"github.com/kasseta-bot/kasseta/internal/modules/basic/application"
	"github.com/kasseta-bot/kasseta/internal/modules/basic/presentation"
)

func init() {
	bot.Register(&BasicModule{})
}

// BasicModule provides the /ping and /about commands.
type BasicModule struct {
	pingHandler  *presentation.PingHandler
	aboutHandler *presentation.AboutHandler
}

// Name returns the module name.
func (m *BasicModule) Name() string {
	return "basic"
}

// Commands returns the slash commands for this module.
func (m *BasicModule) Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "ping",
			Description: "Check that the bot is responsive",
		},
		{
			Name:        "about",
			Description: "Show the bot version and uptime",
		},
	}
}

// CommandHandlers returns the command handlers for this module.
func (m *BasicModule) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"ping":  m.pingHandler.Handle,
		"about": m.aboutHandler.Handle,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *BasicModule) EventHandlers() []bot.EventHandler {
	return nil
}

// Init initializes the module.
func (m *BasicModule) Init(bot.ModuleDependencies) error {
	m.pingHandler = presentation.NewPingHandler()
	m.aboutHandler = presentation.NewAboutHandler(application.NewAboutInteractor(time.Now(), nil))
	return nil
}

// Shutdown cleans up module resources.
func (m *BasicModule) Shutdown() error {
	return nil
}
