package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
)

// Bot manages the Discord bot lifecycle and module coordination.
type Bot struct {
	config  *Config
	session *discordgo.Session
	modules []Module

	handlers     map[string]InteractionHandler
	components   map[string]InteractionHandler
	autocomplete map[string]AutocompleteHandler
}

// NewBot creates a new Bot instance with the given configuration.
func NewBot(cfg *Config) *Bot {
	return &Bot{
		config:       cfg,
		handlers:     make(map[string]InteractionHandler),
		components:   make(map[string]InteractionHandler),
		autocomplete: make(map[string]AutocompleteHandler),
	}
}

// LoadModules loads modules from the global registry and their configuration.
func (b *Bot) LoadModules() error {
	b.modules = Modules()
	return b.loadConfigs()
}

func (b *Bot) loadConfigs() error {
	for _, mod := range b.modules {
		configurable, ok := mod.(ConfigurableModule)
		if !ok {
			continue
		}
		if err := configurable.LoadConfig(); err != nil {
			return fmt.Errorf("failed to load %s module config: %w", mod.Name(), err)
		}
	}
	return nil
}

// Start connects to Discord, initializes modules and registers commands.
func (b *Bot) Start() error {
	session, err := discordgo.New("Bot " + b.config.DiscordToken)
	if err != nil {
		return fmt.Errorf("failed to create Discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates
	b.session = session

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	botID, err := snowflake.Parse(b.session.State.User.ID)
	if err != nil {
		return fmt.Errorf("failed to parse bot user ID: %w", err)
	}

	if err := b.initModules(ModuleDependencies{Session: b.session, BotID: botID}); err != nil {
		return fmt.Errorf("failed to initialize modules: %w", err)
	}

	b.buildHandlerMap()
	b.session.AddHandler(b.handleInteraction)
	b.registerEventHandlers()

	if err := b.registerCommands(); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	slog.Info("started bot",
		"user_id", b.session.State.User.ID,
		"username", b.session.State.User.Username,
	)

	return nil
}

// Stop gracefully shuts down the bot.
func (b *Bot) Stop() error {
	var errs []error
	for _, mod := range b.modules {
		if err := mod.Shutdown(); err != nil {
			slog.Warn("failed to shutdown module", "module", mod.Name(), "error", err)
			errs = append(errs, err)
		}
	}

	if b.session != nil {
		if err := b.session.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// initModules initializes all loaded modules.
func (b *Bot) initModules(deps ModuleDependencies) error {
	for _, mod := range b.modules {
		if err := mod.Init(deps); err != nil {
			return fmt.Errorf("failed to initialize %s module: %w", mod.Name(), err)
		}
		slog.Debug("initialized module", "module", mod.Name())
	}

	moduleNames := make([]string, len(b.modules))
	for i, mod := range b.modules {
		moduleNames[i] = mod.Name()
	}
	slog.Info("initialized modules", "modules", moduleNames)

	return nil
}

// buildHandlerMap builds the command, component and autocomplete routing tables.
func (b *Bot) buildHandlerMap() {
	for _, mod := range b.modules {
		maps.Copy(b.handlers, mod.CommandHandlers())
		if cm, ok := mod.(ComponentModule); ok {
			maps.Copy(b.components, cm.ComponentHandlers())
		}
		if am, ok := mod.(AutocompleteModule); ok {
			maps.Copy(b.autocomplete, am.AutocompleteHandlers())
		}
	}
}

// registerEventHandlers registers all module event handlers with the session.
func (b *Bot) registerEventHandlers() {
	for _, mod := range b.modules {
		for _, handler := range mod.EventHandlers() {
			b.session.AddHandler(handler)
		}
	}
}

// collectCommands gathers all commands from loaded modules.
func (b *Bot) collectCommands() []*discordgo.ApplicationCommand {
	var commands []*discordgo.ApplicationCommand
	for _, mod := range b.modules {
		commands = append(commands, mod.Commands()...)
	}
	return commands
}

// registerCommands replaces the registered commands with the modules' commands,
// on the configured guild or globally.
func (b *Bot) registerCommands() error {
	commands := b.collectCommands()

	registered, err := b.session.ApplicationCommandBulkOverwrite(
		b.session.State.User.ID,
		b.config.GuildID,
		commands,
	)
	if err != nil {
		return err
	}

	for _, cmd := range registered {
		slog.Debug("registered command", "command", cmd.Name, "guild", b.config.GuildID)
	}
	return nil
}

// Embed colors for responses.
const (
	colorYellow = 0xFFFF00
	colorRed    = 0xFF0000
)

// handleInteraction routes incoming interactions to the appropriate handler.
func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		name := i.ApplicationCommandData().Name
		b.dispatch(s, i, "command", name, b.handlers[name])
	case discordgo.InteractionMessageComponent:
		customID := i.MessageComponentData().CustomID
		prefix, _, _ := strings.Cut(customID, ":")
		b.dispatch(s, i, "component", customID, b.components[prefix])
	case discordgo.InteractionApplicationCommandAutocomplete:
		b.handleAutocomplete(s, i)
	}
}

func (b *Bot) dispatch(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	kind, name string,
	handler InteractionHandler,
) {
	if handler == nil {
		slog.Warn("found no handler for interaction", "kind", kind, "name", name)
		b.respondWithEmbed(s, i, "Unknown Command", "This command is not recognized.", colorYellow)
		return
	}

	responder := NewDiscordResponder(s, i.Interaction)
	if err := handler(s, i, responder); err != nil {
		slog.Error("failed to handle interaction", "kind", kind, "name", name, "error", err)
		_ = responder.Respond(&discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Embeds: []*discordgo.MessageEmbed{{
					Title:       "Error",
					Description: "An error occurred while processing your command.",
					Color:       colorRed,
				}},
			},
		})
	}
}

func (b *Bot) handleAutocomplete(s *discordgo.Session, i *discordgo.InteractionCreate) {
	handler, ok := b.autocomplete[i.ApplicationCommandData().Name]
	if !ok {
		return
	}

	choices := handler(s, i)
	if choices == nil {
		choices = []*discordgo.ApplicationCommandOptionChoice{}
	}
	if len(choices) > maxAutocompleteChoices {
		choices = choices[:maxAutocompleteChoices]
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
	if err != nil {
		slog.Debug("failed to send autocomplete choices", "error", err)
	}
}

// Discord rejects autocomplete responses with more choices.
const maxAutocompleteChoices = 25

// respondWithEmbed sends an embed response to an interaction.
func (b *Bot) respondWithEmbed(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	title, description string,
	color int,
) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       title,
					Description: description,
					Color:       color,
				},
			},
		},
	})
	if err != nil {
		slog.Error("failed to send embed response", "error", err)
	}
}
