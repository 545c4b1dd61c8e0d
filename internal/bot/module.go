package bot

import (
	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
)

// InteractionHandler handles a Discord interaction and returns a response.
type InteractionHandler func(s *discordgo.Session, i *discordgo.InteractionCreate, r Responder) error

// AutocompleteHandler returns the choices for the focused option of a command.
type AutocompleteHandler func(s *discordgo.Session, i *discordgo.InteractionCreate) []*discordgo.ApplicationCommandOptionChoice

// EventHandler is a generic handler for any Discord event.
// It should be a function matching one of discordgo's handler signatures,
// e.g., func(s *discordgo.Session, m *discordgo.MessageCreate)
type EventHandler any

// ModuleDependencies provides dependencies that modules may need during initialization.
// Modules are initialized after the gateway connection is open, so BotID is known.
type ModuleDependencies struct {
	Session *discordgo.Session
	BotID   snowflake.ID
}

// Module defines the interface that all bot modules must implement.
type Module interface {
	// Name returns the unique identifier for this module.
	Name() string

	// Commands returns the slash commands that this module provides.
	Commands() []*discordgo.ApplicationCommand

	// CommandHandlers returns a map of command names to their handlers.
	CommandHandlers() map[string]InteractionHandler

	// EventHandlers returns event handlers for this module.
	// Each handler should match a discordgo handler signature.
	EventHandlers() []EventHandler

	// Init initializes the module with the provided dependencies.
	Init(deps ModuleDependencies) error

	// Shutdown gracefully shuts down the module.
	Shutdown() error
}

// ConfigurableModule is an optional interface for modules that need configuration.
// Modules implementing this interface will have LoadConfig called before Init.
type ConfigurableModule interface {
	// LoadConfig loads and validates module-specific configuration.
	// Called before the Discord connection is established.
	LoadConfig() error
}

// ComponentModule is an optional interface for modules that own message
// components (buttons, select menus).
type ComponentModule interface {
	// ComponentHandlers maps custom ID prefixes to handlers. A component with
	// custom ID "music_pick:abc" is routed to the "music_pick" handler.
	ComponentHandlers() map[string]InteractionHandler
}

// AutocompleteModule is an optional interface for modules with autocompleted options.
type AutocompleteModule interface {
	// AutocompleteHandlers maps command names to autocomplete handlers.
	AutocompleteHandlers() map[string]AutocompleteHandler
}
