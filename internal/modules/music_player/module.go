package music_player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/kasseta-bot/kasseta/internal/bot"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/application/ports"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/application/session"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/application/usecases"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/domain"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/infrastructure"
	"github.com/kasseta-bot/kasseta/internal/modules/music_player/presentation/discord"
)

const (
	connectTimeout  = 15 * time.Second
	shutdownTimeout = 10 * time.Second
)

func init() {
	bot.Register(&MusicPlayerModule{})
}

// Compile-time interface checks.
var (
	_ bot.ConfigurableModule = (*MusicPlayerModule)(nil)
	_ bot.ComponentModule    = (*MusicPlayerModule)(nil)
	_ bot.AutocompleteModule = (*MusicPlayerModule)(nil)
)

// MusicPlayerModule provides music playback commands.
type MusicPlayerModule struct {
	config *Config

	commandHandlers *discord.CommandHandlers
	autocomplete    *discord.AutocompleteHandler
	eventHandlers   *discord.EventHandlers

	backend  ports.AudioBackend
	lavalink *infrastructure.LavalinkBackend // nil with the ffmpeg backend
	sessions *session.Registry
	settings domain.GuildSettingsRepository
}

// Name returns the module name.
func (m *MusicPlayerModule) Name() string {
	return "music_player"
}

// Commands returns the slash commands for this module.
func (m *MusicPlayerModule) Commands() []*discordgo.ApplicationCommand {
	return discord.Commands()
}

// CommandHandlers returns the command handlers for this module.
func (m *MusicPlayerModule) CommandHandlers() map[string]bot.InteractionHandler {
	h := m.commandHandlers
	return map[string]bot.InteractionHandler{
		"join":       h.HandleJoin,
		"leave":      h.HandleLeave,
		"play":       h.HandlePlay,
		"playlist":   h.HandlePlaylist,
		"search":     h.HandleSearch,
		"radio":      h.HandleRadio,
		"pause":      h.HandlePause,
		"skip":       h.HandleSkip,
		"stop":       h.HandleStop,
		"seek":       h.HandleSeek,
		"loop":       h.HandleLoop,
		"shuffle":    h.HandleShuffle,
		"remove":     h.HandleRemove,
		"queue":      h.HandleQueue,
		"nowplaying": h.HandleNowPlaying,
		"volume":     h.HandleVolume,
	}
}

// ComponentHandlers returns the message component handlers for this module.
func (m *MusicPlayerModule) ComponentHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"music_pick": m.commandHandlers.HandlePick,
	}
}

// AutocompleteHandlers returns the autocomplete handlers for this module.
func (m *MusicPlayerModule) AutocompleteHandlers() map[string]bot.AutocompleteHandler {
	return map[string]bot.AutocompleteHandler{
		"play":   m.autocomplete.HandlePlay,
		"remove": m.autocomplete.HandleRemove,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *MusicPlayerModule) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		func(s *discordgo.Session, event *discordgo.VoiceServerUpdate) {
			m.handleVoiceServerUpdate(s, event)
		},
		func(s *discordgo.Session, event *discordgo.VoiceStateUpdate) {
			m.handleVoiceStateUpdate(s, event)
		},
		func(s *discordgo.Session, event *discordgo.GuildDelete) {
			m.eventHandlers.HandleGuildDelete(s, event)
		},
	}
}

// LoadConfig loads module-specific configuration from environment variables.
func (m *MusicPlayerModule) LoadConfig() error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	m.config = cfg
	return nil
}

// Init initializes the module.
func (m *MusicPlayerModule) Init(deps bot.ModuleDependencies) error {
	if deps.Session == nil {
		return errors.New("music_player requires a Discord session")
	}
	if m.config == nil {
		if err := m.LoadConfig(); err != nil {
			return err
		}
	}

	resolver, err := m.initBackend(deps.Session)
	if err != nil {
		return err
	}

	settings, err := m.openSettings()
	if err != nil {
		return err
	}
	m.settings = settings

	resolver = infrastructure.NewCachingResolver(resolver, m.config.ResolverCacheSize, m.config.ResolverCacheTTL)
	notifier := infrastructure.NewNotifier(deps.Session)
	voiceState := infrastructure.NewVoiceStateProvider(deps.Session.State)

	m.sessions = session.NewRegistry(m.newSession(notifier))

	trackLoader := usecases.NewTrackLoaderService(resolver, m.config.SearchResultLimit)
	voiceChannel := usecases.NewVoiceChannelService(m.sessions, voiceState)
	playback := usecases.NewPlaybackService(m.sessions, trackLoader, voiceChannel, settings)
	queue := usecases.NewQueueService(m.sessions, m.config.QueuePageSize)

	m.commandHandlers = discord.NewCommandHandlers(
		voiceChannel,
		playback,
		queue,
		trackLoader,
		discord.NewSearchPicker(0),
		m.config.CommandTimeout,
	)
	m.autocomplete = discord.NewAutocompleteHandler(queue, trackLoader)
	m.eventHandlers = discord.NewEventHandlers(voiceChannel, deps.BotID)

	slog.Info("music_player module initialized", "backend", m.config.AudioBackend)
	return nil
}

// initBackend connects the configured audio backend and returns its resolver.
func (m *MusicPlayerModule) initBackend(s *discordgo.Session) (ports.TrackResolver, error) {
	switch m.config.AudioBackend {
	case BackendFFmpeg:
		m.backend = infrastructure.NewFFmpegBackend(s, m.config.FFmpegPath)
		return infrastructure.NewDirectResolver(), nil
	default:
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		lavalink, err := infrastructure.NewLavalinkBackend(ctx, s, infrastructure.LavalinkConfig{
			Address:  m.config.LavalinkAddress,
			Password: m.config.LavalinkPassword,
			Secure:   m.config.LavalinkSecure,
		})
		if err != nil {
			return nil, err
		}
		m.lavalink = lavalink
		m.backend = lavalink
		return lavalink.Resolver(), nil
	}
}

func (m *MusicPlayerModule) openSettings() (domain.GuildSettingsRepository, error) {
	if m.config.SettingsDBPath == SettingsInMemory {
		return infrastructure.NewMemorySettingsRepository(), nil
	}
	repo, err := infrastructure.NewSQLiteSettingsRepository(m.config.SettingsDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings store: %w", err)
	}
	return repo, nil
}

// newSession returns the registry factory. Sessions start with the stored
// volume and notification channel of their guild.
func (m *MusicPlayerModule) newSession(notifier *infrastructure.Notifier) session.Factory {
	return func(ctx context.Context, guildID snowflake.ID) (*session.Session, error) {
		settings, err := m.settings.Get(ctx, guildID)
		if err != nil {
			slog.Warn("failed to load guild settings, using defaults", "guild", guildID, "error", err)
			settings = domain.DefaultGuildSettings(guildID)
		}

		opts := session.DefaultOptions()
		opts.PresenterInterval = m.config.NowPlayingInterval
		opts.MaxConsecutiveStartFailures = m.config.MaxConsecutiveStartFailures
		opts.InitialVolumePercent = settings.VolumePercent

		s := session.New(guildID, session.Dependencies{
			Sink:     m.backend.SinkFor(guildID),
			Voice:    m.backend,
			UI:       notifier,
			Notifier: notifier,
		}, opts)

		if settings.NotificationChannelID != 0 {
			if err := s.SetNotificationChannel(ctx, settings.NotificationChannelID); err != nil {
				_ = s.Close(ctx)
				return nil, err
			}
		}
		return s, nil
	}
}

// Shutdown cleans up module resources.
func (m *MusicPlayerModule) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if m.sessions != nil {
		if err := m.sessions.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to close sessions: %w", err))
		}
	}
	if m.backend != nil {
		if err := m.backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close audio backend: %w", err))
		}
	}
	if closer, ok := m.settings.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close settings store: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Event handlers.

func (m *MusicPlayerModule) handleVoiceServerUpdate(
	_ *discordgo.Session,
	event *discordgo.VoiceServerUpdate,
) {
	if m.lavalink != nil {
		m.lavalink.OnVoiceServerUpdate(event)
	}
}

func (m *MusicPlayerModule) handleVoiceStateUpdate(
	s *discordgo.Session,
	event *discordgo.VoiceStateUpdate,
) {
	if m.lavalink != nil {
		m.lavalink.OnVoiceStateUpdate(event)
	}
	if m.eventHandlers != nil {
		m.eventHandlers.HandleVoiceStateUpdate(s, event)
	}
}
