package music_player

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Audio backends.
const (
	BackendLavalink = "lavalink"
	BackendFFmpeg   = "ffmpeg"
)

// SettingsInMemory selects the in-memory settings store.
const SettingsInMemory = "memory"

// Config holds the music player module configuration.
type Config struct {
	AudioBackend string `env:"AUDIO_BACKEND" envDefault:"lavalink" validate:"oneof=lavalink ffmpeg"`

	LavalinkAddress  string `env:"LAVALINK_ADDRESS"  validate:"required_if=AudioBackend lavalink,omitempty,hostname_port"`
	LavalinkPassword string `env:"LAVALINK_PASSWORD" validate:"required_if=AudioBackend lavalink"`
	LavalinkSecure   bool   `env:"LAVALINK_SECURE"`

	FFmpegPath string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`

	NowPlayingInterval          time.Duration `env:"NOW_PLAYING_INTERVAL"           envDefault:"15s"  validate:"gte=1s"`
	MaxConsecutiveStartFailures uint32        `env:"MAX_CONSECUTIVE_START_FAILURES" envDefault:"5"    validate:"gte=1"`
	CommandTimeout              time.Duration `env:"COMMAND_TIMEOUT"                envDefault:"30s"  validate:"gt=0"`

	ResolverCacheSize int           `env:"RESOLVER_CACHE_SIZE" envDefault:"256" validate:"gte=0"`
	ResolverCacheTTL  time.Duration `env:"RESOLVER_CACHE_TTL"  envDefault:"30m" validate:"gte=0"`

	// SettingsDBPath is the SQLite file for per-guild settings. The value
	// "memory" keeps settings in process memory.
	SettingsDBPath string `env:"SETTINGS_DB_PATH" envDefault:"data/kasseta.db"`

	SearchResultLimit int `env:"SEARCH_RESULT_LIMIT" envDefault:"4"  validate:"gte=1,lte=25"`
	QueuePageSize     int `env:"QUEUE_PAGE_SIZE"     envDefault:"10" validate:"gte=1,lte=25"`
}

// LoadConfig parses the configuration from environment variables and validates it.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid music player config: %w", err)
	}
	return cfg, nil
}
