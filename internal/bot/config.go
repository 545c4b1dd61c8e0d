package bot

import (
	"github.com/caarlos0/env/v11"
)

// Config holds the bot configuration loaded from environment variables.
type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN,notEmpty"`

	// GuildID registers commands on a single guild instead of globally.
	// Guild commands update instantly, which is handy during development.
	GuildID string `env:"DISCORD_GUILD_ID"`
}

// LoadConfig loads configuration from environment variables.
// Returns an error if required fields are missing.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
