package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	"github.com/kasseta-bot/kasseta/internal/bot"
	_ "github.com/kasseta-bot/kasseta/internal/modules/basic"
	_ "github.com/kasseta-bot/kasseta/internal/modules/music_player"
)

// version is set at build time via ldflags:
// go build -ldflags "-X main.version=1.0.0" ./cmd/kasseta
var version = "dev"

var (
	app = kingpin.New("kasseta", "Discord music bot.")

	logLevel = app.Flag("log-level", "Log level (debug, info, warn, error).").
			Envar("LOG_LEVEL").
			Default("info").
			Enum("debug", "info", "warn", "error")
	envFile = app.Flag("env-file", "Dotenv file to load before reading the environment.").
		Default(".env").
		String()
)

func main() {
	app.Version(version)
	kingpin.MustParse(app.Parse(os.Args[1:]))

	// Configure JSON logging
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(*logLevel),
	})))

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to load env file", "path", *envFile, "error", err)
		os.Exit(1)
	}

	slog.Info("starting kasseta", "version", version)

	// Load configuration
	cfg, err := bot.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Create and configure bot
	b := bot.NewBot(cfg)
	if err := b.LoadModules(); err != nil {
		slog.Error("failed to load modules", "error", err)
		os.Exit(1)
	}

	// Start bot
	if err := b.Start(); err != nil {
		slog.Error("failed to start bot", "error", err)
		if err := b.Stop(); err != nil {
			slog.Error("failed to shutdown", "error", err)
		}
		os.Exit(1)
	}

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("received termination signal, shutting down")
	if err := b.Stop(); err != nil {
		slog.Error("failed to shutdown", "error", err)
	}

	slog.Info("completed bot shutdown")
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return slog.LevelInfo
	}
	return l
}
