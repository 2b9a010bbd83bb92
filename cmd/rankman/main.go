package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/wrenfield/rankman/internal/config"
	"github.com/wrenfield/rankman/internal/database"
	"github.com/wrenfield/rankman/internal/discord"
	"github.com/wrenfield/rankman/internal/leveling"
	"github.com/wrenfield/rankman/internal/server"
)

func logLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func main() {
	// Missing .env is fine; real deployments set the environment directly.
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("unable to load config")
	}

	log := zerolog.New(os.Stderr).
		Level(logLevel(cfg.LogLevel)).
		With().Timestamp().Logger()

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to open database")
	}

	engine := leveling.NewEngine(db, &log)

	bot, err := discord.New(cfg.DiscordToken, cfg.DiscordAppId, db, engine, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to create bot")
	}
	if err := bot.Open(); err != nil {
		log.Fatal().Err(err).Msg("unable to connect to discord")
	}
	log.Info().Msg("connected to discord")

	srv := server.New(cfg.ListenAddr, engine, &log)
	go func() {
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("http server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	if err := bot.Close(); err != nil {
		log.Error().Err(err).Msg("discord close failed")
	}
}
