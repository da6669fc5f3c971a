package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/unscramble-bot/assets"
	"github.com/robalobadob/unscramble-bot/internal/bot"
	"github.com/robalobadob/unscramble-bot/internal/chat"
	"github.com/robalobadob/unscramble-bot/internal/config"
	"github.com/robalobadob/unscramble-bot/internal/coordinator"
	"github.com/robalobadob/unscramble-bot/internal/game"
	"github.com/robalobadob/unscramble-bot/internal/httpserver"
	"github.com/robalobadob/unscramble-bot/internal/store"
	"github.com/robalobadob/unscramble-bot/internal/words"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	setupLogging(cfg)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wordList, err := words.Load(cfg.WordsFile)
	if err != nil {
		log.Fatal().Err(&config.ConfigurationError{Key: "WORDS_FILE", Reason: err.Error()}).Msg("failed to load word list")
	}

	policy, err := game.NewPolicy(cfg.ScoringPolicy, cfg.HintPenaltyPoints)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid scoring policy")
	}

	persister, closeDB := openPersister(ctx, cfg)
	defer closeDB()
	scores, err := store.Open(ctx, persister)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load leaderboard")
	}
	// The flush loop outlives ctx so wins settled during shutdown are saved.
	flushCtx, stopFlush := context.WithCancel(context.Background())
	flushDone := make(chan struct{})
	go func() {
		scores.Run(flushCtx, cfg.FlushInterval)
		close(flushDone)
	}()

	discord, err := chat.NewDiscord(cfg.DiscordToken, "")
	if err != nil {
		log.Fatal().Err(err).Msg("discord setup failed")
	}

	games := coordinator.New(wordList, scores, discord, coordinator.Options{
		TimeLimit:    cfg.TimeLimit,
		HintSchedule: cfg.HintSchedule,
		StuckTimeout: cfg.StuckTimeout,
		Policy:       policy,
		Prefix:       cfg.Prefix,
	})

	b := bot.New(discord, games, scores, bot.Options{
		Prefix:       cfg.Prefix,
		ModRole:      cfg.ModRoleName,
		CommandRate:  cfg.CommandRate,
		CommandBurst: cfg.CommandBurst,
	})
	discord.SetActivity(b.Activity())
	discord.OnMessage(b.HandleMessage)
	go b.RunJanitor(ctx, 10*time.Minute)

	if err := discord.Open(); err != nil {
		log.Fatal().Err(err).Msg("discord connect failed (check DISCORD_TOKEN)")
	}
	log.Info().Str("prefix", cfg.Prefix).Str("role", cfg.ModRoleName).Msg("unscramble bot running")

	var srv *http.Server
	if cfg.HTTPAddr != "" {
		api := httpserver.New(games, scores, discord, httpserver.AuthConfig{
			PasswordHash: cfg.AdminPasswordHash,
			JWTSecret:    cfg.AdminJWTSecret,
		})
		srv = &http.Server{Addr: cfg.HTTPAddr, Handler: api.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Info().Str("addr", cfg.HTTPAddr).Msg("starting ops api")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("ops api exited")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if srv != nil {
		_ = srv.Shutdown(shutdownCtx)
	}
	if err := discord.Close(); err != nil {
		log.Warn().Err(err).Msg("discord close")
	}
	if err := games.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("timers still running at exit")
	}
	stopFlush()
	<-flushDone
}

func setupLogging(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// openPersister picks the leaderboard backend for cfg.DBDriver.
func openPersister(ctx context.Context, cfg *config.Config) (store.Persister, func()) {
	if cfg.DBDriver == "file" {
		log.Info().Str("file", cfg.ScoresFile).Msg("leaderboard stored in json file")
		return store.NewFilePersister(cfg.ScoresFile), func() {}
	}
	db, err := openDB(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("failed to open database")
	}
	if err := migrate(ctx, db, cfg.DBDriver, assets.Migrations()); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	log.Info().Str("driver", cfg.DBDriver).Msg("leaderboard stored in database")
	return store.NewSQLPersister(db, cfg.DBDriver), func() { _ = db.Close() }
}
