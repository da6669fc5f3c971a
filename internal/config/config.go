// internal/config/config.go
//
// Runtime configuration for the Unscramble bot.
// Values come from the process environment; main loads an optional .env file
// with godotenv before calling Load.
//
// Environment variables (defaults in brackets):
//   DISCORD_TOKEN          bot credential (required)
//   COMMAND_PREFIX         ["!"]
//   MOD_ROLE_NAME          ["bot admin"]
//   WORDS_FILE             ["words.txt"]
//   TIME_LIMIT             [60s]   scoring window per game
//   HINT_SCHEDULE          [20s,35s,45s] offsets from game start
//   STUCK_TIMEOUT          [5m]    age after which a new start overrides a game
//   SCORING_POLICY         ["tiered"] | "hint_penalty"
//   HINT_PENALTY_POINTS    [10]
//   DB_DRIVER              ["sqlite3"] | "postgres" | "file"
//   DB_DSN                 ["./data/leaderboard.db"]
//   SCORES_FILE            ["./data/leaderboard.json"] (DB_DRIVER=file)
//   SCORE_FLUSH_INTERVAL   [60s]
//   COMMAND_RATE           [1]     commands per second per user
//   COMMAND_BURST          [3]
//   HTTP_ADDR              [""]    ops API disabled when empty
//   ADMIN_PASSWORD_HASH    [""]    bcrypt hash; admin routes disabled when empty
//   ADMIN_JWT_SECRET       [""]
//   LOG_LEVEL              ["info"]
//   LOG_FORMAT             ["json"] | "console"

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const TokenEnvVar = "DISCORD_TOKEN"

// Config holds every tunable the bot reads at startup.
type Config struct {
	DiscordToken string
	Prefix       string
	ModRoleName  string
	WordsFile    string

	TimeLimit    time.Duration
	HintSchedule []time.Duration
	StuckTimeout time.Duration

	ScoringPolicy     string
	HintPenaltyPoints int

	DBDriver      string
	DBDSN         string
	ScoresFile    string
	FlushInterval time.Duration

	CommandRate  float64
	CommandBurst int

	HTTPAddr          string
	AdminPasswordHash string
	AdminJWTSecret    string

	LogLevel  string
	LogFormat string
}

// ConfigurationError reports a setting the bot cannot start without.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Reason)
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		DiscordToken:      strings.TrimSpace(os.Getenv(TokenEnvVar)),
		Prefix:            getEnv("COMMAND_PREFIX", "!"),
		ModRoleName:       getEnv("MOD_ROLE_NAME", "bot admin"),
		WordsFile:         getEnv("WORDS_FILE", "words.txt"),
		TimeLimit:         getEnvDuration("TIME_LIMIT", 60*time.Second),
		HintSchedule:      getEnvDurations("HINT_SCHEDULE", []time.Duration{20 * time.Second, 35 * time.Second, 45 * time.Second}),
		StuckTimeout:      getEnvDuration("STUCK_TIMEOUT", 5*time.Minute),
		ScoringPolicy:     strings.ToLower(getEnv("SCORING_POLICY", "tiered")),
		HintPenaltyPoints: getEnvInt("HINT_PENALTY_POINTS", 10),
		DBDriver:          strings.ToLower(getEnv("DB_DRIVER", "sqlite3")),
		DBDSN:             getEnv("DB_DSN", "./data/leaderboard.db"),
		ScoresFile:        getEnv("SCORES_FILE", "./data/leaderboard.json"),
		FlushInterval:     getEnvDuration("SCORE_FLUSH_INTERVAL", 60*time.Second),
		CommandRate:       getEnvFloat("COMMAND_RATE", 1),
		CommandBurst:      getEnvInt("COMMAND_BURST", 3),
		HTTPAddr:          os.Getenv("HTTP_ADDR"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		AdminJWTSecret:    os.Getenv("ADMIN_JWT_SECRET"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         strings.ToLower(getEnv("LOG_FORMAT", "json")),
	}
}

// Validate checks the settings that have no safe default.
func (c *Config) Validate() error {
	if c.DiscordToken == "" {
		return &ConfigurationError{Key: TokenEnvVar, Reason: "not set"}
	}
	if c.TimeLimit <= 0 {
		return &ConfigurationError{Key: "TIME_LIMIT", Reason: "must be positive"}
	}
	if c.StuckTimeout <= c.TimeLimit {
		return &ConfigurationError{Key: "STUCK_TIMEOUT", Reason: "must exceed TIME_LIMIT"}
	}
	for i := 1; i < len(c.HintSchedule); i++ {
		if c.HintSchedule[i] < c.HintSchedule[i-1] {
			return &ConfigurationError{Key: "HINT_SCHEDULE", Reason: "offsets must be non-decreasing"}
		}
	}
	switch c.ScoringPolicy {
	case "tiered", "hint_penalty":
	default:
		return &ConfigurationError{Key: "SCORING_POLICY", Reason: "unknown policy " + strconv.Quote(c.ScoringPolicy)}
	}
	switch c.DBDriver {
	case "sqlite3", "postgres", "file":
	default:
		return &ConfigurationError{Key: "DB_DRIVER", Reason: "unsupported driver " + strconv.Quote(c.DBDriver)}
	}
	if c.AdminPasswordHash != "" && c.AdminJWTSecret == "" {
		return &ConfigurationError{Key: "ADMIN_JWT_SECRET", Reason: "required when ADMIN_PASSWORD_HASH is set"}
	}
	return nil
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Int("default", fallback).Msg("invalid int, using default")
		return fallback
	}
	return i
}

func getEnvFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Float64("default", fallback).Msg("invalid float, using default")
		return fallback
	}
	return f
}

// getEnvDuration accepts Go durations ("90s") or bare seconds ("90").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := parseDuration(val)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Dur("default", fallback).Msg("invalid duration, using default")
		return fallback
	}
	return d
}

// getEnvDurations parses a comma-separated list of durations.
func getEnvDurations(key string, fallback []time.Duration) []time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []time.Duration
	for _, part := range strings.Split(val, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := parseDuration(part)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("invalid duration list, using default")
			return fallback
		}
		out = append(out, d)
	}
	return out
}

func parseDuration(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}
