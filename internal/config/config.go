package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config carries every tunable the server reads at startup. Values come from
// the environment with a .env file as an optional overlay for development.
type Config struct {
	Port     string
	LogLevel string

	RedisAddr   string
	TokenSecret string

	MinPlayers        int
	MaxPlayers        int
	MaxNicknameLength int

	ProfileKickTimeout time.Duration
	RoundResetDelay    time.Duration
	ResumeTokenTTL     time.Duration
}

// Load reads configuration from the environment, overlaying a .env file when
// one exists. Missing keys fall back to defaults suitable for local play.
func Load(log logrus.FieldLogger) Config {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, using environment and defaults")
	}

	secret := os.Getenv("TOKEN_SECRET")
	if secret == "" {
		secret = randomSecret(log)
	}

	return Config{
		Port:     envString("PORT", "8080"),
		LogLevel: envString("LOG_LEVEL", "info"),

		RedisAddr:   envString("REDIS_ADDR", ""),
		TokenSecret: secret,

		MinPlayers:        envInt("MIN_PLAYERS", 2, log),
		MaxPlayers:        envInt("MAX_PLAYERS", 6, log),
		MaxNicknameLength: envInt("MAX_NICKNAME_LENGTH", 20, log),

		ProfileKickTimeout: envDuration("PROFILE_KICK_TIMEOUT", 5*time.Minute, log),
		RoundResetDelay:    envDuration("ROUND_RESET_DELAY", 10*time.Second, log),
		ResumeTokenTTL:     envDuration("RESUME_TOKEN_TTL", 24*time.Hour, log),
	}
}

// ParseLevel maps the configured log level onto logrus, defaulting to info on
// a bad value rather than refusing to start.
func (c Config) ParseLevel() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// randomSecret generates a per-boot signing secret when none is configured.
// Resume tokens then survive reconnects but not server restarts.
func randomSecret(log logrus.FieldLogger) string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		log.WithError(err).Fatal("failed to generate token secret")
	}
	log.Warn("TOKEN_SECRET not set, generated an ephemeral secret for this boot")
	return hex.EncodeToString(buf)
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int, log logrus.FieldLogger) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.WithFields(logrus.Fields{"key": key, "value": v}).
			Warn("invalid integer in environment, using default")
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration, log logrus.FieldLogger) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.WithFields(logrus.Fields{"key": key, "value": v}).
			Warn("invalid duration in environment, using default")
		return fallback
	}
	return d
}
