package config

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load(testLogger())

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 2, cfg.MinPlayers)
	assert.Equal(t, 6, cfg.MaxPlayers)
	assert.Equal(t, 20, cfg.MaxNicknameLength)
	assert.Equal(t, 5*time.Minute, cfg.ProfileKickTimeout)
	assert.Equal(t, 10*time.Second, cfg.RoundResetDelay)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("MAX_PLAYERS", "4")
	t.Setenv("ROUND_RESET_DELAY", "3s")

	cfg := Load(testLogger())
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 4, cfg.MaxPlayers)
	assert.Equal(t, 3*time.Second, cfg.RoundResetDelay)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("MAX_PLAYERS", "lots")
	t.Setenv("PROFILE_KICK_TIMEOUT", "soon")

	cfg := Load(testLogger())
	assert.Equal(t, 6, cfg.MaxPlayers)
	assert.Equal(t, 5*time.Minute, cfg.ProfileKickTimeout)
}

func TestParseLevel(t *testing.T) {
	cfg := Config{LogLevel: "debug"}
	assert.Equal(t, logrus.DebugLevel, cfg.ParseLevel())

	cfg.LogLevel = "nonsense"
	assert.Equal(t, logrus.InfoLevel, cfg.ParseLevel())
}
