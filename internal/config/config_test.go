package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")

	cfg, err := fromEnv(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "token", cfg.DiscordToken)
	assert.Equal(t, "configs", cfg.ConfigDir)
	assert.Equal(t, "livebot.db", cfg.DatabasePath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 2*time.Minute, cfg.PollInterval)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("GUILD_ID", "42")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("POLL_INTERVAL", "5m")
	t.Setenv("CONFIG_DIR", "/etc/livebot")

	cfg, err := fromEnv(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "42", cfg.GuildID)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Minute, cfg.PollInterval)
	assert.Equal(t, "/etc/livebot", cfg.ConfigDir)
}

func TestFromEnv_MissingToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")

	_, err := fromEnv(viper.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DiscordToken")
}

func TestFromEnv_IntervalTooShort(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("POLL_INTERVAL", "1s")

	_, err := fromEnv(viper.New())
	require.Error(t, err)
}

type sampleConfig struct {
	Enabled   bool     `json:"Enabled"`
	ChannelID string   `json:"Channel_id" validate:"required_if=Enabled true"`
	Watchlist []string `json:"Watchlist"`
}

func useConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	prev := Configuration
	Configuration = defaults()
	Configuration.ConfigDir = dir
	t.Cleanup(func() { Configuration = prev })
	return dir
}

func TestLoadConfig_JSON5(t *testing.T) {
	dir := useConfigDir(t)
	content := `{
		// comments are allowed
		"Enabled": true,
		"Channel_id": "123",
		"Watchlist": ["a", "b"]
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sample.json5"), []byte(content), 0o600))

	var cfg sampleConfig
	require.NoError(t, LoadConfig("sample.json5", &cfg))

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "123", cfg.ChannelID)
	assert.Equal(t, []string{"a", "b"}, cfg.Watchlist)
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := useConfigDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sample.json5"), []byte(`{"Enabled": true}`), 0o600))

	var cfg sampleConfig
	err := LoadConfig("sample.json5", &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestLoadConfig_DisabledSkipsRequired(t *testing.T) {
	dir := useConfigDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sample.json5"), []byte(`{"Enabled": false}`), 0o600))

	var cfg sampleConfig
	require.NoError(t, LoadConfig("sample.json5", &cfg))
	assert.False(t, cfg.Enabled)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	useConfigDir(t)

	var cfg sampleConfig
	err := LoadConfig("nope.json5", &cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
