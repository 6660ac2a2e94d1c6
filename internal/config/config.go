package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/yosuke-furukawa/json5/encoding/json5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Logger = zap.NewNop().Sugar()

type configuration struct {
	BotActivity string `mapstructure:"bot_activity_text"`

	DiscordToken string `mapstructure:"discord_token" validate:"required"`
	GuildID      string `mapstructure:"guild_id"`

	ConfigDir    string        `mapstructure:"config_dir" validate:"required"`
	DatabasePath string        `mapstructure:"database_path" validate:"required"`
	LogLevel     string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"min=30s"`
}

var Configuration = defaults()

var validate = validator.New()

func defaults() *configuration {
	return &configuration{
		ConfigDir:    "configs",
		DatabasePath: "livebot.db",
		LogLevel:     "info",
		PollInterval: 2 * time.Minute,
	}
}

// Load reads .env into the environment, resolves the process settings and
// replaces the package logger with a production one at the configured level.
func Load() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("couldnt load file .env: %w", err)
	}

	cfg, err := fromEnv(viper.New())
	if err != nil {
		return err
	}
	Configuration = cfg

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	Logger = logger.Sugar()

	return nil
}

func fromEnv(v *viper.Viper) (*configuration, error) {
	d := defaults()
	v.SetDefault("config_dir", d.ConfigDir)
	v.SetDefault("database_path", d.DatabasePath)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("poll_interval", d.PollInterval)

	// Unmarshal only sees keys viper knows about, so every env key is bound.
	for _, key := range []string{"bot_activity_text", "discord_token", "guild_id", "config_dir", "database_path", "log_level", "poll_interval"} {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, err
		}
	}

	cfg := &configuration{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

// LoadConfig decodes the JSON5 file name from the config directory into v and
// validates it.
func LoadConfig(name string, v any) error {
	path := filepath.Join(Configuration.ConfigDir, name)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := json5.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}

	Logger.Debugw("Loaded config", "path", path)
	return nil
}
