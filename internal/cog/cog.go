package cog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"livebot/internal/config"
)

type Cog interface {
	Name() string
	Init() error
}

// loadCogConfig loads a cog's config file. A missing file is not an error; it
// leaves the cog disabled and reports found=false.
func loadCogConfig(name string, v any) (found bool, err error) {
	if err := config.LoadConfig(name, v); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			config.Logger.Infow("Config not found, feature disabled", "config", name)
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// pollInterval returns the cog's own interval if set, else the process default.
func pollInterval(raw string) (time.Duration, error) {
	if raw == "" {
		return config.Configuration.PollInterval, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid poll interval %q: %w", raw, err)
	}
	if d < 30*time.Second {
		return 0, fmt.Errorf("poll interval %s is shorter than 30s", d)
	}
	return d, nil
}

// pollContext bounds a single poll to one interval.
func pollContext(interval time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), interval)
}
