package scheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"livebot/internal/config"
)

// Scheduler runs the bot's periodic jobs.
type Scheduler struct {
	s gocron.Scheduler
}

func New() (*Scheduler, error) {
	s, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(zapLogger{}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	s.Start()
	return &Scheduler{s: s}, nil
}

// AddInterval runs task now and then every interval. A run that is still in
// progress when the next one is due delays it instead of overlapping.
func (sc *Scheduler) AddInterval(name string, every time.Duration, task func()) error {
	_, err := sc.s.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule job %q: %w", name, err)
	}

	config.Logger.Infow("Job scheduled", "name", name, "every", every)
	return nil
}

func (sc *Scheduler) Shutdown() error {
	if err := sc.s.Shutdown(); err != nil {
		return fmt.Errorf("failed to shutdown scheduler: %w", err)
	}
	return nil
}

// zapLogger implements gocron.Logger on top of the package logger.
type zapLogger struct{}

func (zapLogger) Debug(msg string, args ...any) { config.Logger.Debugw(msg, args...) }
func (zapLogger) Info(msg string, args ...any)  { config.Logger.Infow(msg, args...) }
func (zapLogger) Warn(msg string, args ...any)  { config.Logger.Warnw(msg, args...) }
func (zapLogger) Error(msg string, args ...any) { config.Logger.Errorw(msg, args...) }
