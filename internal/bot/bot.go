package bot

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"livebot/internal/cog"
	"livebot/internal/config"
	"livebot/internal/discord"
	"livebot/internal/scheduler"
	"livebot/internal/store"
)

func Run() {
	if err := config.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	err := run()
	if err != nil {
		config.Logger.Errorw("Bot stopped", "error", err)
	}
	_ = config.Logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run starts the bot and blocks until a shutdown signal. Everything opened
// before a failure is closed before it returns.
func run() error {
	st, err := store.Open(config.Configuration.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	if err := discord.Init(); err != nil {
		return fmt.Errorf("failed to create discord session: %w", err)
	}

	sched, err := scheduler.New()
	if err != nil {
		return err
	}
	defer func() {
		if err := sched.Shutdown(); err != nil {
			config.Logger.Warnw("Scheduler shutdown failed", "error", err)
		}
	}()

	if err := initCogs(st, sched); err != nil {
		return err
	}

	if err := discord.InitConnection(); err != nil {
		return err
	}
	defer discord.Session.Close()

	config.Logger.Infoln("Bot is running.")
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc
	config.Logger.Infoln("Shutting down.")
	return nil
}

func initCogs(st *store.Store, sched *scheduler.Scheduler) error {

	if discord.Session == nil {
		return errors.New("tried to init cogs before initializing discord session")
	}

	cogList := []cog.Cog{
		&cog.TwitchCog{
			ConfigName: "twitch.json5",
			Session:    discord.Session,
			Store:      st,
			Scheduler:  sched,
		},
		&cog.YouTubeCog{
			ConfigName: "youtube.json5",
			Session:    discord.Session,
			Store:      st,
			Scheduler:  sched,
		},
		&cog.StatusCog{
			ConfigName: "status.json5",
			Session:    discord.Session,
			Store:      st,
		},
	}

	config.Logger.Infoln("Loading cogs ...")
	for _, c := range cogList {
		err := c.Init()
		if err != nil {
			return fmt.Errorf("error initializing cog %s: %w", c.Name(), err)
		}
	}
	return nil
}
