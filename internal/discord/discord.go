package discord

import (
	"fmt"

	"livebot/internal/config"

	"github.com/bwmarrin/discordgo"
)

var Session *discordgo.Session

func Init() error {
	var err error
	Session, err = discordgo.New("Bot " + config.Configuration.DiscordToken)
	if err != nil {
		return fmt.Errorf("failed while creating discordgo session: %w", err)
	}
	Session.Identify.Intents = discordgo.IntentsGuilds

	Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		config.Logger.Infow("Connected to discord", "user", r.User.Username, "guilds", len(r.Guilds))
		if config.Configuration.BotActivity != "" {
			if err := s.UpdateWatchStatus(0, config.Configuration.BotActivity); err != nil {
				config.Logger.Warnw("Failed to set bot activity", "error", err)
			}
		}
	})

	return nil
}

// InitConnection opens the gateway websocket. Ready handlers fire once the
// handshake completes.
func InitConnection() error {
	if Session == nil {
		return fmt.Errorf("discord session not initialized")
	}
	if err := Session.Open(); err != nil {
		return fmt.Errorf("failed to open discord connection: %w", err)
	}
	return nil
}
