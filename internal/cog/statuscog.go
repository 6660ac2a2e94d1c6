package cog

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"livebot/internal/config"
	"livebot/internal/discord"
	"livebot/internal/store"
	"livebot/internal/twitch"
	"livebot/internal/util"
	"livebot/internal/youtube"

	"github.com/bwmarrin/discordgo"
)

type StatusConfig struct {
	Enabled         bool              `json:"Enabled"`
	Command         string            `json:"Command" validate:"omitempty,lowercase,max=32"`
	Description     string            `json:"Description" validate:"max=100"`
	AllowedChannels map[string]string `json:"Allowed_channels"` // Allowed channels (name and ID)
}

type liveLister interface {
	ListLive(ctx context.Context, platform string) ([]store.LiveStream, error)
}

// StatusCog answers a slash command with the streams currently tracked as live.
type StatusCog struct {
	ConfigName string

	Session *discordgo.Session
	Store   *store.Store
	Config  *StatusConfig

	lister liveLister
}

var statusPlatforms = []struct {
	id, title string
}{
	{twitch.Platform, "Twitch"},
	{youtube.Platform, "YouTube"},
}

func (m *StatusCog) Name() string {
	return "StatusCog"
}

func (m *StatusCog) Init() error {
	var statusConfig StatusConfig
	found, err := loadCogConfig(m.ConfigName, &statusConfig)
	if err != nil || !found {
		return err
	}
	if statusConfig.Command == "" {
		statusConfig.Command = "live"
	}
	if statusConfig.Description == "" {
		statusConfig.Description = "Show who is live right now"
	}
	m.Config = &statusConfig
	m.lister = m.Store

	if !statusConfig.Enabled {
		config.Logger.Infoln("Status command disabled in configs")
		return nil
	}

	m.Session.AddHandlerOnce(func(s *discordgo.Session, r *discordgo.Ready) {
		config.Logger.Infoln("Bot is ready, registering commands...")
		if err := m.registerCommands(); err != nil {
			config.Logger.Errorf("Failed to register commands: %v", err)
		}
	})

	m.Session.AddHandler(m.HandleInteraction)

	config.Logger.Infoln(m.Name(), "initialized!")
	return nil
}

func (m *StatusCog) registerCommands() error {
	appCommand := &discordgo.ApplicationCommand{
		Name:        m.Config.Command,
		Description: m.Config.Description,
	}

	_, err := m.Session.ApplicationCommandCreate(m.Session.State.User.ID, config.Configuration.GuildID, appCommand)
	if err != nil {
		return fmt.Errorf("failed to register command '%s': %w", m.Config.Command, err)
	}

	config.Logger.Infoln("Succesfully registered command: ", m.Config.Command)
	return nil
}

func (m *StatusCog) HandleInteraction(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if interaction.ApplicationCommandData().Name != m.Config.Command {
		return
	}

	if !isChannelAllowed(interaction.ChannelID, m.Config.AllowedChannels) {
		_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: "This command is not allowed in this channel.",
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	data, err := m.liveSummary(ctx)
	if err != nil {
		config.Logger.Errorw("Failed to list live streams", "error", err)
		data = discord.MessageData{Content: "Could not load live streams, try again later."}
	}

	ms, err := discord.CreateMessageSend(data)
	if err != nil {
		config.Logger.Errorln(err)
		return
	}

	if err := discord.SendInteractionResponse(session, interaction.Interaction, ms); err != nil {
		config.Logger.Errorln(err)
	}
}

// liveSummary builds one embed listing the tracked live streams per platform.
func (m *StatusCog) liveSummary(ctx context.Context) (discord.MessageData, error) {
	var fields []discord.Field
	total := 0

	for _, p := range statusPlatforms {
		live, err := m.lister.ListLive(ctx, p.id)
		if err != nil {
			return discord.MessageData{}, err
		}
		if len(live) == 0 {
			continue
		}
		total += len(live)

		var lines []string
		for _, s := range live {
			title := s.Title
			if title == "" {
				title = s.Key
			}
			lines = append(lines, fmt.Sprintf("[%s](%s) · %s", title, s.URL, util.FormatTimestamp(s.AnnouncedAt, util.TimestampRelative)))
		}
		fields = append(fields, discord.Field{Name: p.title, Value: joinLines(lines, discord.MaxFieldValue)})
	}

	embed := &discord.EmbedData{Title: "Live now", Fields: fields}
	if total == 0 {
		embed.Description = "Nobody is live right now."
	}

	return discord.MessageData{Embed: embed}, nil
}

// joinLines joins whole lines up to limit runes. Lines that do not fit are
// replaced by a count of how many were left out.
func joinLines(lines []string, limit int) string {
	joined := strings.Join(lines, "\n")
	if utf8.RuneCountInString(joined) <= limit {
		return joined
	}

	reserve := utf8.RuneCountInString(moreLine(len(lines))) + 1
	used := 0
	kept := 0
	for _, line := range lines {
		n := utf8.RuneCountInString(line)
		if kept > 0 {
			n++
		}
		if used+n+reserve > limit {
			break
		}
		used += n
		kept++
	}

	return strings.Join(append(lines[:kept:kept], moreLine(len(lines)-kept)), "\n")
}

func moreLine(n int) string {
	return fmt.Sprintf("…and %d more", n)
}

func isChannelAllowed(channelID string, allowedChannels map[string]string) bool {
	if len(allowedChannels) == 0 {
		return true
	}

	for _, allowedID := range allowedChannels {
		if allowedID == channelID {
			return true
		}
	}
	return false
}
