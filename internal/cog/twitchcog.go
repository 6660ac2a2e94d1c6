package cog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"livebot/internal/config"
	"livebot/internal/discord"
	"livebot/internal/notify"
	"livebot/internal/scheduler"
	"livebot/internal/store"
	"livebot/internal/twitch"
	"livebot/internal/util"

	"github.com/bwmarrin/discordgo"
)

const twitchColor = "0x6441a5"

type TwitchConfig struct {
	Enabled      bool     `json:"Enabled"`
	ChannelID    string   `json:"Channel_id" validate:"required_if=Enabled true"`
	ClientID     string   `json:"Client_id" validate:"required_if=Enabled true"`
	ClientSecret string   `json:"Client_secret" validate:"required_if=Enabled true"`
	Watchlist    []string `json:"Watchlist" validate:"dive,required"`
	PollInterval string   `json:"Poll_interval"`
	Color        string   `json:"Color"`
}

type twitchAPI interface {
	GetUsers(ctx context.Context, logins []string) ([]twitch.User, error)
	GetStreams(ctx context.Context, users []twitch.User) ([]twitch.Stream, error)
}

// TwitchCog announces tracked Twitch users when they go live.
type TwitchCog struct {
	ConfigName string

	Session   *discordgo.Session
	Store     *store.Store
	Scheduler *scheduler.Scheduler
	Config    *TwitchConfig

	api      twitchAPI
	sender   discord.Sender
	state    *discordgo.State
	tracker  *notify.Tracker[twitch.Stream]
	interval time.Duration
}

func (m *TwitchCog) Name() string {
	return "TwitchCog"
}

func (m *TwitchCog) Init() error {
	var twitchConfig TwitchConfig
	found, err := loadCogConfig(m.ConfigName, &twitchConfig)
	if err != nil || !found {
		return err
	}
	m.Config = &twitchConfig

	if !twitchConfig.Enabled {
		config.Logger.Infoln("Twitch notifications disabled in configs")
		return nil
	}
	if len(twitchConfig.Watchlist) == 0 {
		return fmt.Errorf("twitch watchlist is empty")
	}
	if twitchConfig.Color != "" {
		if _, ok := discord.ParseHexColor(twitchConfig.Color); !ok {
			return fmt.Errorf("invalid twitch embed color %q", twitchConfig.Color)
		}
	}

	m.interval, err = pollInterval(twitchConfig.PollInterval)
	if err != nil {
		return err
	}

	client, err := twitch.NewClient(twitch.Options{
		ClientID:     twitchConfig.ClientID,
		ClientSecret: twitchConfig.ClientSecret,
	}, m.Store)
	if err != nil {
		return err
	}
	m.api = client
	m.sender = m.Session
	m.state = m.Session.State
	m.tracker = notify.NewTracker(twitch.Platform, m.Store, describeTwitchStream, nil)

	m.Session.AddHandlerOnce(func(s *discordgo.Session, r *discordgo.Ready) {
		if err := m.Scheduler.AddInterval(m.Name(), m.interval, m.refreshNotifyCheck); err != nil {
			config.Logger.Errorw("Failed to schedule twitch poll", "error", err)
		}
	})

	config.Logger.Infoln(m.Name(), "initialized!")
	return nil
}

func (m *TwitchCog) refreshNotifyCheck() {
	ctx, cancel := pollContext(m.interval)
	defer cancel()

	if err := m.Poll(ctx); err != nil {
		config.Logger.Errorw("Twitch poll failed", "error", err)
	}
}

// Poll announces every watched user that went live since the previous poll.
func (m *TwitchCog) Poll(ctx context.Context) error {
	if _, err := discord.LookupChannel(m.state, m.sender, m.Config.ChannelID); err != nil {
		return fmt.Errorf("twitch notification channel: %w", err)
	}

	streams, err := m.notifications(ctx)
	for _, stream := range streams {
		embed, embedErr := twitchEmbed(stream, m.color())
		if embedErr != nil {
			config.Logger.Warnw("Could not build twitch notification", "user", stream.User.Login, "error", embedErr)
			continue
		}

		if _, sendErr := discord.SendEmbed(m.sender, m.Config.ChannelID, embed); sendErr != nil {
			config.Logger.Warnw("Could not send twitch notification", "user", stream.User.Login, "error", sendErr)
			continue
		}
		config.Logger.Infow("Announced twitch stream", "user", stream.User.Login, "stream", stream.ID)
	}

	return err
}

// notifications returns the newly live streams in watchlist order.
func (m *TwitchCog) notifications(ctx context.Context) ([]twitch.Stream, error) {
	users, err := m.api.GetUsers(ctx, m.Config.Watchlist)
	if err != nil {
		return nil, err
	}

	streams, err := m.api.GetStreams(ctx, users)
	if err != nil {
		return nil, err
	}

	byLogin := make(map[string]twitch.Stream, len(streams))
	for _, s := range streams {
		byLogin[strings.ToLower(s.User.Login)] = s
	}

	live := make([]twitch.Stream, 0, len(streams))
	for _, login := range m.Config.Watchlist {
		if s, ok := byLogin[strings.ToLower(login)]; ok {
			live = append(live, s)
		}
	}

	return m.tracker.Update(ctx, live)
}

func (m *TwitchCog) color() string {
	if m.Config.Color != "" {
		return m.Config.Color
	}
	return twitchColor
}

func describeTwitchStream(s twitch.Stream) store.LiveStream {
	return store.LiveStream{
		Key:      strings.ToLower(s.User.Login),
		StreamID: s.ID,
		Title:    s.Title,
		URL:      s.User.URL(),
	}
}

func twitchEmbed(stream twitch.Stream, color string) (*discordgo.MessageEmbed, error) {
	game := stream.GameName
	if game == "" {
		game = "Unknown"
	}

	fields := []discord.Field{
		{Name: "Started", Value: util.FormatTimestamp(stream.StartedAt, util.TimestampRelative)},
		{Name: "Game", Value: game, Inline: true},
		{Name: "Viewers", Value: util.Thousands(stream.ViewerCount), Inline: true},
	}
	if len(stream.Tags) > 0 {
		fields = append(fields, discord.Field{Name: "Tags", Value: strings.Join(stream.Tags, ", ")})
	}

	return discord.CreateEmbed(&discord.EmbedData{
		Title: stream.Title,
		URL:   stream.User.URL(),
		Color: color,
		Author: discord.Author{
			Name:    fmt.Sprintf("%s is now Live on Twitch!", stream.User.DisplayName),
			URL:     stream.User.URL(),
			IconURL: twitch.IconURL,
		},
		Thumbnail: stream.User.ProfileImageURL,
		Fields:    fields,
		Image:     stream.Thumbnail(1920, 1080),
	})
}
