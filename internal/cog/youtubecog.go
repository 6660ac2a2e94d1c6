package cog

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"livebot/internal/config"
	"livebot/internal/discord"
	"livebot/internal/notify"
	"livebot/internal/scheduler"
	"livebot/internal/store"
	"livebot/internal/util"
	"livebot/internal/youtube"

	"github.com/bwmarrin/discordgo"
)

const defaultYouTubeAuthor = "{name} is now live on YouTube!"

type YouTubeConfig struct {
	Enabled      bool     `json:"Enabled"`
	ChannelID    string   `json:"Channel_id" validate:"required_if=Enabled true"`
	APIKey       string   `json:"Api_key" validate:"required_if=Enabled true"`
	Watchlist    []string `json:"Watchlist" validate:"dive,required"`
	PollInterval string   `json:"Poll_interval"`
	AuthorText   string   `json:"Author_text"`
	Color        string   `json:"Color"`
}

type youtubeAPI interface {
	GetChannels(ctx context.Context, names []string) ([]youtube.Channel, error)
	GetStreams(ctx context.Context, channels []youtube.Channel) ([]youtube.Stream, error)
}

// YouTubeCog announces tracked YouTube channels when they start a live broadcast.
type YouTubeCog struct {
	ConfigName string

	Session   *discordgo.Session
	Store     *store.Store
	Scheduler *scheduler.Scheduler
	Config    *YouTubeConfig

	api      youtubeAPI
	sender   discord.Sender
	state    *discordgo.State
	tracker  *notify.Tracker[youtube.Stream]
	interval time.Duration
}

func (m *YouTubeCog) Name() string {
	return "YouTubeCog"
}

func (m *YouTubeCog) Init() error {
	var youtubeConfig YouTubeConfig
	found, err := loadCogConfig(m.ConfigName, &youtubeConfig)
	if err != nil || !found {
		return err
	}
	m.Config = &youtubeConfig

	if !youtubeConfig.Enabled {
		config.Logger.Infoln("YouTube notifications disabled in configs")
		return nil
	}
	if len(youtubeConfig.Watchlist) == 0 {
		return fmt.Errorf("youtube watchlist is empty")
	}
	if youtubeConfig.Color != "" {
		if _, ok := discord.ParseHexColor(youtubeConfig.Color); !ok {
			return fmt.Errorf("invalid youtube embed color %q", youtubeConfig.Color)
		}
	}

	m.interval, err = pollInterval(youtubeConfig.PollInterval)
	if err != nil {
		return err
	}

	client, err := youtube.NewClient(context.Background(), youtube.Options{APIKey: youtubeConfig.APIKey})
	if err != nil {
		return err
	}
	m.api = client
	m.sender = m.Session
	m.state = m.Session.State
	m.tracker = notify.NewTracker(youtube.Platform, m.Store, describeYouTubeStream, nil)

	m.Session.AddHandlerOnce(func(s *discordgo.Session, r *discordgo.Ready) {
		if err := m.Scheduler.AddInterval(m.Name(), m.interval, m.refreshNotifyCheck); err != nil {
			config.Logger.Errorw("Failed to schedule youtube poll", "error", err)
		}
	})

	config.Logger.Infoln(m.Name(), "initialized!")
	return nil
}

func (m *YouTubeCog) refreshNotifyCheck() {
	ctx, cancel := pollContext(m.interval)
	defer cancel()

	if err := m.Poll(ctx); err != nil {
		config.Logger.Errorw("YouTube poll failed", "error", err)
	}
}

// Poll announces every watched channel whose live broadcast started since the
// previous poll.
func (m *YouTubeCog) Poll(ctx context.Context) error {
	if _, err := discord.LookupChannel(m.state, m.sender, m.Config.ChannelID); err != nil {
		return fmt.Errorf("youtube notification channel: %w", err)
	}

	streams, err := m.notifications(ctx)
	for _, stream := range streams {
		embed, embedErr := youtubeEmbed(stream, m.authorText(), m.color())
		if embedErr != nil {
			config.Logger.Warnw("Could not build youtube notification", "video", stream.VideoID, "error", embedErr)
			continue
		}

		if _, sendErr := discord.SendEmbed(m.sender, m.Config.ChannelID, embed); sendErr != nil {
			config.Logger.Warnw("Could not send youtube notification", "video", stream.VideoID, "error", sendErr)
			continue
		}
		config.Logger.Infow("Announced youtube stream", "channel", stream.Channel.Name, "video", stream.VideoID)
	}

	return err
}

func (m *YouTubeCog) notifications(ctx context.Context) ([]youtube.Stream, error) {
	channels, err := m.api.GetChannels(ctx, m.Config.Watchlist)
	if err != nil {
		return nil, err
	}

	streams, err := m.api.GetStreams(ctx, channels)
	if err != nil {
		return nil, err
	}

	return m.tracker.Update(ctx, streams)
}

func (m *YouTubeCog) authorText() string {
	if m.Config.AuthorText != "" {
		return m.Config.AuthorText
	}
	return defaultYouTubeAuthor
}

// color returns the configured colour, or a random one per announcement.
func (m *YouTubeCog) color() string {
	if m.Config.Color != "" {
		return m.Config.Color
	}
	return fmt.Sprintf("0x%06x", rand.Intn(0x1000000))
}

func describeYouTubeStream(s youtube.Stream) store.LiveStream {
	return store.LiveStream{
		Key:      s.VideoID,
		StreamID: s.VideoID,
		Title:    s.Title,
		URL:      s.URL(),
	}
}

func youtubeEmbed(stream youtube.Stream, authorText, color string) (*discordgo.MessageEmbed, error) {
	var fields []discord.Field
	if !stream.StartedAt.IsZero() {
		fields = append(fields, discord.Field{Name: "Started", Value: util.FormatTimestamp(stream.StartedAt, util.TimestampRelative)})
	}

	return discord.CreateEmbed(&discord.EmbedData{
		Title:       stream.Title,
		Description: stream.Description,
		URL:         stream.URL(),
		Color:       color,
		Author: discord.Author{
			Name:    util.Fill(authorText, map[string]string{"name": stream.Channel.Name}),
			URL:     stream.Channel.URL(),
			IconURL: youtube.IconURL,
		},
		Thumbnail: stream.Channel.IconURL,
		Fields:    fields,
		Image:     stream.ThumbnailURL,
	})
}
