package discord

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Sender is the part of a discordgo session used to post announcements.
type Sender interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type MessageData struct {
	Content string     `json:"Content,omitempty"`
	Embed   *EmbedData `json:"Embed,omitempty"`
}

type EmbedData struct {
	Title       string    `json:"Title,omitempty"`
	Description string    `json:"Description,omitempty"`
	URL         string    `json:"Url,omitempty"`
	Color       string    `json:"Color,omitempty"`
	Author      Author    `json:"Author,omitempty"`
	Fields      []Field   `json:"Fields,omitempty"`
	Footer      Footer    `json:"Footer,omitempty"`
	Image       string    `json:"Image,omitempty"`
	Thumbnail   string    `json:"Thumbnail,omitempty"`
	Timestamp   time.Time `json:"Timestamp,omitempty"`
}

type Author struct {
	Name    string `json:"Name,omitempty"`
	URL     string `json:"Url,omitempty"`
	IconURL string `json:"Icon_url,omitempty"`
}

type Field struct {
	Name   string `json:"Name"`
	Value  string `json:"Value"`
	Inline bool   `json:"Inline,omitempty"`
}

type Footer struct {
	Text    string `json:"Text,omitempty"`
	IconURL string `json:"Icon_url,omitempty"`
}

// ErrChannelNotFound is returned by LookupChannel when Discord reports the
// channel as unknown.
var ErrChannelNotFound = errors.New("channel not found")

// LookupChannel returns the channel from the state cache, falling back to the
// REST API when the cache does not have it.
func LookupChannel(state *discordgo.State, sender Sender, channelID string) (*discordgo.Channel, error) {
	if state != nil {
		if ch, err := state.Channel(channelID); err == nil {
			return ch, nil
		}
	}

	ch, err := sender.Channel(channelID)
	if err != nil {
		var restErr *discordgo.RESTError
		if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
		}
		return nil, fmt.Errorf("failed to look up channel %s: %w", channelID, err)
	}
	return ch, nil
}

// SendEmbed posts embed to the channel.
func SendEmbed(sender Sender, channelID string, embed *discordgo.MessageEmbed) (*discordgo.Message, error) {
	msg, err := sender.ChannelMessageSendEmbed(channelID, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to send embed to channel %s: %w", channelID, err)
	}
	return msg, nil
}

func SendInteractionResponse(session *discordgo.Session, interaction *discordgo.Interaction, msg *discordgo.MessageSend) error {
	response := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msg.Content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}
	if msg.Embed != nil {
		response.Data.Embeds = []*discordgo.MessageEmbed{msg.Embed}
	}

	return session.InteractionRespond(interaction, response)
}

func CreateMessageSend(message MessageData) (*discordgo.MessageSend, error) {
	mess := &discordgo.MessageSend{}

	embed, err := CreateEmbed(message.Embed)
	if err != nil {
		return nil, err
	}

	mess.Embed = embed
	mess.Content = message.Content

	return mess, nil
}

func CreateEmbed(message *EmbedData) (*discordgo.MessageEmbed, error) {

	if message == nil {
		return nil, nil
	}

	embed := &discordgo.MessageEmbed{
		Title:       truncate(message.Title, maxTitle),
		Description: truncate(message.Description, maxDescription),
		URL:         message.URL,
	}

	if message.Color != "" {
		embed.Color = parseHexColor(message.Color)
	}
	if message.Author.Name != "" {
		embed.Author = &discordgo.MessageEmbedAuthor{
			Name:    truncate(message.Author.Name, maxAuthor),
			URL:     message.Author.URL,
			IconURL: message.Author.IconURL,
		}
	}
	for _, f := range message.Fields {
		if f.Name == "" || f.Value == "" {
			continue
		}
		if len(embed.Fields) == maxFields {
			return nil, fmt.Errorf("embed has more than %d fields", maxFields)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   truncate(f.Name, maxFieldName),
			Value:  truncate(f.Value, MaxFieldValue),
			Inline: f.Inline,
		})
	}
	if message.Footer.Text != "" || message.Footer.IconURL != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text:    message.Footer.Text,
			IconURL: message.Footer.IconURL,
		}
	}
	if message.Thumbnail != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: message.Thumbnail}
	}
	if message.Image != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: message.Image}
	}
	if !message.Timestamp.IsZero() {
		embed.Timestamp = message.Timestamp.UTC().Format(time.RFC3339)
	}

	return embed, nil
}

// Discord embed limits.
const (
	maxTitle       = 256
	maxDescription = 4096
	maxAuthor      = 256
	maxFields      = 25
	maxFieldName   = 256
	MaxFieldValue  = 1024
)

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}

func parseHexColor(color string) int {
	if parsedColor, ok := ParseHexColor(color); ok {
		return parsedColor
	}
	return 0xFFFFFF // Default to white if parsing fails
}

// ParseHexColor parses a 0x-prefixed hex colour.
func ParseHexColor(color string) (int, bool) {
	var parsedColor int
	if _, err := fmt.Sscanf(color, "0x%x", &parsedColor); err != nil {
		return 0, false
	}
	return parsedColor, true
}
