package discord

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEmbed_Nil(t *testing.T) {
	embed, err := CreateEmbed(nil)
	require.NoError(t, err)
	assert.Nil(t, embed)
}

func TestCreateEmbed_Full(t *testing.T) {
	started := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	embed, err := CreateEmbed(&EmbedData{
		Title:     "Speedrun",
		URL:       "https://twitch.tv/alice",
		Color:     "0x6441a5",
		Author:    Author{Name: "alice is now Live on Twitch!", URL: "https://twitch.tv/alice", IconURL: "https://icon"},
		Fields:    []Field{{Name: "Game", Value: "Celeste", Inline: true}, {Name: "Tags", Value: ""}},
		Thumbnail: "https://thumb",
		Image:     "https://image",
		Timestamp: started,
	})
	require.NoError(t, err)

	assert.Equal(t, "Speedrun", embed.Title)
	assert.Equal(t, 0x6441a5, embed.Color)
	require.NotNil(t, embed.Author)
	assert.Equal(t, "https://icon", embed.Author.IconURL)
	require.Len(t, embed.Fields, 1, "empty fields are dropped")
	assert.True(t, embed.Fields[0].Inline)
	assert.Equal(t, "https://thumb", embed.Thumbnail.URL)
	assert.Equal(t, "https://image", embed.Image.URL)
	assert.Equal(t, "2026-10-19T10:00:00Z", embed.Timestamp)
	assert.Nil(t, embed.Footer)
}

func TestCreateEmbed_Truncates(t *testing.T) {
	embed, err := CreateEmbed(&EmbedData{Title: strings.Repeat("a", 300)})
	require.NoError(t, err)
	assert.Len(t, []rune(embed.Title), maxTitle)
	assert.True(t, strings.HasSuffix(embed.Title, "…"))
}

func TestCreateEmbed_TooManyFields(t *testing.T) {
	fields := make([]Field, maxFields+1)
	for i := range fields {
		fields[i] = Field{Name: "n", Value: "v"}
	}
	_, err := CreateEmbed(&EmbedData{Fields: fields})
	require.Error(t, err)
}

func TestCreateEmbed_EmptyFieldsNotCounted(t *testing.T) {
	fields := []Field{{Name: "Game", Value: "Celeste"}}
	for n := 0; n < maxFields; n++ {
		fields = append(fields, Field{Name: "Tags"})
	}

	embed, err := CreateEmbed(&EmbedData{Fields: fields})
	require.NoError(t, err)
	assert.Len(t, embed.Fields, 1)
}

func TestParseHexColor(t *testing.T) {
	assert.Equal(t, 0xff0000, parseHexColor("0xff0000"))
	assert.Equal(t, 0xFFFFFF, parseHexColor("red"))

	_, ok := ParseHexColor("#00ff00")
	assert.False(t, ok)
}

func TestCreateMessageSend(t *testing.T) {
	ms, err := CreateMessageSend(MessageData{Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", ms.Content)
	assert.Nil(t, ms.Embed)
}

type recordingSender struct {
	sent         []*discordgo.MessageEmbed
	err          error
	channelErr   error
	channelCalls int
}

func (r *recordingSender) Channel(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	r.channelCalls++
	if r.channelErr != nil {
		return nil, r.channelErr
	}
	return &discordgo.Channel{ID: channelID}, nil
}

func (r *recordingSender) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.sent = append(r.sent, embed)
	return &discordgo.Message{ChannelID: channelID}, nil
}

func TestSendEmbed(t *testing.T) {
	sender := &recordingSender{}
	msg, err := SendEmbed(sender, "chan", &discordgo.MessageEmbed{Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, "chan", msg.ChannelID)
	assert.Len(t, sender.sent, 1)

	sender.err = errors.New("missing access")
	_, err = SendEmbed(sender, "chan", &discordgo.MessageEmbed{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chan")
}

func TestLookupChannel_FromState(t *testing.T) {
	state := discordgo.NewState()
	require.NoError(t, state.GuildAdd(&discordgo.Guild{ID: "guild"}))
	require.NoError(t, state.ChannelAdd(&discordgo.Channel{ID: "chan", GuildID: "guild"}))
	sender := &recordingSender{}

	ch, err := LookupChannel(state, sender, "chan")
	require.NoError(t, err)
	assert.Equal(t, "chan", ch.ID)
	assert.Zero(t, sender.channelCalls)
}

func TestLookupChannel_FallsBackToREST(t *testing.T) {
	sender := &recordingSender{}

	ch, err := LookupChannel(discordgo.NewState(), sender, "chan")
	require.NoError(t, err)
	assert.Equal(t, "chan", ch.ID)
	assert.Equal(t, 1, sender.channelCalls)
}

func TestLookupChannel_Errors(t *testing.T) {
	sender := &recordingSender{channelErr: &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound, Status: "404 Not Found"}}}
	_, err := LookupChannel(nil, sender, "chan")
	require.ErrorIs(t, err, ErrChannelNotFound)

	sender.channelErr = &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusBadGateway, Status: "502 Bad Gateway"}}
	_, err = LookupChannel(nil, sender, "chan")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrChannelNotFound)
	assert.Contains(t, err.Error(), "failed to look up channel chan")
}
