package twitch

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	Platform = "twitch"

	// IconURL is shown next to the announcement author line.
	IconURL = "https://media.discordapp.net/attachments/1062074624935993427/1101142491450835036/5968819.png"
)

type User struct {
	ID              string
	Login           string
	DisplayName     string
	Type            string
	BroadcasterType string
	Description     string
	ProfileImageURL string
	OfflineImageURL string
	ViewCount       int
}

func (u User) URL() string {
	return "https://twitch.tv/" + u.Login
}

type Stream struct {
	ID           string
	User         User
	GameID       string
	GameName     string
	Type         string
	Title        string
	Tags         []string
	ViewerCount  int
	StartedAt    time.Time
	Language     string
	ThumbnailURL string
}

// Thumbnail fills the {width} and {height} placeholders of the stream's
// thumbnail template.
func (s Stream) Thumbnail(width, height int) string {
	return strings.NewReplacer(
		"{width}", strconv.Itoa(width),
		"{height}", strconv.Itoa(height),
	).Replace(s.ThumbnailURL)
}

// RequestError is returned when the Twitch API answers with a non-success status.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("twitch request failed with status %d: %s", e.Status, e.Message)
}
