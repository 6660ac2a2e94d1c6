package youtube

import (
	"fmt"
	"time"
)

const (
	Platform = "youtube"

	IconURL = "https://media.discordapp.net/attachments/1062074624935993427/1101142491199180831/youtube-icon.png?width=519&height=519"
)

type Channel struct {
	ID      string
	Name    string
	IconURL string
}

func (c Channel) URL() string {
	return "https://www.youtube.com/channel/" + c.ID
}

type Stream struct {
	Channel      Channel
	VideoID      string
	StartedAt    time.Time
	Title        string
	Description  string
	ThumbnailURL string
}

func (s Stream) URL() string {
	return VideoURL(s.VideoID)
}

func VideoURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// RequestError is returned when the YouTube Data API answers with a
// non-success status.
type RequestError struct {
	Status int
	Reason string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request returned %d thrown at: %s", e.Status, e.Reason)
}
