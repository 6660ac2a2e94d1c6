package youtube

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	"livebot/internal/config"
)

const defaultConcurrency = 4

var channelIDPattern = regexp.MustCompile(`^UC[0-9A-Za-z_-]{22}$`)

type Options struct {
	APIKey string

	// Endpoint overrides the API base URL. It must end with a slash.
	Endpoint string

	// Concurrency bounds the number of requests in flight per lookup.
	Concurrency int
}

// Client looks up channels and their live broadcasts through the YouTube
// Data API. Resolved channels are cached for the life of the client.
type Client struct {
	svc         *ytapi.Service
	concurrency int

	mu       sync.Mutex
	channels map[string]Channel
}

func NewClient(ctx context.Context, opts Options) (*Client, error) {
	clientOpts := []option.ClientOption{option.WithAPIKey(opts.APIKey)}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}

	svc, err := ytapi.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	return &Client{
		svc:         svc,
		concurrency: concurrency,
		channels:    make(map[string]Channel),
	}, nil
}

// GetChannels resolves watchlist entries to channels, keeping the order of
// names. An entry is a legacy username, an @handle or a UC... channel id.
// Entries that match no channel are skipped.
func (c *Client) GetChannels(ctx context.Context, names []string) ([]Channel, error) {
	found := make([]*Channel, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			ch, err := c.getChannel(gctx, name)
			if err != nil {
				return err
			}
			found[i] = ch
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	channels := make([]Channel, 0, len(names))
	for _, ch := range found {
		if ch != nil {
			channels = append(channels, *ch)
		}
	}
	return channels, nil
}

func (c *Client) getChannel(ctx context.Context, name string) (*Channel, error) {
	c.mu.Lock()
	cached, ok := c.channels[name]
	c.mu.Unlock()
	if ok {
		return &cached, nil
	}

	call := c.svc.Channels.List([]string{"id", "snippet"}).Context(ctx)
	switch {
	case strings.HasPrefix(name, "@"):
		call = call.ForHandle(name)
	case channelIDPattern.MatchString(name):
		call = call.Id(name)
	default:
		call = call.ForUsername(name)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, requestError(err, fmt.Sprintf("Could not get channel %q.", name))
	}

	if len(resp.Items) == 0 {
		config.Logger.Warnw("No youtube channel found", "name", name)
		return nil, nil
	}

	item := resp.Items[0]
	ch := Channel{ID: item.Id}
	if item.Snippet != nil {
		ch.Name = item.Snippet.Title
		ch.IconURL = thumbnailURL(item.Snippet.Thumbnails, false)
	}

	c.mu.Lock()
	c.channels[name] = ch
	c.mu.Unlock()

	return &ch, nil
}

// GetStreams returns the current live broadcast of each channel. Channels
// that are not live are absent from the result.
func (c *Client) GetStreams(ctx context.Context, channels []Channel) ([]Stream, error) {
	found := make([]*Stream, len(channels))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, ch := range channels {
		i, ch := i, ch
		g.Go(func() error {
			s, err := c.getStream(gctx, ch)
			if err != nil {
				return err
			}
			found[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	streams := make([]Stream, 0, len(channels))
	for _, s := range found {
		if s != nil {
			streams = append(streams, *s)
		}
	}
	return streams, nil
}

func (c *Client) getStream(ctx context.Context, ch Channel) (*Stream, error) {
	resp, err := c.svc.Search.List([]string{"snippet"}).
		ChannelId(ch.ID).
		Type("video").
		EventType("live").
		MaxResults(1).
		Order("date").
		Context(ctx).
		Do()
	if err != nil {
		return nil, requestError(err, fmt.Sprintf("Could not get stream for channel %q.", ch.ID))
	}

	if len(resp.Items) == 0 {
		return nil, nil
	}

	item := resp.Items[0]
	if item.Id == nil || item.Id.VideoId == "" {
		return nil, nil
	}

	s := &Stream{Channel: ch, VideoID: item.Id.VideoId}
	if item.Snippet != nil {
		s.Title = item.Snippet.Title
		s.Description = item.Snippet.Description
		s.ThumbnailURL = thumbnailURL(item.Snippet.Thumbnails, true)

		if startedAt, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
			s.StartedAt = startedAt.UTC()
		}
	}
	return s, nil
}

// thumbnailURL picks the smallest thumbnail, or the largest when large is set.
func thumbnailURL(t *ytapi.ThumbnailDetails, large bool) string {
	if t == nil {
		return ""
	}

	sizes := []*ytapi.Thumbnail{t.Default, t.Medium, t.High, t.Standard, t.Maxres}
	if large {
		for i := len(sizes) - 1; i >= 0; i-- {
			if sizes[i] != nil && sizes[i].Url != "" {
				return sizes[i].Url
			}
		}
		return ""
	}

	for _, th := range sizes {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}

func requestError(err error, reason string) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &RequestError{Status: apiErr.Code, Reason: reason}
	}
	return fmt.Errorf("%s: %w", reason, err)
}
