package twitch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/nicklaw5/helix/v2"
)

// Helix accepts at most 100 logins or user ids per request.
const maxBatch = 100

type Options struct {
	ClientID     string
	ClientSecret string

	// HTTPClient overrides the client used for every request, including the
	// token grant.
	HTTPClient *http.Client
	Clock      clockwork.Clock
}

// Client wraps a helix client authorized with an app access token.
type Client struct {
	mu     sync.Mutex
	api    *helix.Client
	tokens *TokenManager
}

func NewClient(opts Options, tokens TokenStore) (*Client, error) {
	helixOpts := &helix.Options{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
	}
	if opts.HTTPClient != nil {
		helixOpts.HTTPClient = opts.HTTPClient
	}

	api, err := helix.NewClient(helixOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create helix client: %w", err)
	}

	return &Client{
		api:    api,
		tokens: NewTokenManager(api, tokens, opts.Clock),
	}, nil
}

// GetUsers looks up the given logins. Only users whose login was requested
// are returned.
func (c *Client) GetUsers(ctx context.Context, logins []string) ([]User, error) {
	wanted := make(map[string]struct{}, len(logins))
	for _, login := range logins {
		wanted[strings.ToLower(login)] = struct{}{}
	}

	var users []User
	for _, batch := range chunk(logins, maxBatch) {
		var resp *helix.UsersResponse
		err := c.do(ctx, func() (*helix.ResponseCommon, error) {
			var err error
			resp, err = c.api.GetUsers(&helix.UsersParams{Logins: batch})
			if err != nil {
				return nil, err
			}
			return &resp.ResponseCommon, nil
		})
		if err != nil {
			return nil, fmt.Errorf("could not get user ids: %w", err)
		}

		for _, u := range resp.Data.Users {
			if _, ok := wanted[strings.ToLower(u.Login)]; !ok {
				continue
			}
			users = append(users, User{
				ID:              u.ID,
				Login:           u.Login,
				DisplayName:     u.DisplayName,
				Type:            u.Type,
				BroadcasterType: u.BroadcasterType,
				Description:     u.Description,
				ProfileImageURL: u.ProfileImageURL,
				OfflineImageURL: u.OfflineImageURL,
				ViewCount:       u.ViewCount,
			})
		}
	}

	return users, nil
}

// GetStreams returns the live streams of users. Users without a live stream
// are absent from the result.
func (c *Client) GetStreams(ctx context.Context, users []User) ([]Stream, error) {
	byID := make(map[string]User, len(users))
	ids := make([]string, 0, len(users))
	for _, u := range users {
		byID[u.ID] = u
		ids = append(ids, u.ID)
	}

	var streams []Stream
	// An empty user_id filter would list every live stream on Twitch.
	for _, batch := range chunk(ids, maxBatch) {
		var resp *helix.StreamsResponse
		err := c.do(ctx, func() (*helix.ResponseCommon, error) {
			var err error
			resp, err = c.api.GetStreams(&helix.StreamsParams{UserIDs: batch, First: maxBatch})
			if err != nil {
				return nil, err
			}
			return &resp.ResponseCommon, nil
		})
		if err != nil {
			return nil, fmt.Errorf("could not get streams: %w", err)
		}

		for _, s := range resp.Data.Streams {
			user, ok := byID[s.UserID]
			if !ok {
				continue
			}
			streams = append(streams, Stream{
				ID:           s.ID,
				User:         user,
				GameID:       s.GameID,
				GameName:     s.GameName,
				Type:         s.Type,
				Title:        s.Title,
				Tags:         s.Tags,
				ViewerCount:  s.ViewerCount,
				StartedAt:    s.StartedAt.UTC(),
				Language:     s.Language,
				ThumbnailURL: s.ThumbnailURL,
			})
		}
	}

	return streams, nil
}

// do authorizes the shared helix client and runs call. A 401 drops the
// cached token so the next poll requests a fresh one.
func (c *Client) do(ctx context.Context, call func() (*helix.ResponseCommon, error)) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	c.api.SetAppAccessToken(token)
	common, err := call()
	c.mu.Unlock()
	if err != nil {
		return err
	}

	if common.StatusCode == http.StatusUnauthorized {
		if err := c.tokens.Invalidate(ctx); err != nil {
			return err
		}
	}
	if common.StatusCode != http.StatusOK {
		msg := common.ErrorMessage
		if msg == "" {
			msg = common.Error
		}
		return &RequestError{Status: common.StatusCode, Message: msg}
	}
	return nil
}

func chunk(items []string, size int) [][]string {
	var batches [][]string
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[i:end])
	}
	return batches
}
