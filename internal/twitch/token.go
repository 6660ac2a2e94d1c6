package twitch

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/nicklaw5/helix/v2"

	"livebot/internal/config"
	"livebot/internal/store"
)

// Tokens are treated as expired slightly before Twitch says they are.
const expirySlack = 10 * time.Second

type TokenStore interface {
	GetToken(ctx context.Context, platform string) (store.Token, bool, error)
	SaveToken(ctx context.Context, platform string, token store.Token) error
	DeleteToken(ctx context.Context, platform string) error
}

type tokenRequester interface {
	RequestAppAccessToken(scopes []string) (*helix.AppAccessTokenResponse, error)
}

// TokenManager hands out a client-credentials app access token, requesting a
// new one once the cached token has expired.
type TokenManager struct {
	requester tokenRequester
	store     TokenStore
	clock     clockwork.Clock

	mu     sync.Mutex
	cached store.Token
	loaded bool
}

func NewTokenManager(requester tokenRequester, tokens TokenStore, clock clockwork.Clock) *TokenManager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TokenManager{
		requester: requester,
		store:     tokens,
		clock:     clock,
	}
}

func (tm *TokenManager) Token(ctx context.Context) (string, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if !tm.loaded {
		tok, ok, err := tm.store.GetToken(ctx, Platform)
		if err != nil {
			return "", err
		}
		if ok {
			tm.cached = tok
		}
		tm.loaded = true
	}

	if tm.cached.AccessToken != "" && tm.clock.Now().Before(tm.cached.ExpiresAt) {
		return tm.cached.AccessToken, nil
	}

	config.Logger.Debugln("Refreshing twitch app access token")
	if err := ctx.Err(); err != nil {
		return "", err
	}

	resp, err := tm.requester.RequestAppAccessToken(nil)
	if err != nil {
		return "", fmt.Errorf("failed to request app access token: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &RequestError{Status: resp.StatusCode, Message: resp.ErrorMessage}
	}

	tok := store.Token{
		AccessToken: resp.Data.AccessToken,
		ExpiresAt:   tm.clock.Now().Add(time.Duration(resp.Data.ExpiresIn)*time.Second - expirySlack),
	}
	if err := tm.store.SaveToken(ctx, Platform, tok); err != nil {
		return "", err
	}
	tm.cached = tok

	return tok.AccessToken, nil
}

// Invalidate drops the cached token so the next call to Token requests a new one.
func (tm *TokenManager) Invalidate(ctx context.Context) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.cached = store.Token{}
	tm.loaded = true
	return tm.store.DeleteToken(ctx, Platform)
}
