package quota

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/j-veylop/antigravity-switcher/internal/logger"
	"github.com/j-veylop/antigravity-switcher/internal/models"
)

// refreshBuffer is how long before expiry a token is considered stale.
const refreshBuffer = 5 * time.Minute

// Refresher mints a new token from a refresh token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (models.TokenData, error)
}

// TokenStore persists refreshed tokens.
type TokenStore interface {
	UpdateToken(id string, token models.TokenData) error
}

// TokenCache is a TokenProvider that refreshes expired tokens and writes
// them back to the store.
type TokenCache struct {
	refresher Refresher
	store     TokenStore
	tokens    map[string]models.TokenData
	mu        sync.Mutex
}

var _ TokenProvider = (*TokenCache)(nil)

// NewTokenCache creates a TokenCache. store may be nil.
func NewTokenCache(refresher Refresher, store TokenStore) *TokenCache {
	return &TokenCache{
		refresher: refresher,
		store:     store,
		tokens:    make(map[string]models.TokenData),
	}
}

// AccessToken returns the freshest known access token for account,
// refreshing it when it expires within five minutes.
func (c *TokenCache) AccessToken(ctx context.Context, account *models.Account) (string, error) {
	c.mu.Lock()
	tok, ok := c.tokens[account.ID]
	c.mu.Unlock()
	if !ok || account.Token.ExpiryTimestamp > tok.ExpiryTimestamp {
		tok = account.Token
	}

	if tok.ValidFor(refreshBuffer) {
		return tok.AccessToken, nil
	}
	if tok.RefreshToken == "" {
		return "", permanent(0, fmt.Errorf("no refresh token for account %s", account.ID))
	}

	fresh, err := c.refresher.Refresh(ctx, tok.RefreshToken)
	if err != nil {
		return "", classifyRefreshError(ctx, err)
	}
	if fresh.Email == "" {
		fresh.Email = account.Email
	}

	c.mu.Lock()
	c.tokens[account.ID] = fresh
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.UpdateToken(account.ID, fresh); err != nil {
			logger.Warn("failed to persist refreshed token", "account", account.ID, "error", err)
		}
	}
	logger.Debug("access token refreshed", "account", account.ID)
	return fresh.AccessToken, nil
}

// Invalidate forgets the cached token of an account.
func (c *TokenCache) Invalidate(id string) {
	c.mu.Lock()
	delete(c.tokens, id)
	c.mu.Unlock()
}

// classifyRefreshError treats a token endpoint 4xx as permanent (revoked or
// invalid grant) and anything else as transient.
func classifyRefreshError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return permanent(0, err)
	}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		status := re.Response.StatusCode
		if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
			return permanent(status, err)
		}
		return transient(status, err)
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return err
	}
	return transient(0, err)
}
