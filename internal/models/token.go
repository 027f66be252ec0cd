// Package models defines data structures and domain types.
package models

import "time"

// TokenTypeBearer is the only token type issued by the authorization server.
const TokenTypeBearer = "Bearer"

// TokenData holds an OAuth access/refresh token pair for one identity.
// A TokenData is built once per successful exchange or refresh and is never
// mutated afterwards; a refresh produces a new value.
type TokenData struct {
	AccessToken     string `json:"access_token"`
	RefreshToken    string `json:"refresh_token"`
	TokenType       string `json:"token_type"`
	Email           string `json:"email,omitempty"`
	ExpiresIn       int64  `json:"expires_in"`
	ExpiryTimestamp int64  `json:"expiry_timestamp"`
}

// NewTokenData creates a TokenData whose expiry is now + expiresIn seconds.
func NewTokenData(accessToken, refreshToken string, expiresIn int64, email string) TokenData {
	return NewTokenDataAt(time.Now(), accessToken, refreshToken, expiresIn, email)
}

// NewTokenDataAt is NewTokenData with an explicit creation time.
func NewTokenDataAt(created time.Time, accessToken, refreshToken string, expiresIn int64, email string) TokenData {
	return TokenData{
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		TokenType:       TokenTypeBearer,
		Email:           email,
		ExpiresIn:       expiresIn,
		ExpiryTimestamp: created.Unix() + expiresIn,
	}
}

// ExpiresAt returns the absolute expiry time.
func (t TokenData) ExpiresAt() time.Time {
	return time.Unix(t.ExpiryTimestamp, 0)
}

// IsExpired reports whether the access token has reached its expiry.
func (t TokenData) IsExpired() bool {
	return t.IsExpiredAt(time.Now())
}

// IsExpiredAt reports whether the access token is expired at the given time.
func (t TokenData) IsExpiredAt(now time.Time) bool {
	return now.Unix() >= t.ExpiryTimestamp
}

// ValidFor reports whether the token is still usable for at least d.
func (t TokenData) ValidFor(d time.Duration) bool {
	if t.AccessToken == "" {
		return false
	}
	return time.Now().Add(d).Before(t.ExpiresAt())
}
