package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/j-veylop/antigravity-switcher/internal/logger"
	"github.com/j-veylop/antigravity-switcher/internal/models"
)

const (
	// CallbackPath is the redirect path registered for the client.
	CallbackPath = "/oauth-callback"

	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	httpTimeout        = 30 * time.Second
)

// Scopes requested for an account. Cloud Code needs cloud-platform; the
// rest identify the user.
var Scopes = []string{
	"https://www.googleapis.com/auth/cloud-platform",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/cclog",
	"https://www.googleapis.com/auth/experimentsandconfigs",
}

// ClientConfig configures a Client. Zero Endpoint, UserInfoURL and
// HTTPClient fall back to Google and a 30s client.
type ClientConfig struct {
	HTTPClient   *http.Client
	Endpoint     oauth2.Endpoint
	ClientID     string
	ClientSecret string
	RedirectURL  string
	UserInfoURL  string
}

// Client builds authorization URLs and turns codes and refresh tokens into
// TokenData.
type Client struct {
	config      *oauth2.Config
	httpClient  *http.Client
	userInfoURL string
}

// RedirectURL returns the redirect URL for a callback bound on addr
// (host:port). The host is always localhost.
func RedirectURL(addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil || port == "" {
		port = "8888"
	}
	return "http://localhost:" + port + CallbackPath
}

// NewClient creates a Client.
func NewClient(cfg ClientConfig) *Client {
	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = endpoints.Google
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: httpTimeout}
	}
	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = defaultUserInfoURL
	}

	return &Client{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       Scopes,
		},
		httpClient:  httpClient,
		userInfoURL: userInfoURL,
	}
}

// AuthCodeURL returns the consent screen URL. Offline access with forced
// consent makes Google return a refresh token every time.
func (c *Client) AuthCodeURL(state string) string {
	return c.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token pair. The email is
// looked up best effort; a userinfo failure leaves it empty.
func (c *Client) Exchange(ctx context.Context, code string) (models.TokenData, error) {
	tok, err := c.config.Exchange(c.withClient(ctx), code)
	if err != nil {
		return models.TokenData{}, &ExchangeError{Err: err}
	}
	if tok.AccessToken == "" {
		return models.TokenData{}, &ExchangeError{Err: errors.New("token response has no access token")}
	}

	email, err := c.FetchEmail(ctx, tok.AccessToken)
	if err != nil {
		logger.Warn("failed to fetch account email", "error", err)
	}

	return models.NewTokenData(tok.AccessToken, tok.RefreshToken, expiresIn(tok), email), nil
}

// Refresh mints a fresh access token. The old refresh token is kept when the
// server does not rotate it. Errors from the token endpoint unwrap to
// *oauth2.RetrieveError.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (models.TokenData, error) {
	if refreshToken == "" {
		return models.TokenData{}, errors.New("refresh token is empty")
	}

	src := c.config.TokenSource(c.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return models.TokenData{}, fmt.Errorf("failed to refresh token: %w", err)
	}

	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = refreshToken
	}
	return models.NewTokenData(tok.AccessToken, refresh, expiresIn(tok), ""), nil
}

type userInfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// FetchEmail returns the email of the account behind accessToken.
func (c *Client) FetchEmail(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("userinfo request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read userinfo response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo request failed (status %d): %s", resp.StatusCode, string(body))
	}

	var info userInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return "", fmt.Errorf("failed to parse userinfo response: %w", err)
	}
	return info.Email, nil
}

func (c *Client) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func expiresIn(tok *oauth2.Token) int64 {
	if tok.ExpiresIn > 0 {
		return tok.ExpiresIn
	}
	if tok.Expiry.IsZero() {
		return 0
	}
	secs := int64(time.Until(tok.Expiry).Round(time.Second) / time.Second)
	if secs < 0 {
		return 0
	}
	return secs
}
