// Package quota reads per-model remaining quota for an account from the
// Cloud Code API, with retries for transient failures.
package quota

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/j-veylop/antigravity-switcher/internal/logger"
	"github.com/j-veylop/antigravity-switcher/internal/models"
)

var (
	// DefaultEndpoints are tried in order.
	DefaultEndpoints = []string{
		"https://cloudcode-pa.googleapis.com",
		"https://daily-cloudcode-pa.sandbox.googleapis.com",
	}

	antigravityHeaders = map[string]string{
		"User-Agent":        "antigravity/1.11.5 windows/amd64",
		"X-Goog-Api-Client": "google-cloud-sdk vscode_cloudshelleditor/0.1",
		"Client-Metadata":   `{"ideType":"IDE_UNSPECIFIED","platform":"PLATFORM_UNSPECIFIED","pluginType":"GEMINI"}`,
	}

	trackedFamilies = []string{models.FamilyGemini, models.FamilyClaude}
)

const fetchModelsPath = "/v1internal:fetchAvailableModels"

// Fetcher fetches the current quota of one account.
type Fetcher interface {
	FetchQuota(ctx context.Context, account *models.Account) (*models.Quota, error)
}

// TokenProvider hands out a usable access token for an account.
type TokenProvider interface {
	AccessToken(ctx context.Context, account *models.Account) (string, error)
}

// Client is the HTTP Fetcher. It never writes the account store.
type Client struct {
	tokens     TokenProvider
	httpClient *http.Client
	now        func() time.Time
	endpoints  []string
}

var _ Fetcher = (*Client)(nil)

// NewClient creates a Client. A nil httpClient gets a 30s timeout; no
// endpoints means DefaultEndpoints.
func NewClient(tokens TokenProvider, httpClient *http.Client, endpoints ...string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if len(endpoints) == 0 {
		endpoints = DefaultEndpoints
	}
	return &Client{tokens: tokens, httpClient: httpClient, endpoints: endpoints, now: time.Now}
}

type fetchModelsResponse struct {
	Models map[string]struct {
		DisplayName string `json:"displayName"`
		QuotaInfo   struct {
			ResetTime         string  `json:"resetTime"`
			RemainingFraction float64 `json:"remainingFraction"`
		} `json:"quotaInfo"`
	} `json:"models"`
}

// FetchQuota queries each endpoint in turn until one answers. Only transient
// failures move on to the next endpoint. A 403 is not an error: the account
// is reported as forbidden.
func (c *Client) FetchQuota(ctx context.Context, account *models.Account) (*models.Quota, error) {
	if account == nil {
		return nil, permanent(0, errors.New("no account"))
	}

	token, err := c.tokens.AccessToken(ctx, account)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, endpoint := range c.endpoints {
		q, err := c.fetchFrom(ctx, endpoint, token, account.ProjectID)
		if err == nil {
			return q, nil
		}
		if !IsTransient(err) {
			return nil, err
		}
		logger.Debug("quota endpoint failed", "endpoint", endpoint, "error", err)
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) fetchFrom(ctx context.Context, endpoint, token, projectID string) (*models.Quota, error) {
	payload := "{}"
	if projectID != "" {
		b, _ := json.Marshal(map[string]string{"project": projectID})
		payload = string(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+fetchModelsPath, strings.NewReader(payload))
	if err != nil {
		return nil, permanent(0, fmt.Errorf("failed to create quota request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range antigravityHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, permanent(0, ctx.Err())
		}
		return nil, transient(0, fmt.Errorf("quota request failed: %w", err))
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transient(resp.StatusCode, fmt.Errorf("failed to read quota response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return &models.Quota{IsForbidden: true, LastUpdated: c.now()}, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, transient(resp.StatusCode, errors.New(truncate(body)))
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, permanent(resp.StatusCode, errors.New("unauthorized: access token rejected"))
	case resp.StatusCode != http.StatusOK:
		return nil, permanent(resp.StatusCode, errors.New(truncate(body)))
	}

	var parsed fetchModelsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, permanent(resp.StatusCode, fmt.Errorf("failed to parse quota response: %w", err))
	}
	return &models.Quota{Models: parseModels(parsed), LastUpdated: c.now()}, nil
}

// parseModels keeps the tracked families, sorted by name.
func parseModels(resp fetchModelsResponse) []models.ModelQuota {
	var out []models.ModelQuota
	for name, data := range resp.Models {
		if !tracked(name) {
			continue
		}
		out = append(out, models.ModelQuota{
			Name:       name,
			Percentage: percent(data.QuotaInfo.RemainingFraction),
			ResetTime:  data.QuotaInfo.ResetTime,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func tracked(name string) bool {
	lower := strings.ToLower(name)
	for _, family := range trackedFamilies {
		if strings.Contains(lower, family) {
			return true
		}
	}
	return false
}

func percent(fraction float64) int {
	p := int(math.Round(fraction * 100))
	return max(0, min(100, p))
}

func truncate(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
