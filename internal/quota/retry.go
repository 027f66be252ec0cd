package quota

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/j-veylop/antigravity-switcher/internal/logger"
	"github.com/j-veylop/antigravity-switcher/internal/models"
)

// Policy bounds FetchWithRetry.
type Policy struct {
	// Attempts is the total number of tries, at least 1.
	Attempts int
	// Delay is the first backoff; it doubles on every retry.
	Delay time.Duration
}

// DefaultPolicy is three attempts starting at 500ms.
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, Delay: 500 * time.Millisecond}
}

// FetchWithRetry retries transient failures up to p.Attempts tries in
// total. Permanent failures are returned after the first attempt.
func FetchWithRetry(ctx context.Context, f Fetcher, account *models.Account, p Policy) (*models.Quota, error) {
	attempts := max(p.Attempts, 1)
	delay := p.Delay
	if delay <= 0 {
		delay = time.Millisecond
	}
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(delay))

	var (
		result *models.Quota
		try    int
	)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		try++
		q, err := f.FetchQuota(ctx, account)
		if err != nil {
			if IsTransient(err) {
				logger.Debug("quota fetch failed, retrying", "account", account.ID, "attempt", try, "error", err)
				return retry.RetryableError(err)
			}
			return err
		}
		result = q
		return nil
	})
	if err != nil {
		logger.Warn("quota fetch failed", "account", account.ID, "attempts", try, "error", err)
		return nil, err
	}
	return result, nil
}
