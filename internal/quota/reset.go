package quota

import (
	"fmt"
	"time"
)

// TimeUntilReset parses an RFC 3339 reset time and returns how far away it
// is. Unparseable or past times give 0.
func TimeUntilReset(resetTime string, now time.Time) time.Duration {
	if resetTime == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339, resetTime)
	if err != nil {
		return 0
	}
	if d := t.Sub(now); d > 0 {
		return d
	}
	return 0
}

// FormatReset renders a model reset time for display, e.g. "2h15m".
func FormatReset(resetTime string, now time.Time) string {
	if resetTime == "" {
		return "Unknown"
	}
	if _, err := time.Parse(time.RFC3339, resetTime); err != nil {
		return "Unknown"
	}

	duration := TimeUntilReset(resetTime, now)
	switch {
	case duration <= 0:
		return "Now"
	case duration < time.Minute:
		return "< 1m"
	case duration < time.Hour:
		return fmt.Sprintf("%dm", int(duration.Minutes()))
	}

	hours := int(duration.Hours())
	minutes := int(duration.Minutes()) % 60
	if minutes == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh%dm", hours, minutes)
}
