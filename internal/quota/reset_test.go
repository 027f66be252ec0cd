package quota

import (
	"testing"
	"time"
)

func TestFormatReset(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) string { return now.Add(d).Format(time.RFC3339) }

	tests := []struct {
		name  string
		reset string
		want  string
	}{
		{"Empty", "", "Unknown"},
		{"Garbage", "tomorrow", "Unknown"},
		{"Past", at(-time.Hour), "Now"},
		{"Seconds", at(30 * time.Second), "< 1m"},
		{"Minutes", at(45 * time.Minute), "45m"},
		{"WholeHours", at(3 * time.Hour), "3h"},
		{"HoursMinutes", at(2*time.Hour + 15*time.Minute), "2h15m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatReset(tt.reset, now); got != tt.want {
				t.Errorf("FormatReset(%q) = %q, want %q", tt.reset, got, tt.want)
			}
		})
	}
}

func TestTimeUntilReset(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	if got := TimeUntilReset(now.Add(time.Hour).Format(time.RFC3339), now); got != time.Hour {
		t.Errorf("TimeUntilReset() = %v, want 1h", got)
	}
	if got := TimeUntilReset("nope", now); got != 0 {
		t.Errorf("TimeUntilReset(invalid) = %v, want 0", got)
	}
}
