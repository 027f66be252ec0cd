package models

import (
	"testing"
	"time"
)

func TestHistoryWindow(t *testing.T) {
	tests := []struct {
		w    HistoryWindow
		name string
		dur  time.Duration
		next HistoryWindow
	}{
		{Window6Hours, "6h", 6 * time.Hour, Window24Hours},
		{Window24Hours, "24h", 24 * time.Hour, Window7Days},
		{Window7Days, "7d", 7 * 24 * time.Hour, Window6Hours},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.w.String(); got != tt.name {
				t.Errorf("String() = %q, want %q", got, tt.name)
			}
			if got := tt.w.Duration(); got != tt.dur {
				t.Errorf("Duration() = %v, want %v", got, tt.dur)
			}
			if got := tt.w.Next(); got != tt.next {
				t.Errorf("Next() = %v, want %v", got, tt.next)
			}
		})
	}

	if got := HistoryWindow(42).String(); got != "unknown" {
		t.Errorf("String() for out of range = %q", got)
	}
}

func TestSnapshotOf(t *testing.T) {
	updated := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("NoQuota", func(t *testing.T) {
		s := SnapshotOf(&Account{ID: "a", Email: "a@example.com"})
		if s.Gemini != -1 || s.Claude != -1 || !s.Timestamp.IsZero() {
			t.Errorf("SnapshotOf() = %+v", s)
		}
	})

	t.Run("Families", func(t *testing.T) {
		a := &Account{ID: "a", Quota: &Quota{
			LastUpdated: updated,
			Models: []ModelQuota{
				{Name: "gemini-3-pro", Percentage: 40},
				{Name: "claude-sonnet-4-5", Percentage: 90},
			},
		}}
		s := SnapshotOf(a)
		if s.Gemini != 40 || s.Claude != 90 {
			t.Errorf("Gemini, Claude = %d, %d; want 40, 90", s.Gemini, s.Claude)
		}
		if !s.Timestamp.Equal(updated) {
			t.Errorf("Timestamp = %v", s.Timestamp)
		}
	})

	t.Run("Forbidden", func(t *testing.T) {
		s := SnapshotOf(&Account{ID: "a", Quota: &Quota{IsForbidden: true}})
		if !s.Forbidden || s.Gemini != -1 {
			t.Errorf("SnapshotOf() = %+v", s)
		}
	})
}
