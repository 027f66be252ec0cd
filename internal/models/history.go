// Package models defines data structures and domain types.
package models

import "time"

// HistoryWindow is the time span shown by the quota history graph.
type HistoryWindow int

const (
	// Window6Hours shows the last 6 hours.
	Window6Hours HistoryWindow = iota
	// Window24Hours shows the last day.
	Window24Hours
	// Window7Days shows the last week.
	Window7Days
)

// String returns the display name for a window.
func (w HistoryWindow) String() string {
	switch w {
	case Window6Hours:
		return "6h"
	case Window24Hours:
		return "24h"
	case Window7Days:
		return "7d"
	default:
		return "unknown"
	}
}

// Duration returns the span covered by the window.
func (w HistoryWindow) Duration() time.Duration {
	switch w {
	case Window6Hours:
		return 6 * time.Hour
	case Window7Days:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Next cycles to the next window.
func (w HistoryWindow) Next() HistoryWindow {
	return (w + 1) % 3
}

// SwitchRecord is one recorded switch attempt.
type SwitchRecord struct {
	Timestamp time.Time
	FromID    string
	ToID      string
	ToEmail   string
	// Stage is where a failed switch stopped; empty on success.
	Stage   string
	Error   string
	ID      int64
	Success bool
}

// QuotaSnapshot is a quota reading stored for the history graph.
// Percentages are -1 when the family was not reported.
type QuotaSnapshot struct {
	Timestamp time.Time
	AccountID string
	Email     string
	ID        int64
	Gemini    int
	Claude    int
	Forbidden bool
}

// SnapshotOf builds a snapshot from an account's current quota.
func SnapshotOf(a *Account) QuotaSnapshot {
	s := QuotaSnapshot{AccountID: a.ID, Email: a.Email, Gemini: -1, Claude: -1}
	if a.Quota == nil {
		return s
	}
	s.Timestamp = a.Quota.LastUpdated
	s.Forbidden = a.Quota.IsForbidden
	if g, ok := a.Quota.FamilyPercent(FamilyGemini); ok {
		s.Gemini = g
	}
	if c, ok := a.Quota.FamilyPercent(FamilyClaude); ok {
		s.Claude = c
	}
	return s
}
