// Package models defines data structures and domain types.
package models

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Model families shown in summaries.
const (
	FamilyGemini = "gemini"
	FamilyClaude = "claude"
)

// ModelQuota is the remaining percentage for one model.
type ModelQuota struct {
	Name       string `json:"name"`
	ResetTime  string `json:"resetTime,omitempty"`
	Percentage int    `json:"percentage"`
}

// Quota is a per-model usage snapshot for an account.
// When IsForbidden is set the Models slice is not meaningful.
type Quota struct {
	LastUpdated time.Time    `json:"lastUpdated"`
	Models      []ModelQuota `json:"models"`
	IsForbidden bool         `json:"isForbidden"`
}

// Clone returns a deep copy of the quota.
func (q *Quota) Clone() Quota {
	return Quota{
		LastUpdated: q.LastUpdated,
		Models:      slices.Clone(q.Models),
		IsForbidden: q.IsForbidden,
	}
}

// FamilyPercent returns the percentage of the last model whose name contains
// family (case-insensitive). The match is loose on purpose: model names carry
// version suffixes that change between releases.
func (q *Quota) FamilyPercent(family string) (int, bool) {
	if q == nil || q.IsForbidden {
		return 0, false
	}
	family = strings.ToLower(family)
	pct, found := 0, false
	for _, m := range q.Models {
		if strings.Contains(strings.ToLower(m.Name), family) {
			pct, found = m.Percentage, true
		}
	}
	return pct, found
}

// MinPercent returns the lowest percentage across all models.
func (q *Quota) MinPercent() (int, bool) {
	if q == nil || q.IsForbidden || len(q.Models) == 0 {
		return 0, false
	}
	lowest := 100
	for _, m := range q.Models {
		lowest = min(lowest, m.Percentage)
	}
	return lowest, true
}

// Summary renders the one-line quota text used by the tray and CLI.
func (q *Quota) Summary() string {
	if q == nil {
		return "Quota: unknown"
	}
	if q.IsForbidden {
		return "Forbidden"
	}
	g, _ := q.FamilyPercent(FamilyGemini)
	c, _ := q.FamilyPercent(FamilyClaude)
	return fmt.Sprintf("Gemini: %d%%  Claude: %d%%", g, c)
}
