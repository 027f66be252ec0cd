// Package tray runs the system tray front end.
package tray

import (
	"fmt"

	"github.com/j-veylop/antigravity-switcher/internal/models"
	"github.com/j-veylop/antigravity-switcher/internal/ui/styles"
)

// Level selects the tray icon color.
type Level int

const (
	// LevelUnknown is shown when there is no active account or quota.
	LevelUnknown Level = iota
	// LevelOK means the active account has plenty of quota left.
	LevelOK
	// LevelLow means quota is getting low.
	LevelLow
	// LevelCritical means quota is nearly gone or the account is forbidden.
	LevelCritical
)

// String returns the icon name for a level.
func (l Level) String() string {
	switch l {
	case LevelOK:
		return "green"
	case LevelLow:
		return "yellow"
	case LevelCritical:
		return "red"
	default:
		return "gray"
	}
}

// MenuState is everything the tray shows, derived from the account list.
type MenuState struct {
	Title   string
	Tooltip string
	Account string
	Quota   string
	AppItem string
	Level   Level
	Running bool
}

// BuildMenuState derives the tray labels from the accounts and app status.
func BuildMenuState(accounts []models.AccountWithQuota, running bool) MenuState {
	ms := MenuState{
		Running: running,
		AppItem: "Start Antigravity",
	}
	if running {
		ms.AppItem = "Stop Antigravity"
	}

	var active *models.AccountWithQuota
	for i := range accounts {
		if accounts[i].IsActive {
			active = &accounts[i]
			break
		}
	}

	if active == nil {
		ms.Account = "No active account"
		ms.Quota = "Quota: unknown"
		ms.Tooltip = fmt.Sprintf("Antigravity Switcher: %d accounts", len(accounts))
		return ms
	}

	ms.Account = "Current: " + active.Email
	ms.Quota = active.Quota.Summary()
	ms.Tooltip = active.Email + "\n" + ms.Quota
	ms.Level = quotaLevel(active.Quota)
	if pct, ok := active.Quota.MinPercent(); ok {
		ms.Title = fmt.Sprintf("%d%%", pct)
	}
	return ms
}

func quotaLevel(q *models.Quota) Level {
	if q == nil {
		return LevelUnknown
	}
	if q.IsForbidden {
		return LevelCritical
	}
	pct, ok := q.MinPercent()
	switch {
	case !ok:
		return LevelUnknown
	case pct < styles.QuotaLowThreshold:
		return LevelCritical
	case pct < styles.QuotaMediumThreshold:
		return LevelLow
	default:
		return LevelOK
	}
}
