// Package components provides reusable UI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/antigravity-switcher/internal/models"
	"github.com/j-veylop/antigravity-switcher/internal/quota"
	"github.com/j-veylop/antigravity-switcher/internal/ui/styles"
)

const labelWidth = 24

// QuotaBar renders per-model remaining quota as progress bars.
type QuotaBar struct {
	progress progress.Model
}

// NewQuotaBar creates a quota bar with a red to green gradient.
func NewQuotaBar() QuotaBar {
	return QuotaBar{
		progress: progress.New(
			progress.WithScaledGradient("#ff6b6b", "#51cf66"),
			progress.WithWidth(30),
			progress.WithoutPercentage(),
		),
	}
}

// View renders one model line: label, bar, percentage and reset time.
func (q QuotaBar) View(m models.ModelQuota, reset string, width int) string {
	q.progress.Width = max(width-labelWidth-16, 10)

	label := lipgloss.NewStyle().
		Foreground(familyColor(m.Name)).
		Width(labelWidth).
		Render(truncateLabel(m.Name, labelWidth-1))
	bar := q.progress.ViewAs(float64(m.Percentage) / 100)
	pct := styles.GetQuotaStyle(m.Percentage, false).
		Width(5).
		Align(lipgloss.Right).
		Render(fmt.Sprintf("%d%%", m.Percentage))

	line := lipgloss.JoinHorizontal(lipgloss.Center, label, bar, " ", pct)
	if reset != "" {
		line += styles.MutedTextStyle.Render(" ↻ " + reset)
	}
	return line
}

// ViewQuota renders every model of a quota, or its unavailable state.
func (q QuotaBar) ViewQuota(qt *models.Quota, width int) string {
	switch {
	case qt == nil:
		return styles.HelpStyle.Render("Quota unknown. Press r to refresh.")
	case qt.IsForbidden:
		return styles.GetQuotaStyle(0, true).Render("Forbidden: this account cannot use the quota API")
	case len(qt.Models) == 0:
		return styles.HelpStyle.Render("No models reported")
	}

	lines := make([]string, 0, len(qt.Models))
	for _, m := range qt.Models {
		reset := ""
		if m.ResetTime != "" {
			reset = quota.FormatReset(m.ResetTime, qt.LastUpdated)
		}
		lines = append(lines, q.View(m, reset, width))
	}
	return strings.Join(lines, "\n")
}

func familyColor(name string) lipgloss.Color {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, models.FamilyClaude):
		return styles.Claude
	case strings.Contains(lower, models.FamilyGemini):
		return styles.Gemini
	default:
		return styles.TextSecondary
	}
}

func truncateLabel(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
