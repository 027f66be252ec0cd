// Package styles defines the visual styling for the application.
package styles

import "github.com/charmbracelet/lipgloss"

// Color definitions for the Antigravity theme.
var (
	Primary   = lipgloss.Color("205") // Pink
	Secondary = lipgloss.Color("63")  // Purple
	Subtle    = lipgloss.Color("240") // Gray

	// Model family colors
	Claude = lipgloss.Color("208")
	Gemini = lipgloss.Color("39")

	Success = lipgloss.Color("42")
	Error   = lipgloss.Color("196")
	Warning = lipgloss.Color("220")

	TextPrimary   = lipgloss.Color("252")
	TextSecondary = lipgloss.Color("245")
	TextMuted     = lipgloss.Color("240")
)

// TitleStyle is used for main headings.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary)

// HeaderStyle is the top bar.
var HeaderStyle = lipgloss.NewStyle().
	Padding(0, 1).
	BorderStyle(lipgloss.NormalBorder()).
	BorderBottom(true).
	BorderForeground(Subtle)

// PanelStyle is a bordered content panel.
var PanelStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Subtle).
	Padding(0, 1)

// ListItemStyle styles an unselected account row.
var ListItemStyle = lipgloss.NewStyle().
	Foreground(TextSecondary).
	PaddingLeft(2)

// SelectedListItemStyle styles the row under the cursor.
var SelectedListItemStyle = lipgloss.NewStyle().
	Foreground(Primary).
	Bold(true).
	PaddingLeft(1).
	SetString(">")

// ActiveBadgeStyle marks the account the app is logged in as.
var ActiveBadgeStyle = lipgloss.NewStyle().
	Foreground(Success).
	Bold(true)

// HelpStyle renders help text and empty states.
var HelpStyle = lipgloss.NewStyle().
	Foreground(TextMuted)

// HelpPanelStyle is the help overlay.
var HelpPanelStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Secondary).
	Padding(1, 2)

// ToastStyle for floating notifications.
var ToastStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Primary).
	Padding(0, 1)

// StatusBarStyle is the bottom line.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(TextSecondary).
	Padding(0, 1)

var (
	ErrorTextStyle   = lipgloss.NewStyle().Foreground(Error)
	SuccessTextStyle = lipgloss.NewStyle().Foreground(Success)
	WarningTextStyle = lipgloss.NewStyle().Foreground(Warning)
	MutedTextStyle   = lipgloss.NewStyle().Foreground(TextMuted)
)

// Quota thresholds in percent.
const (
	QuotaLowThreshold    = 20
	QuotaMediumThreshold = 50
)

// GetQuotaStyle returns the text style for a remaining percentage.
func GetQuotaStyle(percent int, forbidden bool) lipgloss.Style {
	switch {
	case forbidden:
		return ErrorTextStyle.Bold(true)
	case percent < QuotaLowThreshold:
		return ErrorTextStyle
	case percent < QuotaMediumThreshold:
		return WarningTextStyle
	default:
		return SuccessTextStyle
	}
}

// CenterBoth centers content in a width x height box.
func CenterBoth(content string, width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}
