package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/j-veylop/antigravity-switcher/internal/models"
	"github.com/j-veylop/antigravity-switcher/internal/ui/components"
	"github.com/j-veylop/antigravity-switcher/internal/ui/styles"
)

const (
	listWidthRatio = 3
	minListWidth   = 28
	chartHeight    = 6
)

// View renders the application UI.
func (m *Model) View() string {
	if !m.ready {
		return m.styles.Status.Render(fmt.Sprintf("%s Loading...", m.spinner.View()))
	}

	mainView := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderBody(),
		m.renderStatusBar(),
	)

	if m.showHelp {
		mainView = m.overlayCentered(mainView, m.renderHelp())
	}

	if toasts := m.renderNotifications(); len(toasts) > 0 {
		return m.overlayToasts(mainView, toasts)
	}
	return mainView
}

func (m *Model) renderHeader() string {
	title := m.styles.Title.Render("Antigravity Switcher")

	status := m.styles.Error.Render("○ stopped")
	if m.state.AppRunning() {
		status = m.styles.Success.Render("● running")
	}
	active := m.styles.Subtle.Render("active: ") + activeEmail(m.state.Accounts())

	right := lipgloss.JoinHorizontal(lipgloss.Center, active, "  ", status)
	gap := max(m.width-lipgloss.Width(title)-lipgloss.Width(right)-4, 1)
	return m.styles.Header.Width(m.width).Render(title + strings.Repeat(" ", gap) + right)
}

func (m *Model) renderBody() string {
	bodyHeight := max(m.height-4, 8)
	listWidth := max(m.width/listWidthRatio, minListWidth)
	detailWidth := max(m.width-listWidth-4, 20)

	list := m.styles.Panel.Width(listWidth).Height(bodyHeight - 2).Render(m.renderAccountList(listWidth - 6))
	detail := m.styles.Panel.Width(detailWidth).Height(bodyHeight - 2).Render(m.renderDetail(detailWidth - 4))
	return lipgloss.JoinHorizontal(lipgloss.Top, list, detail)
}

func (m *Model) renderAccountList(width int) string {
	accounts := m.state.Accounts()
	lines := []string{m.styles.Highlight.Render(fmt.Sprintf("Accounts (%d)", len(accounts))), ""}

	if len(accounts) == 0 {
		lines = append(lines, m.styles.Subtle.Render("No accounts yet."), m.styles.Subtle.Render("Press a to log in."))
		return strings.Join(lines, "\n")
	}

	selected := m.state.SelectedIndex()
	for i, a := range accounts {
		marker := "  "
		if a.IsActive {
			marker = m.styles.Badge.Render("●") + " "
		}
		label := ansi.Truncate(a.DisplayName(), max(width-12, 8), "…")
		summary := quotaSummary(a.Quota)

		line := marker + label
		pad := max(width-lipgloss.Width(line)-lipgloss.Width(summary), 1)
		line += strings.Repeat(" ", pad) + summary

		if i == selected {
			lines = append(lines, m.styles.Selected.Render(line))
		} else {
			lines = append(lines, m.styles.Item.Render(line))
		}
	}
	return strings.Join(lines, "\n")
}

func quotaSummary(q *models.Quota) string {
	if q == nil {
		return styles.MutedTextStyle.Render("--")
	}
	if q.IsForbidden {
		return styles.GetQuotaStyle(0, true).Render("403")
	}
	pct, ok := q.MinPercent()
	if !ok {
		return styles.MutedTextStyle.Render("--")
	}
	return styles.GetQuotaStyle(pct, false).Render(fmt.Sprintf("%d%%", pct))
}

func (m *Model) renderDetail(width int) string {
	sel := m.state.Selected()
	if sel == nil {
		return styles.CenterBoth(m.styles.Subtle.Render("Add an account to get started"), width, 5)
	}

	var lines []string
	name := m.styles.Title.Render(sel.Email)
	if sel.IsActive {
		name += " " + m.styles.Badge.Render("ACTIVE")
	}
	lines = append(lines, name)
	if sel.Name != "" && sel.Name != sel.Email {
		lines = append(lines, m.styles.Subtle.Render(sel.Name))
	}
	lines = append(lines, m.renderTokenLine(sel.Token), "")

	if switching, stage := m.state.Switching(); switching && sel.IsActive {
		lines = append(lines, m.styles.Warning.Render(fmt.Sprintf("%s %s", m.spinner.View(), stageMessage(stage))), "")
	}

	lines = append(lines, m.styles.Highlight.Render("Quota"))
	lines = append(lines, m.quotaBar.ViewQuota(sel.Quota, width))
	if sel.Quota != nil && !sel.Quota.LastUpdated.IsZero() {
		lines = append(lines, m.styles.Subtle.Render("updated "+sel.Quota.LastUpdated.Local().Format("15:04:05")))
	}
	lines = append(lines, "")

	window := m.state.Window()
	lines = append(lines, m.styles.Highlight.Render("History "+window.String()))
	lines = append(lines, components.RenderQuotaHistory(m.state.History(sel.ID), max(width-10, 20), chartHeight,
		"orange: claude  blue: gemini"))
	lines = append(lines, "")

	lines = append(lines, m.styles.Highlight.Render("Recent switches"))
	lines = append(lines, m.renderSwitches()...)

	return strings.Join(lines, "\n")
}

func (m *Model) renderTokenLine(t models.TokenData) string {
	if t.AccessToken == "" {
		return m.styles.Warning.Render("no access token")
	}
	expires := t.ExpiresAt()
	if t.IsExpired() {
		return m.styles.Warning.Render("token expired " + expires.Local().Format("Jan 2 15:04") + ", refreshes on use")
	}
	return m.styles.Subtle.Render("token valid for " + time.Until(expires).Round(time.Minute).String())
}

func (m *Model) renderSwitches() []string {
	records := m.state.Switches()
	if len(records) == 0 {
		return []string{m.styles.Subtle.Render("none yet")}
	}
	lines := make([]string, 0, len(records))
	for _, r := range records {
		ts := r.Timestamp.Local().Format("Jan 2 15:04")
		if r.Success {
			lines = append(lines, fmt.Sprintf("%s %s %s", m.styles.Success.Render("✓"), m.styles.Subtle.Render(ts), r.ToEmail))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %s %s %s", m.styles.Error.Render("✗"), m.styles.Subtle.Render(ts), r.ToEmail,
			m.styles.Error.Render("("+r.Stage+")")))
	}
	return lines
}

func (m *Model) renderStatusBar() string {
	return m.styles.Status.Width(m.width).Render(m.help.View(m.keymap))
}

func (m *Model) overlayCentered(mainView string, overlay string) string {
	mainLines := strings.Split(mainView, "\n")
	overlayLines := strings.Split(overlay, "\n")

	overlayWidth := lipgloss.Width(overlay)
	y := max((m.height-len(overlayLines))/2, 0)
	x := max((m.width-overlayWidth)/2, 0)

	for i, overlayLine := range overlayLines {
		mainY := y + i
		if mainY >= len(mainLines) {
			break
		}

		mainLine := mainLines[mainY]
		left := ansi.Truncate(mainLine, x, "")
		right := ansi.TruncateLeft(mainLine, x+overlayWidth, "")
		if lipgloss.Width(left) < x {
			left += strings.Repeat(" ", x-lipgloss.Width(left))
		}

		mainLines[mainY] = left + overlayLine + right
	}

	return strings.Join(mainLines, "\n")
}

func (m *Model) renderNotifications() []string {
	notifications := m.state.Notifications()
	if len(notifications) == 0 {
		return nil
	}

	toasts := make([]string, 0, len(notifications))
	for _, n := range notifications {
		var style lipgloss.Style
		var prefix string

		switch n.Type {
		case NotificationSuccess:
			style = m.styles.NotificationSuccess
			prefix = "[OK]"
		case NotificationError:
			style = m.styles.NotificationError
			prefix = "[ERR]"
		case NotificationWarning:
			style = m.styles.NotificationWarning
			prefix = "[WARN]"
		case NotificationInfo:
			style = m.styles.NotificationInfo
			prefix = "[INFO]"
		case NotificationLoading:
			style = m.styles.NotificationInfo
			prefix = m.spinner.View()
		}

		content := style.Render(fmt.Sprintf("%s %s", prefix, n.Message))
		toasts = append(toasts, m.styles.Toast.Render(content))
	}

	return toasts
}

func (m *Model) overlayToasts(mainView string, toasts []string) string {
	toastStack := lipgloss.JoinVertical(lipgloss.Right, toasts...)
	toastLines := strings.Split(toastStack, "\n")
	mainLines := strings.Split(mainView, "\n")

	startX := max(m.width-lipgloss.Width(toastStack)-2, 0)
	startY := 2

	for i, toastLine := range toastLines {
		lineIdx := startY + i
		if lineIdx >= len(mainLines) {
			break
		}

		mainLine := mainLines[lineIdx]
		mainLineWidth := lipgloss.Width(mainLine)

		if mainLineWidth < startX {
			mainLines[lineIdx] = mainLine + strings.Repeat(" ", startX-mainLineWidth) + toastLine
		} else {
			mainLines[lineIdx] = ansi.Truncate(mainLine, startX, "") + toastLine
		}
	}

	return strings.Join(mainLines, "\n")
}

func (m *Model) renderHelp() string {
	lines := []string{m.styles.Title.Render("Keyboard Shortcuts"), ""}

	sections := []struct {
		title string
		keys  [][2]string
	}{
		{"Accounts", [][2]string{
			{"j/k, ↑/↓", "Move selection"},
			{"Enter", "Switch to selected account"},
			{"n, Tab", "Switch to next account"},
			{"a", "Add account (browser login)"},
			{"d d", "Delete selected account"},
		}},
		{"Antigravity", [][2]string{
			{"r", "Refresh active quota"},
			{"s", "Start the app"},
			{"x", "Stop the app"},
		}},
		{"View", [][2]string{
			{"w", "Cycle history window"},
			{"?", "Toggle help"},
			{"q/Ctrl+C", "Quit"},
		}},
	}

	for _, s := range sections {
		lines = append(lines, m.styles.Highlight.Render(s.title))
		for _, k := range s.keys {
			lines = append(lines, fmt.Sprintf("  %-10s %s", k[0], k[1]))
		}
		lines = append(lines, "")
	}

	lines = append(lines, m.styles.Subtle.Render("Press ? or Esc to close"))
	return styles.HelpPanelStyle.Render(strings.Join(lines, "\n"))
}
