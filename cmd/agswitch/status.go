package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/j-veylop/antigravity-switcher/internal/models"
)

// Status is the output of the status command.
type Status struct {
	Accounts   []models.AccountWithQuota `json:"accounts"`
	AppRunning bool                      `json:"appRunning"`
}

func renderStatus(st Status) string {
	var b strings.Builder

	state := "stopped"
	if st.AppRunning {
		state = "running"
	}
	fmt.Fprintf(&b, "Antigravity: %s\n", state)

	if len(st.Accounts) == 0 {
		b.WriteString("No accounts. Run `agswitch login` to add one.")
		return b.String()
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("", "EMAIL", "ID", "QUOTA", "UPDATED")
	for _, a := range st.Accounts {
		marker := ""
		if a.IsActive {
			marker = "*"
		}
		updated := "-"
		if a.Quota != nil && !a.Quota.LastUpdated.IsZero() {
			updated = a.Quota.LastUpdated.Local().Format("Jan 2 15:04")
		}
		t.Row(marker, a.Email, a.ID, a.Quota.Summary(), updated)
	}
	b.WriteString(t.Render())
	return b.String()
}
