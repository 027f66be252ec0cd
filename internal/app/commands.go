package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/antigravity-switcher/internal/models"
	"github.com/j-veylop/antigravity-switcher/internal/services"
)

const (
	// DefaultTickInterval is the default interval between ticks.
	DefaultTickInterval = 2 * time.Second

	// DefaultNotificationDuration is the default duration for notifications.
	DefaultNotificationDuration = 5 * time.Second

	// QuickNotificationDuration is for brief notifications.
	QuickNotificationDuration = 3 * time.Second

	// LongNotificationDuration is for important notifications.
	LongNotificationDuration = 10 * time.Second

	recentSwitchLimit = 5
	loginTimeout      = 5 * time.Minute
	statusTimeout     = 3 * time.Second
)

// Backend is the part of the service manager the TUI drives.
type Backend interface {
	Subscribe() (chan services.ServiceEvent, tea.Cmd)
	GetAccountsWithQuota() []models.AccountWithQuota
	QuotaHistory(accountID string, window models.HistoryWindow) ([]models.QuotaSnapshot, error)
	RecentSwitches(limit int) ([]models.SwitchRecord, error)
	AppRunning(ctx context.Context) bool
	SwitchNext() error
	SwitchTo(id string) error
	RefreshCurrent() error
	StartApp() error
	StopApp() error
	Login(ctx context.Context) (models.Account, error)
	DeleteAccount(id string) error
}

// tickCmd returns a command that sends a TickMsg after the specified interval.
func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// loadAccountsCmd returns a command that loads accounts with quota.
func loadAccountsCmd(b Backend) tea.Cmd {
	return func() tea.Msg {
		return AccountsLoadedMsg{Accounts: b.GetAccountsWithQuota()}
	}
}

// loadHistoryCmd loads quota history for an account along with recent switches.
func loadHistoryCmd(b Backend, accountID string, window models.HistoryWindow) tea.Cmd {
	return func() tea.Msg {
		msg := HistoryLoadedMsg{AccountID: accountID, Window: window}
		if accountID != "" {
			msg.Snapshots, msg.Err = b.QuotaHistory(accountID, window)
		}
		if msg.Err == nil {
			msg.Switches, msg.Err = b.RecentSwitches(recentSwitchLimit)
		}
		return msg
	}
}

// appStatusCmd probes whether the target app is running.
func appStatusCmd(b Backend) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
		defer cancel()
		return AppStatusMsg{Running: b.AppRunning(ctx)}
	}
}

// subscribeToServicesCmd returns a command that subscribes to service events.
func subscribeToServicesCmd(b Backend) tea.Cmd {
	ch, _ := b.Subscribe()
	return func() tea.Msg {
		return SubscriptionEventMsg{Channel: ch}
	}
}

// waitForServiceEventCmd returns a command that waits for the next service event.
func waitForServiceEventCmd(ch <-chan services.ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return ServiceEventMsg{Event: event}
	}
}

// submitCmd queues an action on the backend. Progress arrives as service
// events; the result only reports whether the action was accepted.
func submitCmd(action string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return CommandResultMsg{Action: action, Err: fn()}
	}
}

// loginCmd runs the browser login flow.
func loginCmd(b Backend) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
		defer cancel()
		account, err := b.Login(ctx)
		return LoginResultMsg{Account: account, Err: err}
	}
}

// deleteAccountCmd returns a command that deletes an account.
func deleteAccountCmd(b Backend, id, email string) tea.Cmd {
	return func() tea.Msg {
		return DeleteResultMsg{Email: email, Err: b.DeleteAccount(id)}
	}
}

// clearNotificationCmd returns a command that removes a notification after a delay.
func clearNotificationCmd(id string, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(_ time.Time) tea.Msg {
		return RemoveNotificationMsg{ID: id}
	})
}

func notifyCmd(t NotificationType, message string, d time.Duration) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{Type: t, Message: message, Duration: d}
	}
}

// notifySuccessCmd returns a command that adds a success notification.
func notifySuccessCmd(message string) tea.Cmd {
	return notifyCmd(NotificationSuccess, message, DefaultNotificationDuration)
}

// notifyErrorCmd returns a command that adds an error notification.
func notifyErrorCmd(message string) tea.Cmd {
	return notifyCmd(NotificationError, message, LongNotificationDuration)
}

// notifyWarningCmd returns a command that adds a warning notification.
func notifyWarningCmd(message string) tea.Cmd {
	return notifyCmd(NotificationWarning, message, DefaultNotificationDuration)
}

// notifyInfoCmd returns a command that adds an info notification.
func notifyInfoCmd(message string) tea.Cmd {
	return notifyCmd(NotificationInfo, message, QuickNotificationDuration)
}
