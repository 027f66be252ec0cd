package app

import (
	"time"

	"github.com/j-veylop/antigravity-switcher/internal/models"
	"github.com/j-veylop/antigravity-switcher/internal/services"
)

// TickMsg is sent periodically to expire notifications and poll app status.
type TickMsg struct {
	Time time.Time
}

// AccountsLoadedMsg contains loaded account data.
type AccountsLoadedMsg struct {
	Accounts []models.AccountWithQuota
}

// HistoryLoadedMsg carries quota history for one account and the latest
// switch attempts.
type HistoryLoadedMsg struct {
	Err       error
	AccountID string
	Snapshots []models.QuotaSnapshot
	Switches  []models.SwitchRecord
	Window    models.HistoryWindow
}

// AppStatusMsg reports whether the target app is running.
type AppStatusMsg struct {
	Running bool
}

// CommandResultMsg is the outcome of queueing an action.
type CommandResultMsg struct {
	Err    error
	Action string
}

// LoginResultMsg is the outcome of the browser login flow.
type LoginResultMsg struct {
	Err     error
	Account models.Account
}

// DeleteResultMsg is the outcome of deleting an account.
type DeleteResultMsg struct {
	Err   error
	Email string
}

// AddNotificationMsg requests adding a new notification.
type AddNotificationMsg struct {
	Message  string
	Type     NotificationType
	Duration time.Duration
}

// RemoveNotificationMsg requests removal of a notification.
type RemoveNotificationMsg struct {
	ID string
}

// ServiceEventMsg wraps a service event from the service manager.
type ServiceEventMsg struct {
	Event services.ServiceEvent
}

// SubscriptionEventMsg is the callback wrapper for service subscription.
type SubscriptionEventMsg struct {
	Channel chan services.ServiceEvent
}
