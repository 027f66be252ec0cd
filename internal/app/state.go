// Package app provides the Bubble Tea application model and state management.
package app

import (
	"strconv"
	"sync"
	"time"

	"github.com/j-veylop/antigravity-switcher/internal/models"
	"github.com/j-veylop/antigravity-switcher/internal/switcher"
)

// NotificationType defines the type of notification.
type NotificationType int

const (
	// NotificationSuccess represents a success notification.
	NotificationSuccess NotificationType = iota
	// NotificationError represents an error notification.
	NotificationError
	// NotificationWarning represents a warning notification.
	NotificationWarning
	// NotificationInfo represents an informational notification.
	NotificationInfo
	// NotificationLoading represents a loading notification with spinner.
	NotificationLoading
)

// LoadingNotificationID is the fixed ID for the loading notification.
const LoadingNotificationID = "__loading__"

const maxNotifications = 5

// String returns the string representation of a NotificationType.
func (n NotificationType) String() string {
	switch n {
	case NotificationSuccess:
		return "success"
	case NotificationError:
		return "error"
	case NotificationWarning:
		return "warning"
	case NotificationInfo:
		return "info"
	case NotificationLoading:
		return "loading"
	default:
		return "unknown"
	}
}

// Notification represents a user-facing notification message.
type Notification struct {
	CreatedAt time.Time
	ID        string
	Message   string
	Type      NotificationType
	Duration  time.Duration
}

// IsExpired returns true if the notification has expired.
func (n *Notification) IsExpired(now time.Time) bool {
	if n.Duration <= 0 {
		return false
	}
	return now.Sub(n.CreatedAt) > n.Duration
}

// State is the data shown by the TUI.
type State struct {
	mu sync.RWMutex

	accounts []models.AccountWithQuota
	selected int

	// switching is set between switch started and its outcome.
	switching  bool
	stage      switcher.Stage
	appRunning bool

	window    models.HistoryWindow
	history   []models.QuotaSnapshot
	historyID string
	switches  []models.SwitchRecord

	notifications   []Notification
	notificationSeq int
	now             func() time.Time
}

// NewState creates an empty state.
func NewState() *State {
	return &State{
		window: models.Window24Hours,
		now:    time.Now,
	}
}

// SetAccounts replaces the account list, keeping the cursor on the same
// account when it still exists.
func (s *State) SetAccounts(accounts []models.AccountWithQuota) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevID := ""
	if s.selected < len(s.accounts) {
		prevID = s.accounts[s.selected].ID
	}

	s.accounts = accounts
	s.selected = 0
	for i := range accounts {
		if accounts[i].ID == prevID {
			s.selected = i
			return
		}
	}
	for i := range accounts {
		if accounts[i].IsActive {
			s.selected = i
			return
		}
	}
}

// Accounts returns a copy of the accounts list.
func (s *State) Accounts() []models.AccountWithQuota {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AccountWithQuota, len(s.accounts))
	copy(out, s.accounts)
	return out
}

// Active returns the active account, or nil.
func (s *State) Active() *models.AccountWithQuota {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.accounts {
		if s.accounts[i].IsActive {
			a := s.accounts[i]
			return &a
		}
	}
	return nil
}

// Selected returns the account under the cursor, or nil.
func (s *State) Selected() *models.AccountWithQuota {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected < 0 || s.selected >= len(s.accounts) {
		return nil
	}
	a := s.accounts[s.selected]
	return &a
}

// SelectedIndex returns the cursor position.
func (s *State) SelectedIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// MoveSelection moves the cursor by delta, clamped to the list. It reports
// whether the cursor moved.
func (s *State) MoveSelection(delta int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.accounts) == 0 {
		return false
	}
	next := min(max(s.selected+delta, 0), len(s.accounts)-1)
	moved := next != s.selected
	s.selected = next
	return moved
}

// SetSwitching records switch progress.
func (s *State) SetSwitching(switching bool, stage switcher.Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.switching = switching
	s.stage = stage
}

// Switching returns whether a switch is running and its stage.
func (s *State) Switching() (bool, switcher.Stage) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.switching, s.stage
}

// SetAppRunning records the target app status.
func (s *State) SetAppRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appRunning = running
}

// AppRunning returns the last known target app status.
func (s *State) AppRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.appRunning
}

// Window returns the history window.
func (s *State) Window() models.HistoryWindow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.window
}

// CycleWindow advances to the next history window and returns it.
func (s *State) CycleWindow() models.HistoryWindow {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.window = s.window.Next()
	return s.window
}

// SetHistory stores loaded history. Results for a stale account or window
// are ignored.
func (s *State) SetHistory(msg HistoryLoadedMsg) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.Window != s.window {
		return false
	}
	if s.selected < len(s.accounts) && s.accounts[s.selected].ID != msg.AccountID {
		return false
	}
	s.historyID = msg.AccountID
	s.history = msg.Snapshots
	s.switches = msg.Switches
	return true
}

// History returns quota history for accountID, if loaded.
func (s *State) History(accountID string) []models.QuotaSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.historyID != accountID {
		return nil
	}
	return s.history
}

// Switches returns the latest switch attempts.
func (s *State) Switches() []models.SwitchRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.switches
}

// AddNotification adds a new notification and returns its ID.
func (s *State) AddNotification(notifType NotificationType, message string, duration time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notificationSeq++
	id := "n" + strconv.Itoa(s.notificationSeq)

	s.notifications = append(s.notifications, Notification{
		ID:        id,
		Type:      notifType,
		Message:   message,
		CreatedAt: s.now(),
		Duration:  duration,
	})

	if len(s.notifications) > maxNotifications {
		s.notifications = s.notifications[len(s.notifications)-maxNotifications:]
	}
	return id
}

// RemoveNotification removes a notification by ID.
func (s *State) RemoveNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == id {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return
		}
	}
}

// ClearExpiredNotifications removes all expired notifications.
func (s *State) ClearExpiredNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	active := s.notifications[:0]
	for _, n := range s.notifications {
		if !n.IsExpired(now) {
			active = append(active, n)
		}
	}
	s.notifications = active
}

// Notifications returns the unexpired notifications.
func (s *State) Notifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	active := make([]Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if !n.IsExpired(now) {
			active = append(active, n)
		}
	}
	return active
}

// SetLoadingNotification shows or updates the loading notification.
func (s *State) SetLoadingNotification(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == LoadingNotificationID {
			s.notifications[i].Message = message
			return
		}
	}

	s.notifications = append(s.notifications, Notification{
		ID:        LoadingNotificationID,
		Type:      NotificationLoading,
		Message:   message,
		CreatedAt: s.now(),
	})
}

// ClearLoadingNotification removes the loading notification.
func (s *State) ClearLoadingNotification() {
	s.RemoveNotification(LoadingNotificationID)
}
