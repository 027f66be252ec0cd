// Package services wires the switcher components together and fans their
// events out to the TUI, the tray and the CLI.
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gen2brain/beeep"

	"github.com/j-veylop/antigravity-switcher/internal/accounts"
	"github.com/j-veylop/antigravity-switcher/internal/config"
	"github.com/j-veylop/antigravity-switcher/internal/credential"
	"github.com/j-veylop/antigravity-switcher/internal/db"
	"github.com/j-veylop/antigravity-switcher/internal/logger"
	"github.com/j-veylop/antigravity-switcher/internal/models"
	"github.com/j-veylop/antigravity-switcher/internal/oauth"
	"github.com/j-veylop/antigravity-switcher/internal/process"
	"github.com/j-veylop/antigravity-switcher/internal/quota"
	"github.com/j-veylop/antigravity-switcher/internal/switcher"
)

type (
	// AccountsChangedEvent is emitted when the accounts list or the active
	// account changes.
	AccountsChangedEvent struct {
		ActiveAccount *models.Account
		Accounts      []models.Account
	}

	// SwitchStartedEvent is emitted before the app is stopped.
	SwitchStartedEvent struct {
		AccountID string
	}

	// SwitchStageEvent is emitted as each switch stage begins.
	SwitchStageEvent struct {
		AccountID string
		Stage     switcher.Stage
	}

	// AccountSwitchedEvent is emitted once a switch has completed.
	AccountSwitchedEvent struct {
		RefreshErr error
		AccountID  string
		Email      string
	}

	// SwitchFailedEvent is emitted when a switch stops at a stage.
	SwitchFailedEvent struct {
		Error     error
		AccountID string
		Stage     switcher.Stage
	}

	// RefreshRequestedEvent is emitted before the active account's quota is fetched.
	RefreshRequestedEvent struct {
		AccountID string
	}

	// QuotaUpdatedEvent is emitted when quota information is updated for an account.
	QuotaUpdatedEvent struct {
		Quota     *models.Quota
		AccountID string
	}

	// AppStateEvent is emitted after a start or stop command.
	AppStateEvent struct {
		Error   error
		Running bool
	}

	// ErrorEvent is emitted when an error occurs in any service.
	ErrorEvent struct {
		Error   error
		Service string
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (AccountsChangedEvent) isServiceEvent()  {}
func (SwitchStartedEvent) isServiceEvent()    {}
func (SwitchStageEvent) isServiceEvent()      {}
func (AccountSwitchedEvent) isServiceEvent()  {}
func (SwitchFailedEvent) isServiceEvent()     {}
func (RefreshRequestedEvent) isServiceEvent() {}
func (QuotaUpdatedEvent) isServiceEvent()     {}
func (AppStateEvent) isServiceEvent()         {}
func (ErrorEvent) isServiceEvent()            {}

// Options replaces the real collaborators. Zero fields use the defaults
// derived from the config.
type Options struct {
	Controller  process.Controller
	Credentials credential.Writer
	Fetcher     quota.Fetcher
	Notify      func(title, body string) error
	// OpenBrowser opens the login URL; nil uses the system browser.
	OpenBrowser oauth.Opener
}

// Manager owns the account store, the history database and the switch
// coordinator, and routes their events to subscribers.
type Manager struct {
	mu          sync.RWMutex
	cfg         *config.Config
	accounts    *accounts.Store
	database    *db.DB
	oauth       *oauth.Client
	loginFlow   *oauth.Flow
	tokens      *quota.TokenCache
	controller  process.Controller
	coordinator *switcher.Coordinator
	notify      func(title, body string) error
	subscribers []chan<- ServiceEvent
	lowNotified map[string]bool
	cancel      context.CancelFunc
	stopChan    chan struct{}
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

// NewManager creates a manager backed by the real system.
func NewManager(cfg *config.Config) (*Manager, error) {
	return NewManagerWithOptions(cfg, Options{})
}

// NewManagerWithOptions creates a manager, using opts where set.
func NewManagerWithOptions(cfg *config.Config, opts Options) (*Manager, error) {
	m := &Manager{
		cfg:         cfg,
		stopChan:    make(chan struct{}),
		lowNotified: make(map[string]bool),
		notify:      opts.Notify,
	}
	if m.notify == nil {
		m.notify = func(title, body string) error { return beeep.Notify(title, body, "") }
	}

	var err error
	m.accounts, err = accounts.New(cfg.AccountsPath)
	if err != nil {
		return nil, err
	}

	m.database, err = db.New(cfg.DatabasePath)
	if err != nil {
		_ = m.accounts.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if n, err := m.database.Compact(cfg.HistoryRetention); err != nil {
		logger.Warn("history compaction failed", "error", err)
	} else if n > 0 {
		logger.Info("pruned history", "rows", n)
	}

	m.oauth = oauth.NewClient(oauth.ClientConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  oauth.RedirectURL(cfg.CallbackAddr),
	})
	m.loginFlow = oauth.NewFlow(cfg.CallbackAddr, m.oauth, opts.OpenBrowser)
	m.tokens = quota.NewTokenCache(m.oauth, m.accounts)

	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = quota.NewClient(m.tokens, nil)
	}
	m.controller = opts.Controller
	if m.controller == nil {
		m.controller = process.New(process.Options{})
	}
	creds := opts.Credentials
	if creds == nil {
		creds = credential.NewStateDB(cfg.StateDBPath)
	}

	m.coordinator = switcher.New(switcher.Deps{
		Store:       m.accounts,
		Controller:  m.controller,
		Credentials: creds,
		Fetcher:     fetcher,
		Recorder:    m.database,
		Policy:      quota.Policy{Attempts: cfg.QuotaRetryAttempts, Delay: cfg.QuotaRetryDelay},
		StopTimeout: cfg.StopTimeout,
	})

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		_ = m.coordinator.Run(ctx)
	}()
	go func() {
		defer m.wg.Done()
		m.routeEvents()
	}()
	if cfg.QuotaRefreshInterval > 0 {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.pollQuota(ctx, cfg.QuotaRefreshInterval)
		}()
	}

	return m, nil
}

// routeEvents routes events from the store and the coordinator to subscribers.
func (m *Manager) routeEvents() {
	for {
		select {
		case event := <-m.accounts.Events():
			m.handleAccountEvent(event)

		case event := <-m.coordinator.Events():
			m.handleSwitchEvent(event)

		case <-m.stopChan:
			return
		}
	}
}

func (m *Manager) handleAccountEvent(event accounts.Event) {
	switch event.Type {
	case accounts.EventError:
		m.broadcast(ErrorEvent{Service: "accounts", Error: event.Error})
	default:
		m.broadcast(AccountsChangedEvent{
			Accounts:      m.accounts.List(),
			ActiveAccount: m.accounts.Current(),
		})
	}
}

func (m *Manager) handleSwitchEvent(event switcher.Event) {
	switch event.Type {
	case switcher.EventSwitchStarted:
		m.broadcast(SwitchStartedEvent{AccountID: event.AccountID})

	case switcher.EventStageChanged:
		m.broadcast(SwitchStageEvent{AccountID: event.AccountID, Stage: event.Stage})

	case switcher.EventAccountSwitched:
		email := event.AccountID
		if acc, err := m.accounts.Get(event.AccountID); err == nil {
			email = acc.Email
		}
		m.broadcast(AccountSwitchedEvent{AccountID: event.AccountID, Email: email, RefreshErr: event.Err})
		m.sendNotification("Antigravity account switched", "Now using "+email)

	case switcher.EventSwitchFailed:
		m.broadcast(SwitchFailedEvent{AccountID: event.AccountID, Stage: event.Stage, Error: event.Err})
		m.sendNotification("Antigravity switch failed", event.Err.Error())

	case switcher.EventRefreshRequested:
		m.broadcast(RefreshRequestedEvent{AccountID: event.AccountID})

	case switcher.EventQuotaRefreshed:
		m.broadcast(QuotaUpdatedEvent{AccountID: event.AccountID, Quota: event.Quota})
		m.checkLowQuota(event.AccountID, event.Quota)

	case switcher.EventQuotaFailed:
		m.broadcast(ErrorEvent{Service: "quota", Error: event.Err})

	case switcher.EventAppStarted:
		m.broadcast(AppStateEvent{Running: true})

	case switcher.EventAppStopped:
		m.broadcast(AppStateEvent{Running: false})

	case switcher.EventAppFailed:
		m.broadcast(AppStateEvent{Running: event.Stage == switcher.StageStopping, Error: event.Err})
	}
}

// checkLowQuota notifies once when an account drops below the threshold,
// and again only after it has recovered above it.
func (m *Manager) checkLowQuota(accountID string, q *models.Quota) {
	lowest, ok := q.MinPercent()
	if !ok {
		return
	}

	m.mu.Lock()
	wasLow := m.lowNotified[accountID]
	isLow := lowest < m.cfg.LowQuotaThreshold
	m.lowNotified[accountID] = isLow
	m.mu.Unlock()

	if isLow && !wasLow {
		email := accountID
		if acc, err := m.accounts.Get(accountID); err == nil {
			email = acc.Email
		}
		m.sendNotification(
			fmt.Sprintf("Low quota: %s", email),
			fmt.Sprintf("Lowest model quota is %d%%. %s", lowest, q.Summary()),
		)
	}
}

func (m *Manager) sendNotification(title, body string) {
	// notifications are optional; headless sessions have no daemon
	if err := m.notify(title, body); err != nil {
		logger.Debug("notification failed", "error", err)
	}
}

func (m *Manager) pollQuota(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.accounts.CurrentID() == "" {
				continue
			}
			if err := m.coordinator.Submit(switcher.Command{Type: switcher.CmdRefreshCurrent}); err != nil {
				logger.Debug("skipping scheduled refresh", "error", err)
			}
		}
	}
}

// broadcast sends an event to all subscribers.
func (m *Manager) broadcast(event ServiceEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber channel full, skip
		}
	}
}

// Subscribe creates a channel for receiving service events.
// Returns a tea.Cmd that can be used in Bubble Tea's Init or Update.
func (m *Manager) Subscribe() (chan ServiceEvent, tea.Cmd) {
	ch := make(chan ServiceEvent, 50)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch, WaitForEvent(ch)
}

// WaitForEvent returns a tea.Cmd for the next event on a channel.
func WaitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// Unsubscribe removes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// SwitchNext queues a switch to the next account.
func (m *Manager) SwitchNext() error {
	return m.coordinator.Submit(switcher.Command{Type: switcher.CmdSwitchNext})
}

// SwitchTo queues a switch to the given account.
func (m *Manager) SwitchTo(id string) error {
	return m.coordinator.Submit(switcher.Command{Type: switcher.CmdSwitchTo, AccountID: id})
}

// RefreshCurrent queues a quota refresh of the active account.
func (m *Manager) RefreshCurrent() error {
	return m.coordinator.Submit(switcher.Command{Type: switcher.CmdRefreshCurrent})
}

// StartApp queues a start of the target app.
func (m *Manager) StartApp() error {
	return m.coordinator.Submit(switcher.Command{Type: switcher.CmdStartApp})
}

// StopApp queues a stop of the target app.
func (m *Manager) StopApp() error {
	return m.coordinator.Submit(switcher.Command{Type: switcher.CmdStopApp})
}

// Login runs the browser OAuth flow and stores the resulting account. A
// second call while one is waiting returns oauth.ErrFlowInProgress.
func (m *Manager) Login(ctx context.Context) (models.Account, error) {
	if err := m.cfg.RequireOAuth(); err != nil {
		return models.Account{}, err
	}

	tok, err := m.loginFlow.Run(ctx)
	if err != nil {
		return models.Account{}, err
	}

	acc, err := m.accounts.Add(models.Account{Email: tok.Email, Token: tok})
	if err != nil {
		return models.Account{}, fmt.Errorf("failed to save account: %w", err)
	}
	m.tokens.Invalidate(acc.ID)
	logger.Info("account added", "account", acc.ID, "email", acc.Email)
	return acc, nil
}

// DeleteAccount removes an account.
func (m *Manager) DeleteAccount(id string) error {
	m.tokens.Invalidate(id)
	return m.accounts.Delete(id)
}

// GetAccountsWithQuota returns all accounts with their active flag.
func (m *Manager) GetAccountsWithQuota() []models.AccountWithQuota {
	accs := m.accounts.List()
	activeID := m.accounts.CurrentID()

	result := make([]models.AccountWithQuota, len(accs))
	for i, acc := range accs {
		result[i] = models.AccountWithQuota{
			Account:  acc,
			IsActive: acc.ID == activeID,
		}
	}
	return result
}

// QuotaHistory returns an account's quota snapshots within the window.
func (m *Manager) QuotaHistory(accountID string, window models.HistoryWindow) ([]models.QuotaSnapshot, error) {
	return m.database.QuotaHistory(accountID, time.Now().Add(-window.Duration()))
}

// RecentSwitches returns the latest switch attempts, newest first.
func (m *Manager) RecentSwitches(limit int) ([]models.SwitchRecord, error) {
	return m.database.RecentSwitches(limit)
}

// AppRunning reports whether the target app is running.
func (m *Manager) AppRunning(ctx context.Context) bool {
	return m.controller.IsRunning(ctx)
}

// Accounts returns the account store.
func (m *Manager) Accounts() *accounts.Store {
	return m.accounts
}

// Coordinator returns the switch coordinator for direct, synchronous use.
func (m *Manager) Coordinator() *switcher.Coordinator {
	return m.coordinator
}

// Controller returns the process controller.
func (m *Manager) Controller() process.Controller {
	return m.controller
}

// Database returns the database instance for direct access.
func (m *Manager) Database() *db.DB {
	return m.database
}

// Close stops background work and closes the store and database.
func (m *Manager) Close() error {
	var errs []error
	m.closeOnce.Do(func() {
		m.cancel()
		close(m.stopChan)
		m.wg.Wait()

		m.mu.Lock()
		for _, sub := range m.subscribers {
			close(sub)
		}
		m.subscribers = nil
		m.mu.Unlock()

		if err := m.accounts.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := m.database.Close(); err != nil {
			errs = append(errs, err)
		}
	})

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
