package app

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/antigravity-switcher/internal/models"
	"github.com/j-veylop/antigravity-switcher/internal/services"
	"github.com/j-veylop/antigravity-switcher/internal/switcher"
	"github.com/j-veylop/antigravity-switcher/internal/ui/components"
	"github.com/j-veylop/antigravity-switcher/internal/ui/styles"
)

// KeyMap defines the keybindings for the application.
type KeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Switch    key.Binding
	Next      key.Binding
	Refresh   key.Binding
	Start     key.Binding
	Stop      key.Binding
	Login     key.Binding
	Delete    key.Binding
	Window    key.Binding
	Help      key.Binding
	Escape    key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	km := KeyMap{}
	km = setNavigationKeys(km)
	km = setSwitchKeys(km)
	km = setActionKeys(km)
	return km
}

func setNavigationKeys(k KeyMap) KeyMap {
	k.Up = key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up"))
	k.Down = key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down"))
	k.Escape = key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel"))
	return k
}

func setSwitchKeys(k KeyMap) KeyMap {
	k.Switch = key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "switch to"))
	k.Next = key.NewBinding(key.WithKeys("n", "tab"), key.WithHelp("n", "next account"))
	k.Refresh = key.NewBinding(key.WithKeys("r", "ctrl+r"), key.WithHelp("r", "refresh quota"))
	k.Start = key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start app"))
	k.Stop = key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop app"))
	return k
}

func setActionKeys(k KeyMap) KeyMap {
	k.Login = key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add account"))
	k.Delete = key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete"))
	k.Window = key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "history window"))
	k.Help = key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help"))
	k.Quit = key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit"))
	k.ForceQuit = key.NewBinding(key.WithKeys("ctrl+c"))
	return k
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Switch, k.Next, k.Refresh, k.Login, k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Switch, k.Next},
		{k.Refresh, k.Start, k.Stop},
		{k.Login, k.Delete, k.Window},
		{k.Help, k.Escape, k.Quit},
	}
}

// Styles defines the application styles.
type Styles struct {
	// Notification styles
	NotificationSuccess lipgloss.Style
	NotificationError   lipgloss.Style
	NotificationWarning lipgloss.Style
	NotificationInfo    lipgloss.Style

	Header    lipgloss.Style
	Panel     lipgloss.Style
	Item      lipgloss.Style
	Selected  lipgloss.Style
	Badge     lipgloss.Style
	Status    lipgloss.Style
	Toast     lipgloss.Style
	Title     lipgloss.Style
	Subtle    lipgloss.Style
	Highlight lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
}

// DefaultStyles returns the default application styles.
func DefaultStyles() Styles {
	info := lipgloss.AdaptiveColor{Light: "#0087D7", Dark: "#5FAFFF"}

	s := Styles{}
	s.NotificationSuccess = lipgloss.NewStyle().Foreground(styles.Success).Padding(0, 1)
	s.NotificationError = lipgloss.NewStyle().Foreground(styles.Error).Bold(true).Padding(0, 1)
	s.NotificationWarning = lipgloss.NewStyle().Foreground(styles.Warning).Padding(0, 1)
	s.NotificationInfo = lipgloss.NewStyle().Foreground(info).Padding(0, 1)

	s.Header = styles.HeaderStyle
	s.Panel = styles.PanelStyle
	s.Item = styles.ListItemStyle
	s.Selected = styles.SelectedListItemStyle
	s.Badge = styles.ActiveBadgeStyle
	s.Status = styles.StatusBarStyle
	s.Toast = styles.ToastStyle

	s.Title = styles.TitleStyle
	s.Subtle = styles.MutedTextStyle
	s.Highlight = lipgloss.NewStyle().Foreground(styles.Secondary).Bold(true)
	s.Error = styles.ErrorTextStyle
	s.Success = styles.SuccessTextStyle
	s.Warning = styles.WarningTextStyle
	return s
}

// Model is the main application model.
type Model struct {
	state    *State
	services Backend
	keymap   KeyMap
	styles   Styles

	// UI components
	spinner  spinner.Model
	help     help.Model
	quotaBar components.QuotaBar

	// Window dimensions
	width  int
	height int

	// UI state
	showHelp bool
	ready    bool

	// pendingDelete holds the account ID awaiting a second delete press.
	pendingDelete string
	loggingIn     bool

	// Service subscription
	eventChannel chan services.ServiceEvent
}

// NewModel initializes a new application model.
func NewModel(b Backend) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	return &Model{
		state:    NewState(),
		services: b,
		keymap:   DefaultKeyMap(),
		styles:   DefaultStyles(),
		spinner:  s,
		help:     help.New(),
		quotaBar: components.NewQuotaBar(),
	}
}

// GetState returns the shared application state.
func (m *Model) GetState() *State {
	return m.state
}

// Init initializes the model and returns initial commands.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		tickCmd(DefaultTickInterval),
	}
	if m.services != nil {
		cmds = append(cmds,
			loadAccountsCmd(m.services),
			appStatusCmd(m.services),
			subscribeToServicesCmd(m.services),
		)
	}
	return tea.Batch(cmds...)
}

// Update handles incoming messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if cmd := m.handleTeaMsg(msg); cmd != nil {
		return m, cmd
	}

	cmds := m.handleAppMsg(msg)
	return m, tea.Batch(cmds...)
}

func (m *Model) handleTeaMsg(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if cmd := m.handleKeyMsg(msg); cmd != nil {
			return cmd
		}
	case tea.WindowSizeMsg:
		m.handleWindowSize(msg)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) handleAppMsg(msg tea.Msg) []tea.Cmd {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case TickMsg:
		m.state.ClearExpiredNotifications()
		cmds = append(cmds, tickCmd(DefaultTickInterval))

	case SubscriptionEventMsg:
		m.eventChannel = msg.Channel
		cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))

	case ServiceEventMsg:
		cmds = append(cmds, m.handleServiceEvent(msg.Event))
		if m.eventChannel != nil {
			cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
		}

	case AccountsLoadedMsg:
		cmds = append(cmds, m.handleAccountsLoaded(msg))

	case HistoryLoadedMsg:
		if msg.Err != nil {
			cmds = append(cmds, notifyWarningCmd(fmt.Sprintf("History unavailable: %v", msg.Err)))
			break
		}
		m.state.SetHistory(msg)

	case AppStatusMsg:
		m.state.SetAppRunning(msg.Running)

	case CommandResultMsg:
		cmds = append(cmds, m.handleCommandResult(msg))

	case LoginResultMsg:
		cmds = append(cmds, m.handleLoginResult(msg))

	case DeleteResultMsg:
		if msg.Err != nil {
			cmds = append(cmds, notifyErrorCmd(fmt.Sprintf("Delete failed: %v", msg.Err)))
		} else {
			cmds = append(cmds, notifySuccessCmd(fmt.Sprintf("Removed %s", msg.Email)))
		}

	case AddNotificationMsg:
		id := m.state.AddNotification(msg.Type, msg.Message, msg.Duration)
		if msg.Duration > 0 {
			cmds = append(cmds, clearNotificationCmd(id, msg.Duration))
		}

	case RemoveNotificationMsg:
		m.state.RemoveNotification(msg.ID)
	}

	return cmds
}

func (m *Model) handleWindowSize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height
	m.help.Width = msg.Width
	m.ready = true
}

func (m *Model) handleAccountsLoaded(msg AccountsLoadedMsg) tea.Cmd {
	m.state.SetAccounts(msg.Accounts)
	return m.loadSelectedHistory()
}

func (m *Model) loadSelectedHistory() tea.Cmd {
	if m.services == nil {
		return nil
	}
	id := ""
	if sel := m.state.Selected(); sel != nil {
		id = sel.ID
	}
	return loadHistoryCmd(m.services, id, m.state.Window())
}

func (m *Model) handleCommandResult(msg CommandResultMsg) tea.Cmd {
	if msg.Err == nil {
		return nil
	}
	m.state.ClearLoadingNotification()
	switch {
	case errors.Is(msg.Err, switcher.ErrSwitchInProgress):
		return notifyWarningCmd("A switch is already running")
	case errors.Is(msg.Err, switcher.ErrNoAccounts):
		return notifyWarningCmd("No accounts. Press a to add one")
	default:
		return notifyErrorCmd(fmt.Sprintf("%s: %v", msg.Action, msg.Err))
	}
}

func (m *Model) handleLoginResult(msg LoginResultMsg) tea.Cmd {
	m.loggingIn = false
	m.state.ClearLoadingNotification()
	if msg.Err != nil {
		return notifyErrorCmd(fmt.Sprintf("Login failed: %v", msg.Err))
	}
	return tea.Batch(
		notifySuccessCmd(fmt.Sprintf("Added %s", msg.Account.Email)),
		loadAccountsCmd(m.services),
	)
}

// handleKeyMsg handles keyboard input.
func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keymap.ForceQuit) {
		return tea.Quit
	}

	if m.showHelp {
		if key.Matches(msg, m.keymap.Help, m.keymap.Escape, m.keymap.Quit) {
			m.showHelp = false
		}
		return nil
	}

	deleteArmed := m.pendingDelete
	m.pendingDelete = ""

	switch {
	case key.Matches(msg, m.keymap.Quit):
		return tea.Quit

	case key.Matches(msg, m.keymap.Help):
		m.showHelp = true

	case key.Matches(msg, m.keymap.Up):
		if m.state.MoveSelection(-1) {
			return m.loadSelectedHistory()
		}

	case key.Matches(msg, m.keymap.Down):
		if m.state.MoveSelection(1) {
			return m.loadSelectedHistory()
		}

	case key.Matches(msg, m.keymap.Window):
		w := m.state.CycleWindow()
		return tea.Batch(notifyInfoCmd("History window: "+w.String()), m.loadSelectedHistory())

	case m.services == nil:
		return nil

	case key.Matches(msg, m.keymap.Switch):
		sel := m.state.Selected()
		if sel == nil {
			return notifyWarningCmd("No accounts. Press a to add one")
		}
		if sel.IsActive {
			return notifyInfoCmd(sel.Email + " is already active")
		}
		id := sel.ID
		return submitCmd("Switch", func() error { return m.services.SwitchTo(id) })

	case key.Matches(msg, m.keymap.Next):
		return submitCmd("Switch", m.services.SwitchNext)

	case key.Matches(msg, m.keymap.Refresh):
		return submitCmd("Refresh", m.services.RefreshCurrent)

	case key.Matches(msg, m.keymap.Start):
		m.state.SetLoadingNotification("Starting Antigravity")
		return submitCmd("Start", m.services.StartApp)

	case key.Matches(msg, m.keymap.Stop):
		m.state.SetLoadingNotification("Stopping Antigravity")
		return submitCmd("Stop", m.services.StopApp)

	case key.Matches(msg, m.keymap.Login):
		if m.loggingIn {
			return nil
		}
		m.loggingIn = true
		m.state.SetLoadingNotification("Waiting for browser login")
		return loginCmd(m.services)

	case key.Matches(msg, m.keymap.Delete):
		sel := m.state.Selected()
		if sel == nil {
			return nil
		}
		if deleteArmed != sel.ID {
			m.pendingDelete = sel.ID
			return notifyWarningCmd(fmt.Sprintf("Press d again to delete %s", sel.Email))
		}
		return deleteAccountCmd(m.services, sel.ID, sel.Email)
	}

	return nil
}

func (m *Model) handleServiceEvent(event services.ServiceEvent) tea.Cmd {
	switch e := event.(type) {
	case services.AccountsChangedEvent:
		return loadAccountsCmd(m.services)

	case services.SwitchStartedEvent:
		m.state.SetSwitching(true, switcher.StageIdle)
		m.state.SetLoadingNotification("Switching account")

	case services.SwitchStageEvent:
		m.state.SetSwitching(true, e.Stage)
		m.state.SetLoadingNotification(stageMessage(e.Stage))

	case services.AccountSwitchedEvent:
		m.state.SetSwitching(false, switcher.StageDone)
		m.state.SetAppRunning(true)
		m.state.ClearLoadingNotification()
		cmds := []tea.Cmd{
			notifySuccessCmd("Switched to " + e.Email),
			loadAccountsCmd(m.services),
		}
		if e.RefreshErr != nil {
			cmds = append(cmds, notifyWarningCmd(fmt.Sprintf("Quota refresh failed: %v", e.RefreshErr)))
		}
		return tea.Batch(cmds...)

	case services.SwitchFailedEvent:
		m.state.SetSwitching(false, switcher.StageIdle)
		m.state.ClearLoadingNotification()
		return tea.Batch(
			notifyErrorCmd(e.Error.Error()),
			loadAccountsCmd(m.services),
			appStatusCmd(m.services),
		)

	case services.RefreshRequestedEvent:
		if switching, _ := m.state.Switching(); !switching {
			m.state.SetLoadingNotification("Refreshing quota")
		}

	case services.QuotaUpdatedEvent:
		if switching, _ := m.state.Switching(); !switching {
			m.state.ClearLoadingNotification()
		}
		return loadAccountsCmd(m.services)

	case services.AppStateEvent:
		m.state.ClearLoadingNotification()
		if e.Error != nil {
			return tea.Batch(notifyErrorCmd(e.Error.Error()), appStatusCmd(m.services))
		}
		m.state.SetAppRunning(e.Running)

	case services.ErrorEvent:
		if switching, _ := m.state.Switching(); !switching {
			m.state.ClearLoadingNotification()
		}
		return notifyErrorCmd(fmt.Sprintf("[%s] %v", e.Service, e.Error))
	}

	return nil
}

func stageMessage(s switcher.Stage) string {
	switch s {
	case switcher.StageStopping:
		return "Stopping Antigravity"
	case switcher.StageSwapping:
		return "Writing credentials"
	case switcher.StageStarting:
		return "Starting Antigravity"
	case switcher.StageRefreshing:
		return "Refreshing quota"
	default:
		return "Switching account"
	}
}

// activeEmail returns the active account's email or a placeholder.
func activeEmail(accounts []models.AccountWithQuota) string {
	for _, a := range accounts {
		if a.IsActive {
			return a.Email
		}
	}
	return "none"
}
