//go:build tray

package tray

import (
	"context"
	"time"

	"fyne.io/systray"

	"github.com/j-veylop/antigravity-switcher/internal/logger"
	"github.com/j-veylop/antigravity-switcher/internal/services"
)

const statusPollInterval = 30 * time.Second

type trayApp struct {
	mgr *services.Manager

	mAccount *systray.MenuItem
	mQuota   *systray.MenuItem
	mNext    *systray.MenuItem
	mRefresh *systray.MenuItem
	mApp     *systray.MenuItem
	mQuit    *systray.MenuItem

	running bool
	done    chan struct{}
}

// Run shows the tray icon and blocks until the user quits.
func Run(mgr *services.Manager) error {
	t := &trayApp{mgr: mgr, done: make(chan struct{})}
	systray.Run(t.onReady, t.onExit)
	return nil
}

func (t *trayApp) onReady() {
	systray.SetIcon(Icon(LevelUnknown))
	systray.SetTooltip("Antigravity Switcher")

	t.mAccount = systray.AddMenuItem("No active account", "")
	t.mAccount.Disable()
	t.mQuota = systray.AddMenuItem("Quota: unknown", "")
	t.mQuota.Disable()
	systray.AddSeparator()
	t.mNext = systray.AddMenuItem("Switch to next account", "Stop the app, swap credentials and restart it")
	t.mRefresh = systray.AddMenuItem("Refresh quota", "Fetch quota for the current account")
	t.mApp = systray.AddMenuItem("Start Antigravity", "")
	systray.AddSeparator()
	t.mQuit = systray.AddMenuItem("Quit", "")

	t.running = t.probeRunning()
	t.render()

	events, _ := t.mgr.Subscribe()
	go t.loop(events)
}

func (t *trayApp) onExit() {
	close(t.done)
}

func (t *trayApp) loop(events chan services.ServiceEvent) {
	defer t.mgr.Unsubscribe(events)

	ticker := time.NewTicker(statusPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-t.mQuit.ClickedCh:
			systray.Quit()
			return
		case <-t.mNext.ClickedCh:
			t.submit("switch next", t.mgr.SwitchNext)
		case <-t.mRefresh.ClickedCh:
			t.submit("refresh", t.mgr.RefreshCurrent)
		case <-t.mApp.ClickedCh:
			if t.running {
				t.submit("stop app", t.mgr.StopApp)
			} else {
				t.submit("start app", t.mgr.StartApp)
			}
		case <-ticker.C:
			t.running = t.probeRunning()
			t.render()
		case event, ok := <-events:
			if !ok {
				return
			}
			t.handleEvent(event)
		}
	}
}

func (t *trayApp) handleEvent(event services.ServiceEvent) {
	switch e := event.(type) {
	case services.SwitchStartedEvent:
		t.mNext.Disable()
		t.mApp.Disable()
		systray.SetTooltip("Switching account...")
		return
	case services.SwitchStageEvent:
		systray.SetTooltip("Switching: " + e.Stage.String())
		return
	case services.AccountSwitchedEvent:
		t.running = true
	case services.SwitchFailedEvent:
		t.running = t.probeRunning()
	case services.AppStateEvent:
		if e.Error == nil {
			t.running = e.Running
		} else {
			t.running = t.probeRunning()
		}
	case services.AccountsChangedEvent, services.QuotaUpdatedEvent:
	default:
		return
	}
	t.mNext.Enable()
	t.mApp.Enable()
	t.render()
}

func (t *trayApp) render() {
	ms := BuildMenuState(t.mgr.GetAccountsWithQuota(), t.running)

	systray.SetIcon(Icon(ms.Level))
	systray.SetTitle(ms.Title)
	systray.SetTooltip(ms.Tooltip)
	t.mAccount.SetTitle(ms.Account)
	t.mQuota.SetTitle(ms.Quota)
	t.mApp.SetTitle(ms.AppItem)
}

func (t *trayApp) submit(action string, fn func() error) {
	if err := fn(); err != nil {
		logger.Warn("Tray action rejected", "action", action, "error", err)
	}
}

func (t *trayApp) probeRunning() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return t.mgr.AppRunning(ctx)
}
