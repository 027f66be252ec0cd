package app

import (
	"testing"
	"time"

	"github.com/j-veylop/antigravity-switcher/internal/models"
	"github.com/j-veylop/antigravity-switcher/internal/switcher"
)

func testAccounts(activeID string, ids ...string) []models.AccountWithQuota {
	out := make([]models.AccountWithQuota, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.AccountWithQuota{
			Account:  models.Account{ID: id, Email: id + "@example.com"},
			IsActive: id == activeID,
		})
	}
	return out
}

func TestNewState(t *testing.T) {
	s := NewState()
	if len(s.Accounts()) != 0 {
		t.Error("Accounts should be empty")
	}
	if s.Selected() != nil {
		t.Error("Selected should be nil without accounts")
	}
	if s.Window() != models.Window24Hours {
		t.Errorf("Window = %v, want 24h", s.Window())
	}
}

func TestState_SetAccounts_SelectsActive(t *testing.T) {
	s := NewState()
	s.SetAccounts(testAccounts("b", "a", "b", "c"))

	if got := s.SelectedIndex(); got != 1 {
		t.Errorf("SelectedIndex = %d, want 1", got)
	}
	if a := s.Active(); a == nil || a.ID != "b" {
		t.Errorf("Active = %+v, want b", a)
	}
}

func TestState_SetAccounts_KeepsCursor(t *testing.T) {
	s := NewState()
	s.SetAccounts(testAccounts("a", "a", "b", "c"))
	s.MoveSelection(2)

	// c moves to the front after a reload
	s.SetAccounts(testAccounts("a", "c", "a", "b"))
	if sel := s.Selected(); sel == nil || sel.ID != "c" {
		t.Errorf("Selected = %+v, want c", sel)
	}

	// c removed: falls back to the active account
	s.SetAccounts(testAccounts("b", "a", "b"))
	if sel := s.Selected(); sel == nil || sel.ID != "b" {
		t.Errorf("Selected = %+v, want b", sel)
	}
}

func TestState_MoveSelection(t *testing.T) {
	s := NewState()
	if s.MoveSelection(1) {
		t.Error("MoveSelection on empty list should not move")
	}

	s.SetAccounts(testAccounts("", "a", "b"))
	tests := []struct {
		delta int
		moved bool
		want  int
	}{
		{-1, false, 0},
		{1, true, 1},
		{1, false, 1},
		{5, false, 1},
		{-5, true, 0},
	}
	for _, tt := range tests {
		if got := s.MoveSelection(tt.delta); got != tt.moved {
			t.Errorf("MoveSelection(%d) = %v, want %v", tt.delta, got, tt.moved)
		}
		if got := s.SelectedIndex(); got != tt.want {
			t.Errorf("after MoveSelection(%d) index = %d, want %d", tt.delta, got, tt.want)
		}
	}
}

func TestState_Switching(t *testing.T) {
	s := NewState()
	s.SetSwitching(true, switcher.StageSwapping)
	switching, stage := s.Switching()
	if !switching || stage != switcher.StageSwapping {
		t.Errorf("Switching() = %v, %v", switching, stage)
	}
}

func TestState_SetHistory_IgnoresStale(t *testing.T) {
	s := NewState()
	s.SetAccounts(testAccounts("a", "a", "b"))
	snaps := []models.QuotaSnapshot{{AccountID: "a", Claude: 50, Gemini: 40}}

	if s.SetHistory(HistoryLoadedMsg{AccountID: "b", Window: models.Window24Hours, Snapshots: snaps}) {
		t.Error("history for an unselected account should be ignored")
	}
	if s.SetHistory(HistoryLoadedMsg{AccountID: "a", Window: models.Window7Days, Snapshots: snaps}) {
		t.Error("history for another window should be ignored")
	}
	if !s.SetHistory(HistoryLoadedMsg{
		AccountID: "a",
		Window:    models.Window24Hours,
		Snapshots: snaps,
		Switches:  []models.SwitchRecord{{ToID: "a", Success: true}},
	}) {
		t.Fatal("matching history should be stored")
	}

	if got := s.History("a"); len(got) != 1 {
		t.Errorf("History(a) = %v", got)
	}
	if got := s.History("b"); got != nil {
		t.Errorf("History(b) = %v, want nil", got)
	}
	if got := s.Switches(); len(got) != 1 {
		t.Errorf("Switches() = %v", got)
	}
}

func TestState_CycleWindow(t *testing.T) {
	s := NewState()
	want := []models.HistoryWindow{models.Window7Days, models.Window6Hours, models.Window24Hours}
	for _, w := range want {
		if got := s.CycleWindow(); got != w {
			t.Errorf("CycleWindow() = %v, want %v", got, w)
		}
	}
}

func TestState_Notifications(t *testing.T) {
	s := NewState()
	now := time.Now()
	s.now = func() time.Time { return now }

	id := s.AddNotification(NotificationSuccess, "done", time.Second)
	s.AddNotification(NotificationInfo, "sticky", 0)
	if got := len(s.Notifications()); got != 2 {
		t.Fatalf("Notifications() len = %d, want 2", got)
	}

	now = now.Add(2 * time.Second)
	if got := len(s.Notifications()); got != 1 {
		t.Errorf("expired notification still visible, len = %d", got)
	}
	s.ClearExpiredNotifications()
	s.RemoveNotification(id)
	if got := s.Notifications(); len(got) != 1 || got[0].Message != "sticky" {
		t.Errorf("Notifications() = %+v", got)
	}
}

func TestState_NotificationLimit(t *testing.T) {
	s := NewState()
	for range maxNotifications + 3 {
		s.AddNotification(NotificationInfo, "x", time.Minute)
	}
	if got := len(s.Notifications()); got != maxNotifications {
		t.Errorf("len = %d, want %d", got, maxNotifications)
	}
}

func TestState_LoadingNotification(t *testing.T) {
	s := NewState()
	s.SetLoadingNotification("one")
	s.SetLoadingNotification("two")

	got := s.Notifications()
	if len(got) != 1 || got[0].Message != "two" || got[0].Type != NotificationLoading {
		t.Fatalf("Notifications() = %+v", got)
	}

	s.ClearLoadingNotification()
	if len(s.Notifications()) != 0 {
		t.Error("loading notification should be cleared")
	}
}

func TestNotificationType_String(t *testing.T) {
	tests := []struct {
		typ  NotificationType
		want string
	}{
		{NotificationSuccess, "success"},
		{NotificationError, "error"},
		{NotificationWarning, "warning"},
		{NotificationInfo, "info"},
		{NotificationLoading, "loading"},
		{NotificationType(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
