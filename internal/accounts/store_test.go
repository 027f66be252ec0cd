package accounts

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/j-veylop/antigravity-switcher/internal/models"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	accountsPath := filepath.Join(t.TempDir(), "accounts.json")
	store, err := New(accountsPath)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Logf("Close() failed: %v", err)
		}
	})

	return store, accountsPath
}

func mustAdd(t *testing.T, s *Store, email string) models.Account {
	t.Helper()
	acc, err := s.Add(models.Account{Email: email, Token: models.NewTokenData("a-"+email, "r-"+email, 3600, email)})
	if err != nil {
		t.Fatalf("Add(%s) failed: %v", email, err)
	}
	return acc
}

func TestNew(t *testing.T) {
	store, accountsPath := newTestStore(t)

	if _, err := os.Stat(accountsPath); err != nil {
		t.Errorf("accounts file was not created: %v", err)
	}
	if store.Count() != 0 || store.Current() != nil {
		t.Error("new store should be empty with no current account")
	}

	if _, err := New(""); err == nil {
		t.Error("New(\"\") should fail")
	}
}

func TestNew_InvalidFile(t *testing.T) {
	accountsPath := filepath.Join(t.TempDir(), "accounts.json")
	if err := os.WriteFile(accountsPath, []byte("{broken"), 0o600); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	if _, err := New(accountsPath); err == nil {
		t.Error("New() should fail on a corrupt file")
	}
}

func TestAdd(t *testing.T) {
	store, _ := newTestStore(t)

	acc := mustAdd(t, store, "test@example.com")
	if acc.ID == "" {
		t.Error("Add() should assign an ID")
	}
	if acc.AddedAt.IsZero() {
		t.Error("Add() should set AddedAt")
	}
	if store.Current() != nil {
		t.Error("Add() should not make the account current")
	}

	got, err := store.Get(acc.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Email != "test@example.com" || got.Token.AccessToken != "a-test@example.com" {
		t.Errorf("Get() = %+v", got)
	}
}

func TestAdd_UpsertsByEmail(t *testing.T) {
	store, _ := newTestStore(t)
	first := mustAdd(t, store, "dup@example.com")

	again, err := store.Add(models.Account{
		Email: "DUP@example.com",
		Name:  "Dup",
		Token: models.NewTokenData("new-access", "new-refresh", 3600, ""),
	})
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	if again.ID != first.ID {
		t.Errorf("ID = %q, want existing %q", again.ID, first.ID)
	}
	if again.Token.RefreshToken != "new-refresh" || again.Name != "Dup" {
		t.Errorf("account not refreshed: %+v", again)
	}
	if store.Count() != 1 {
		t.Errorf("Count() = %d, want 1", store.Count())
	}
}

func TestAdd_EmailFromToken(t *testing.T) {
	store, _ := newTestStore(t)
	acc, err := store.Add(models.Account{Token: models.NewTokenData("a", "r", 60, "tok@example.com")})
	if err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if acc.Email != "tok@example.com" {
		t.Errorf("Email = %q, want the token email", acc.Email)
	}
}

func TestList_InsertionOrder(t *testing.T) {
	store, _ := newTestStore(t)
	for _, email := range []string{"c@x", "a@x", "b@x"} {
		mustAdd(t, store, email)
	}

	list := store.List()
	want := []string{"c@x", "a@x", "b@x"}
	for i, acc := range list {
		if acc.Email != want[i] {
			t.Errorf("List()[%d] = %s, want %s", i, acc.Email, want[i])
		}
	}

	// Copies: mutating the result does not touch the store
	list[0].Email = "changed"
	if store.List()[0].Email != "c@x" {
		t.Error("List() should return copies")
	}
}

func TestSetCurrent(t *testing.T) {
	store, _ := newTestStore(t)
	acc := mustAdd(t, store, "cur@example.com")

	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	if err := store.SetCurrent(acc.ID); err != nil {
		t.Fatalf("SetCurrent() failed: %v", err)
	}
	cur := store.Current()
	if cur == nil || cur.ID != acc.ID {
		t.Fatalf("Current() = %+v, want %s", cur, acc.ID)
	}
	if !cur.LastUsed.Equal(fixed) {
		t.Errorf("LastUsed = %v, want %v", cur.LastUsed, fixed)
	}
	if store.CurrentID() != acc.ID {
		t.Errorf("CurrentID() = %q", store.CurrentID())
	}

	if err := store.SetCurrent("missing"); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("SetCurrent(missing) error = %v, want ErrAccountNotFound", err)
	}
	if store.CurrentID() != acc.ID {
		t.Error("failed SetCurrent should not change the current account")
	}
}

func TestDelete(t *testing.T) {
	store, _ := newTestStore(t)
	a := mustAdd(t, store, "a@example.com")
	b := mustAdd(t, store, "b@example.com")
	if err := store.SetCurrent(a.ID); err != nil {
		t.Fatalf("SetCurrent() failed: %v", err)
	}

	if err := store.Delete(a.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if store.Current() != nil {
		t.Error("deleting the current account should clear it")
	}
	if store.Count() != 1 || store.List()[0].ID != b.ID {
		t.Errorf("List() = %+v", store.List())
	}

	if err := store.Delete("missing"); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("Delete(missing) error = %v, want ErrAccountNotFound", err)
	}
}

func TestUpdateTokenAndQuota(t *testing.T) {
	store, _ := newTestStore(t)
	acc := mustAdd(t, store, "u@example.com")

	fresh := models.NewTokenData("fresh", "r", 3600, "")
	if err := store.UpdateToken(acc.ID, fresh); err != nil {
		t.Fatalf("UpdateToken() failed: %v", err)
	}
	q := &models.Quota{Models: []models.ModelQuota{{Name: "gemini-3", Percentage: 80}}}
	if err := store.UpdateQuota(acc.ID, q); err != nil {
		t.Fatalf("UpdateQuota() failed: %v", err)
	}
	q.Models[0].Percentage = 1

	got, _ := store.Get(acc.ID)
	if got.Token.AccessToken != "fresh" || got.Token.Email != "u@example.com" {
		t.Errorf("Token = %+v", got.Token)
	}
	if got.Quota == nil || got.Quota.Models[0].Percentage != 80 {
		t.Errorf("Quota = %+v, want a private copy", got.Quota)
	}

	if err := store.UpdateQuota("missing", q); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("UpdateQuota(missing) error = %v", err)
	}
}

func TestPersistence(t *testing.T) {
	store, accountsPath := newTestStore(t)
	a := mustAdd(t, store, "p@example.com")
	if err := store.SetCurrent(a.ID); err != nil {
		t.Fatalf("SetCurrent() failed: %v", err)
	}

	reopened, err := New(accountsPath)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer reopened.Close()

	cur := reopened.Current()
	if cur == nil || cur.ID != a.ID || cur.Token.RefreshToken != "r-p@example.com" {
		t.Errorf("reloaded Current() = %+v", cur)
	}
}

func TestFileFormat(t *testing.T) {
	store, accountsPath := newTestStore(t)
	a := mustAdd(t, store, "f@example.com")
	if err := store.SetCurrent(a.ID); err != nil {
		t.Fatalf("SetCurrent() failed: %v", err)
	}

	data, err := os.ReadFile(accountsPath)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"version", "accounts", "currentAccountId"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("file is missing %q", key)
		}
	}

	info, err := os.Stat(accountsPath)
	if err != nil {
		t.Fatalf("Stat() failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 600", perm)
	}
}

func TestParseFile(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantCount int
		wantErr   bool
	}{
		{"Empty", "", 0, false},
		{"Current", `{"version":1,"accounts":[{"id":"1","email":"a@x"}],"currentAccountId":"1"}`, 1, false},
		{"LegacyArray", `[{"id":"1","email":"a@x"},{"id":"2","email":"b@x"}]`, 2, false},
		{"Invalid", `not json`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := parseFile([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseFile() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(f.Accounts) != tt.wantCount {
				t.Errorf("accounts = %d, want %d", len(f.Accounts), tt.wantCount)
			}
		})
	}
}

func TestLoad_DropsUnknownCurrent(t *testing.T) {
	accountsPath := filepath.Join(t.TempDir(), "accounts.json")
	content := `{"version":1,"accounts":[{"id":"1","email":"a@x"}],"currentAccountId":"ghost"}`
	if err := os.WriteFile(accountsPath, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	store, err := New(accountsPath)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer store.Close()

	if store.Current() != nil {
		t.Error("unknown currentAccountId should load as no current account")
	}
}

func TestEvents_AccountAdded(t *testing.T) {
	store, _ := newTestStore(t)
	if ev := <-store.Events(); ev.Type != EventAccountsLoaded {
		t.Fatalf("first event = %v, want EventAccountsLoaded", ev.Type)
	}

	mustAdd(t, store, "ev@example.com")
	select {
	case ev := <-store.Events():
		if ev.Type != EventAccountAdded || ev.Account == nil || ev.Account.Email != "ev@example.com" {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for EventAccountAdded")
	}
}

func TestWatchFileChange(t *testing.T) {
	store, accountsPath := newTestStore(t)
	<-store.Events()

	newContent := []byte(`{
		"version": 1,
		"accounts": [{"email": "watched@example.com", "id": "watched-1"}],
		"currentAccountId": "watched-1"
	}`)
	if err := os.WriteFile(accountsPath, newContent, 0o600); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	timeout := time.After(2 * time.Second)
	for done := false; !done; {
		select {
		case event := <-store.Events():
			done = event.Type == EventAccountsChanged
		case <-timeout:
			t.Fatal("timeout waiting for EventAccountsChanged")
		}
	}

	cur := store.Current()
	if cur == nil || cur.Email != "watched@example.com" {
		t.Errorf("Current() after reload = %+v", cur)
	}
}

func TestSendEvent_Full(t *testing.T) {
	store, _ := newTestStore(t)

	for i := 0; i < 110; i++ {
		store.sendEvent(Event{Type: EventAccountsChanged})
	}

	if len(store.Events()) != 100 {
		t.Errorf("expected 100 events, got %d", len(store.Events()))
	}
}

func TestClose_Twice(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "accounts.json"))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("second Close() failed: %v", err)
	}
}
