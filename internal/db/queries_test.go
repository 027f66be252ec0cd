package db

import (
	"testing"
	"time"

	"github.com/j-veylop/antigravity-switcher/internal/models"
)

func TestRecordSwitch(t *testing.T) {
	db := newTestDB(t)

	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	ok := &models.SwitchRecord{
		Timestamp: base,
		FromID:    "a",
		ToID:      "b",
		ToEmail:   "b@example.com",
		Success:   true,
	}
	if err := db.RecordSwitch(ok); err != nil {
		t.Fatalf("RecordSwitch() failed: %v", err)
	}
	if ok.ID == 0 {
		t.Error("RecordSwitch() should set ID")
	}

	failed := &models.SwitchRecord{
		Timestamp: base.Add(time.Minute),
		ToID:      "c",
		Stage:     "stopping",
		Error:     "timed out",
	}
	if err := db.RecordSwitch(failed); err != nil {
		t.Fatalf("RecordSwitch() failed: %v", err)
	}

	got, err := db.RecentSwitches(10)
	if err != nil {
		t.Fatalf("RecentSwitches() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("RecentSwitches() returned %d records, want 2", len(got))
	}

	if got[0].ToID != "c" || got[0].Success || got[0].Stage != "stopping" || got[0].Error != "timed out" {
		t.Errorf("newest record = %+v", got[0])
	}
	if got[0].FromID != "" {
		t.Errorf("FromID = %q, want empty", got[0].FromID)
	}
	if got[1].ToID != "b" || !got[1].Success || got[1].ToEmail != "b@example.com" {
		t.Errorf("older record = %+v", got[1])
	}
	if !got[1].Timestamp.Equal(base) {
		t.Errorf("Timestamp = %v, want %v", got[1].Timestamp, base)
	}
}

func TestRecentSwitches_Limit(t *testing.T) {
	db := newTestDB(t)

	for i := range 5 {
		rec := &models.SwitchRecord{Timestamp: time.Now().Add(time.Duration(i) * time.Second), ToID: "x", Success: true}
		if err := db.RecordSwitch(rec); err != nil {
			t.Fatalf("RecordSwitch() failed: %v", err)
		}
	}

	got, err := db.RecentSwitches(3)
	if err != nil {
		t.Fatalf("RecentSwitches() failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("RecentSwitches(3) returned %d records", len(got))
	}
}

func TestQuotaHistory(t *testing.T) {
	db := newTestDB(t)

	now := time.Now().Truncate(time.Second)
	snapshots := []*models.QuotaSnapshot{
		{Timestamp: now.Add(-48 * time.Hour), AccountID: "a", Gemini: 100, Claude: 100},
		{Timestamp: now.Add(-2 * time.Hour), AccountID: "a", Email: "a@example.com", Gemini: 80, Claude: 60},
		{Timestamp: now.Add(-time.Hour), AccountID: "a", Gemini: 70, Claude: -1},
		{Timestamp: now.Add(-time.Hour), AccountID: "b", Forbidden: true, Gemini: -1, Claude: -1},
	}
	for _, s := range snapshots {
		if err := db.RecordQuota(s); err != nil {
			t.Fatalf("RecordQuota() failed: %v", err)
		}
	}

	got, err := db.QuotaHistory("a", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("QuotaHistory() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("QuotaHistory() returned %d snapshots, want 2", len(got))
	}
	if got[0].Gemini != 80 || got[0].Claude != 60 || got[0].Email != "a@example.com" {
		t.Errorf("first snapshot = %+v", got[0])
	}
	if got[1].Claude != -1 {
		t.Errorf("missing family should stay -1, got %d", got[1].Claude)
	}

	other, err := db.QuotaHistory("b", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("QuotaHistory() failed: %v", err)
	}
	if len(other) != 1 || !other[0].Forbidden {
		t.Errorf("QuotaHistory(b) = %+v", other)
	}
}

func TestPrune(t *testing.T) {
	db := newTestDB(t)

	now := time.Now()
	old := now.Add(-40 * 24 * time.Hour)
	_ = db.RecordSwitch(&models.SwitchRecord{Timestamp: old, ToID: "a"})
	_ = db.RecordSwitch(&models.SwitchRecord{Timestamp: now, ToID: "b"})
	_ = db.RecordQuota(&models.QuotaSnapshot{Timestamp: old, AccountID: "a"})

	n, err := db.Prune(now.Add(-30 * 24 * time.Hour))
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Prune() removed %d rows, want 2", n)
	}

	left, _ := db.RecentSwitches(10)
	if len(left) != 1 || left[0].ToID != "b" {
		t.Errorf("remaining switches = %+v", left)
	}
}
