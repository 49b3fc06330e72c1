package domain

import (
	"errors"
	"testing"
	"time"
)

func TestSchemaNormalize(t *testing.T) {
	s := RunbookSchema{
		Partition: "  ",
		ID:        " restart-db ",
		Runbook:   " restart_db.sh ",
		Worker:    " linux-pool ",
	}
	s.Normalize()

	if s.Partition != "default" {
		t.Errorf("empty partition should default, got %q", s.Partition)
	}
	if s.ID != "restart-db" || s.Runbook != "restart_db.sh" || s.Worker != "linux-pool" {
		t.Errorf("fields should be trimmed: %+v", s)
	}
}

func TestSchemaValidate(t *testing.T) {
	valid := RunbookSchema{ID: "a", Runbook: "a.sh", Worker: "pool"}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid schema: %v", err)
	}

	cases := []struct {
		schema RunbookSchema
		want   error
	}{
		{RunbookSchema{Runbook: "a.sh", Worker: "p"}, ErrSchemaIDRequired},
		{RunbookSchema{ID: "a", Worker: "p"}, ErrSchemaRunbookRequired},
		{RunbookSchema{ID: "a", Runbook: "a.sh"}, ErrSchemaWorkerRequired},
	}
	for _, c := range cases {
		if err := c.schema.Validate(); !errors.Is(err, c.want) {
			t.Errorf("expected %v, got %v", c.want, err)
		}
	}
}

func TestSchemaSnapshot_Immutable(t *testing.T) {
	s := RunbookSchema{
		Partition:       "default",
		ID:              "clear-cache",
		Runbook:         "clear_cache.sh",
		Worker:          "linux-pool",
		RequireApproval: true,
	}

	snap := s.Snapshot()

	// Правка реестра не влияет на снимок
	s.Runbook = "other.sh"
	s.RequireApproval = false

	if snap.Runbook != "clear_cache.sh" {
		t.Errorf("snapshot runbook changed: %q", snap.Runbook)
	}
	if !snap.RequireApproval {
		t.Error("snapshot require_approval changed")
	}
	if snap.SchemaID != "clear-cache" {
		t.Errorf("expected schema_id clear-cache, got %q", snap.SchemaID)
	}
}

func TestWorkerHasCapability(t *testing.T) {
	w := Worker{
		WorkerID:     "host-1",
		Pool:         "linux-pool",
		Capabilities: []string{"db", "network"},
	}

	for _, c := range []string{"host-1", "linux-pool", "db", "network"} {
		if !w.HasCapability(c) {
			t.Errorf("worker should have capability %q", c)
		}
	}
	if w.HasCapability("windows-pool") {
		t.Error("worker should not have capability windows-pool")
	}
	if w.HasCapability("") {
		t.Error("empty capability never matches")
	}
}

func TestWorkerIsAlive(t *testing.T) {
	now := time.Now().UTC()
	w := Worker{LastHeartbeat: now.Add(-60 * time.Second)}

	if !w.IsAlive(now, 90*time.Second) {
		t.Error("heartbeat within timeout should be alive")
	}
	if w.IsAlive(now, 30*time.Second) {
		t.Error("heartbeat outside timeout should be dead")
	}

	var fresh Worker
	if fresh.IsAlive(now, 90*time.Second) {
		t.Error("worker without heartbeat is not alive")
	}
}

func TestDayPartition(t *testing.T) {
	moment := time.Date(2026, 8, 23, 23, 59, 0, 0, time.FixedZone("CET", 3600))
	// 23:59 CET = 22:59 UTC того же дня
	if got := DayPartition(moment); got != "20260823" {
		t.Errorf("expected 20260823, got %s", got)
	}
}

func TestScheduleIsDue(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	s := Schedule{Enabled: true, NextDueAt: &past}
	if !s.IsDue(now) {
		t.Error("past next_due_at should be due")
	}

	s.NextDueAt = &future
	if s.IsDue(now) {
		t.Error("future next_due_at should not be due")
	}

	s.NextDueAt = &past
	s.Enabled = false
	if s.IsDue(now) {
		t.Error("disabled schedule is never due")
	}

	s.Enabled = true
	s.NextDueAt = nil
	if s.IsDue(now) {
		t.Error("schedule without next_due_at is never due")
	}
}
