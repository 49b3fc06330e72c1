package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testSnapshot() SchemaSnapshot {
	return SchemaSnapshot{
		Partition: "default",
		SchemaID:  "restart-payments",
		Name:      "Restart payments service",
		Runbook:   "restart.sh",
		Worker:    "linux-pool",
	}
}

func TestNewExecution_Manual(t *testing.T) {
	e := NewExecution(testSnapshot(), TriggerRequest{
		SchemaID:    "restart-payments",
		Source:      SourceManual,
		RequestedBy: "alice",
	})

	if e.Status != StatusPending {
		t.Errorf("expected pending, got %s", e.Status)
	}
	if e.ExecID == uuid.Nil {
		t.Error("exec_id should be set")
	}
	if e.IdempotencyKey != "" {
		t.Errorf("manual execution should have no idempotency key, got %q", e.IdempotencyKey)
	}
	if e.ScheduleID != nil {
		t.Error("manual execution should have no schedule_id")
	}
	if e.RequestedAt.IsZero() {
		t.Error("requested_at should be set")
	}
}

func TestNewExecution_Scheduled(t *testing.T) {
	scheduleID := uuid.New()
	due := time.Date(2026, 8, 23, 9, 0, 0, 0, time.UTC)

	e := NewExecution(testSnapshot(), TriggerRequest{
		SchemaID:   "restart-payments",
		Source:     SourceSchedule,
		ScheduleID: scheduleID,
		DueUnix:    due.Unix(),
	})

	want := fmt.Sprintf("%s_%d", scheduleID, due.Unix())
	if e.IdempotencyKey != want {
		t.Errorf("expected idempotency key %q, got %q", want, e.IdempotencyKey)
	}
	if e.ScheduleID == nil || *e.ScheduleID != scheduleID {
		t.Error("schedule_id should be set")
	}
}

func TestTriggerRequestIdempotencyKey_NonScheduled(t *testing.T) {
	req := TriggerRequest{Source: SourceManual, ScheduleID: uuid.New(), DueUnix: 100}
	if key := req.IdempotencyKey(); key != "" {
		t.Errorf("manual request should have empty key, got %q", key)
	}
}

func TestExecutionTransition_SetsTimestamps(t *testing.T) {
	e := NewExecution(testSnapshot(), TriggerRequest{Source: SourceManual})

	steps := []ExecStatus{StatusAccepted, StatusRouted, StatusRunning}
	for _, next := range steps {
		if err := e.Transition(next); err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
	}

	if e.StartedAt == nil {
		t.Error("started_at should be set on running")
	}
	if e.CompletedAt != nil {
		t.Error("completed_at should not be set yet")
	}

	if err := e.Transition(StatusSucceeded); err != nil {
		t.Fatalf("transition to succeeded: %v", err)
	}
	if e.CompletedAt == nil {
		t.Error("completed_at should be set on terminal status")
	}
	if !e.IsFinished() {
		t.Error("execution should be finished")
	}
}

func TestExecutionTransition_Invalid(t *testing.T) {
	e := NewExecution(testSnapshot(), TriggerRequest{Source: SourceManual})

	err := e.Transition(StatusRunning)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	// Статус не изменился
	if e.Status != StatusPending {
		t.Errorf("status should stay pending, got %s", e.Status)
	}
}

func TestMarkRouted(t *testing.T) {
	e := NewExecution(testSnapshot(), TriggerRequest{Source: SourceManual})
	if err := e.Transition(StatusAccepted); err != nil {
		t.Fatal(err)
	}

	if err := e.MarkRouted("worker-1"); err != nil {
		t.Fatalf("mark routed: %v", err)
	}
	if e.Status != StatusRouted {
		t.Errorf("expected routed, got %s", e.Status)
	}
	if e.RoutedWorker != "worker-1" {
		t.Errorf("expected worker-1, got %q", e.RoutedWorker)
	}

	// Повторная маршрутизация недопустима
	if err := e.MarkRouted("worker-2"); err == nil {
		t.Error("second MarkRouted should fail")
	}
	if e.RoutedWorker != "worker-1" {
		t.Error("routed worker should not change on failed transition")
	}
}

func TestExecutionDuration(t *testing.T) {
	e := NewExecution(testSnapshot(), TriggerRequest{Source: SourceManual})
	if e.Duration() != 0 {
		t.Error("unfinished execution has zero duration")
	}

	start := time.Now().UTC().Add(-3 * time.Minute)
	end := start.Add(2 * time.Minute)
	e.StartedAt = &start
	e.CompletedAt = &end

	if e.Duration() != 2*time.Minute {
		t.Errorf("expected 2m, got %s", e.Duration())
	}
}
