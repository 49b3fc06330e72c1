package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pagopa/payments-ClouDO-sub002/internal/domain"
	"github.com/pagopa/payments-ClouDO-sub002/internal/repo"
)

type fakeStore struct {
	appended  []domain.AuditEntry
	lastQuery repo.AuditFilter
}

func (s *fakeStore) Append(ctx context.Context, e *domain.AuditEntry) error {
	s.appended = append(s.appended, *e)
	return nil
}

func (s *fakeStore) Query(ctx context.Context, f repo.AuditFilter) ([]domain.AuditEntry, error) {
	s.lastQuery = f
	return nil, nil
}

func (s *fakeStore) ListByExec(ctx context.Context, execID uuid.UUID) ([]domain.AuditEntry, error) {
	return nil, nil
}

func TestRecord_FillsDefaults(t *testing.T) {
	store := &fakeStore{}
	l := NewLog(store, nil)

	if err := l.Record(context.Background(), domain.AuditEntry{
		Operator: "alice",
		Action:   domain.ActionTrigger,
	}); err != nil {
		t.Fatalf("record: %v", err)
	}

	e := store.appended[0]
	if e.Timestamp.IsZero() {
		t.Error("timestamp should be filled")
	}
	if e.PartitionKey != domain.DayPartition(e.Timestamp) {
		t.Errorf("partition should match timestamp day, got %q", e.PartitionKey)
	}
	if e.RowKey == uuid.Nil {
		t.Error("row key should be generated")
	}
}

func TestRecord_KeepsExplicitPartition(t *testing.T) {
	store := &fakeStore{}
	l := NewLog(store, nil)

	ts := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	if err := l.Record(context.Background(), domain.AuditEntry{
		Operator:     "alice",
		Action:       domain.ActionTrigger,
		Timestamp:    ts,
		PartitionKey: "20260820",
	}); err != nil {
		t.Fatal(err)
	}

	if store.appended[0].PartitionKey != "20260820" {
		t.Errorf("explicit partition should be kept, got %q", store.appended[0].PartitionKey)
	}
}

func TestQuery_ClampsLimit(t *testing.T) {
	store := &fakeStore{}
	l := NewLog(store, nil)

	cases := []struct {
		limit int
		want  int
	}{
		{0, 200},
		{-5, 200},
		{100, 100},
		{9999, 5000},
	}
	for _, c := range cases {
		if _, err := l.Query(context.Background(), QueryFilter{Limit: c.limit}); err != nil {
			t.Fatal(err)
		}
		if store.lastQuery.Limit != c.want {
			t.Errorf("limit %d should clamp to %d, got %d", c.limit, c.want, store.lastQuery.Limit)
		}
	}
}

func TestQuery_PassesFilter(t *testing.T) {
	store := &fakeStore{}
	l := NewLog(store, nil)

	execID := uuid.New()
	if _, err := l.Query(context.Background(), QueryFilter{
		Day:      "20260823",
		ExecID:   &execID,
		Action:   domain.ActionEscalate,
		Operator: "escalation",
	}); err != nil {
		t.Fatal(err)
	}

	f := store.lastQuery
	if f.Day != "20260823" || f.Action != domain.ActionEscalate || f.Operator != "escalation" {
		t.Errorf("filter fields should pass through: %+v", f)
	}
	if f.ExecID == nil || *f.ExecID != execID {
		t.Error("exec_id filter should pass through")
	}
}
