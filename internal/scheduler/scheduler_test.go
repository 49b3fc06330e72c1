package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pagopa/payments-ClouDO-sub002/internal/domain"
	"github.com/pagopa/payments-ClouDO-sub002/internal/gateway"
)

type fakeScheduleStore struct {
	schedules []domain.Schedule
	updated   []domain.Schedule
}

func (s *fakeScheduleStore) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Schedule, error) {
	var out []domain.Schedule
	for _, sched := range s.schedules {
		if sched.IsDue(now) {
			out = append(out, sched)
		}
	}
	return out, nil
}

func (s *fakeScheduleStore) Update(ctx context.Context, sched *domain.Schedule) error {
	s.updated = append(s.updated, *sched)
	return nil
}

type fakeGateway struct {
	submitted []domain.TriggerRequest
	exec      *domain.Execution
	err       error
}

func (g *fakeGateway) Submit(ctx context.Context, req domain.TriggerRequest) (*domain.Execution, error) {
	g.submitted = append(g.submitted, req)
	if g.err != nil {
		return g.exec, g.err
	}
	e := domain.NewExecution(domain.SchemaSnapshot{SchemaID: req.SchemaID}, req)
	return e, nil
}

func dueSchedule() domain.Schedule {
	due := time.Now().UTC().Add(-time.Minute)
	return domain.Schedule{
		ID:        uuid.New(),
		Name:      "nightly-restart",
		Partition: "default",
		SchemaID:  "restart-db",
		CronExpr:  "0 3 * * *",
		Timezone:  "UTC",
		Enabled:   true,
		NextDueAt: &due,
	}
}

func TestTick_SubmitsDueSchedules(t *testing.T) {
	store := &fakeScheduleStore{}
	gw := &fakeGateway{}

	sched := dueSchedule()
	due := *sched.NextDueAt
	store.schedules = []domain.Schedule{sched}

	s := New(Config{Store: store, Gateway: gw})
	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	if len(gw.submitted) != 1 {
		t.Fatalf("expected 1 trigger, got %d", len(gw.submitted))
	}
	req := gw.submitted[0]
	if req.Source != domain.SourceSchedule {
		t.Errorf("expected schedule source, got %s", req.Source)
	}
	if req.SchemaID != "restart-db" || req.RequestedBy != "scheduler" {
		t.Errorf("unexpected trigger request %+v", req)
	}
	if req.ScheduleID != sched.ID || req.DueUnix != due.Unix() {
		t.Error("trigger should carry schedule identity for idempotency")
	}

	if len(store.updated) != 1 {
		t.Fatalf("expected schedule update, got %d", len(store.updated))
	}
	upd := store.updated[0]
	if upd.NextDueAt == nil || !upd.NextDueAt.After(due) {
		t.Error("next_due_at should advance past the processed due time")
	}
	if upd.LastRunAt == nil || upd.LastExecID == nil {
		t.Error("run should be recorded on the schedule")
	}
}

func TestTick_NothingDue(t *testing.T) {
	future := time.Now().UTC().Add(time.Hour)
	sched := dueSchedule()
	sched.NextDueAt = &future

	store := &fakeScheduleStore{schedules: []domain.Schedule{sched}}
	gw := &fakeGateway{}

	s := New(Config{Store: store, Gateway: gw})
	if err := s.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(gw.submitted) != 0 {
		t.Error("nothing should be submitted")
	}
	if len(store.updated) != 0 {
		t.Error("nothing should be updated")
	}
}

func TestTick_DuplicateStillAdvances(t *testing.T) {
	sched := dueSchedule()
	store := &fakeScheduleStore{schedules: []domain.Schedule{sched}}

	existing := domain.NewExecution(domain.SchemaSnapshot{SchemaID: "restart-db"}, domain.TriggerRequest{Source: domain.SourceSchedule})
	gw := &fakeGateway{exec: existing, err: gateway.ErrDuplicateTrigger}

	s := New(Config{Store: store, Gateway: gw})
	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("duplicate trigger should not fail the tick: %v", err)
	}

	// failover лидера: момент уже обработан, но расписание сдвигается.
	if len(store.updated) != 1 {
		t.Fatalf("expected schedule update, got %d", len(store.updated))
	}
	upd := store.updated[0]
	if upd.LastExecID == nil || *upd.LastExecID != existing.ExecID {
		t.Error("last_exec_id should reference the existing execution")
	}
}

func TestTick_MissingSchemaAdvances(t *testing.T) {
	sched := dueSchedule()
	store := &fakeScheduleStore{schedules: []domain.Schedule{sched}}
	gw := &fakeGateway{err: gateway.ErrSchemaNotFound}

	s := New(Config{Store: store, Gateway: gw})
	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("missing schema should not fail the tick: %v", err)
	}

	// Расписание не застревает на удалённой схеме.
	if len(store.updated) != 1 {
		t.Fatalf("expected schedule update, got %d", len(store.updated))
	}
	if store.updated[0].NextDueAt == nil || !store.updated[0].NextDueAt.After(*sched.NextDueAt) {
		t.Error("next_due_at should advance")
	}
}

func TestTick_InvalidCronKeepsNextDue(t *testing.T) {
	sched := dueSchedule()
	sched.CronExpr = "not a cron"
	store := &fakeScheduleStore{schedules: []domain.Schedule{sched}}
	gw := &fakeGateway{}

	s := New(Config{Store: store, Gateway: gw})
	if err := s.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Execution создан, но расписание не обновлено: чинится оператором.
	if len(gw.submitted) != 1 {
		t.Error("trigger should still be submitted")
	}
	if len(store.updated) != 0 {
		t.Error("schedule with broken cron should not be updated")
	}
}
