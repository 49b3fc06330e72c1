package escalation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pagopa/payments-ClouDO-sub002/internal/domain"
)

type fakePager struct {
	alerts []Alert
	err    error
}

func (p *fakePager) Page(ctx context.Context, alert Alert) error {
	if p.err != nil {
		return p.err
	}
	p.alerts = append(p.alerts, alert)
	return nil
}

type fakeDedup struct {
	marked map[uuid.UUID]bool
}

func newFakeDedup() *fakeDedup {
	return &fakeDedup{marked: make(map[uuid.UUID]bool)}
}

func (d *fakeDedup) MarkEscalated(ctx context.Context, execID uuid.UUID, alias string, at time.Time) (bool, error) {
	if d.marked[execID] {
		return false, nil
	}
	d.marked[execID] = true
	return true, nil
}

type fakeAudit struct {
	entries []domain.AuditEntry
}

func (a *fakeAudit) Append(ctx context.Context, e *domain.AuditEntry) error {
	a.entries = append(a.entries, *e)
	return nil
}

type fakeNotifier struct {
	notified []*domain.Execution
}

func (n *fakeNotifier) NotifyFailure(ctx context.Context, e *domain.Execution) error {
	n.notified = append(n.notified, e)
	return nil
}

func failedExec(oncall bool, severity string) *domain.Execution {
	e := domain.NewExecution(domain.SchemaSnapshot{
		Partition: "default",
		SchemaID:  "restart-db",
		Runbook:   "restart_db.sh",
		Worker:    "linux-pool",
		Oncall:    oncall,
	}, domain.TriggerRequest{Source: domain.SourceAlert, Severity: severity})
	e.Status = domain.StatusFailed
	e.Severity = severity
	e.Error = "exit status 1"
	return e
}

func TestEscalate_PagesOncallFailure(t *testing.T) {
	pager := &fakePager{}
	audit := &fakeAudit{}
	m := New(Config{Pager: pager, Dedup: newFakeDedup(), Audit: audit})

	e := failedExec(true, "Sev2")
	if err := m.Escalate(context.Background(), e); err != nil {
		t.Fatalf("escalate: %v", err)
	}

	if len(pager.alerts) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pager.alerts))
	}
	alert := pager.alerts[0]
	if alert.Alias != e.ExecID.String() {
		t.Errorf("alias should be exec_id, got %q", alert.Alias)
	}
	if alert.Priority != "P2" {
		t.Errorf("Sev2 should map to P2, got %s", alert.Priority)
	}

	if len(audit.entries) != 1 || audit.entries[0].Action != domain.ActionEscalate {
		t.Error("escalation should record an ESCALATE audit entry")
	}
}

func TestEscalate_SkipsNonFailure(t *testing.T) {
	pager := &fakePager{}
	m := New(Config{Pager: pager, Dedup: newFakeDedup(), Audit: &fakeAudit{}})

	e := failedExec(true, "Sev1")
	e.Status = domain.StatusSucceeded

	if err := m.Escalate(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	if len(pager.alerts) != 0 {
		t.Error("succeeded execution should not page")
	}
}

func TestEscalate_SkipsNonOncall(t *testing.T) {
	pager := &fakePager{}
	notifier := &fakeNotifier{}
	m := New(Config{Pager: pager, Dedup: newFakeDedup(), Audit: &fakeAudit{}, Notifier: notifier})

	e := failedExec(false, "Sev1")
	if err := m.Escalate(context.Background(), e); err != nil {
		t.Fatal(err)
	}

	if len(pager.alerts) != 0 {
		t.Error("non-oncall schema should not page")
	}
	// Slack-уведомление о неуспехе уходит независимо от oncall.
	if len(notifier.notified) != 1 {
		t.Error("failure notification should still be sent")
	}
}

func TestEscalate_AtMostOnce(t *testing.T) {
	pager := &fakePager{}
	m := New(Config{Pager: pager, Dedup: newFakeDedup(), Audit: &fakeAudit{}})

	e := failedExec(true, "Sev1")
	if err := m.Escalate(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	// Повторная доставка terminal-события.
	if err := m.Escalate(context.Background(), e); err != nil {
		t.Fatal(err)
	}

	if len(pager.alerts) != 1 {
		t.Errorf("expected single page, got %d", len(pager.alerts))
	}
}

func TestEscalate_NoPagerConfigured(t *testing.T) {
	dedup := newFakeDedup()
	m := New(Config{Dedup: dedup, Audit: &fakeAudit{}})

	e := failedExec(true, "Sev1")
	if err := m.Escalate(context.Background(), e); err != nil {
		t.Fatalf("escalate without pager: %v", err)
	}

	// Барьер не взят: после рестарта с настроенным pager'ом
	// повторная доставка события всё ещё может запейджить.
	if len(dedup.marked) != 0 {
		t.Error("skipped escalation should not consume the dedup barrier")
	}
}

func TestEscalate_PagerError(t *testing.T) {
	pagerErr := errors.New("opsgenie: 503")
	pager := &fakePager{err: pagerErr}
	audit := &fakeAudit{}
	m := New(Config{Pager: pager, Dedup: newFakeDedup(), Audit: audit})

	e := failedExec(true, "Sev1")
	if err := m.Escalate(context.Background(), e); !errors.Is(err, pagerErr) {
		t.Fatalf("expected pager error, got %v", err)
	}
	if len(audit.entries) != 0 {
		t.Error("failed page should not record audit")
	}
}

func TestPriorityFor(t *testing.T) {
	cases := []struct {
		severity string
		want     string
	}{
		{"Sev0", "P1"},
		{"Sev1", "P1"},
		{"Sev2", "P2"},
		{"Sev3", "P3"},
		{"", "P3"},
		{"unknown", "P3"},
	}
	for _, c := range cases {
		if got := priorityFor(c.severity); got != c.want {
			t.Errorf("priorityFor(%q) = %s, want %s", c.severity, got, c.want)
		}
	}
}
