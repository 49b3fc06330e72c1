package scheduler

import (
	"testing"
	"time"

	"github.com/pagopa/payments-ClouDO-sub002/internal/domain"
)

func TestCalculateNextDue_UTC(t *testing.T) {
	sched := &domain.Schedule{
		CronExpr: "0 9 * * *",
		Timezone: "UTC",
	}

	from := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("calculate next due: %v", err)
	}

	want := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %s, got %s", want, next)
	}
}

func TestCalculateNextDue_Timezone(t *testing.T) {
	sched := &domain.Schedule{
		CronExpr: "0 9 * * *",
		Timezone: "Europe/Rome",
	}

	// 10:00 UTC = 12:00 CEST: ближайшие 09:00 по Риму — завтра,
	// то есть 07:00 UTC.
	from := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatal(err)
	}

	want := time.Date(2026, 8, 24, 7, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %s, got %s", want, next)
	}
	if next.Location() != time.UTC {
		t.Error("next due should be stored in UTC")
	}
}

func TestCalculateNextDue_InvalidTimezoneFallsBack(t *testing.T) {
	sched := &domain.Schedule{
		CronExpr: "*/5 * * * *",
		Timezone: "Mars/Olympus_Mons",
	}

	from := time.Date(2026, 8, 23, 10, 2, 0, 0, time.UTC)
	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("invalid timezone should fall back to UTC: %v", err)
	}

	want := time.Date(2026, 8, 23, 10, 5, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %s, got %s", want, next)
	}
}

func TestCalculateNextDue_InvalidExpr(t *testing.T) {
	sched := &domain.Schedule{CronExpr: "not a cron", Timezone: "UTC"}

	if _, err := CalculateNextDue(sched, time.Now()); err == nil {
		t.Fatal("invalid cron expression should fail")
	}
}

func TestValidateCronExpr(t *testing.T) {
	valid := []string{"* * * * *", "0 9 * * 1-5", "*/15 2,14 * * *"}
	for _, expr := range valid {
		if err := ValidateCronExpr(expr); err != nil {
			t.Errorf("expression %q should be valid: %v", expr, err)
		}
	}

	invalid := []string{"", "* * * *", "61 * * * *", "0 9 * * * *", "@reboot maybe"}
	for _, expr := range invalid {
		if err := ValidateCronExpr(expr); err == nil {
			t.Errorf("expression %q should be invalid", expr)
		}
	}
}
