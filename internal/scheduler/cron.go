package scheduler

import (
	"fmt"
	"time"

	"github.com/pagopa/payments-ClouDO-sub002/internal/domain"
	"github.com/robfig/cron/v3"
)

// cronParser — парсер cron-выражений (5 полей, без секунд).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// CalculateNextDue вычисляет следующее время запуска расписания.
// Учитывает timezone расписания; невалидный timezone — fallback на UTC.
func CalculateNextDue(sched *domain.Schedule, from time.Time) (time.Time, error) {
	loc, err := time.LoadLocation(sched.Timezone)
	if err != nil {
		loc = time.UTC
	}

	schedule, err := cronParser.Parse(sched.CronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", sched.CronExpr, err)
	}

	// Время в БД хранится в UTC
	return schedule.Next(from.In(loc)).UTC(), nil
}

// ValidateCronExpr проверяет валидность cron-выражения.
func ValidateCronExpr(cronExpr string) error {
	_, err := cronParser.Parse(cronExpr)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}
	return nil
}
