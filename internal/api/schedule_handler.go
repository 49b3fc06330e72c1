package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pagopa/payments-ClouDO-sub002/internal/domain"
	"github.com/pagopa/payments-ClouDO-sub002/internal/scheduler"
)

// ListSchedules обрабатывает GET /api/v1/schedules.
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.schedules.List(r.Context())
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	List(w, schedules, len(schedules))
}

// CreateSchedule обрабатывает POST /api/v1/schedules.
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var sched domain.Schedule
	if err := json.NewDecoder(r.Body).Decode(&sched); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return
	}

	if !h.validateSchedule(w, &sched) {
		return
	}

	now := time.Now().UTC()
	sched.ID = uuid.New()
	sched.CreatedAt = now
	sched.UpdatedAt = now

	if sched.Enabled {
		nextDue, err := scheduler.CalculateNextDue(&sched, now)
		if err != nil {
			BadRequest(w, "invalid cron expression: "+err.Error())
			return
		}
		sched.NextDueAt = &nextDue
	}

	if err := h.schedules.Create(r.Context(), &sched); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	h.logger.Info("schedule created",
		"schedule_id", sched.ID,
		"schema_id", sched.SchemaID,
		"cron_expr", sched.CronExpr,
	)
	Created(w, sched)
}

// GetSchedule обрабатывает GET /api/v1/schedules/{id}.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseScheduleID(w, r)
	if !ok {
		return
	}

	sched, err := h.schedules.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}

	Success(w, sched)
}

// UpdateSchedule обрабатывает PUT /api/v1/schedules/{id}.
// Полностью замещает определение расписания и пересчитывает
// следующее плановое время.
func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseScheduleID(w, r)
	if !ok {
		return
	}

	existing, err := h.schedules.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}

	var sched domain.Schedule
	if err := json.NewDecoder(r.Body).Decode(&sched); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return
	}

	if !h.validateSchedule(w, &sched) {
		return
	}

	now := time.Now().UTC()
	sched.ID = existing.ID
	sched.CreatedAt = existing.CreatedAt
	sched.LastRunAt = existing.LastRunAt
	sched.LastExecID = existing.LastExecID
	sched.UpdatedAt = now

	sched.NextDueAt = nil
	if sched.Enabled {
		nextDue, err := scheduler.CalculateNextDue(&sched, now)
		if err != nil {
			BadRequest(w, "invalid cron expression: "+err.Error())
			return
		}
		sched.NextDueAt = &nextDue
	}

	if err := h.schedules.Update(r.Context(), &sched); err != nil {
		if HandleRepoError(w, h.logger, err, "schedule not found") {
			return
		}
	}

	h.logger.Info("schedule updated", "schedule_id", sched.ID)
	Success(w, sched)
}

// DeleteSchedule обрабатывает DELETE /api/v1/schedules/{id}.
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseScheduleID(w, r)
	if !ok {
		return
	}

	if err := h.schedules.Delete(r.Context(), id); err != nil {
		if HandleRepoError(w, h.logger, err, "schedule not found") {
			return
		}
	}

	h.logger.Info("schedule deleted", "schedule_id", id)
	NoContent(w)
}

// SetScheduleEnabled обрабатывает PUT /api/v1/schedules/{id}/enabled.
func (h *Handler) SetScheduleEnabled(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseScheduleID(w, r)
	if !ok {
		return
	}

	var req ScheduleEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return
	}

	sched, err := h.schedules.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "schedule not found") {
		return
	}

	now := time.Now().UTC()
	sched.Enabled = req.Enabled
	sched.UpdatedAt = now

	sched.NextDueAt = nil
	if sched.Enabled {
		nextDue, err := scheduler.CalculateNextDue(sched, now)
		if err != nil {
			InvalidState(w, "invalid cron expression: "+err.Error())
			return
		}
		sched.NextDueAt = &nextDue
	}

	if err := h.schedules.Update(r.Context(), sched); err != nil {
		if HandleRepoError(w, h.logger, err, "schedule not found") {
			return
		}
	}

	operator := req.UpdatedBy
	if operator == "" {
		operator = "api"
	}
	entry := domain.NewAuditEntry(operator, domain.ActionScheduleToggle)
	entry.Target = sched.ID.String()
	entry.Details = "enabled=" + strconv.FormatBool(sched.Enabled)
	if err := h.audit.Record(r.Context(), entry); err != nil {
		h.logger.Error("failed to record schedule toggle", "schedule_id", sched.ID, "error", err)
	}

	h.logger.Info("schedule toggled",
		"schedule_id", sched.ID,
		"enabled", sched.Enabled,
	)
	Success(w, sched)
}

func (h *Handler) validateSchedule(w http.ResponseWriter, sched *domain.Schedule) bool {
	if strings.TrimSpace(sched.SchemaID) == "" {
		BadRequest(w, "schema_id is required")
		return false
	}
	if strings.TrimSpace(sched.Partition) == "" {
		sched.Partition = "default"
	}
	if err := scheduler.ValidateCronExpr(sched.CronExpr); err != nil {
		BadRequest(w, "invalid cron expression: "+err.Error())
		return false
	}
	return true
}

func (h *Handler) parseScheduleID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return uuid.Nil, false
	}
	return id, true
}
