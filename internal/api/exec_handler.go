package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pagopa/payments-ClouDO-sub002/internal/domain"
	"github.com/pagopa/payments-ClouDO-sub002/internal/lifecycle"
	"github.com/pagopa/payments-ClouDO-sub002/internal/repo"
)

const (
	defaultExecLimit = 50
	maxExecLimit     = 500
)

// ListExecutions обрабатывает GET /api/v1/executions.
// Фильтры: ?status=, ?schema_id=, ?source=, ?limit=, ?offset=.
func (h *Handler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := repo.ExecutionFilter{
		SchemaID: q.Get("schema_id"),
		Limit:    defaultExecLimit,
	}

	if s := q.Get("status"); s != "" {
		status, ok := domain.ParseExecStatus(s)
		if !ok {
			BadRequest(w, "unknown status: "+s)
			return
		}
		filter.Status = status
	}

	if s := q.Get("source"); s != "" {
		filter.Source = domain.TriggerSource(s)
	}

	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit <= 0 {
			BadRequest(w, "invalid limit")
			return
		}
		if limit > maxExecLimit {
			limit = maxExecLimit
		}
		filter.Limit = limit
	}

	if s := q.Get("offset"); s != "" {
		offset, err := strconv.Atoi(s)
		if err != nil || offset < 0 {
			BadRequest(w, "invalid offset")
			return
		}
		filter.Offset = offset
	}

	execs, err := h.executions.List(r.Context(), filter)
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	List(w, ExecutionsFromDomain(execs), len(execs))
}

// GetExecution обрабатывает GET /api/v1/executions/{id}.
func (h *Handler) GetExecution(w http.ResponseWriter, r *http.Request) {
	execID, ok := h.parseExecID(w, r)
	if !ok {
		return
	}

	e, err := h.executions.GetByID(r.Context(), execID)
	if HandleRepoError(w, h.logger, err, "execution not found") {
		return
	}

	Success(w, ExecutionFromDomain(e))
}

// CancelExecution обрабатывает POST /api/v1/executions/{id}/cancel.
//
// Отмена допустима, пока execution не запущен worker'ом (pending,
// accepted, routed). Попытка отменить запущенный или завершённый
// execution возвращает 422.
func (h *Handler) CancelExecution(w http.ResponseWriter, r *http.Request) {
	execID, ok := h.parseExecID(w, r)
	if !ok {
		return
	}

	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.RequestedBy) == "" {
		BadRequest(w, "requested_by is required")
		return
	}

	e, err := h.lifecycle.Apply(r.Context(), lifecycle.Transition{
		ExecID: execID,
		Next:   domain.StatusSkipped,
		By:     req.RequestedBy,
		Error:  req.Reason,
		Action: domain.ActionCancel,
	})
	if err != nil {
		switch {
		case errors.Is(err, lifecycle.ErrExecutionNotFound):
			NotFound(w, "execution not found")
		case errors.Is(err, domain.ErrInvalidTransition),
			errors.Is(err, lifecycle.ErrTransitionDropped):
			InvalidState(w, "execution cannot be cancelled: "+err.Error())
		default:
			InternalError(w, h.logger, err)
		}
		return
	}

	h.logger.Info("execution cancelled",
		"exec_id", execID,
		"requested_by", req.RequestedBy,
	)
	Success(w, ExecutionFromDomain(e))
}

// ExecutionHistory обрабатывает GET /api/v1/executions/{id}/history.
// Возвращает полную историю execution'а из audit-журнала, старые первыми.
func (h *Handler) ExecutionHistory(w http.ResponseWriter, r *http.Request) {
	execID, ok := h.parseExecID(w, r)
	if !ok {
		return
	}

	entries, err := h.audit.History(r.Context(), execID)
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	List(w, entries, len(entries))
}

func (h *Handler) parseExecID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	execID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid execution id")
		return uuid.Nil, false
	}
	return execID, true
}
