package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/pagopa/payments-ClouDO-sub002/internal/audit"
	"github.com/pagopa/payments-ClouDO-sub002/internal/domain"
)

// QueryAudit обрабатывает GET /api/v1/audit.
// Фильтры: ?day=YYYYMMDD, ?exec_id=, ?action=, ?operator=, ?limit=.
func (h *Handler) QueryAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := audit.QueryFilter{
		Day:      q.Get("day"),
		Action:   domain.AuditAction(q.Get("action")),
		Operator: q.Get("operator"),
	}

	if s := q.Get("exec_id"); s != "" {
		execID, err := uuid.Parse(s)
		if err != nil {
			BadRequest(w, "invalid exec_id")
			return
		}
		filter.ExecID = &execID
	}

	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit <= 0 {
			BadRequest(w, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	entries, err := h.audit.Query(r.Context(), filter)
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	List(w, entries, len(entries))
}
