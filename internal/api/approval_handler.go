package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/pagopa/payments-ClouDO-sub002/internal/approval"
)

// ListPendingApprovals обрабатывает GET /api/v1/approvals.
func (h *Handler) ListPendingApprovals(w http.ResponseWriter, r *http.Request) {
	pending, err := h.approvals.ListPending(r.Context(), 0)
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	List(w, pending, len(pending))
}

// GetApproval обрабатывает GET /api/v1/executions/{id}/approval.
func (h *Handler) GetApproval(w http.ResponseWriter, r *http.Request) {
	execID, ok := h.parseExecID(w, r)
	if !ok {
		return
	}

	a, err := h.approvals.Get(r.Context(), execID)
	if err != nil {
		if errors.Is(err, approval.ErrNotFound) {
			NotFound(w, "approval request not found")
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	Success(w, a)
}

// DecideApproval обрабатывает POST /api/v1/executions/{id}/decision.
//
// Повтор того же решения идемпотентен (200), противоположное решение
// по уже разрешённому запросу — 409, решение по истёкшему — 422.
func (h *Handler) DecideApproval(w http.ResponseWriter, r *http.Request) {
	execID, ok := h.parseExecID(w, r)
	if !ok {
		return
	}

	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Approver) == "" {
		BadRequest(w, "approver is required")
		return
	}

	a, err := h.approvals.Decide(r.Context(), execID, req.Approver, req.Approve)
	if err != nil {
		switch {
		case errors.Is(err, approval.ErrNotFound):
			NotFound(w, "approval request not found")
		case errors.Is(err, approval.ErrAlreadyDecided):
			Conflict(w, err.Error())
		case errors.Is(err, approval.ErrExpired):
			InvalidState(w, "approval request expired")
		default:
			InternalError(w, h.logger, err)
		}
		return
	}

	Success(w, a)
}
