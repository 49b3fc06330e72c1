package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/pagopa/payments-ClouDO-sub002/internal/domain"
	"github.com/pagopa/payments-ClouDO-sub002/internal/gateway"
)

// TriggerManual обрабатывает POST /api/v1/triggers/manual.
// Каждый вызов создаёт новый execution: ручные запуски не дедуплицируются.
func (h *Handler) TriggerManual(w http.ResponseWriter, r *http.Request) {
	var req TriggerManualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return
	}

	if strings.TrimSpace(req.SchemaID) == "" {
		BadRequest(w, "schema_id is required")
		return
	}
	if strings.TrimSpace(req.RequestedBy) == "" {
		BadRequest(w, "requested_by is required")
		return
	}

	e, err := h.gateway.Submit(r.Context(), domain.TriggerRequest{
		Partition:   req.Partition,
		SchemaID:    req.SchemaID,
		Source:      domain.SourceManual,
		Params:      req.Params,
		RequestedBy: req.RequestedBy,
	})
	if err != nil {
		h.handleSubmitError(w, err)
		return
	}

	Created(w, ExecutionFromDomain(e))
}

// TriggerAlert обрабатывает POST /api/v1/triggers/alert — webhook
// внешнего мониторинга.
func (h *Handler) TriggerAlert(w http.ResponseWriter, r *http.Request) {
	var req TriggerAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return
	}

	if strings.TrimSpace(req.SchemaID) == "" {
		BadRequest(w, "schema_id is required")
		return
	}

	requestedBy := req.AlertName
	if requestedBy == "" {
		requestedBy = "monitor"
	}

	e, err := h.gateway.Submit(r.Context(), domain.TriggerRequest{
		Partition:        req.Partition,
		SchemaID:         req.SchemaID,
		Source:           domain.SourceAlert,
		Params:           req.Params,
		Severity:         req.Severity,
		MonitorCondition: req.MonitorCondition,
		RequestedBy:      requestedBy,
	})
	if err != nil {
		h.handleSubmitError(w, err)
		return
	}

	Created(w, ExecutionFromDomain(e))
}

func (h *Handler) handleSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gateway.ErrSchemaNotFound):
		NotFound(w, err.Error())
	case errors.Is(err, gateway.ErrInvalidSource):
		BadRequest(w, err.Error())
	default:
		InternalError(w, h.logger, err)
	}
}
