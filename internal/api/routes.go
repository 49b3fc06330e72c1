package api

import "net/http"

// RegisterRoutes регистрирует маршруты API на mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(Recovery(h.logger), Logging(h.logger))

	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, chain(fn))
	}

	// Триггеры
	handle("POST /api/v1/triggers/manual", h.TriggerManual)
	handle("POST /api/v1/triggers/alert", h.TriggerAlert)

	// Реестр схем
	handle("GET /api/v1/schemas", h.ListSchemas)
	handle("POST /api/v1/schemas", h.UpsertSchema)
	handle("GET /api/v1/schemas/{partition}/{id}", h.GetSchema)
	handle("DELETE /api/v1/schemas/{partition}/{id}", h.DeleteSchema)

	// Executions
	handle("GET /api/v1/executions", h.ListExecutions)
	handle("GET /api/v1/executions/{id}", h.GetExecution)
	handle("POST /api/v1/executions/{id}/cancel", h.CancelExecution)
	handle("GET /api/v1/executions/{id}/history", h.ExecutionHistory)

	// Approvals
	handle("GET /api/v1/approvals", h.ListPendingApprovals)
	handle("GET /api/v1/executions/{id}/approval", h.GetApproval)
	handle("POST /api/v1/executions/{id}/decision", h.DecideApproval)

	// Worker'ы
	handle("GET /api/v1/workers", h.ListWorkers)
	handle("GET /api/v1/workers/{id}", h.GetWorker)

	// Расписания
	handle("GET /api/v1/schedules", h.ListSchedules)
	handle("POST /api/v1/schedules", h.CreateSchedule)
	handle("GET /api/v1/schedules/{id}", h.GetSchedule)
	handle("PUT /api/v1/schedules/{id}", h.UpdateSchedule)
	handle("DELETE /api/v1/schedules/{id}", h.DeleteSchedule)
	handle("PUT /api/v1/schedules/{id}/enabled", h.SetScheduleEnabled)

	// Audit-журнал
	handle("GET /api/v1/audit", h.QueryAudit)

	// Health check
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}
