package api

import "net/http"

// ListWorkers обрабатывает GET /api/v1/workers.
// Возвращает всех worker'ов реестра, включая inactive.
func (h *Handler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.workers.List(r.Context())
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	List(w, workers, len(workers))
}

// GetWorker обрабатывает GET /api/v1/workers/{id}.
func (h *Handler) GetWorker(w http.ResponseWriter, r *http.Request) {
	workerID := r.PathValue("id")

	worker, err := h.workers.Get(r.Context(), workerID)
	if HandleRepoError(w, h.logger, err, "worker not found") {
		return
	}

	Success(w, worker)
}
