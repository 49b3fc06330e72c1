package agent

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/pagopa/payments-ClouDO-sub002/internal/api"
)

// Routes регистрирует операторские endpoint'ы агента:
//
//	GET  /processes                — выполняемые сейчас runbook'и
//	POST /processes/{exec_id}/stop — остановить runbook
//
// Остановленный runbook отчитывается как failed через events.status,
// отдельного пути завершения нет.
func (a *Agent) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /processes", a.listProcesses)
	mux.HandleFunc("POST /processes/{exec_id}/stop", a.stopProcess)
}

func (a *Agent) listProcesses(w http.ResponseWriter, _ *http.Request) {
	procs := a.Processes()
	api.List(w, procs, len(procs))
}

func (a *Agent) stopProcess(w http.ResponseWriter, r *http.Request) {
	execID, err := uuid.Parse(r.PathValue("exec_id"))
	if err != nil {
		api.BadRequest(w, "invalid exec_id")
		return
	}

	if !a.StopProcess(execID) {
		api.NotFound(w, "execution is not running on this worker")
		return
	}
	api.Success(w, map[string]string{"exec_id": execID.String(), "result": "stopping"})
}
