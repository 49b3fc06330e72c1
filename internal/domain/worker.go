package domain

import "time"

// Worker — запись о worker'е в реестре.
//
// Worker создаётся при самостоятельной регистрации процесса и дальше
// обновляется heartbeat'ами. Запись никогда не удаляется по таймауту —
// только помечается inactive, чтобы история оставалась наблюдаемой.
type Worker struct {
	// WorkerID — уникальное имя worker-процесса (hostname + suffix).
	WorkerID string `json:"worker_id"`

	// Capabilities — множество поддерживаемых capability
	// (сопоставляется с RunbookSchema.Worker).
	Capabilities []string `json:"capabilities"`

	// Pool — пул, к которому принадлежит worker.
	Pool string `json:"pool"`

	// Queue — имя очереди, из которой worker потребляет dispatched executions.
	Queue string `json:"queue"`

	// LastHeartbeat — время последнего heartbeat.
	LastHeartbeat time.Time `json:"last_heartbeat"`

	// ActiveProcesses — количество выполняемых сейчас executions
	// (по последнему heartbeat).
	ActiveProcesses int `json:"active_processes"`

	// Status — active или inactive.
	Status WorkerStatus `json:"status"`

	// RegisteredAt — время первой регистрации.
	RegisteredAt time.Time `json:"registered_at"`
}

// HasCapability проверяет, поддерживает ли worker указанную capability.
// Пул worker'а тоже считается capability: schema.Worker может указывать
// как конкретный worker, так и пул.
func (w *Worker) HasCapability(capability string) bool {
	if capability == "" {
		return false
	}
	if w.Pool == capability || w.WorkerID == capability {
		return true
	}
	for _, c := range w.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// IsAlive проверяет, укладывается ли последний heartbeat в окно timeout.
func (w *Worker) IsAlive(now time.Time, timeout time.Duration) bool {
	if w.LastHeartbeat.IsZero() {
		return false
	}
	return now.Sub(w.LastHeartbeat) <= timeout
}
