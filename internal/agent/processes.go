package agent

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Process — выполняемый сейчас runbook.
type Process struct {
	ExecID    uuid.UUID `json:"exec_id"`
	Runbook   string    `json:"runbook"`
	StartedAt time.Time `json:"started_at"`

	cancel context.CancelFunc
}

// processTable — таблица выполняемых runbook'ов агента.
type processTable struct {
	mu    sync.Mutex
	procs map[uuid.UUID]*Process
}

func newProcessTable() *processTable {
	return &processTable{procs: make(map[uuid.UUID]*Process)}
}

func (t *processTable) add(execID uuid.UUID, runbook string, cancel context.CancelFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.procs[execID] = &Process{
		ExecID:    execID,
		Runbook:   runbook,
		StartedAt: time.Now().UTC(),
		cancel:    cancel,
	}
}

func (t *processTable) remove(execID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.procs, execID)
}

func (t *processTable) list() []Process {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Process, 0, len(t.procs))
	for _, p := range t.procs {
		out = append(out, *p)
	}
	return out
}

// stop отменяет контекст runbook'а. Возвращает false,
// если execution на этом worker'е не выполняется.
func (t *processTable) stop(execID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.procs[execID]
	if !ok {
		return false
	}
	p.cancel()
	return true
}
