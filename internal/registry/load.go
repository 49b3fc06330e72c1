package registry

import (
	"sync"
	"sync/atomic"
)

// LoadTracker — in-memory счётчики назначенных executions по worker'ам.
//
// Счётчики живут в памяти orchestrator'а и дополняют ActiveProcesses
// из heartbeat'ов: heartbeat приходит раз в десятки секунд, а между
// heartbeat'ами router должен видеть свои собственные назначения.
type LoadTracker struct {
	loads sync.Map // worker_id → *atomic.Int64
}

// NewLoadTracker создаёт новый LoadTracker.
func NewLoadTracker() *LoadTracker {
	return &LoadTracker{}
}

func (t *LoadTracker) counter(workerID string) *atomic.Int64 {
	if v, ok := t.loads.Load(workerID); ok {
		return v.(*atomic.Int64)
	}
	v, _ := t.loads.LoadOrStore(workerID, new(atomic.Int64))
	return v.(*atomic.Int64)
}

// Inc увеличивает счётчик назначений worker'а.
func (t *LoadTracker) Inc(workerID string) {
	t.counter(workerID).Add(1)
}

// Dec уменьшает счётчик. Не опускается ниже нуля:
// декремент после рестарта orchestrator'а не должен уводить в минус.
func (t *LoadTracker) Dec(workerID string) {
	c := t.counter(workerID)
	for {
		cur := c.Load()
		if cur <= 0 {
			return
		}
		if c.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

// Load возвращает текущее количество назначений worker'а.
func (t *LoadTracker) Load(workerID string) int {
	if v, ok := t.loads.Load(workerID); ok {
		return int(v.(*atomic.Int64).Load())
	}
	return 0
}
