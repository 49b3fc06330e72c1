package registry

import (
	"sync"
	"testing"
)

func TestLoadTracker(t *testing.T) {
	tr := NewLoadTracker()

	if tr.Load("host-1") != 0 {
		t.Error("unknown worker has zero load")
	}

	tr.Inc("host-1")
	tr.Inc("host-1")
	tr.Inc("host-2")

	if tr.Load("host-1") != 2 {
		t.Errorf("expected 2, got %d", tr.Load("host-1"))
	}
	if tr.Load("host-2") != 1 {
		t.Errorf("expected 1, got %d", tr.Load("host-2"))
	}

	tr.Dec("host-1")
	if tr.Load("host-1") != 1 {
		t.Errorf("expected 1 after dec, got %d", tr.Load("host-1"))
	}
}

func TestLoadTracker_FloorsAtZero(t *testing.T) {
	tr := NewLoadTracker()

	// terminal-событие после рестарта orchestrator'а
	tr.Dec("host-1")
	tr.Dec("host-1")

	if tr.Load("host-1") != 0 {
		t.Errorf("load should not go negative, got %d", tr.Load("host-1"))
	}
}

func TestLoadTracker_Concurrent(t *testing.T) {
	tr := NewLoadTracker()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Inc("host-1")
		}()
	}
	wg.Wait()

	if tr.Load("host-1") != 50 {
		t.Errorf("expected 50, got %d", tr.Load("host-1"))
	}
}
