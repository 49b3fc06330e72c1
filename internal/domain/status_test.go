package domain

import "testing"

func TestCanTransitionTo_HappyPath(t *testing.T) {
	chain := []ExecStatus{StatusPending, StatusAccepted, StatusRouted, StatusRunning, StatusSucceeded}

	for i := 0; i < len(chain)-1; i++ {
		if !chain[i].CanTransitionTo(chain[i+1]) {
			t.Errorf("transition %s -> %s should be allowed", chain[i], chain[i+1])
		}
	}
}

func TestCanTransitionTo_Monotonic(t *testing.T) {
	// Поздний callback не может откатить статус назад.
	cases := []struct {
		from, to ExecStatus
	}{
		{StatusRunning, StatusRouted},
		{StatusRunning, StatusAccepted},
		{StatusSucceeded, StatusRunning},
		{StatusFailed, StatusRunning},
		{StatusAccepted, StatusPending},
		{StatusSucceeded, StatusFailed},
		{StatusFailed, StatusSucceeded},
	}

	for _, c := range cases {
		if c.from.CanTransitionTo(c.to) {
			t.Errorf("transition %s -> %s should be rejected", c.from, c.to)
		}
	}
}

func TestCanTransitionTo_NoSkippingStages(t *testing.T) {
	if StatusPending.CanTransitionTo(StatusRouted) {
		t.Error("pending -> routed should be rejected")
	}
	if StatusPending.CanTransitionTo(StatusRunning) {
		t.Error("pending -> running should be rejected")
	}
	if StatusAccepted.CanTransitionTo(StatusRunning) {
		t.Error("accepted -> running should be rejected")
	}
	if StatusRouted.CanTransitionTo(StatusSucceeded) {
		t.Error("routed -> succeeded should be rejected")
	}
}

func TestCanTransitionTo_Error(t *testing.T) {
	for _, from := range []ExecStatus{StatusAccepted, StatusRouted, StatusRunning} {
		if !from.CanTransitionTo(StatusError) {
			t.Errorf("%s -> error should be allowed", from)
		}
	}
	if StatusPending.CanTransitionTo(StatusError) {
		t.Error("pending -> error should be rejected")
	}
	if StatusSucceeded.CanTransitionTo(StatusError) {
		t.Error("succeeded -> error should be rejected")
	}
}

func TestCanTransitionTo_RejectedAndSkipped(t *testing.T) {
	if !StatusPending.CanTransitionTo(StatusRejected) {
		t.Error("pending -> rejected should be allowed")
	}
	if !StatusAccepted.CanTransitionTo(StatusRejected) {
		t.Error("accepted -> rejected should be allowed")
	}
	if StatusRouted.CanTransitionTo(StatusRejected) {
		t.Error("routed -> rejected should be rejected")
	}

	// skipped дополнительно достижим из routed (отмена оператором)
	if !StatusRouted.CanTransitionTo(StatusSkipped) {
		t.Error("routed -> skipped should be allowed")
	}
	if StatusRunning.CanTransitionTo(StatusSkipped) {
		t.Error("running -> skipped should be rejected")
	}
}

func TestCanTransitionTo_UnknownStatus(t *testing.T) {
	if ExecStatus("bogus").CanTransitionTo(StatusRunning) {
		t.Error("unknown status cannot transition")
	}
	if StatusPending.CanTransitionTo(ExecStatus("bogus")) {
		t.Error("transition to unknown status should be rejected")
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []ExecStatus{StatusSucceeded, StatusFailed, StatusError, StatusRejected, StatusSkipped}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}

	for _, s := range []ExecStatus{StatusPending, StatusAccepted, StatusRouted, StatusRunning} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestIsFailure(t *testing.T) {
	if !StatusFailed.IsFailure() || !StatusError.IsFailure() {
		t.Error("failed and error are failures")
	}
	if StatusSucceeded.IsFailure() || StatusSkipped.IsFailure() || StatusRejected.IsFailure() {
		t.Error("succeeded, skipped and rejected are not failures")
	}
}

func TestParseExecStatus(t *testing.T) {
	if s, ok := ParseExecStatus("running"); !ok || s != StatusRunning {
		t.Errorf("expected running, got %s (ok=%v)", s, ok)
	}

	// Статус "completed" от устаревших worker'ов нормализуется.
	if s, ok := ParseExecStatus("completed"); !ok || s != StatusSucceeded {
		t.Errorf("expected succeeded for completed, got %s (ok=%v)", s, ok)
	}

	if _, ok := ParseExecStatus("exploded"); ok {
		t.Error("unknown status should not parse")
	}
}

func TestApprovalStatusIsDecided(t *testing.T) {
	if ApprovalPending.IsDecided() {
		t.Error("pending approval is not decided")
	}
	for _, s := range []ApprovalStatus{ApprovalApproved, ApprovalRejected, ApprovalExpired} {
		if !s.IsDecided() {
			t.Errorf("%s approval should be decided", s)
		}
	}
}
