package traffic

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

// TestErrorRate_Empty verifies an idle tracker reports nothing and is not degraded.
func TestErrorRate_Empty(t *testing.T) {
	tr := NewTracker(clockwork.NewFakeClock())
	if errs, total := tr.ErrorRate(time.Minute); errs != 0 || total != 0 {
		t.Errorf("ErrorRate() = (%d, %d), want (0, 0)", errs, total)
	}
	if tr.Degraded(time.Minute, 0.1, 1) {
		t.Error("Degraded() = true for empty tracker")
	}
}

// TestErrorRate_SuccessAndError verifies errors and successes are both counted in total.
func TestErrorRate_SuccessAndError(t *testing.T) {
	tr := NewTracker(clockwork.NewFakeClock())
	tr.RecordSuccess()
	tr.RecordSuccess()
	tr.RecordError()
	if errs, total := tr.ErrorRate(time.Minute); errs != 1 || total != 3 {
		t.Errorf("ErrorRate() = (%d, %d), want (1, 3)", errs, total)
	}
}

// TestErrorRate_DeniedExcluded verifies denials do not count toward the error rate.
func TestErrorRate_DeniedExcluded(t *testing.T) {
	tr := NewTracker(clockwork.NewFakeClock())
	tr.RecordSuccess()
	tr.RecordDenied()
	tr.RecordDenied()
	if errs, total := tr.ErrorRate(time.Minute); errs != 0 || total != 1 {
		t.Errorf("ErrorRate() = (%d, %d), want (0, 1)", errs, total)
	}
	if n := tr.DenialCount(time.Minute); n != 2 {
		t.Errorf("DenialCount() = %d, want 2", n)
	}
}

// TestErrorRate_Window verifies outcomes age out of the query window.
func TestErrorRate_Window(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := NewTracker(clock)
	tr.RecordError()
	clock.Advance(2 * time.Minute)
	tr.RecordSuccess()

	if errs, total := tr.ErrorRate(time.Minute); errs != 0 || total != 1 {
		t.Errorf("ErrorRate(1m) = (%d, %d), want (0, 1)", errs, total)
	}
	if errs, total := tr.ErrorRate(5 * time.Minute); errs != 1 || total != 2 {
		t.Errorf("ErrorRate(5m) = (%d, %d), want (1, 2)", errs, total)
	}
}

// TestPrune verifies outcomes older than the retention bound are dropped.
func TestPrune(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := NewTracker(clock)
	tr.RecordError()
	clock.Advance(6 * time.Minute)
	tr.RecordSuccess()

	if errs, total := tr.ErrorRate(time.Hour); errs != 0 || total != 1 {
		t.Errorf("ErrorRate() = (%d, %d), want (0, 1) after prune", errs, total)
	}
}

// TestDegraded verifies threshold and minimum sample handling.
func TestDegraded(t *testing.T) {
	tr := NewTracker(clockwork.NewFakeClock())
	tr.RecordError()
	if tr.Degraded(time.Minute, 0.5, 5) {
		t.Error("Degraded() = true below minimum samples")
	}
	for i := 0; i < 4; i++ {
		tr.RecordSuccess()
	}
	if tr.Degraded(time.Minute, 0.2, 5) {
		t.Error("Degraded() = true at exactly the threshold, want strictly greater")
	}
	tr.RecordError()
	if !tr.Degraded(time.Minute, 0.2, 5) {
		t.Error("Degraded() = false with 2/6 errors over 0.2 threshold")
	}
	tr.Reset()
	if tr.Degraded(time.Minute, 0.2, 0) {
		t.Error("Degraded() = true after Reset")
	}
}
