package lifecycle

import "testing"

func TestLifecycle_DefaultRunning(t *testing.T) {
	l := New()
	if l.IsShuttingDown() {
		t.Error("IsShuttingDown() = true, want false for a new lifecycle")
	}
	select {
	case <-l.Draining():
		t.Error("Draining() closed before shutdown")
	default:
	}
}

func TestLifecycle_BeginShutdown(t *testing.T) {
	l := New()
	l.BeginShutdown()
	l.BeginShutdown()
	if !l.IsShuttingDown() {
		t.Error("IsShuttingDown() = false after BeginShutdown")
	}
	select {
	case <-l.Draining():
	default:
		t.Error("Draining() not closed after BeginShutdown")
	}
}
