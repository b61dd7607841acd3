package observability

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

// TestFlushTelemetry_NilLogger verifies a nil logger is a no-op.
func TestFlushTelemetry_NilLogger(t *testing.T) {
	if err := FlushTelemetry(context.Background(), nil); err != nil {
		t.Errorf("FlushTelemetry(nil) error = %v, want nil", err)
	}
}

// TestFlushTelemetry_CancelledContext verifies flushing stops on a cancelled context.
func TestFlushTelemetry_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := FlushTelemetry(ctx, zap.NewNop()); err == nil {
		t.Error("FlushTelemetry() with cancelled context error = nil, want non-nil")
	}
}

// TestFlushTelemetry_Nop verifies a nop logger flushes cleanly.
func TestFlushTelemetry_Nop(t *testing.T) {
	if err := FlushTelemetry(context.Background(), zap.NewNop()); err != nil {
		t.Errorf("FlushTelemetry() error = %v, want nil", err)
	}
}
