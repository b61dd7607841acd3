package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMemoryKV_CopiesValues verifies stored bytes are isolated from caller buffers.
func TestMemoryKV_CopiesValues(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	buf := []byte(`"metric"`)
	require.NoError(t, kv.Set(ctx, KeyUnit, buf))
	buf[1] = 'X'

	got, ok, err := kv.Get(ctx, KeyUnit)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `"metric"`, string(got))
}

// TestMemoryKV_CanceledContext verifies operations respect cancellation.
func TestMemoryKV_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	kv := NewMemoryKV()
	assert.ErrorIs(t, kv.Set(ctx, KeyUnit, nil), context.Canceled)
	_, _, err := kv.Get(ctx, KeyUnit)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestMemoryKV_Ping verifies the memory backend satisfies Pinger.
func TestMemoryKV_Ping(t *testing.T) {
	var p Pinger = NewMemoryKV()
	assert.NoError(t, p.Ping(context.Background()))
}
