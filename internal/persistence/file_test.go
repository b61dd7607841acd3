package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

// TestFileKV_GetSet verifies values survive a new FileKV on the same path.
func TestFileKV_GetSet(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "prefs.json")

	kv, err := NewFileKV(path)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, KeyUnit, []byte(`"imperial"`)))
	require.NoError(t, kv.Set(ctx, KeyFavorites, []byte(`[]`)))

	reopened, err := NewFileKV(path)
	require.NoError(t, err)
	got, ok, err := reopened.Get(ctx, KeyUnit)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `"imperial"`, string(got))

	_, ok, err = reopened.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestFileKV_MissingFile verifies a never-written file reads as empty.
func TestFileKV_MissingFile(t *testing.T) {
	kv, err := NewFileKV(filepath.Join(t.TempDir(), "prefs.json"))
	require.NoError(t, err)
	_, ok, err := kv.Get(context.Background(), KeyUnit)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, kv.Ping(context.Background()))
}

// TestFileKV_CorruptFile verifies reads fail on corruption while writes replace the document.
func TestFileKV_CorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prefs.json")
	require.NoError(t, os.WriteFile(path, []byte("{garbage"), 0o644))

	kv, err := NewFileKV(path)
	require.NoError(t, err)
	_, _, err = kv.Get(ctx, KeyUnit)
	assert.ErrorIs(t, err, ErrCorrupt)

	p := NewPreferences(kv, nil)
	assert.Equal(t, models.UnitMetric, p.LoadUnit(ctx))

	p.SaveUnit(ctx, models.UnitImperial)
	assert.Equal(t, models.UnitImperial, p.LoadUnit(ctx))
}

// TestFileKV_NoTempFilesLeft verifies atomic writes clean up after themselves.
func TestFileKV_NoTempFilesLeft(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	kv, err := NewFileKV(filepath.Join(dir, "prefs.json"))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, kv.Set(ctx, KeyUnit, []byte(`"metric"`)))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "prefs.json", entries[0].Name())
}
