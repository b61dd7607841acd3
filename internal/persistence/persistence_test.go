package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

type failingKV struct{}

func (failingKV) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("disk on fire")
}

func (failingKV) Set(context.Context, string, []byte) error {
	return errors.New("disk on fire")
}

// TestPreferences_Defaults verifies empty storage yields metric and no favorites.
func TestPreferences_Defaults(t *testing.T) {
	ctx := context.Background()
	for name, kv := range map[string]KV{"empty memory": NewMemoryKV(), "no storage": nil} {
		t.Run(name, func(t *testing.T) {
			p := NewPreferences(kv, nil)
			assert.Equal(t, models.UnitMetric, p.LoadUnit(ctx))
			favs := p.LoadFavorites(ctx)
			assert.NotNil(t, favs)
			assert.Empty(t, favs)
		})
	}
}

// TestPreferences_CorruptValues verifies undecodable values fall back to defaults.
func TestPreferences_CorruptValues(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(ctx, KeyFavorites, []byte(`{"not":"an array"`)))
	require.NoError(t, kv.Set(ctx, KeyUnit, []byte(`"kelvin"`)))

	p := NewPreferences(kv, nil)
	assert.Equal(t, models.UnitMetric, p.LoadUnit(ctx))
	assert.Empty(t, p.LoadFavorites(ctx))
}

// TestPreferences_RoundTrip verifies saved values load back with normalized ids.
func TestPreferences_RoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	p := NewPreferences(kv, nil)

	favs := []models.Location{
		{Name: "London", Country: "United Kingdom", Lat: models.Float(51.5074), Lon: models.Float(-0.1278)},
		{ID: "2801268", Name: "Berlin", Country: "Germany"},
	}
	p.SaveFavorites(ctx, favs)
	p.SaveUnit(ctx, models.UnitImperial)

	raw, ok, err := kv.Get(ctx, KeyUnit)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `"imperial"`, string(raw))

	assert.Equal(t, models.UnitImperial, p.LoadUnit(ctx))
	got := p.LoadFavorites(ctx)
	require.Len(t, got, 2)
	assert.Equal(t, models.LocationID("51.507,-0.128"), got[0].ID)
	assert.Equal(t, models.LocationID("2801268"), got[1].ID)
	assert.Equal(t, "berlin", got[1].Key())
}

// TestPreferences_BareUnitString verifies a unit stored without JSON quoting still loads.
func TestPreferences_BareUnitString(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(ctx, KeyUnit, []byte("imperial")))
	assert.Equal(t, models.UnitImperial, NewPreferences(kv, nil).LoadUnit(ctx))
}

// TestPreferences_NumericIDs verifies favorites persisted with numeric provider ids load.
func TestPreferences_NumericIDs(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(ctx, KeyFavorites, []byte(`[{"id":803267,"name":"Paris","country":"France","lat":48.87,"lon":2.33}]`)))

	got := NewPreferences(kv, nil).LoadFavorites(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, models.LocationID("803267"), got[0].ID)
}

// TestPreferences_BackendErrorsSwallowed verifies failures are logged, never surfaced.
func TestPreferences_BackendErrorsSwallowed(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.DebugLevel)
	p := NewPreferences(failingKV{}, zap.New(core))

	assert.Equal(t, models.UnitMetric, p.LoadUnit(ctx))
	assert.Empty(t, p.LoadFavorites(ctx))
	p.SaveUnit(ctx, models.UnitImperial)
	p.SaveFavorites(ctx, nil)

	assert.Equal(t, 4, logs.FilterMessage("preferences operation failed, using defaults").Len())
}

// TestOpen verifies backend selection by name.
func TestOpen(t *testing.T) {
	ctx := context.Background()

	kv, err := Open(ctx, Options{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryKV{}, kv)

	kv, err = Open(ctx, Options{Backend: BackendNone})
	require.NoError(t, err)
	assert.Nil(t, kv)

	kv, err = Open(ctx, Options{Backend: BackendFile, Path: t.TempDir() + "/prefs.json"})
	require.NoError(t, err)
	assert.IsType(t, &FileKV{}, kv)
	assert.NoError(t, Close(kv))

	_, err = Open(ctx, Options{Backend: "redis"})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}
