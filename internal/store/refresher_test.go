package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

// TestRefresher_Refresh verifies every favorite is fetched and fresh ones are left alone.
func TestRefresher_Refresh(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	s, clock, _ := newTestStore(t, gw, Options{})
	s.HydrateFavorites(ctx, []models.Location{london, paris})
	r := NewRefresher(s, clock, nil)

	require.NoError(t, r.Refresh(ctx))
	assert.Equal(t, 1, gw.calls(london.Key()))
	assert.Equal(t, 1, gw.calls(paris.Key()))

	clock.Advance(10 * time.Second)
	require.NoError(t, r.Refresh(ctx))
	assert.Equal(t, 1, gw.calls(london.Key()), "fresh entities are not refetched")

	clock.Advance(time.Minute)
	require.NoError(t, r.Refresh(ctx))
	assert.Equal(t, 2, gw.calls(london.Key()))
}

// TestRefresher_RefreshErrors verifies rejected favorites are reported.
func TestRefresher_RefreshErrors(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	gw.setWeather(0, errors.New("upstream failure"))
	s, clock, _ := newTestStore(t, gw, Options{})
	s.ToggleFavorite(ctx, berlin)

	err := NewRefresher(s, clock, nil).Refresh(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh berlin: upstream failure")
}

// TestRefresher_RunStopsOnCancel verifies Run performs the initial refresh and
// returns the context error once cancelled.
func TestRefresher_RunStopsOnCancel(t *testing.T) {
	gw := newFakeGateway()
	s, clock, _ := newTestStore(t, gw, Options{})
	s.ToggleFavorite(context.Background(), london)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewRefresher(s, clock, nil).Run(ctx, time.Minute) }()

	require.Eventually(t, func() bool { return gw.calls(london.Key()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
