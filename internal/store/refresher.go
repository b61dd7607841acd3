package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard/internal/observability"
)

// Refresher keeps every favorite's weather current by issuing non-forced
// requests, so fresh entities are left alone.
type Refresher struct {
	store  *Store
	clock  clockwork.Clock
	logger *zap.Logger
}

// NewRefresher creates a Refresher for store. clock and logger may be nil.
func NewRefresher(store *Store, clock clockwork.Clock, logger *zap.Logger) *Refresher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{store: store, clock: clock, logger: logger}
}

// Refresh requests weather for all favorites concurrently in the current unit.
// Returns an error naming each favorite whose fetch was rejected.
func (r *Refresher) Refresh(ctx context.Context) error {
	start := r.clock.Now()
	observability.FavoritesRefreshTotal.Inc()
	favs := r.store.Snapshot().Favorites
	r.logger.Debug("refreshing favorites", zap.Int("favorites", len(favs)))

	var wg sync.WaitGroup
	errCh := make(chan error, len(favs))
	for _, loc := range favs {
		loc := loc
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.store.RequestWeather(ctx, WeatherRequest{Location: loc}) == OutcomeRejected {
				e, _ := r.store.Snapshot().Entity(loc.Key())
				errCh <- fmt.Errorf("refresh %s: %s", loc.Key(), e.Error)
			}
		}()
	}
	wg.Wait()
	close(errCh)
	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}

	duration := r.clock.Since(start).Seconds()
	observability.FavoritesRefreshDuration.Observe(duration)
	r.logger.Debug("favorites refresh complete",
		zap.Int("favorites", len(favs)),
		zap.Int("errors", len(errs)),
		zap.Float64("duration_seconds", duration),
	)
	if len(errs) > 0 {
		observability.FavoritesRefreshErrorsTotal.Inc()
		return fmt.Errorf("favorites refresh: %v", errs)
	}
	return nil
}

// Run refreshes once, then at every interval until ctx is done.
func (r *Refresher) Run(ctx context.Context, interval time.Duration) error {
	if err := r.Refresh(ctx); err != nil {
		r.logger.Warn("initial favorites refresh failed", zap.Error(err))
	}
	ticker := r.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			if err := r.Refresh(ctx); err != nil {
				r.logger.Warn("periodic favorites refresh failed", zap.Error(err))
			}
		}
	}
}
