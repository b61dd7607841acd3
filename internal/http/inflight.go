package http

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/kjstillabower/weather-dashboard/internal/observability"
)

// InFlight counts requests currently being served so shutdown can drain them.
// The zero value is ready to use.
type InFlight struct {
	n atomic.Int64
}

func (f *InFlight) begin() {
	f.n.Add(1)
	observability.HTTPRequestsInFlight.Inc()
}

func (f *InFlight) end() {
	f.n.Add(-1)
	observability.HTTPRequestsInFlight.Dec()
}

// Count returns the number of requests being served.
func (f *InFlight) Count() int64 {
	return f.n.Load()
}

// Wait blocks until no request is in flight or ctx is done, polling every checkInterval.
func (f *InFlight) Wait(ctx context.Context, checkInterval time.Duration) error {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	for f.Count() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
