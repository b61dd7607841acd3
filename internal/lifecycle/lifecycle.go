package lifecycle

import (
	"sync"
	"sync/atomic"
)

// Lifecycle tracks whether the process is draining. Health reports
// shutting-down while set; Draining lets background loops stop early.
type Lifecycle struct {
	shuttingDown atomic.Bool
	once         sync.Once
	draining     chan struct{}
}

func New() *Lifecycle {
	return &Lifecycle{draining: make(chan struct{})}
}

// BeginShutdown marks the process as draining. Call when SIGTERM/SIGINT is received.
// Subsequent calls are no-ops.
func (l *Lifecycle) BeginShutdown() {
	l.once.Do(func() {
		l.shuttingDown.Store(true)
		close(l.draining)
	})
}

// IsShuttingDown reports whether BeginShutdown has been called.
func (l *Lifecycle) IsShuttingDown() bool {
	return l.shuttingDown.Load()
}

// Draining is closed once shutdown begins.
func (l *Lifecycle) Draining() <-chan struct{} {
	return l.draining
}
