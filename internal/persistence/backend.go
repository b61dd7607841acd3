package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrBackend wraps any failure reported by a KV backend.
	ErrBackend = errors.New("persistence backend error")
	// ErrCorrupt marks stored values that could not be decoded.
	ErrCorrupt = errors.New("corrupt stored value")
	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown persistence backend")
)

// Backend names accepted by Open.
const (
	BackendFile      = "file"
	BackendMemory    = "memory"
	BackendMemcached = "memcached"
	BackendPostgres  = "postgres"
	BackendNone      = "none"
)

// Pinger is implemented by backends that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options selects and configures a backend.
type Options struct {
	Backend string

	Path string

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	PostgresDSN string
}

// Open builds the KV for opts.Backend. The none backend yields a nil KV,
// which Preferences treats as storage-less.
func Open(ctx context.Context, opts Options) (KV, error) {
	switch opts.Backend {
	case "", BackendFile:
		return NewFileKV(opts.Path)
	case BackendMemory:
		return NewMemoryKV(), nil
	case BackendMemcached:
		return NewMemcachedKV(opts.MemcachedAddrs, opts.MemcachedTimeout, opts.MemcachedMaxIdleConns)
	case BackendPostgres:
		return NewPostgresKV(ctx, opts.PostgresDSN)
	case BackendNone:
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
}

// Close releases kv when it holds connections.
func Close(kv KV) error {
	if c, ok := kv.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
