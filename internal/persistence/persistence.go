package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard/internal/models"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
)

// Storage keys shared with every backend.
const (
	KeyFavorites = "weather-favorites"
	KeyUnit      = "weather-unit"
)

// KV is the durable string-keyed storage a backend provides.
// Get returns (nil, false, nil) when the key has never been written.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Preferences stores favorites and the unit preference. Failures never reach
// the caller: loads fall back to defaults and saves are best-effort.
// A Preferences with a nil KV behaves like an environment without storage.
type Preferences struct {
	kv     KV
	logger *zap.Logger
}

// NewPreferences wraps kv. kv may be nil.
func NewPreferences(kv KV, logger *zap.Logger) *Preferences {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Preferences{kv: kv, logger: logger}
}

// LoadFavorites returns the stored favorites, normalized, or an empty slice.
func (p *Preferences) LoadFavorites(ctx context.Context) []models.Location {
	favs, err := p.loadFavorites(ctx)
	if err != nil {
		p.swallow("load_favorites", err)
		return []models.Location{}
	}
	return favs
}

// SaveFavorites writes favs. Errors are logged and counted only.
func (p *Preferences) SaveFavorites(ctx context.Context, favs []models.Location) {
	if err := p.saveFavorites(ctx, favs); err != nil {
		p.swallow("save_favorites", err)
	}
}

// LoadUnit returns the stored unit, or metric when absent or unreadable.
func (p *Preferences) LoadUnit(ctx context.Context) models.Unit {
	unit, err := p.loadUnit(ctx)
	if err != nil {
		p.swallow("load_unit", err)
		return models.UnitMetric
	}
	return unit
}

// SaveUnit writes unit. Errors are logged and counted only.
func (p *Preferences) SaveUnit(ctx context.Context, unit models.Unit) {
	if err := p.saveUnit(ctx, unit); err != nil {
		p.swallow("save_unit", err)
	}
}

func (p *Preferences) loadFavorites(ctx context.Context) ([]models.Location, error) {
	raw, ok, err := p.get(ctx, KeyFavorites)
	if err != nil || !ok {
		return []models.Location{}, err
	}
	var stored []models.Location
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("%w: decode favorites: %v", ErrCorrupt, err)
	}
	out := make([]models.Location, 0, len(stored))
	for _, loc := range stored {
		out = append(out, loc.Normalized())
	}
	return out, nil
}

func (p *Preferences) saveFavorites(ctx context.Context, favs []models.Location) error {
	if favs == nil {
		favs = []models.Location{}
	}
	raw, err := json.Marshal(favs)
	if err != nil {
		return fmt.Errorf("encode favorites: %w", err)
	}
	return p.set(ctx, KeyFavorites, raw)
}

func (p *Preferences) loadUnit(ctx context.Context) (models.Unit, error) {
	raw, ok, err := p.get(ctx, KeyUnit)
	if err != nil || !ok {
		return models.UnitMetric, err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		// Older writers stored the bare word.
		s = strings.TrimSpace(string(raw))
	}
	unit, err := models.ParseUnit(s)
	if err != nil {
		return models.UnitMetric, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return unit, nil
}

func (p *Preferences) saveUnit(ctx context.Context, unit models.Unit) error {
	if !unit.Valid() {
		return fmt.Errorf("save unit: %w", models.ErrInvalidUnit)
	}
	raw, err := json.Marshal(string(unit))
	if err != nil {
		return fmt.Errorf("encode unit: %w", err)
	}
	return p.set(ctx, KeyUnit, raw)
}

func (p *Preferences) get(ctx context.Context, key string) ([]byte, bool, error) {
	if p == nil || p.kv == nil {
		return nil, false, nil
	}
	raw, ok, err := p.kv.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("%w: get %s: %w", ErrBackend, key, err)
	}
	return raw, ok, nil
}

func (p *Preferences) set(ctx context.Context, key string, value []byte) error {
	if p == nil || p.kv == nil {
		return nil
	}
	if err := p.kv.Set(ctx, key, value); err != nil {
		return fmt.Errorf("%w: set %s: %w", ErrBackend, key, err)
	}
	return nil
}

func (p *Preferences) swallow(op string, err error) {
	observability.PersistenceErrorsTotal.WithLabelValues(op).Inc()
	p.logger.Debug("preferences operation failed, using defaults",
		zap.String("op", op),
		zap.Error(err),
	)
}
