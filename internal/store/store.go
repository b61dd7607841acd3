package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard/internal/models"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
	"github.com/kjstillabower/weather-dashboard/internal/persistence"
)

// DefaultStalenessWindow is how long a successful fetch suppresses non-forced refetches.
const DefaultStalenessWindow = 60 * time.Second

// Gateway is the subset of the weather client the store calls.
type Gateway interface {
	SearchPlaces(ctx context.Context, query string) ([]models.Location, error)
	FetchWeather(ctx context.Context, loc models.Location, unit models.Unit) (models.WeatherBundle, error)
}

// Outcome reports what an async operation did.
type Outcome string

const (
	// OutcomeSkipped: no gateway call was made.
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFulfilled Outcome = "fulfilled"
	OutcomeRejected  Outcome = "rejected"
	// OutcomeSuperseded: a search completed after a newer one started; its result was dropped.
	OutcomeSuperseded Outcome = "superseded"
)

// WeatherRequest asks for weather at Location. An empty Unit means the
// store's current unit. Force bypasses the staleness window.
type WeatherRequest struct {
	Location models.Location `json:"location"`
	Unit     models.Unit     `json:"unit,omitempty"`
	Force    bool            `json:"force,omitempty"`
}

// Options tunes a Store. Zero values use defaults.
type Options struct {
	StalenessWindow time.Duration
	// DedupeInFlight skips a non-forced request while another fetch for the same key runs.
	DedupeInFlight bool
	Clock          clockwork.Clock
	Logger         *zap.Logger
}

// Store owns the dashboard state. All mutations go through Reduce under one
// lock; gateway and persistence I/O happen outside it.
type Store struct {
	gateway Gateway
	prefs   *persistence.Preferences
	clock   clockwork.Clock
	logger  *zap.Logger
	window  time.Duration
	dedupe  bool

	inflight *inflightTracker
	newID    func() string

	mu      sync.Mutex
	state   State
	closed  bool
	subs    map[int]chan State
	nextSub int

	persistMu sync.Mutex
}

// New creates a Store. prefs may be nil, in which case nothing is persisted.
func New(gateway Gateway, prefs *persistence.Preferences, opts Options) *Store {
	if opts.StalenessWindow <= 0 {
		opts.StalenessWindow = DefaultStalenessWindow
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if prefs == nil {
		prefs = persistence.NewPreferences(nil, opts.Logger)
	}
	return &Store{
		gateway:  gateway,
		prefs:    prefs,
		clock:    opts.Clock,
		logger:   opts.Logger,
		window:   opts.StalenessWindow,
		dedupe:   opts.DedupeInFlight,
		inflight: newInflightTracker(),
		newID:    uuid.NewString,
		state:    InitialState(),
		subs:     make(map[int]chan State),
	}
}

// Load hydrates unit and favorites from persisted preferences.
func (s *Store) Load(ctx context.Context) State {
	unit := s.prefs.LoadUnit(ctx)
	favs := s.prefs.LoadFavorites(ctx)
	s.dispatch(SetUnit{Unit: unit})
	st, _ := s.dispatch(HydrateFavorites{Locations: favs})
	s.logger.Debug("preferences loaded", zap.String("unit", string(unit)), zap.Int("favorites", len(favs)))
	return st
}

// Snapshot returns the current state. Callers must treat it as read-only.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe returns a channel that receives the latest state after every
// change. A slow reader only misses intermediate states, never the latest.
// The returned func unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan State, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// Close stops the store. Fetches still in flight complete against the gateway
// but their results are dropped; subscribers' channels are closed.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.logger.Debug("store closed")
}

// RequestWeather fetches weather for req.Location unless a successful fetch
// for its key happened within the staleness window. Gateway failures are
// recorded on the entity, not returned.
func (s *Store) RequestWeather(ctx context.Context, req WeatherRequest) Outcome {
	key := req.Location.Key()
	logger := observability.LoggerFromContext(ctx, s.logger).With(zap.String("location_key", key))

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return s.record(OutcomeSkipped)
	}
	unit := req.Unit
	if !unit.Valid() {
		unit = s.state.Unit
	}
	if !req.Force {
		if e, ok := s.state.Entities[key]; ok && e.FreshAt(s.clock.Now(), s.window) {
			s.mu.Unlock()
			logger.Debug("weather fresh, skipping fetch", zap.Time("updated_at", e.UpdatedAt))
			return s.record(OutcomeSkipped)
		}
		if s.dedupe && s.inflight.Count(key) > 0 {
			s.mu.Unlock()
			logger.Debug("weather fetch already in flight, skipping")
			return s.record(OutcomeSkipped)
		}
	}
	if n := s.inflight.Begin(key); n > 1 {
		observability.WeatherDuplicateFetchesTotal.Inc()
		logger.Debug("duplicate weather fetch in flight", zap.Int("concurrent", n))
	}
	s.apply(WeatherPending{Key: key, Location: req.Location})
	s.mu.Unlock()
	defer s.inflight.End(key)

	// A started fetch runs to completion; the gateway's own timeout bounds it.
	start := s.clock.Now()
	bundle, err := s.gateway.FetchWeather(context.WithoutCancel(ctx), req.Location, unit)
	if err != nil {
		s.dispatch(WeatherRejected{Key: key, Location: req.Location, Error: err.Error()})
		logger.Warn("weather fetch failed", zap.Error(err), zap.Duration("duration", s.clock.Since(start)))
		return s.record(OutcomeRejected)
	}
	s.dispatch(WeatherFulfilled{Key: key, Bundle: bundle, Unit: unit, At: s.clock.Now()})
	logger.Debug("weather fetched", zap.String("unit", string(unit)), zap.Duration("duration", s.clock.Since(start)))
	return s.record(OutcomeFulfilled)
}

func (s *Store) record(o Outcome) Outcome {
	observability.WeatherRequestsTotal.WithLabelValues(string(o)).Inc()
	return o
}

// Search runs a place search. A blank query is a no-op. Prior results are
// kept when the search fails.
func (s *Store) Search(ctx context.Context, query string) Outcome {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.recordSearch(OutcomeSkipped)
	}
	logger := observability.LoggerFromContext(ctx, s.logger)

	id := s.newID()
	if _, applied := s.dispatch(SearchPending{RequestID: id, Query: query}); !applied {
		return s.recordSearch(OutcomeSkipped)
	}

	results, err := s.gateway.SearchPlaces(context.WithoutCancel(ctx), query)
	if err != nil {
		if _, applied := s.dispatch(SearchRejected{RequestID: id, Error: err.Error()}); !applied {
			return s.recordSearch(OutcomeSuperseded)
		}
		logger.Warn("place search failed", zap.String("query", query), zap.Error(err))
		return s.recordSearch(OutcomeRejected)
	}
	if _, applied := s.dispatch(SearchFulfilled{RequestID: id, Results: results}); !applied {
		logger.Debug("discarding superseded search results", zap.String("query", query))
		return s.recordSearch(OutcomeSuperseded)
	}
	return s.recordSearch(OutcomeFulfilled)
}

func (s *Store) recordSearch(o Outcome) Outcome {
	observability.SearchRequestsTotal.WithLabelValues(string(o)).Inc()
	return o
}

// SetSearchQuery records the text in the search box without searching.
func (s *Store) SetSearchQuery(query string) State {
	st, _ := s.dispatch(SetSearchQuery{Query: query})
	return st
}

// ToggleFavorite adds loc if absent, removes it otherwise, then persists.
func (s *Store) ToggleFavorite(ctx context.Context, loc models.Location) State {
	st, _ := s.dispatch(ToggleFavorite{Location: loc})
	s.persistFavorites(ctx)
	return st
}

// HydrateFavorites replaces the favorites, then persists.
func (s *Store) HydrateFavorites(ctx context.Context, locs []models.Location) State {
	st, _ := s.dispatch(HydrateFavorites{Locations: locs})
	s.persistFavorites(ctx)
	return st
}

// SetUnit changes the unit preference and persists it. Cached entities keep
// the unit they were fetched in until re-requested.
func (s *Store) SetUnit(ctx context.Context, unit models.Unit) (State, error) {
	if !unit.Valid() {
		return s.Snapshot(), models.ErrInvalidUnit
	}
	st, _ := s.dispatch(SetUnit{Unit: unit})
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	s.prefs.SaveUnit(ctx, s.Snapshot().Unit)
	return st, nil
}

// Reset drops all cached entities and the search.
func (s *Store) Reset() State {
	st, _ := s.dispatch(Reset{})
	return st
}

// persistFavorites saves the latest favorites. Saves are serialized and
// always read the current snapshot so a slow save cannot overwrite a newer one.
func (s *Store) persistFavorites(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	s.prefs.SaveFavorites(ctx, s.Snapshot().Favorites)
}

// dispatch applies a and reports whether the state changed.
func (s *Store) dispatch(a Action) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.logger.Debug("store closed, dropping action", zap.String("action", a.Type()))
		return s.state, false
	}
	return s.apply(a)
}

// apply must be called with s.mu held.
func (s *Store) apply(a Action) (State, bool) {
	next := Reduce(s.state, a)
	if next.Version == s.state.Version {
		return s.state, false
	}
	s.state = next
	observability.WeatherEntities.Set(float64(len(next.Entities)))
	observability.FavoritesCount.Set(float64(len(next.Favorites)))
	for _, ch := range s.subs {
		publish(ch, next)
	}
	return next, true
}

// publish replaces any unread state in ch with st.
func publish(ch chan State, st State) {
	select {
	case ch <- st:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- st:
	default:
	}
}
