package store

import (
	"time"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

// Status is the load status of an entity or of the search.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Entity is the cached weather record for one location key.
// Current and Forecast are nil until the first successful fetch.
type Entity struct {
	Location  models.Location           `json:"location"`
	Current   *models.CurrentConditions `json:"current"`
	Forecast  *models.ForecastBundle    `json:"forecast"`
	Unit      models.Unit               `json:"unit,omitempty"`
	UpdatedAt time.Time                 `json:"updatedAt"`
	Status    Status                    `json:"status"`
	Error     string                    `json:"error,omitempty"`
}

// FreshAt reports whether e was fetched successfully within window of now.
// An entity that never succeeded has a zero UpdatedAt and is never fresh.
func (e Entity) FreshAt(now time.Time, window time.Duration) bool {
	if e.UpdatedAt.IsZero() {
		return false
	}
	return now.Sub(e.UpdatedAt) <= window
}

// SearchState holds the latest place search. RequestID identifies the search
// whose completion is accepted; older completions are discarded.
type SearchState struct {
	Query     string            `json:"query"`
	Results   []models.Location `json:"results"`
	Status    Status            `json:"status"`
	Error     string            `json:"error,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
}

// State is an immutable snapshot. The reducer never mutates a published
// State; it replaces whichever top-level field changed.
type State struct {
	Version   uint64                        `json:"version"`
	Unit      models.Unit                   `json:"unit"`
	Favorites []models.Location             `json:"favorites"`
	Entities  map[models.LocationKey]Entity `json:"entities"`
	Search    SearchState                   `json:"search"`
}

// InitialState is the empty store: metric, no favorites, no entities.
func InitialState() State {
	return State{
		Unit:      models.UnitMetric,
		Favorites: []models.Location{},
		Entities:  map[models.LocationKey]Entity{},
		Search:    SearchState{Results: []models.Location{}, Status: StatusIdle},
	}
}

// Entity returns the entity for key.
func (s State) Entity(key models.LocationKey) (Entity, bool) {
	e, ok := s.Entities[key]
	return e, ok
}

// IsFavorite reports whether a favorite with key exists.
func (s State) IsFavorite(key models.LocationKey) bool {
	return favoriteIndex(s.Favorites, key) >= 0
}

func favoriteIndex(favs []models.Location, key models.LocationKey) int {
	for i, f := range favs {
		if f.Key() == key {
			return i
		}
	}
	return -1
}
