package store

import (
	"time"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

// Action is a reducer input. Every action carries whatever time or identity
// it needs so Reduce stays a pure function.
type Action interface {
	Type() string
}

type SetUnit struct{ Unit models.Unit }

type SetSearchQuery struct{ Query string }

type ToggleFavorite struct{ Location models.Location }

type HydrateFavorites struct{ Locations []models.Location }

type WeatherPending struct {
	Key      models.LocationKey
	Location models.Location
}

type WeatherFulfilled struct {
	Key    models.LocationKey
	Bundle models.WeatherBundle
	Unit   models.Unit
	At     time.Time
}

type WeatherRejected struct {
	Key      models.LocationKey
	Location models.Location
	Error    string
}

type SearchPending struct {
	RequestID string
	Query     string
}

type SearchFulfilled struct {
	RequestID string
	Results   []models.Location
}

type SearchRejected struct {
	RequestID string
	Error     string
}

// Reset drops every entity and the search. Preferences survive because they
// mirror persisted storage.
type Reset struct{}

func (SetUnit) Type() string          { return "unit/set" }
func (SetSearchQuery) Type() string   { return "search/setQuery" }
func (ToggleFavorite) Type() string   { return "favorites/toggle" }
func (HydrateFavorites) Type() string { return "favorites/hydrate" }
func (WeatherPending) Type() string   { return "weather/pending" }
func (WeatherFulfilled) Type() string { return "weather/fulfilled" }
func (WeatherRejected) Type() string  { return "weather/rejected" }
func (SearchPending) Type() string    { return "search/pending" }
func (SearchFulfilled) Type() string  { return "search/fulfilled" }
func (SearchRejected) Type() string   { return "search/rejected" }
func (Reset) Type() string            { return "store/reset" }

// Reduce returns the state after applying a. When a changes nothing, s is
// returned as is with the same Version.
func Reduce(s State, a Action) State {
	next, changed := reduce(s, a)
	if !changed {
		return s
	}
	next.Version = s.Version + 1
	return next
}

func reduce(s State, a Action) (State, bool) {
	switch a := a.(type) {
	case SetUnit:
		if !a.Unit.Valid() {
			return s, false
		}
		s.Unit = a.Unit
		return s, true

	case SetSearchQuery:
		if a.Query == s.Search.Query {
			return s, false
		}
		search := s.Search
		search.Query = a.Query
		s.Search = search
		return s, true

	case ToggleFavorite:
		key := a.Location.Key()
		if key == "" {
			return s, false
		}
		if i := favoriteIndex(s.Favorites, key); i >= 0 {
			favs := make([]models.Location, 0, len(s.Favorites)-1)
			favs = append(favs, s.Favorites[:i]...)
			s.Favorites = append(favs, s.Favorites[i+1:]...)
			return s, true
		}
		favs := make([]models.Location, 0, len(s.Favorites)+1)
		favs = append(favs, s.Favorites...)
		s.Favorites = append(favs, a.Location.Normalized())
		return s, true

	case HydrateFavorites:
		s.Favorites = normalizeFavorites(a.Locations)
		return s, true

	case WeatherPending:
		e, ok := s.Entities[a.Key]
		if !ok {
			e.Location = a.Location.Normalized()
		}
		e.Status = StatusLoading
		e.Error = ""
		s.Entities = withEntity(s.Entities, a.Key, e)
		return s, true

	case WeatherFulfilled:
		current := a.Bundle.Current
		forecast := a.Bundle.Forecast
		loc := a.Bundle.Location
		if loc.Key() == "" {
			loc = s.Entities[a.Key].Location
		}
		s.Entities = withEntity(s.Entities, a.Key, Entity{
			Location:  loc.Normalized(),
			Current:   &current,
			Forecast:  &forecast,
			Unit:      a.Unit,
			UpdatedAt: a.At,
			Status:    StatusSucceeded,
		})
		return s, true

	case WeatherRejected:
		e, ok := s.Entities[a.Key]
		if !ok {
			e.Location = a.Location.Normalized()
		}
		e.Status = StatusFailed
		e.Error = a.Error
		s.Entities = withEntity(s.Entities, a.Key, e)
		return s, true

	case SearchPending:
		s.Search = SearchState{
			Query:     a.Query,
			Results:   s.Search.Results,
			Status:    StatusLoading,
			RequestID: a.RequestID,
		}
		return s, true

	case SearchFulfilled:
		if a.RequestID != s.Search.RequestID {
			return s, false
		}
		results := make([]models.Location, 0, len(a.Results))
		for _, r := range a.Results {
			results = append(results, r.Normalized())
		}
		search := s.Search
		search.Results = results
		search.Status = StatusSucceeded
		search.Error = ""
		s.Search = search
		return s, true

	case SearchRejected:
		if a.RequestID != s.Search.RequestID {
			return s, false
		}
		search := s.Search
		search.Status = StatusFailed
		search.Error = a.Error
		s.Search = search
		return s, true

	case Reset:
		s.Entities = map[models.LocationKey]Entity{}
		s.Search = SearchState{Results: []models.Location{}, Status: StatusIdle}
		return s, true
	}
	return s, false
}

// withEntity copies entities with key set to e.
func withEntity(entities map[models.LocationKey]Entity, key models.LocationKey, e Entity) map[models.LocationKey]Entity {
	out := make(map[models.LocationKey]Entity, len(entities)+1)
	for k, v := range entities {
		out[k] = v
	}
	out[key] = e
	return out
}

// normalizeFavorites keeps the first occurrence of each key and drops
// locations without any identity.
func normalizeFavorites(list []models.Location) []models.Location {
	out := make([]models.Location, 0, len(list))
	seen := make(map[models.LocationKey]struct{}, len(list))
	for _, loc := range list {
		key := loc.Key()
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, loc.Normalized())
	}
	return out
}
