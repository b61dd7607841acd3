package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard/internal/circuitbreaker"
	"github.com/kjstillabower/weather-dashboard/internal/client"
	"github.com/kjstillabower/weather-dashboard/internal/lifecycle"
	"github.com/kjstillabower/weather-dashboard/internal/models"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
	"github.com/kjstillabower/weather-dashboard/internal/persistence"
	"github.com/kjstillabower/weather-dashboard/internal/session"
	"github.com/kjstillabower/weather-dashboard/internal/store"
	"github.com/kjstillabower/weather-dashboard/internal/traffic"
	"github.com/kjstillabower/weather-dashboard/internal/validation"
)

// HealthConfig holds thresholds and probes for the health handler.
type HealthConfig struct {
	DegradedWindow     time.Duration
	DegradedErrorPct   int
	DegradedMinSamples int
	// Breaker, when set, degrades health while open.
	Breaker *circuitbreaker.CircuitBreaker
	// Persistence, when set, is pinged to report backend reachability.
	Persistence persistence.Pinger
}

// Deps are the collaborators a Handler serves.
type Deps struct {
	Store     *store.Store
	Sessions  *session.Manager
	Client    client.WeatherClient
	Traffic   *traffic.Tracker
	Lifecycle *lifecycle.Lifecycle
	Health    *HealthConfig
	Logger    *zap.Logger

	QueryMinLength int
	QueryMaxLength int
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	store     *store.Store
	sessions  *session.Manager
	client    client.WeatherClient
	traffic   *traffic.Tracker
	lifecycle *lifecycle.Lifecycle
	health    *HealthConfig
	logger    *zap.Logger
	validate  *validator.Validate
	queryMin  int
	queryMax  int

	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. Nil Traffic and Lifecycle get fresh instances.
func NewHandler(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Traffic == nil {
		d.Traffic = traffic.NewTracker(nil)
	}
	if d.Lifecycle == nil {
		d.Lifecycle = lifecycle.New()
	}
	return &Handler{
		store:     d.Store,
		sessions:  d.Sessions,
		client:    d.Client,
		traffic:   d.Traffic,
		lifecycle: d.Lifecycle,
		health:    d.Health,
		logger:    d.Logger,
		validate:  validator.New(),
		queryMin:  d.QueryMinLength,
		queryMax:  d.QueryMaxLength,
	}
}

type locationBody struct {
	ID      models.LocationID `json:"id"`
	Name    string            `json:"name" validate:"max=200"`
	Country string            `json:"country" validate:"max=200"`
	Region  string            `json:"region" validate:"max=200"`
	State   string            `json:"state" validate:"max=200"`
	Lat     *float64          `json:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lon     *float64          `json:"lon" validate:"omitempty,gte=-180,lte=180"`
}

func (b locationBody) toLocation() models.Location {
	return models.Location{
		ID:      b.ID,
		Name:    strings.TrimSpace(b.Name),
		Country: b.Country,
		Region:  b.Region,
		State:   b.State,
		Lat:     b.Lat,
		Lon:     b.Lon,
	}
}

type weatherRequestBody struct {
	Location locationBody `json:"location" validate:"required"`
	Unit     string       `json:"unit" validate:"omitempty,oneof=metric imperial"`
	Force    bool         `json:"force"`
}

type toggleFavoriteBody struct {
	Location locationBody `json:"location" validate:"required"`
}

type favoritesBody struct {
	Locations []locationBody `json:"locations" validate:"max=100,dive"`
}

type unitBody struct {
	Unit string `json:"unit" validate:"required,oneof=metric imperial"`
}

// decodeBody decodes and validates a JSON body, writing a 400 on failure.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON: "+err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	return "field " + fe.Namespace() + " failed " + fe.Tag() + " validation"
}

// GetState handles GET /api/state.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

// GetWeatherEntity handles GET /api/weather/{key}.
func (h *Handler) GetWeatherEntity(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if err := validation.ValidateLocationKey(key); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_LOCATION", err.Error())
		return
	}
	e, ok := h.store.Snapshot().Entity(key)
	if !ok {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "no weather cached for "+key)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// PostWeather handles POST /api/weather. Gateway failures are reported on the
// entity with a 200; only malformed requests are errors.
func (h *Handler) PostWeather(w http.ResponseWriter, r *http.Request) {
	var body weatherRequestBody
	if !h.decodeBody(w, r, &body) {
		return
	}
	loc := body.Location.toLocation()
	key := loc.Key()
	if key == "" {
		writeError(w, r, http.StatusBadRequest, "INVALID_LOCATION", "location needs a name or coordinates")
		return
	}
	outcome := h.store.RequestWeather(r.Context(), store.WeatherRequest{
		Location: loc,
		Unit:     models.Unit(body.Unit),
		Force:    body.Force,
	})
	e, _ := h.store.Snapshot().Entity(key)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"outcome": outcome,
		"key":     key,
		"entity":  e,
	})
}

// PostToggleFavorite handles POST /api/favorites/toggle.
func (h *Handler) PostToggleFavorite(w http.ResponseWriter, r *http.Request) {
	var body toggleFavoriteBody
	if !h.decodeBody(w, r, &body) {
		return
	}
	loc := body.Location.toLocation()
	if loc.Key() == "" {
		writeError(w, r, http.StatusBadRequest, "INVALID_LOCATION", "location needs a name or coordinates")
		return
	}
	st := h.store.ToggleFavorite(r.Context(), loc)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"favorites":  st.Favorites,
		"isFavorite": st.IsFavorite(loc.Key()),
	})
}

// PutFavorites handles PUT /api/favorites.
func (h *Handler) PutFavorites(w http.ResponseWriter, r *http.Request) {
	var body favoritesBody
	if !h.decodeBody(w, r, &body) {
		return
	}
	locs := make([]models.Location, 0, len(body.Locations))
	for _, b := range body.Locations {
		locs = append(locs, b.toLocation())
	}
	st := h.store.HydrateFavorites(r.Context(), locs)
	writeJSON(w, http.StatusOK, map[string]interface{}{"favorites": st.Favorites})
}

// PutUnit handles PUT /api/unit.
func (h *Handler) PutUnit(w http.ResponseWriter, r *http.Request) {
	var body unitBody
	if !h.decodeBody(w, r, &body) {
		return
	}
	st, err := h.store.SetUnit(r.Context(), models.Unit(body.Unit))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_UNIT", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"unit": st.Unit})
}

// GetSearch handles GET /api/search?q=. A blank query is a no-op, not an error.
func (h *Handler) GetSearch(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("q")
	outcome := store.OutcomeSkipped
	if strings.TrimSpace(raw) != "" {
		q, err := validation.ValidateQuery(raw, h.queryMin, h.queryMax)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_QUERY", err.Error())
			return
		}
		outcome = h.store.Search(r.Context(), q)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"outcome": outcome,
		"search":  h.store.Snapshot().Search,
	})
}

// GetSession handles GET /api/session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	user := h.sessions.User()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"signedIn": user != nil,
		"user":     user,
	})
}

// PostSignIn handles POST /api/session/signin. A cancelled sign-in is a 200
// that leaves the current session as it was.
func (h *Handler) PostSignIn(w http.ResponseWriter, r *http.Request) {
	user, err := h.sessions.SignIn(r.Context())
	if err != nil {
		writeError(w, r, http.StatusBadGateway, "SIGN_IN_FAILED", "identity provider error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"signedIn":  h.sessions.SignedIn(),
		"user":      h.sessions.User(),
		"cancelled": user == nil,
	})
}

// PostSignOut handles POST /api/session/signout.
func (h *Handler) PostSignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.SignOut(r.Context()); err != nil {
		writeError(w, r, http.StatusBadGateway, "SIGN_OUT_FAILED", "identity provider error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"signedIn": false})
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
	apiCheck   string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus(r.Context())

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{"weatherApi": result.apiCheck}
	if h.health != nil && h.health.Breaker != nil {
		checks["circuitBreaker"] = h.health.Breaker.State().String()
	}
	checks["persistence"] = "disabled"
	if h.health != nil && h.health.Persistence != nil {
		if h.health.Persistence.Ping(r.Context()) == nil {
			checks["persistence"] = "healthy"
		} else {
			checks["persistence"] = "unhealthy"
		}
	}
	resp := map[string]interface{}{
		"status":    result.status,
		"service":   "weather-dashboard",
		"version":   "dev",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if result.reason != "" {
		resp["reason"] = result.reason
	}
	writeJSON(w, result.statusCode, resp)
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > API key > circuit open > error rate > healthy.
func (h *Handler) computeHealthStatus(ctx context.Context) healthResult {
	if h.lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal", "unknown"}
	}
	if h.client != nil {
		if err := h.client.ValidateAPIKey(ctx); err != nil {
			if errors.Is(err, client.ErrConfig) {
				return healthResult{"degraded", http.StatusServiceUnavailable, "api_key_missing", "unconfigured"}
			}
			return healthResult{"degraded", http.StatusServiceUnavailable, "api_key_invalid", "unhealthy"}
		}
	}
	if h.health == nil {
		return healthResult{"healthy", http.StatusOK, "", "healthy"}
	}
	if h.health.Breaker != nil && h.health.Breaker.State() == circuitbreaker.StateOpen {
		return healthResult{"degraded", http.StatusServiceUnavailable, "circuit_open", "unhealthy"}
	}
	if h.health.DegradedWindow > 0 && h.health.DegradedErrorPct > 0 {
		threshold := float64(h.health.DegradedErrorPct) / 100
		if h.traffic.Degraded(h.health.DegradedWindow, threshold, h.health.DegradedMinSamples) {
			return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach", "unhealthy"}
		}
	}
	return healthResult{"healthy", http.StatusOK, "", "healthy"}
}

// writeJSON writes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the standard error envelope with the request's correlation ID.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationID(r.Context()),
		},
	})
	observability.LoggerFromContext(r.Context(), zap.NewNop()).Debug("request failed",
		zap.Int("status", status),
		zap.String("code", code),
		zap.String("message", message),
	)
}
