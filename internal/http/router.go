package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-dashboard/internal/observability"
)

// RouterConfig tunes the middleware chain built by NewRouter.
type RouterConfig struct {
	// Limiter throttles /api routes. Nil disables rate limiting.
	Limiter        *rate.Limiter
	RequestTimeout time.Duration
	// InFlight receives every request. Nil allocates a private tracker.
	InFlight *InFlight
}

// NewRouter wires the dashboard routes onto a gorilla/mux router.
func NewRouter(h *Handler, logger *zap.Logger, cfg RouterConfig) *mux.Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.InFlight == nil {
		cfg.InFlight = &InFlight{}
	}

	r := mux.NewRouter()
	r.Use(CorrelationIDMiddleware(logger))
	r.Use(MetricsMiddleware(cfg.InFlight))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusNotFound, "NOT_FOUND", "no route for "+req.URL.Path)
	})

	r.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	r.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(RateLimitMiddleware(cfg.Limiter, h.traffic))
	api.Use(TimeoutMiddleware(cfg.RequestTimeout))
	api.HandleFunc("/session", h.GetSession).Methods(http.MethodGet)
	api.HandleFunc("/session/signin", h.PostSignIn).Methods(http.MethodPost)
	api.HandleFunc("/session/signout", h.PostSignOut).Methods(http.MethodPost)

	protected := api.NewRoute().Subrouter()
	protected.Use(RequireSession(h.sessions))
	protected.HandleFunc("/state", h.GetState).Methods(http.MethodGet)
	protected.HandleFunc("/weather", h.PostWeather).Methods(http.MethodPost)
	protected.HandleFunc("/weather/{key}", h.GetWeatherEntity).Methods(http.MethodGet)
	protected.HandleFunc("/favorites/toggle", h.PostToggleFavorite).Methods(http.MethodPost)
	protected.HandleFunc("/favorites", h.PutFavorites).Methods(http.MethodPut)
	protected.HandleFunc("/unit", h.PutUnit).Methods(http.MethodPut)
	protected.HandleFunc("/search", h.GetSearch).Methods(http.MethodGet)

	return r
}
