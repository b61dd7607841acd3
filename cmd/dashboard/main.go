package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-dashboard/internal/circuitbreaker"
	"github.com/kjstillabower/weather-dashboard/internal/client"
	"github.com/kjstillabower/weather-dashboard/internal/config"
	httphandler "github.com/kjstillabower/weather-dashboard/internal/http"
	"github.com/kjstillabower/weather-dashboard/internal/lifecycle"
	"github.com/kjstillabower/weather-dashboard/internal/models"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
	"github.com/kjstillabower/weather-dashboard/internal/persistence"
	"github.com/kjstillabower/weather-dashboard/internal/session"
	"github.com/kjstillabower/weather-dashboard/internal/store"
	"github.com/kjstillabower/weather-dashboard/internal/traffic"
)

const breakerComponent = "weather_api"

// app is the wired dashboard. newApp builds it; shutdown tears it down.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	kv        persistence.KV
	store     *store.Store
	refresher *store.Refresher
	lifecycle *lifecycle.Lifecycle
	inflight  *httphandler.InFlight
	server    *http.Server
}

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup", zap.Error(err))
	}

	go func() {
		logger.Info("server starting", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()
	if a.cfg.RefreshInterval > 0 {
		go func() {
			if err := a.refresher.Run(ctx, a.cfg.RefreshInterval); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("favorites refresher stopped", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()
	stop()
	logger.Info("graceful shutdown triggered")
	a.shutdown()
	logger.Info("shutdown complete")
}

// newApp wires every component from cfg and hydrates the store from the
// preference backend.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	if !cfg.HasAPIKey() {
		logger.Warn("WEATHER_API_KEY not configured; weather lookups will fail until it is set")
	}

	weatherClient, err := client.NewWeatherAPIClient(client.Options{
		APIKey:         cfg.WeatherAPIKey,
		BaseURL:        cfg.WeatherAPIURL,
		Timeout:        cfg.WeatherAPITimeout,
		ForecastDays:   cfg.ForecastDays,
		RetryAttempts:  cfg.RetryAttempts,
		RetryBaseDelay: cfg.RetryBaseDelay,
		RetryMaxDelay:  cfg.RetryMaxDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("weather client: %w", err)
	}

	breaker := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: cfg.BreakerFailures,
		SuccessThreshold: cfg.BreakerSuccesses,
		Timeout:          cfg.BreakerOpenTimeout,
		Component:        breakerComponent,
		IsFailure:        client.IsBreakerFailure,
		OnStateChange: func(from, to circuitbreaker.State) {
			observability.RecordCircuitBreakerTransition(breakerComponent, from.String(), to.String(), int(to))
			logger.Warn("circuit breaker transition", zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	observability.CircuitBreakerState.WithLabelValues(breakerComponent).Set(0)
	weatherClient.SetCircuitBreaker(breaker)

	tracker := traffic.NewTracker(clockwork.NewRealClock())
	weatherClient.SetOutcomeRecorder(tracker)

	kv, err := persistence.Open(ctx, persistence.Options{
		Backend:               cfg.PersistenceBackend,
		Path:                  cfg.PreferencesPath,
		MemcachedAddrs:        cfg.MemcachedAddrs,
		MemcachedTimeout:      cfg.MemcachedTimeout,
		MemcachedMaxIdleConns: cfg.MemcachedMaxIdle,
		PostgresDSN:           cfg.PostgresDSN,
	})
	if err != nil {
		return nil, fmt.Errorf("persistence: %w", err)
	}
	logger.Info("persistence backend", zap.String("backend", cfg.PersistenceBackend))

	st := store.New(weatherClient, persistence.NewPreferences(kv, logger), store.Options{
		StalenessWindow: cfg.StalenessWindow,
		DedupeInFlight:  cfg.DedupeInFlight,
		Logger:          logger,
	})
	loaded := st.Load(ctx)
	logger.Info("preferences loaded", zap.String("unit", string(loaded.Unit)), zap.Int("favorites", len(loaded.Favorites)))

	var profile *models.User
	if cfg.AuthUID != "" {
		profile = &models.User{UID: cfg.AuthUID, DisplayName: cfg.AuthDisplayName, Email: cfg.AuthEmail}
	}
	sessions := session.NewManager(session.StaticProvider{Profile: profile}, logger)

	health := &httphandler.HealthConfig{
		DegradedWindow:     cfg.DegradedWindow,
		DegradedErrorPct:   cfg.DegradedErrorPct,
		DegradedMinSamples: cfg.DegradedMinSamples,
		Breaker:            breaker,
	}
	if p, ok := kv.(persistence.Pinger); ok {
		health.Persistence = p
	}

	lc := lifecycle.New()
	handler := httphandler.NewHandler(httphandler.Deps{
		Store:          st,
		Sessions:       sessions,
		Client:         weatherClient,
		Traffic:        tracker,
		Lifecycle:      lc,
		Health:         health,
		Logger:         logger,
		QueryMinLength: cfg.SearchMinQueryLen,
		QueryMaxLength: cfg.SearchMaxQueryLen,
	})

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	inflight := &httphandler.InFlight{}
	router := httphandler.NewRouter(handler, logger, httphandler.RouterConfig{
		Limiter:        limiter,
		RequestTimeout: cfg.RequestTimeout,
		InFlight:       inflight,
	})

	return &app{
		cfg:       cfg,
		logger:    logger,
		kv:        kv,
		store:     st,
		refresher: store.NewRefresher(st, clockwork.NewRealClock(), logger),
		lifecycle: lc,
		inflight:  inflight,
		server: &http.Server{
			Addr:         ":" + cfg.ServerPort,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		},
	}, nil
}

// shutdown drains requests, closes the store so late completions are dropped,
// then releases the backend and flushes telemetry.
func (a *app) shutdown() {
	a.lifecycle.BeginShutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown", zap.Error(err))
	}

	a.logger.Info("waiting for in-flight requests", zap.Int64("count", a.inflight.Count()))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), a.cfg.DrainTimeout)
	defer waitCancel()
	if err := a.inflight.Wait(waitCtx, 50*time.Millisecond); err != nil {
		a.logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", a.inflight.Count()))
	}

	a.store.Close()
	if err := persistence.Close(a.kv); err != nil {
		a.logger.Error("persistence close", zap.Error(err))
	}
	if err := observability.FlushTelemetry(context.Background(), a.logger); err != nil {
		a.logger.Error("telemetry flush", zap.Error(err))
	}
}
