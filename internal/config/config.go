package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds dashboard configuration loaded from YAML, .env and the environment.
type Config struct {
	ServerPort string

	// WeatherAPIKey may be empty. The gateway then fails every call with a
	// configuration error instead of the process refusing to start.
	WeatherAPIKey      string
	WeatherAPIURL      string
	WeatherAPITimeout  time.Duration
	ForecastDays       int
	SearchMinQueryLen  int
	SearchMaxQueryLen  int
	RequestTimeout     time.Duration
	RetryAttempts      int
	RetryBaseDelay     time.Duration
	RetryMaxDelay      time.Duration
	RateLimitRPS       int
	RateLimitBurst     int
	BreakerFailures    int
	BreakerSuccesses   int
	BreakerOpenTimeout time.Duration
	StalenessWindow    time.Duration
	DedupeInFlight     bool
	RefreshInterval    time.Duration
	PersistenceBackend string
	PreferencesPath    string
	MemcachedAddrs     string
	MemcachedTimeout   time.Duration
	MemcachedMaxIdle   int
	PostgresDSN        string
	AuthUID            string
	AuthDisplayName    string
	AuthEmail          string
	ShutdownTimeout    time.Duration
	DrainTimeout       time.Duration
	DegradedWindow     time.Duration
	DegradedErrorPct   int
	DegradedMinSamples int
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	WeatherAPI struct {
		URL          string `yaml:"url"`
		Timeout      string `yaml:"timeout"`
		ForecastDays int    `yaml:"forecast_days"`
	} `yaml:"weather_api"`

	Search struct {
		MinQueryLength int `yaml:"min_query_length"`
		MaxQueryLength int `yaml:"max_query_length"`
	} `yaml:"search"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Reliability struct {
		RetryMaxAttempts   int    `yaml:"retry_max_attempts"`
		RetryBaseDelay     string `yaml:"retry_base_delay"`
		RetryMaxDelay      string `yaml:"retry_max_delay"`
		RateLimitRPS       int    `yaml:"rate_limit_rps"`
		RateLimitBurst     int    `yaml:"rate_limit_burst"`
		BreakerFailures    int    `yaml:"breaker_failure_threshold"`
		BreakerSuccesses   int    `yaml:"breaker_success_threshold"`
		BreakerOpenTimeout string `yaml:"breaker_open_timeout"`
	} `yaml:"reliability"`

	Store struct {
		StalenessWindow string `yaml:"staleness_window"`
		DedupeInFlight  bool   `yaml:"dedupe_inflight"`
		RefreshInterval string `yaml:"refresh_interval"`
	} `yaml:"store"`

	Persistence struct {
		Backend   string `yaml:"backend"`
		Path      string `yaml:"path"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
		Postgres struct {
			DSN string `yaml:"dsn"`
		} `yaml:"postgres"`
	} `yaml:"persistence"`

	Auth struct {
		UID         string `yaml:"uid"`
		DisplayName string `yaml:"display_name"`
		Email       string `yaml:"email"`
	} `yaml:"auth"`

	Shutdown struct {
		Timeout      string `yaml:"timeout"`
		DrainTimeout string `yaml:"drain_timeout"`
	} `yaml:"shutdown"`

	Health struct {
		DegradedWindow     string `yaml:"degraded_window"`
		DegradedErrorPct   int    `yaml:"degraded_error_pct"`
		DegradedMinSamples int    `yaml:"degraded_min_samples"`
	} `yaml:"health"`
}

type secretsFile struct {
	WeatherAPIKey string `yaml:"weather_api_key"`
	PostgresDSN   string `yaml:"postgres_dsn"`
}

// Load reads config/{ENV_NAME}.yaml (default dev) relative to the working
// directory, applies a .env file when present, then environment overrides.
// The API key comes from WEATHER_API_KEY or config/secrets.yaml.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	if err := godotenv.Load(filepath.Join(cwd, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	var sec secretsFile
	secretsData, err := os.ReadFile(filepath.Join(cwd, "config", "secrets.yaml"))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(secretsData, &sec); err != nil {
			return nil, fmt.Errorf("parse secrets file: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read secrets file: %w", err)
	}

	cfg := &Config{}
	cfg.ServerPort = firstNonEmpty(os.Getenv("PORT"), fc.Server.Port, "8080")

	cfg.WeatherAPIKey = firstNonEmpty(strings.TrimSpace(os.Getenv("WEATHER_API_KEY")), strings.TrimSpace(sec.WeatherAPIKey))
	cfg.WeatherAPIURL = firstNonEmpty(fc.WeatherAPI.URL, "https://api.weatherapi.com/v1")
	cfg.WeatherAPITimeout = parseDurationOrZero(fc.WeatherAPI.Timeout, 5*time.Second)
	cfg.ForecastDays = positiveOr(fc.WeatherAPI.ForecastDays, 7)

	cfg.SearchMinQueryLen = positiveOr(fc.Search.MinQueryLength, 2)
	cfg.SearchMaxQueryLen = positiveOr(fc.Search.MaxQueryLength, 100)

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 10*time.Second)

	cfg.RetryAttempts = positiveOr(fc.Reliability.RetryMaxAttempts, 1)
	cfg.RetryBaseDelay = parseDuration(fc.Reliability.RetryBaseDelay, 200*time.Millisecond)
	cfg.RetryMaxDelay = parseDuration(fc.Reliability.RetryMaxDelay, 2*time.Second)
	cfg.RateLimitRPS = positiveOr(fc.Reliability.RateLimitRPS, 20)
	cfg.RateLimitBurst = positiveOr(fc.Reliability.RateLimitBurst, 40)
	cfg.BreakerFailures = positiveOr(fc.Reliability.BreakerFailures, 5)
	cfg.BreakerSuccesses = positiveOr(fc.Reliability.BreakerSuccesses, 2)
	cfg.BreakerOpenTimeout = parseDuration(fc.Reliability.BreakerOpenTimeout, 30*time.Second)

	cfg.StalenessWindow = parseDurationOrZero(fc.Store.StalenessWindow, 60*time.Second)
	cfg.DedupeInFlight = fc.Store.DedupeInFlight
	cfg.RefreshInterval = parseDurationOrZero(fc.Store.RefreshInterval, 0)

	cfg.PersistenceBackend = strings.ToLower(strings.TrimSpace(firstNonEmpty(os.Getenv("PERSISTENCE_BACKEND"), fc.Persistence.Backend, "file")))
	cfg.PreferencesPath = firstNonEmpty(os.Getenv("PREFERENCES_PATH"), fc.Persistence.Path, "data/preferences.json")
	cfg.MemcachedAddrs = strings.TrimSpace(firstNonEmpty(os.Getenv("MEMCACHED_ADDRS"), fc.Persistence.Memcached.Addrs, "localhost:11211"))
	cfg.MemcachedTimeout = parseDuration(fc.Persistence.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdle = positiveOr(fc.Persistence.Memcached.MaxIdleConns, 2)
	cfg.PostgresDSN = firstNonEmpty(os.Getenv("POSTGRES_DSN"), sec.PostgresDSN, fc.Persistence.Postgres.DSN)

	cfg.AuthUID = fc.Auth.UID
	cfg.AuthDisplayName = fc.Auth.DisplayName
	cfg.AuthEmail = fc.Auth.Email

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.DrainTimeout = parseDuration(fc.Shutdown.DrainTimeout, 10*time.Second)

	cfg.DegradedWindow = parseDuration(fc.Health.DegradedWindow, 60*time.Second)
	cfg.DegradedErrorPct = positiveOr(fc.Health.DegradedErrorPct, 25)
	cfg.DegradedMinSamples = positiveOr(fc.Health.DegradedMinSamples, 5)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// HasAPIKey reports whether a provider key was configured.
func (c *Config) HasAPIKey() bool {
	return c.WeatherAPIKey != ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func positiveOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Zero and negative results are returned as-is for validate to judge.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate checks loaded values. RequestTimeout is raised above WeatherAPITimeout when needed.
func validate(cfg *Config) error {
	if cfg.WeatherAPITimeout <= 0 {
		return fmt.Errorf("weather_api.timeout must be positive")
	}
	if cfg.RequestTimeout <= cfg.WeatherAPITimeout {
		cfg.RequestTimeout = cfg.WeatherAPITimeout + time.Second
	}
	if cfg.StalenessWindow <= 0 {
		return fmt.Errorf("store.staleness_window must be positive, got %s", cfg.StalenessWindow)
	}
	if cfg.RefreshInterval < 0 {
		return fmt.Errorf("store.refresh_interval must not be negative, got %s", cfg.RefreshInterval)
	}
	if cfg.SearchMinQueryLen > cfg.SearchMaxQueryLen {
		return fmt.Errorf("search.min_query_length %d exceeds max_query_length %d", cfg.SearchMinQueryLen, cfg.SearchMaxQueryLen)
	}
	if cfg.DegradedErrorPct > 100 {
		return fmt.Errorf("health.degraded_error_pct must be at most 100, got %d", cfg.DegradedErrorPct)
	}
	switch cfg.PersistenceBackend {
	case "file", "memory", "memcached", "none":
	case "postgres":
		if cfg.PostgresDSN == "" {
			return fmt.Errorf("persistence.backend postgres requires POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("persistence.backend must be file, memory, memcached, postgres or none, got %q", cfg.PersistenceBackend)
	}
	return nil
}
