package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kjstillabower/weather-dashboard/internal/circuitbreaker"
	"github.com/kjstillabower/weather-dashboard/internal/models"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
)

// WeatherClient is the gateway contract the store and health checks depend on.
type WeatherClient interface {
	SearchPlaces(ctx context.Context, query string) ([]models.Location, error)
	FetchWeather(ctx context.Context, loc models.Location, unit models.Unit) (models.WeatherBundle, error)
	ValidateAPIKey(ctx context.Context) error
}

// Error taxonomy. Provider rejections wrap ErrAPI plus a more specific sentinel
// so callers can match either level with errors.Is.
var (
	ErrConfig          = errors.New("weather API key is not configured")
	ErrNetwork         = errors.New("network error")
	ErrAPI             = errors.New("weather API error")
	ErrNotFound        = errors.New("location not found")
	ErrInvalidAPIKey   = errors.New("invalid API key")
	ErrRateLimited     = errors.New("rate limited")
	ErrUpstreamFailure = errors.New("upstream failure")
	ErrParse           = errors.New("parse response")
)

const (
	DefaultBaseURL      = "https://api.weatherapi.com/v1"
	DefaultForecastDays = 7

	endpointSearch   = "search"
	endpointForecast = "forecast"

	// Provider error code for an unresolvable q parameter.
	codeNoMatchingLocation = 1006
)

// Options configures a WeatherAPIClient. Zero values fall back to defaults.
type Options struct {
	APIKey         string
	BaseURL        string
	Timeout        time.Duration
	ForecastDays   int
	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// WeatherAPIClient talks to WeatherAPI.com and normalizes its payloads.
type WeatherAPIClient struct {
	apiKey         string
	baseURL        *url.URL
	timeout        time.Duration
	forecastDays   int
	client         *http.Client
	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	breaker        *circuitbreaker.CircuitBreaker
	outcomes       OutcomeRecorder
}

// OutcomeRecorder receives one outcome per provider call for health reporting.
type OutcomeRecorder interface {
	RecordSuccess()
	RecordError()
}

// NewWeatherAPIClient builds a client. An empty API key is accepted: every call
// then fails with ErrConfig before touching the network.
func NewWeatherAPIClient(opts Options) (*WeatherAPIClient, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid API URL: %q", opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.ForecastDays <= 0 {
		opts.ForecastDays = DefaultForecastDays
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 1
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = 100 * time.Millisecond
	}
	if opts.RetryMaxDelay <= 0 {
		opts.RetryMaxDelay = 2 * time.Second
	}

	return &WeatherAPIClient{
		apiKey:         strings.TrimSpace(opts.APIKey),
		baseURL:        base,
		timeout:        opts.Timeout,
		forecastDays:   opts.ForecastDays,
		retryAttempts:  opts.RetryAttempts,
		retryBaseDelay: opts.RetryBaseDelay,
		retryMaxDelay:  opts.RetryMaxDelay,
		client: &http.Client{
			Timeout: opts.Timeout,
		},
	}, nil
}

// SetCircuitBreaker wraps every provider attempt in cb.
func (c *WeatherAPIClient) SetCircuitBreaker(cb *circuitbreaker.CircuitBreaker) {
	c.breaker = cb
}

// SetOutcomeRecorder reports each call's final outcome to r.
func (c *WeatherAPIClient) SetOutcomeRecorder(r OutcomeRecorder) {
	c.outcomes = r
}

// IsBreakerFailure reports whether err should count against the circuit.
// Unknown places and bad keys are caller problems, not provider health.
func IsBreakerFailure(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrUpstreamFailure) || errors.Is(err, ErrRateLimited)
}

// SearchPlaces returns provider matches for query in provider order.
func (c *WeatherAPIClient) SearchPlaces(ctx context.Context, query string) ([]models.Location, error) {
	if c.apiKey == "" {
		return nil, ErrConfig
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Location{}, nil
	}

	params := url.Values{}
	params.Set("q", query)
	body, err := c.get(ctx, endpointSearch, "/search.json", params)
	if err != nil {
		return nil, err
	}

	var results []searchResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("%w: %w: %v", ErrAPI, ErrParse, err)
	}
	return mapSearchResults(results), nil
}

// FetchWeather resolves loc by coordinates when both are present, otherwise by
// name, and returns current conditions plus the forecast in the requested unit.
func (c *WeatherAPIClient) FetchWeather(ctx context.Context, loc models.Location, unit models.Unit) (models.WeatherBundle, error) {
	if c.apiKey == "" {
		return models.WeatherBundle{}, ErrConfig
	}
	q := locationQuery(loc)
	if q == "" {
		return models.WeatherBundle{}, fmt.Errorf("%w: %w: empty location", ErrAPI, ErrNotFound)
	}
	if !unit.Valid() {
		unit = models.UnitMetric
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("days", strconv.Itoa(c.forecastDays))
	params.Set("aqi", "no")
	params.Set("alerts", "no")
	body, err := c.get(ctx, endpointForecast, "/forecast.json", params)
	if err != nil {
		return models.WeatherBundle{}, err
	}

	var resp forecastResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.WeatherBundle{}, fmt.Errorf("%w: %w: %v", ErrAPI, ErrParse, err)
	}
	return normalizeForecast(resp, loc, unit), nil
}

// locationQuery builds the provider q parameter.
func locationQuery(loc models.Location) string {
	if loc.HasCoordinates() {
		return strconv.FormatFloat(*loc.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(*loc.Lon, 'f', -1, 64)
	}
	return strings.TrimSpace(loc.Name)
}

// get performs the request with optional retries for rate limiting and 5xx.
// Transport failures are never retried automatically.
func (c *WeatherAPIClient) get(ctx context.Context, endpoint, path string, params url.Values) ([]byte, error) {
	body, err := c.getWithRetry(ctx, endpoint, path, params)
	if c.outcomes != nil {
		// Caller mistakes such as unknown places still mean the provider answered.
		if err != nil && IsBreakerFailure(err) {
			c.outcomes.RecordError()
		} else {
			c.outcomes.RecordSuccess()
		}
	}
	return body, err
}

func (c *WeatherAPIClient) getWithRetry(ctx context.Context, endpoint, path string, params url.Values) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			observability.WeatherAPIRetriesTotal.Inc()
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", ErrNetwork, ctx.Err())
			case <-time.After(c.calculateBackoff(attempt)):
			}
		}

		body, err := c.attempt(ctx, endpoint, path, params)
		if err == nil {
			return body, nil
		}
		observability.WeatherAPIErrorsTotal.WithLabelValues(string(CategorizeError(err))).Inc()
		lastErr = err
		if !c.isRetryable(err) {
			return nil, err
		}
	}
	if c.retryAttempts > 1 {
		return nil, fmt.Errorf("exhausted retries: %w", lastErr)
	}
	return nil, lastErr
}

func (c *WeatherAPIClient) attempt(ctx context.Context, endpoint, path string, params url.Values) ([]byte, error) {
	if c.breaker == nil {
		return c.callAPI(ctx, endpoint, path, params)
	}
	var body []byte
	err := c.breaker.Call(ctx, func() error {
		var callErr error
		body, callErr = c.callAPI(ctx, endpoint, path, params)
		return callErr
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	return body, err
}

func (c *WeatherAPIClient) callAPI(ctx context.Context, endpoint, path string, params url.Values) ([]byte, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, path, params)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues(endpoint, "error").Inc()
		observability.WeatherAPIDuration.WithLabelValues(endpoint, "error").Observe(time.Since(start).Seconds())
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: request timeout: %w", ErrNetwork, transportError(err))
		}
		return nil, fmt.Errorf("%w: %w", ErrNetwork, transportError(err))
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.WeatherAPICallsTotal.WithLabelValues(endpoint, status).Inc()
	observability.WeatherAPIDuration.WithLabelValues(endpoint, status).Observe(time.Since(start).Seconds())

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %w", ErrNetwork, err)
	}
	if err := handleErrorResponse(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// transportError strips the request URL from an http.Client error. The URL
// carries the API key in its query string.
func transportError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s %s: %w", ue.Op, endpointLabel(ue.URL), ue.Err)
	}
	return err
}

// endpointLabel reduces a request URL to its path, e.g. "/forecast.json".
func endpointLabel(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "request"
	}
	return u.Path
}

func (c *WeatherAPIClient) buildRequest(ctx context.Context, path string, params url.Values) (*http.Request, error) {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}
	return req, nil
}

func (c *WeatherAPIClient) isRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstreamFailure)
}

func (c *WeatherAPIClient) calculateBackoff(attempt int) time.Duration {
	delay := float64(c.retryBaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(c.retryMaxDelay) {
		delay = float64(c.retryMaxDelay)
	}

	jitter := delay * 0.1 * rand.Float64()
	return time.Duration(delay + jitter)
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// handleErrorResponse maps non-2xx responses onto the error taxonomy.
func handleErrorResponse(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var er errorResponse
	_ = json.Unmarshal(body, &er)
	msg := strings.TrimSpace(er.Error.Message)
	if msg == "" {
		msg = http.StatusText(statusCode)
	}
	detail := fmt.Sprintf("%s (HTTP %d)", msg, statusCode)

	switch {
	case er.Error.Code == codeNoMatchingLocation || statusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %w: %s", ErrAPI, ErrNotFound, detail)
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %w: %s", ErrAPI, ErrInvalidAPIKey, detail)
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w: %s", ErrAPI, ErrRateLimited, detail)
	case statusCode >= 500:
		return fmt.Errorf("%w: %w: %s", ErrAPI, ErrUpstreamFailure, detail)
	}
	return fmt.Errorf("%w: %s", ErrAPI, detail)
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}

// ValidateAPIKey issues a cheap search to check the configured key is accepted.
func (c *WeatherAPIClient) ValidateAPIKey(ctx context.Context) error {
	if c.apiKey == "" {
		return ErrConfig
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	params := url.Values{}
	params.Set("q", "London")
	req, err := c.buildRequest(ctx, "/search.json", params)
	if err != nil {
		return fmt.Errorf("build validation request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: validation request failed: %w", ErrNetwork, transportError(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: API key is invalid or disabled", ErrInvalidAPIKey)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("validation failed: HTTP %d", resp.StatusCode)
	}
	return nil
}
