package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"testing"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

// BenchmarkClient_BuildRequest benchmarks HTTP request construction.
func BenchmarkClient_BuildRequest(b *testing.B) {
	client, _ := NewWeatherAPIClient(Options{APIKey: "test-api-key"})
	ctx := context.Background()
	params := url.Values{}
	params.Set("q", "51.507,-0.128")
	params.Set("days", "7")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = client.buildRequest(ctx, "/forecast.json", params)
	}
}

// BenchmarkClient_ParseForecast benchmarks decoding a seven day forecast payload.
func BenchmarkClient_ParseForecast(b *testing.B) {
	body, err := json.Marshal(forecastFixture(7))
	if err != nil {
		b.Fatalf("marshal fixture: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var resp forecastResponse
		_ = json.Unmarshal(body, &resp)
	}
}

// BenchmarkClient_NormalizeForecast benchmarks mapping the payload to the domain bundle.
func BenchmarkClient_NormalizeForecast(b *testing.B) {
	body, _ := json.Marshal(forecastFixture(7))
	var resp forecastResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		b.Fatalf("unmarshal fixture: %v", err)
	}
	loc := models.Location{Name: "London", Lat: models.Float(51.5074), Lon: models.Float(-0.1278)}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = normalizeForecast(resp, loc, models.UnitMetric)
	}
}

// BenchmarkClient_HandleErrorResponse benchmarks error response handling.
func BenchmarkClient_HandleErrorResponse(b *testing.B) {
	body := []byte(`{"error":{"code":1006,"message":"No matching location found."}}`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = handleErrorResponse(400, body)
	}
}

// BenchmarkClient_IsRetryable benchmarks retry decision logic.
func BenchmarkClient_IsRetryable(b *testing.B) {
	client, _ := NewWeatherAPIClient(Options{APIKey: "key"})

	testErrors := []error{
		ErrRateLimited,
		ErrUpstreamFailure,
		fmt.Errorf("%w: connection refused", ErrNetwork),
		fmt.Errorf("%w: %w", ErrAPI, ErrNotFound),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = client.isRetryable(testErrors[i%len(testErrors)])
	}
}

// BenchmarkStatusLabel benchmarks HTTP status code to label conversion.
func BenchmarkStatusLabel(b *testing.B) {
	statusCodes := []int{200, 400, 429, 500, 503}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = statusLabel(statusCodes[i%len(statusCodes)])
	}
}
