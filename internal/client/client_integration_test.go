//go:build integration
// +build integration

package client

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

func integrationClient(t *testing.T) *WeatherAPIClient {
	t.Helper()
	apiKey := os.Getenv("WEATHER_API_KEY")
	if apiKey == "" {
		t.Skip("WEATHER_API_KEY not set, skipping integration test")
	}
	c, err := NewWeatherAPIClient(Options{APIKey: apiKey, Timeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("NewWeatherAPIClient() error = %v", err)
	}
	return c
}

func TestWeatherAPIClient_ValidateAPIKey_Integration(t *testing.T) {
	c := integrationClient(t)
	if err := c.ValidateAPIKey(context.Background()); err != nil {
		t.Errorf("ValidateAPIKey() error = %v, want nil", err)
	}
}

func TestWeatherAPIClient_SearchPlaces_Integration(t *testing.T) {
	c := integrationClient(t)
	results, err := c.SearchPlaces(context.Background(), "London")
	if err != nil {
		t.Fatalf("SearchPlaces() error = %v", err)
	}
	if len(results) == 0 {
		t.Fatal("SearchPlaces() returned no results for London")
	}
	if !results[0].HasCoordinates() {
		t.Errorf("results[0] = %+v, want coordinates", results[0])
	}
}

func TestWeatherAPIClient_FetchWeather_Integration(t *testing.T) {
	c := integrationClient(t)
	loc := models.Location{Name: "London", Lat: models.Float(51.5074), Lon: models.Float(-0.1278)}
	bundle, err := c.FetchWeather(context.Background(), loc, models.UnitMetric)
	if err != nil {
		t.Fatalf("FetchWeather() error = %v", err)
	}
	if len(bundle.Forecast.Daily) == 0 {
		t.Error("FetchWeather() returned no daily forecast")
	}
	if len(bundle.Forecast.Hourly) == 0 {
		t.Error("FetchWeather() returned no hourly forecast")
	}
}
