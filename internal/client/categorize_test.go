package client

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kjstillabower/weather-dashboard/internal/circuitbreaker"
)

// TestCategorizeError verifies that CategorizeError maps errors to the correct ErrorCategory
// for metrics labeling, including wrapped sentinels from the gateway taxonomy.
func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, ""},
		{"missing key", ErrConfig, ErrorCategoryConfig},
		{"timeout context", context.DeadlineExceeded, ErrorCategoryTimeout},
		{"canceled context", context.Canceled, ErrorCategoryTimeout},
		{"network timeout", fmt.Errorf("%w: request timeout: %w", ErrNetwork, context.DeadlineExceeded), ErrorCategoryTimeout},
		{"network", fmt.Errorf("%w: dial tcp: connection refused", ErrNetwork), ErrorCategoryNetwork},
		{"circuit open", fmt.Errorf("%w: %w", ErrNetwork, circuitbreaker.ErrOpen), ErrorCategoryCircuitOpen},
		{"invalid API key", fmt.Errorf("%w: %w: x", ErrAPI, ErrInvalidAPIKey), ErrorCategoryInvalidAPIKey},
		{"location not found", fmt.Errorf("%w: %w: x", ErrAPI, ErrNotFound), ErrorCategoryNotFound},
		{"rate limited", fmt.Errorf("%w: %w", ErrAPI, ErrRateLimited), ErrorCategoryRateLimited},
		{"upstream failure", fmt.Errorf("%w: %w", ErrAPI, ErrUpstreamFailure), ErrorCategoryUpstream5xx},
		{"parse", fmt.Errorf("%w: %w: bad json", ErrAPI, ErrParse), ErrorCategoryParsing},
		{"plain api", fmt.Errorf("%w: Bad Request (HTTP 400)", ErrAPI), ErrorCategoryAPI},
		{"unknown", errors.New("something else"), ErrorCategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CategorizeError(tt.err)
			if got != tt.want {
				t.Errorf("CategorizeError() = %v, want %v", got, tt.want)
			}
		})
	}
}
