package decorators

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/UnLuCkYcOdEr69/Weatherly/internal/services/openweather"
)

// RateLimitedProvider throttles all upstream calls through one shared
// token bucket, keeping the combined request rate under the provider's
// free-tier quota.
type RateLimitedProvider struct {
	limiter *rate.Limiter
	wrapped provider
}

func NewRateLimitedProvider(wrapped provider, rps float64, burst int) *RateLimitedProvider {
	return &RateLimitedProvider{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		wrapped: wrapped,
	}
}

func (r *RateLimitedProvider) CurrentConditions(
	ctx context.Context,
	lat, lon float64,
) (openweather.CurrentConditions, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return openweather.CurrentConditions{}, fmt.Errorf("rate limit wait canceled: %w", err)
	}
	return r.wrapped.CurrentConditions(ctx, lat, lon)
}

func (r *RateLimitedProvider) AirQuality(ctx context.Context, lat, lon float64) (int, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit wait canceled: %w", err)
	}
	return r.wrapped.AirQuality(ctx, lat, lon)
}

func (r *RateLimitedProvider) Forecast(
	ctx context.Context,
	lat, lon float64,
) ([]openweather.ForecastEntry, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait canceled: %w", err)
	}
	return r.wrapped.Forecast(ctx, lat, lon)
}

func (r *RateLimitedProvider) Geocode(
	ctx context.Context,
	city string,
) (openweather.Coordinates, bool, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return openweather.Coordinates{}, false, fmt.Errorf("rate limit wait canceled: %w", err)
	}
	return r.wrapped.Geocode(ctx, city)
}
