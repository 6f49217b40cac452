// Package decorators wraps the upstream weather provider with resilience
// layers: circuit breaking and client-side rate limiting.
package decorators

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/UnLuCkYcOdEr69/Weatherly/internal/services/openweather"
)

type provider interface {
	CurrentConditions(ctx context.Context, lat, lon float64) (openweather.CurrentConditions, error)
	AirQuality(ctx context.Context, lat, lon float64) (int, error)
	Forecast(ctx context.Context, lat, lon float64) ([]openweather.ForecastEntry, error)
	Geocode(ctx context.Context, city string) (openweather.Coordinates, bool, error)
}

type BreakerConfig struct {
	TimeInterval time.Duration
	TimeTimeOut  time.Duration
	RepeatNumber uint32
}

// BreakerProvider guards each upstream endpoint with its own circuit
// breaker, so a failing forecast endpoint does not block current
// conditions.
type BreakerProvider struct {
	current  *gobreaker.CircuitBreaker
	air      *gobreaker.CircuitBreaker
	forecast *gobreaker.CircuitBreaker
	geocode  *gobreaker.CircuitBreaker
	wrapped  provider
}

func NewBreakerProvider(cfg BreakerConfig, wrapped provider) *BreakerProvider {
	newBreaker := func(name string) *gobreaker.CircuitBreaker {
		return gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    cfg.TimeInterval,
			Timeout:     cfg.TimeTimeOut,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.RepeatNumber
			},
		})
	}
	return &BreakerProvider{
		current:  newBreaker("current conditions"),
		air:      newBreaker("air quality"),
		forecast: newBreaker("forecast"),
		geocode:  newBreaker("geocoding"),
		wrapped:  wrapped,
	}
}

func (b *BreakerProvider) CurrentConditions(
	ctx context.Context,
	lat, lon float64,
) (openweather.CurrentConditions, error) {
	result, err := b.current.Execute(func() (interface{}, error) {
		return b.wrapped.CurrentConditions(ctx, lat, lon)
	})
	if err != nil {
		return openweather.CurrentConditions{},
			fmt.Errorf("current conditions unavailable: %w", err)
	}
	res, ok := result.(openweather.CurrentConditions)
	if !ok {
		return openweather.CurrentConditions{},
			fmt.Errorf("current conditions returned unexpected result")
	}
	return res, nil
}

func (b *BreakerProvider) AirQuality(ctx context.Context, lat, lon float64) (int, error) {
	result, err := b.air.Execute(func() (interface{}, error) {
		return b.wrapped.AirQuality(ctx, lat, lon)
	})
	if err != nil {
		return 0, fmt.Errorf("air quality unavailable: %w", err)
	}
	res, ok := result.(int)
	if !ok {
		return 0, fmt.Errorf("air quality returned unexpected result")
	}
	return res, nil
}

func (b *BreakerProvider) Forecast(
	ctx context.Context,
	lat, lon float64,
) ([]openweather.ForecastEntry, error) {
	result, err := b.forecast.Execute(func() (interface{}, error) {
		return b.wrapped.Forecast(ctx, lat, lon)
	})
	if err != nil {
		return nil, fmt.Errorf("forecast unavailable: %w", err)
	}
	res, ok := result.([]openweather.ForecastEntry)
	if !ok {
		return nil, fmt.Errorf("forecast returned unexpected result")
	}
	return res, nil
}

type geocodeResult struct {
	coords openweather.Coordinates
	found  bool
}

func (b *BreakerProvider) Geocode(ctx context.Context, city string) (openweather.Coordinates, bool, error) {
	result, err := b.geocode.Execute(func() (interface{}, error) {
		coords, found, err := b.wrapped.Geocode(ctx, city)
		if err != nil {
			return nil, err
		}
		return geocodeResult{coords: coords, found: found}, nil
	})
	if err != nil {
		return openweather.Coordinates{}, false,
			fmt.Errorf("geocoding unavailable: %w", err)
	}
	res, ok := result.(geocodeResult)
	if !ok {
		return openweather.Coordinates{}, false,
			fmt.Errorf("geocoding returned unexpected result")
	}
	return res.coords, res.found, nil
}
