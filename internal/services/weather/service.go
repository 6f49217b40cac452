package weather

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/UnLuCkYcOdEr69/Weatherly/internal/apperr"
	"github.com/UnLuCkYcOdEr69/Weatherly/internal/models"
	"github.com/UnLuCkYcOdEr69/Weatherly/internal/services/openweather"
)

// placeholderAPIKey is the value shipped in example env files; treated the
// same as a missing key.
const placeholderAPIKey = "YOUR_OPENWEATHER_API_KEY"

// maxForecastPoints bounds the forecast to the next ~24 hours at the
// provider's 3-hour granularity.
const maxForecastPoints = 8

type provider interface {
	CurrentConditions(ctx context.Context, lat, lon float64) (openweather.CurrentConditions, error)
	AirQuality(ctx context.Context, lat, lon float64) (int, error)
	Forecast(ctx context.Context, lat, lon float64) ([]openweather.ForecastEntry, error)
	Geocode(ctx context.Context, city string) (openweather.Coordinates, bool, error)
}

type cache interface {
	Get(ctx context.Context, lat, lon float64) (models.WeatherSnapshot, bool, error)
	Put(ctx context.Context, lat, lon float64, snapshot models.WeatherSnapshot) error
}

// Service aggregates the upstream responses into one snapshot, consulting
// the cache first and populating it after every successful fetch.
type Service struct {
	apiKey   string
	provider provider
	cache    cache
	log      zerolog.Logger
}

func NewService(apiKey string, p provider, c cache, logger zerolog.Logger) *Service {
	logger = logger.With().Str("component", "WeatherService").Logger()
	return &Service{apiKey: apiKey, provider: p, cache: c, log: logger}
}

// ByCity resolves the place name to coordinates and delegates to
// ByCoordinates. An empty geocoding result is a not-found error naming the
// city; no weather call is attempted.
func (s *Service) ByCity(ctx context.Context, city string) (models.WeatherSnapshot, error) {
	if err := s.checkAPIKey(); err != nil {
		return models.WeatherSnapshot{}, err
	}

	coords, found, err := s.provider.Geocode(ctx, city)
	if err != nil {
		return models.WeatherSnapshot{}, err
	}
	if !found {
		return models.WeatherSnapshot{}, apperr.NotFound(fmt.Sprintf("city %q not found", city))
	}

	s.log.Debug().Ctx(ctx).
		Str("city", city).
		Float64("lat", coords.Lat).
		Float64("lon", coords.Lon).
		Msg("city resolved to coordinates")
	return s.ByCoordinates(ctx, coords.Lat, coords.Lon)
}

// ByCoordinates returns the snapshot for the coordinates, from cache when
// fresh. On a miss the three upstream fetches run concurrently and all must
// succeed; the normalized result is cached before returning.
func (s *Service) ByCoordinates(ctx context.Context, lat, lon float64) (models.WeatherSnapshot, error) {
	if err := s.checkAPIKey(); err != nil {
		return models.WeatherSnapshot{}, err
	}

	if snapshot, ok, err := s.cache.Get(ctx, lat, lon); err != nil {
		return models.WeatherSnapshot{}, err
	} else if ok {
		return snapshot, nil
	}

	var (
		current  openweather.CurrentConditions
		aqi      int
		forecast []openweather.ForecastEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = s.provider.CurrentConditions(gctx, lat, lon)
		return err
	})
	g.Go(func() error {
		var err error
		aqi, err = s.provider.AirQuality(gctx, lat, lon)
		return err
	})
	g.Go(func() error {
		var err error
		forecast, err = s.provider.Forecast(gctx, lat, lon)
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Error().Err(err).Ctx(ctx).
			Float64("lat", lat).
			Float64("lon", lon).
			Msg("upstream fetch failed")
		return models.WeatherSnapshot{}, err
	}

	snapshot := normalize(current, aqi, forecast)

	if err := s.cache.Put(ctx, lat, lon, snapshot); err != nil {
		return models.WeatherSnapshot{}, err
	}
	return snapshot, nil
}

func (s *Service) checkAPIKey() error {
	key := strings.TrimSpace(s.apiKey)
	if key == "" || key == placeholderAPIKey {
		return apperr.Config("API_KEY_MISSING: add OPENWEATHER_API_KEY to the environment")
	}
	return nil
}

// normalize folds the three raw responses into one snapshot. Forecast
// probabilities are scaled from the provider's 0-1 fraction to percent;
// the snapshot-level probability is the maximum over the retained points.
func normalize(
	current openweather.CurrentConditions,
	aqi int,
	forecast []openweather.ForecastEntry,
) models.WeatherSnapshot {
	entries := forecast
	if len(entries) > maxForecastPoints {
		entries = entries[:maxForecastPoints]
	}

	var maxProb float64
	points := make([]models.ForecastPoint, 0, len(entries))
	for _, e := range entries {
		prob := e.Pop * 100
		if prob > maxProb {
			maxProb = prob
		}
		points = append(points, models.ForecastPoint{
			Time:     e.At.Local().Format("15:04"),
			Temp:     e.Temp,
			RainProb: prob,
			Icon:     e.Icon,
		})
	}

	return models.WeatherSnapshot{
		Temp:            current.Temp,
		FeelsLike:       current.FeelsLike,
		Humidity:        current.Humidity,
		Description:     strings.ToLower(current.Description),
		Icon:            current.Icon,
		WindSpeed:       current.WindSpeed,
		RainProbability: maxProb,
		Rain1h:          current.Rain1h,
		AQI:             aqi,
		City:            current.City,
		Forecast:        points,
	}
}
