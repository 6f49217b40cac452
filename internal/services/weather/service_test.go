package weather

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/UnLuCkYcOdEr69/Weatherly/internal/apperr"
	"github.com/UnLuCkYcOdEr69/Weatherly/internal/models"
	"github.com/UnLuCkYcOdEr69/Weatherly/internal/services/openweather"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) CurrentConditions(
	ctx context.Context,
	lat, lon float64,
) (openweather.CurrentConditions, error) {
	args := m.Called(ctx, lat, lon)
	data, _ := args.Get(0).(openweather.CurrentConditions)
	return data, args.Error(1)
}

func (m *mockProvider) AirQuality(ctx context.Context, lat, lon float64) (int, error) {
	args := m.Called(ctx, lat, lon)
	return args.Int(0), args.Error(1)
}

func (m *mockProvider) Forecast(
	ctx context.Context,
	lat, lon float64,
) ([]openweather.ForecastEntry, error) {
	args := m.Called(ctx, lat, lon)
	entries, _ := args.Get(0).([]openweather.ForecastEntry)
	return entries, args.Error(1)
}

func (m *mockProvider) Geocode(ctx context.Context, city string) (openweather.Coordinates, bool, error) {
	args := m.Called(ctx, city)
	coords, _ := args.Get(0).(openweather.Coordinates)
	return coords, args.Bool(1), args.Error(2)
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, lat, lon float64) (models.WeatherSnapshot, bool, error) {
	args := m.Called(ctx, lat, lon)
	snapshot, _ := args.Get(0).(models.WeatherSnapshot)
	return snapshot, args.Bool(1), args.Error(2)
}

func (m *mockCache) Put(
	ctx context.Context,
	lat, lon float64,
	snapshot models.WeatherSnapshot,
) error {
	args := m.Called(ctx, lat, lon, snapshot)
	return args.Error(0)
}

var testConditions = openweather.CurrentConditions{
	Temp:        21.5,
	FeelsLike:   22.1,
	Humidity:    55,
	Description: "Light Rain",
	Icon:        "10d",
	WindSpeed:   4.2,
	Rain1h:      0.3,
	City:        "Lviv",
}

func TestService_ByCoordinates_MissingAPIKeyShortCircuits(t *testing.T) {
	for _, key := range []string{"", "   ", "YOUR_OPENWEATHER_API_KEY"} {
		prov := &mockProvider{}
		c := &mockCache{}
		svc := NewService(key, prov, c, zerolog.Nop())

		_, err := svc.ByCoordinates(context.Background(), 49.84, 24.03)
		require.Error(t, err)
		assert.Equal(t, apperr.KindConfig, apperr.KindOf(err))
		assert.Contains(t, err.Error(), "API_KEY_MISSING")

		prov.AssertNumberOfCalls(t, "CurrentConditions", 0)
		prov.AssertNumberOfCalls(t, "AirQuality", 0)
		prov.AssertNumberOfCalls(t, "Forecast", 0)
		c.AssertNumberOfCalls(t, "Get", 0)
	}
}

func TestService_ByCity_MissingAPIKeyShortCircuits(t *testing.T) {
	prov := &mockProvider{}
	c := &mockCache{}
	svc := NewService("", prov, c, zerolog.Nop())

	_, err := svc.ByCity(context.Background(), "Lviv")
	require.Error(t, err)
	assert.Equal(t, apperr.KindConfig, apperr.KindOf(err))

	prov.AssertNumberOfCalls(t, "Geocode", 0)
}

func TestService_ByCoordinates_CacheHitSkipsUpstream(t *testing.T) {
	prov := &mockProvider{}
	c := &mockCache{}
	cached := models.WeatherSnapshot{City: "Lviv", Temp: 20}
	c.On("Get", mock.Anything, 49.84, 24.03).Return(cached, true, nil).Once()

	t.Cleanup(func() {
		c.AssertExpectations(t)
	})

	svc := NewService("secret-key", prov, c, zerolog.Nop())

	got, err := svc.ByCoordinates(context.Background(), 49.84, 24.03)
	require.NoError(t, err)
	assert.Equal(t, cached, got)

	prov.AssertNumberOfCalls(t, "CurrentConditions", 0)
	prov.AssertNumberOfCalls(t, "AirQuality", 0)
	prov.AssertNumberOfCalls(t, "Forecast", 0)
	c.AssertNumberOfCalls(t, "Put", 0)
}

func TestService_ByCoordinates_FetchNormalizeAndStore(t *testing.T) {
	prov := &mockProvider{}
	c := &mockCache{}

	// Ten provider points; only the first eight survive normalization.
	entries := make([]openweather.ForecastEntry, 0, 10)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.Local)
	for i := 0; i < 10; i++ {
		pop := 0.0
		if i == 2 {
			pop = 0.7
		}
		if i == 9 {
			pop = 1.0 // beyond the cutoff, must not affect the snapshot
		}
		entries = append(entries, openweather.ForecastEntry{
			At:   base.Add(time.Duration(i) * 3 * time.Hour),
			Temp: 20 + float64(i),
			Pop:  pop,
			Icon: "04d",
		})
	}

	c.On("Get", mock.Anything, 49.84, 24.03).Return(models.WeatherSnapshot{}, false, nil).Once()
	prov.On("CurrentConditions", mock.Anything, 49.84, 24.03).Return(testConditions, nil).Once()
	prov.On("AirQuality", mock.Anything, 49.84, 24.03).Return(2, nil).Once()
	prov.On("Forecast", mock.Anything, 49.84, 24.03).Return(entries, nil).Once()
	c.On("Put", mock.Anything, 49.84, 24.03, mock.Anything).Return(nil).Once()

	t.Cleanup(func() {
		prov.AssertExpectations(t)
		c.AssertExpectations(t)
	})

	svc := NewService("secret-key", prov, c, zerolog.Nop())

	got, err := svc.ByCoordinates(context.Background(), 49.84, 24.03)
	require.NoError(t, err)

	assert.Equal(t, 21.5, got.Temp)
	assert.Equal(t, "light rain", got.Description)
	assert.Equal(t, 0.3, got.Rain1h)
	assert.Equal(t, 2, got.AQI)
	assert.Equal(t, "Lviv", got.City)

	require.Len(t, got.Forecast, 8)
	assert.Equal(t, "12:00", got.Forecast[0].Time)
	assert.Equal(t, float64(70), got.Forecast[2].RainProb)
	// Snapshot probability is the max over retained points.
	assert.Equal(t, float64(70), got.RainProbability)

	// The snapshot handed to the cache is the one returned.
	c.AssertCalled(t, "Put", mock.Anything, 49.84, 24.03, got)
}

func TestService_ByCoordinates_AnyUpstreamFailureFailsAll(t *testing.T) {
	prov := &mockProvider{}
	c := &mockCache{}

	c.On("Get", mock.Anything, 49.84, 24.03).Return(models.WeatherSnapshot{}, false, nil).Once()
	prov.On("CurrentConditions", mock.Anything, 49.84, 24.03).Return(testConditions, nil).Maybe()
	prov.On("AirQuality", mock.Anything, 49.84, 24.03).
		Return(0, apperr.Upstream(503, "air pollution unavailable")).Once()
	prov.On("Forecast", mock.Anything, 49.84, 24.03).
		Return([]openweather.ForecastEntry{}, nil).Maybe()

	svc := NewService("secret-key", prov, c, zerolog.Nop())

	_, err := svc.ByCoordinates(context.Background(), 49.84, 24.03)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))

	c.AssertNumberOfCalls(t, "Put", 0)
}

func TestService_ByCoordinates_CacheErrorsPropagate(t *testing.T) {
	prov := &mockProvider{}
	c := &mockCache{}

	c.On("Get", mock.Anything, 49.84, 24.03).
		Return(models.WeatherSnapshot{}, false, assert.AnError).Once()

	svc := NewService("secret-key", prov, c, zerolog.Nop())

	_, err := svc.ByCoordinates(context.Background(), 49.84, 24.03)
	require.ErrorIs(t, err, assert.AnError)
	prov.AssertNumberOfCalls(t, "CurrentConditions", 0)
}

func TestService_ByCoordinates_CachePutErrorPropagates(t *testing.T) {
	prov := &mockProvider{}
	c := &mockCache{}

	c.On("Get", mock.Anything, 49.84, 24.03).Return(models.WeatherSnapshot{}, false, nil).Once()
	prov.On("CurrentConditions", mock.Anything, 49.84, 24.03).Return(testConditions, nil).Once()
	prov.On("AirQuality", mock.Anything, 49.84, 24.03).Return(1, nil).Once()
	prov.On("Forecast", mock.Anything, 49.84, 24.03).
		Return([]openweather.ForecastEntry{}, nil).Once()
	c.On("Put", mock.Anything, 49.84, 24.03, mock.Anything).Return(assert.AnError).Once()

	svc := NewService("secret-key", prov, c, zerolog.Nop())

	_, err := svc.ByCoordinates(context.Background(), 49.84, 24.03)
	require.ErrorIs(t, err, assert.AnError)
}

func TestService_ByCity_ResolvesAndDelegates(t *testing.T) {
	prov := &mockProvider{}
	c := &mockCache{}

	coords := openweather.Coordinates{Lat: 49.8397, Lon: 24.0297}
	cached := models.WeatherSnapshot{City: "Lviv", Temp: 20}

	prov.On("Geocode", mock.Anything, "Lviv").Return(coords, true, nil).Once()
	c.On("Get", mock.Anything, coords.Lat, coords.Lon).Return(cached, true, nil).Once()

	t.Cleanup(func() {
		prov.AssertExpectations(t)
		c.AssertExpectations(t)
	})

	svc := NewService("secret-key", prov, c, zerolog.Nop())

	got, err := svc.ByCity(context.Background(), "Lviv")
	require.NoError(t, err)
	assert.Equal(t, cached, got)
}

func TestService_ByCity_UnknownCityIsNotFoundBeforeAnyWeatherCall(t *testing.T) {
	prov := &mockProvider{}
	c := &mockCache{}

	prov.On("Geocode", mock.Anything, "Atlantis").
		Return(openweather.Coordinates{}, false, nil).Once()

	svc := NewService("secret-key", prov, c, zerolog.Nop())

	_, err := svc.ByCity(context.Background(), "Atlantis")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "Atlantis")

	prov.AssertNumberOfCalls(t, "CurrentConditions", 0)
	c.AssertNumberOfCalls(t, "Get", 0)
}

func TestNormalize_EmptyForecast(t *testing.T) {
	snapshot := normalize(testConditions, 1, nil)
	assert.Empty(t, snapshot.Forecast)
	assert.Zero(t, snapshot.RainProbability)
}
