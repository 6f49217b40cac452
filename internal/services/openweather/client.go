// Package openweather implements the raw OpenWeatherMap clients: current
// conditions, air quality, 3-hour forecast and direct geocoding.
package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/UnLuCkYcOdEr69/Weatherly/internal/apperr"
)

// invalidKeyMessage is surfaced on upstream 401 responses. Freshly issued
// OpenWeather keys are known to stay inactive for a while.
const invalidKeyMessage = "API_KEY_INVALID: the OpenWeather API key is invalid or not yet active;" +
	" new keys can take up to two hours to activate"

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type collector interface {
	IncUpstreamCall(endpoint, outcome string)
	ObserveUpstreamCall(endpoint string, d time.Duration)
}

// Coordinates is a geocoding result.
type Coordinates struct {
	Lat float64
	Lon float64
}

// CurrentConditions is the parsed current-weather response.
type CurrentConditions struct {
	Temp        float64
	FeelsLike   float64
	Humidity    int
	Description string
	Icon        string
	WindSpeed   float64
	Rain1h      float64
	City        string
}

// ForecastEntry is one 3-hour forecast point. Pop is the probability of
// precipitation as reported by the provider, a 0-1 fraction.
type ForecastEntry struct {
	At   time.Time
	Temp float64
	Pop  float64
	Icon string
}

type Client struct {
	apiKey  string
	baseURL string
	geoURL  string
	client  HTTPClient
	log     zerolog.Logger
	m       collector
}

func NewClient(
	apiKey, baseURL, geoURL string,
	httpClient HTTPClient,
	logger zerolog.Logger,
	m collector,
) *Client {
	logger = logger.With().Str("component", "OpenWeatherClient").Logger()
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		geoURL:  geoURL,
		client:  httpClient,
		log:     logger,
		m:       m,
	}
}

type currentResponse struct {
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Rain struct {
		OneHour float64 `json:"1h"`
	} `json:"rain"`
	Name string `json:"name"`
}

// CurrentConditions fetches the current weather for the coordinates,
// metric units.
func (c *Client) CurrentConditions(ctx context.Context, lat, lon float64) (CurrentConditions, error) {
	q := c.coordQuery(lat, lon)
	q.Set("units", "metric")

	var raw currentResponse
	if err := c.get(ctx, "weather", c.baseURL+"/weather?"+q.Encode(), &raw); err != nil {
		return CurrentConditions{}, err
	}
	if len(raw.Weather) == 0 {
		return CurrentConditions{}, apperr.Upstream(0, "current conditions response missing weather block")
	}

	return CurrentConditions{
		Temp:        raw.Main.Temp,
		FeelsLike:   raw.Main.FeelsLike,
		Humidity:    raw.Main.Humidity,
		Description: raw.Weather[0].Description,
		Icon:        raw.Weather[0].Icon,
		WindSpeed:   raw.Wind.Speed,
		Rain1h:      raw.Rain.OneHour,
		City:        raw.Name,
	}, nil
}

type airResponse struct {
	List []struct {
		Main struct {
			AQI int `json:"aqi"`
		} `json:"main"`
	} `json:"list"`
}

// AirQuality fetches the air quality index for the coordinates.
// The index runs 1 (good) through 5 (very poor).
func (c *Client) AirQuality(ctx context.Context, lat, lon float64) (int, error) {
	var raw airResponse
	if err := c.get(ctx, "air_pollution", c.baseURL+"/air_pollution?"+c.coordQuery(lat, lon).Encode(), &raw); err != nil {
		return 0, err
	}
	if len(raw.List) == 0 {
		return 0, apperr.Upstream(0, "air pollution response missing data")
	}
	return raw.List[0].Main.AQI, nil
}

type forecastResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []struct {
			Icon string `json:"icon"`
		} `json:"weather"`
		Pop float64 `json:"pop"`
	} `json:"list"`
}

// Forecast fetches the 3-hour forecast list for the coordinates, metric
// units, in provider order.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) ([]ForecastEntry, error) {
	q := c.coordQuery(lat, lon)
	q.Set("units", "metric")

	var raw forecastResponse
	if err := c.get(ctx, "forecast", c.baseURL+"/forecast?"+q.Encode(), &raw); err != nil {
		return nil, err
	}

	entries := make([]ForecastEntry, 0, len(raw.List))
	for _, item := range raw.List {
		var icon string
		if len(item.Weather) > 0 {
			icon = item.Weather[0].Icon
		}
		entries = append(entries, ForecastEntry{
			At:   time.Unix(item.Dt, 0),
			Temp: item.Main.Temp,
			Pop:  item.Pop,
			Icon: icon,
		})
	}
	return entries, nil
}

type geocodeResponse []struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Geocode resolves a place name to its best-match coordinates. The second
// return value is false when the provider knows no such place.
func (c *Client) Geocode(ctx context.Context, city string) (Coordinates, bool, error) {
	q := url.Values{}
	q.Set("q", city)
	q.Set("limit", "1")
	q.Set("appid", c.apiKey)

	var raw geocodeResponse
	if err := c.get(ctx, "geocode", c.geoURL+"/direct?"+q.Encode(), &raw); err != nil {
		return Coordinates{}, false, err
	}
	if len(raw) == 0 {
		return Coordinates{}, false, nil
	}
	return Coordinates{Lat: raw[0].Lat, Lon: raw[0].Lon}, true, nil
}

func (c *Client) coordQuery(lat, lon float64) url.Values {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("appid", c.apiKey)
	return q
}

type apiError struct {
	Message string `json:"message"`
}

func (c *Client) get(ctx context.Context, endpoint, rawURL string, out any) error {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	c.m.ObserveUpstreamCall(endpoint, time.Since(start))
	if err != nil {
		c.m.IncUpstreamCall(endpoint, "error")
		return fmt.Errorf("%s request failed: %w", endpoint, err)
	}
	defer func(body io.ReadCloser) {
		if cerr := body.Close(); cerr != nil {
			c.log.Error().Err(cerr).Str("endpoint", endpoint).Msg("failed to close response body")
		}
	}(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		c.m.IncUpstreamCall(endpoint, "error")
		return apperr.Auth(invalidKeyMessage)
	}
	if resp.StatusCode != http.StatusOK {
		c.m.IncUpstreamCall(endpoint, "error")
		msg := resp.Status
		var detail apiError
		if derr := json.NewDecoder(resp.Body).Decode(&detail); derr == nil && detail.Message != "" {
			msg = detail.Message
		}
		return apperr.Upstream(resp.StatusCode, fmt.Sprintf("OpenWeather %s error: %s", endpoint, msg))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.m.IncUpstreamCall(endpoint, "error")
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}

	c.m.IncUpstreamCall(endpoint, "success")
	return nil
}
