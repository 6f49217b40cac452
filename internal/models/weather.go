package models

// ForecastPoint is a single 3-hour forecast entry. Points carry no identity
// beyond their position in the snapshot's forecast sequence.
type ForecastPoint struct {
	Time     string  `json:"time"`
	Temp     float64 `json:"temp"`
	RainProb float64 `json:"rain_prob"`
	Icon     string  `json:"icon"`
}

// WeatherSnapshot is the normalized view over the upstream current-conditions,
// air-quality and forecast responses. Immutable once constructed.
//
// RainProbability is a percentage (0-100) taken from the forecast; Rain1h is
// the last-hour rainfall volume in millimeters reported with current
// conditions, zero when the provider omits it. They are different physical
// quantities and are kept in separate fields.
type WeatherSnapshot struct {
	Temp            float64         `json:"temp"`
	FeelsLike       float64         `json:"feels_like"`
	Humidity        int             `json:"humidity"`
	Description     string          `json:"description"`
	Icon            string          `json:"icon"`
	WindSpeed       float64         `json:"wind_speed"`
	RainProbability float64         `json:"rain_prob"`
	Rain1h          float64         `json:"rain_1h"`
	AQI             int             `json:"aqi"`
	City            string          `json:"city"`
	Forecast        []ForecastPoint `json:"forecast"`
}

// LifestyleScores holds the four derived scores, each clamped to [0, 100].
type LifestyleScores struct {
	Laundry  int `json:"laundry"`
	Outdoor  int `json:"outdoor"`
	Travel   int `json:"travel"`
	Exercise int `json:"exercise"`
}

// LifestyleInsights is derived fresh from a snapshot on every request and
// never persisted. Advice entries are informational, alerts are warnings;
// both keep the order their rules fired in.
type LifestyleInsights struct {
	Scores LifestyleScores `json:"scores"`
	Advice []string        `json:"advice"`
	Alerts []string        `json:"alerts"`
}
