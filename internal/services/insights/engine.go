// Package insights derives lifestyle scores and advisories from a weather
// snapshot. Pure computation: no I/O, no state, deterministic.
package insights

import (
	"math"
	"strings"

	"github.com/UnLuCkYcOdEr69/Weatherly/internal/models"
)

// rainProbAlertThreshold is the forecast rain chance, in percent, above
// which the umbrella alert fires.
const rainProbAlertThreshold = 50

// Compute returns the four lifestyle scores plus advice and alert lines for
// the snapshot. Rules are independent and evaluated in fixed order; the
// output sequences keep that order.
func Compute(w models.WeatherSnapshot) models.LifestyleInsights {
	scores := models.LifestyleScores{
		Laundry:  laundryScore(w),
		Outdoor:  outdoorScore(w),
		Travel:   travelScore(w),
		Exercise: exerciseScore(w),
	}

	advice := make([]string, 0, 4)
	alerts := make([]string, 0, 3)

	if w.Humidity > 80 {
		advice = append(advice, "It's quite sticky today. Stay hydrated and prefer cotton clothes.")
	}

	if w.RainProbability > rainProbAlertThreshold || isRainy(w) {
		alerts = append(alerts, "Rain expected soon. Don't forget your umbrella!")
		advice = append(advice, "Maybe a good day for indoor activities.")
	}

	if w.Temp > 35 {
		alerts = append(alerts, "Heatwave warning! Avoid direct sun exposure between 12 PM and 4 PM.")
	} else if w.Temp > 30 {
		advice = append(advice, "Warm day ahead. Keep a water bottle handy.")
	}

	// AQI runs 1 (good) through 5 (very poor).
	if w.AQI >= 4 {
		alerts = append(alerts, "Poor air quality. Wear a mask if heading outdoors.")
		advice = append(advice, "Sensitive groups should avoid prolonged outdoor exertion.")
	} else if w.AQI == 3 {
		advice = append(advice, "Moderate air quality. Fine for most, but keep an eye out.")
	}

	if len(advice) == 0 && len(alerts) == 0 {
		advice = append(advice, "The weather looks pleasant! Great time for a quick walk.")
	}

	return models.LifestyleInsights{Scores: scores, Advice: advice, Alerts: alerts}
}

func laundryScore(w models.WeatherSnapshot) int {
	score := 100.0
	if w.Humidity > 70 {
		score -= float64(w.Humidity-70) * 2
	}
	if isRainy(w) {
		score -= 80
	}
	if w.Temp < 20 {
		score -= 20
	}
	return clamp(score)
}

func outdoorScore(w models.WeatherSnapshot) int {
	score := 100.0
	if w.Temp > 35 {
		score -= (w.Temp - 35) * 10
	}
	if w.Temp < 15 {
		score -= (15 - w.Temp) * 5
	}
	if w.Humidity > 80 {
		score -= 20
	}
	if w.AQI >= 4 {
		score -= 50
	}
	if isRainy(w) {
		score -= 60
	}
	return clamp(score)
}

func travelScore(w models.WeatherSnapshot) int {
	score := 100.0
	if isRainy(w) {
		score -= 40
	}
	if w.Temp > 38 {
		score -= 30
	}
	if w.WindSpeed > 10 {
		score -= 20
	}
	return clamp(score)
}

func exerciseScore(w models.WeatherSnapshot) int {
	score := 100.0
	if w.AQI >= 4 {
		score -= 70
	}
	if w.Temp > 32 {
		score -= 30
	}
	if w.Humidity > 85 {
		score -= 20
	}
	if isRainy(w) {
		score -= 50
	}
	return clamp(score)
}

// isRainy matches the word "rain" anywhere in the condition description, so
// "light rain" and "rain showers" both qualify. The probability field is
// not consulted for scoring.
func isRainy(w models.WeatherSnapshot) bool {
	return strings.Contains(strings.ToLower(w.Description), "rain")
}

func clamp(score float64) int {
	score = math.Max(0, math.Min(100, score))
	return int(math.Round(score))
}
