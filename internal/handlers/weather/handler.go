package weather

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/UnLuCkYcOdEr69/Weatherly/internal/apperr"
	"github.com/UnLuCkYcOdEr69/Weatherly/internal/models"
	"github.com/UnLuCkYcOdEr69/Weatherly/internal/services/insights"
)

const timeoutDuration = 15 * time.Second

type snapshotService interface {
	ByCoordinates(ctx context.Context, lat, lon float64) (models.WeatherSnapshot, error)
	ByCity(ctx context.Context, city string) (models.WeatherSnapshot, error)
}

type Handler struct {
	service snapshotService
}

func NewHandler(svc snapshotService) *Handler {
	return &Handler{service: svc}
}

// GetWeather
// @Summary Get weather with lifestyle insights
// @Description Returns the current conditions, hourly forecast and derived lifestyle scores for coordinates or a city name
// @Tags weather
// @Produce json
// @Param lat query number false "Latitude (with lon)"
// @Param lon query number false "Longitude (with lat)"
// @Param city query string false "City name, used when lat/lon are absent"
// @Success 200
// @Failure 400
// @Failure 404
// @Failure 500
// @Router /weather [get]
func (h *Handler) GetWeather(c *gin.Context) {
	ctxWithTimeout, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	var (
		snapshot models.WeatherSnapshot
		err      error
	)

	latStr, lonStr := c.Query("lat"), c.Query("lon")
	city := c.Query("city")

	switch {
	case latStr != "" && lonStr != "":
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lon, lonErr := strconv.ParseFloat(lonStr, 64)
		if latErr != nil || lonErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon must be numeric"})
			return
		}
		snapshot, err = h.service.ByCoordinates(ctxWithTimeout, lat, lon)
	case city != "":
		snapshot, err = h.service.ByCity(ctxWithTimeout, city)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "coordinates or city required"})
		return
	}

	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"weather":  snapshot,
		"insights": insights.Compute(snapshot),
	})
}

// statusFor maps an error kind to the response status. Upstream failures
// pass their provider status through when known.
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindAuth:
		return http.StatusUnauthorized
	case apperr.KindUpstream:
		if status := apperr.StatusOf(err); status != 0 {
			return status
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
