package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/UnLuCkYcOdEr69/Weatherly/internal/config"
	weatherhandler "github.com/UnLuCkYcOdEr69/Weatherly/internal/handlers/weather"
	"github.com/UnLuCkYcOdEr69/Weatherly/internal/metrics"
	"github.com/UnLuCkYcOdEr69/Weatherly/internal/repository/sqlite"
	upstreamlog "github.com/UnLuCkYcOdEr69/Weatherly/internal/services/logger"
	"github.com/UnLuCkYcOdEr69/Weatherly/internal/services/openweather"
	serviceWeather "github.com/UnLuCkYcOdEr69/Weatherly/internal/services/weather"
	"github.com/UnLuCkYcOdEr69/Weatherly/internal/services/weather/decorators"
	"github.com/UnLuCkYcOdEr69/Weatherly/pkg/logger"
)

const timeoutDuration = 5 * time.Second

// ServiceContainer holds the initialized dependencies for the running
// server.
type ServiceContainer struct {
	WeatherService *serviceWeather.Service
	SnapshotRepo   *sqlite.SnapshotRepository

	Router *gin.Engine
	Srv    *http.Server
	Db     *sql.DB
	M      *metrics.Metrics

	upstreamLogger *zap.Logger
}

// App ties together config and logging for startup and shutdown. The cache
// database is opened here at process start and closed on Stop.
type App struct {
	cfg config.Config
	l   zerolog.Logger
}

func New(cfg config.Config, logger zerolog.Logger) *App {
	logger = logger.With().Str("service", "weather-dashboard").Timestamp().Logger()
	return &App{cfg: cfg, l: logger}
}

// Start initializes services, mounts the routes and blocks until the
// context is cancelled.
func (a *App) Start(ctx context.Context) error {
	srvContainer, err := a.init(ctx)
	if err != nil {
		return err
	}

	srvContainer.Router.Use(gin.Recovery(), srvContainer.M.HTTPMiddleware())

	handler := weatherhandler.NewHandler(srvContainer.WeatherService)
	srvContainer.Router.GET("/weather", handler.GetWeather)
	srvContainer.Router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	go func() {
		a.l.Info().Str("http_addr", a.cfg.ServerAddress()).Msg("HTTP server listening")
		if err := srvContainer.Srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.l.Error().Err(err).Msg("HTTP server error")
		}
	}()

	<-ctx.Done()
	a.l.Info().Msg("shutdown signal received")
	return a.Stop(srvContainer)
}

// Stop performs graceful shutdown: HTTP server first, then the cache
// database, then the upstream log.
func (a *App) Stop(srvContainer ServiceContainer) error {
	a.l.Info().Msg("stopping application")

	ctx, cancel := context.WithTimeout(context.Background(), timeoutDuration)
	defer cancel()
	if err := srvContainer.Srv.Shutdown(ctx); err != nil {
		a.l.Error().Err(err).Msg("HTTP shutdown error")
	} else {
		a.l.Info().Msg("HTTP server stopped")
	}

	if err := srvContainer.Db.Close(); err != nil {
		a.l.Error().Err(err).Msg("cache database close error")
	} else {
		a.l.Info().Msg("cache database closed")
	}

	if err := srvContainer.upstreamLogger.Sync(); err != nil {
		a.l.Error().Err(err).Msg("failed to sync upstream logger")
	}

	a.l.Info().Msg("application shutdown complete")
	return nil
}

func (a *App) init(ctx context.Context) (ServiceContainer, error) {
	a.l.Info().Msgf("initializing weather dashboard with config: %+v", a.cfg)

	dbCtx, cancel := context.WithTimeout(ctx, timeoutDuration)
	defer cancel()
	db, err := CreateSqliteDb(dbCtx, a.cfg.Cache.Dialect, a.cfg.Cache.Source)
	if err != nil {
		return ServiceContainer{}, err
	}
	if err := InitSqliteDb(db, a.cfg.Cache.Dialect, a.cfg.Cache.MigrationsPath); err != nil {
		return ServiceContainer{}, err
	}

	m := metrics.NewMetrics("weatherly")

	upstreamLogger, err := logger.NewFileLogger(a.cfg.UpstreamLogPath)
	if err != nil {
		return ServiceContainer{}, err
	}
	httpLogClient := &http.Client{Transport: upstreamlog.NewRoundTripper(upstreamLogger)}

	client := openweather.NewClient(
		a.cfg.OpenWeather.APIKey,
		a.cfg.OpenWeather.BaseURL,
		a.cfg.OpenWeather.GeoURL,
		httpLogClient,
		a.l,
		m,
	)

	limited := decorators.NewRateLimitedProvider(client, a.cfg.RateLimit.RPS, a.cfg.RateLimit.Burst)
	guarded := decorators.NewBreakerProvider(decorators.BreakerConfig{
		TimeInterval: time.Duration(a.cfg.Breaker.TimeInterval) * time.Second,
		TimeTimeOut:  time.Duration(a.cfg.Breaker.TimeTimeOut) * time.Second,
		RepeatNumber: a.cfg.Breaker.RepeatNumber,
	}, limited)

	repo := sqlite.NewSnapshotRepository(db, a.l, m, a.cfg.CacheTTL(), a.cfg.Cache.CoordPrecision)
	weatherService := serviceWeather.NewService(a.cfg.OpenWeather.APIKey, guarded, repo, a.l)

	router := gin.New()
	httpSrv := &http.Server{
		Addr:        a.cfg.ServerAddress(),
		Handler:     router,
		ReadTimeout: time.Duration(a.cfg.Server.ReadTimeout) * time.Second,
	}

	return ServiceContainer{
		WeatherService: weatherService,
		SnapshotRepo:   repo,
		Router:         router,
		Srv:            httpSrv,
		Db:             db,
		M:              m,
		upstreamLogger: upstreamLogger,
	}, nil
}

// CreateSqliteDb opens the cache database, creating the file on first use.
func CreateSqliteDb(ctx context.Context, dialect, name string) (*sql.DB, error) {
	if name == "" {
		return nil, errors.New("cache database name cannot be empty")
	}
	connectionString := "file:" + name + "?cache=shared&mode=rwc"
	db, err := sql.Open(dialect, connectionString)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	return db, nil
}

// InitSqliteDb applies pending goose migrations.
func InitSqliteDb(db *sql.DB, dialect, migrationPath string) error {
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}

	if err := goose.Up(db, migrationPath); err != nil {
		return err
	}

	return nil
}
