package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/UnLuCkYcOdEr69/Weatherly/internal/app"
	"github.com/UnLuCkYcOdEr69/Weatherly/internal/config"
	"github.com/UnLuCkYcOdEr69/Weatherly/pkg/logger"
)

// @title Weatherly API
// @version 1.0
// @description Personal weather dashboard: current conditions, hourly forecast and lifestyle insights
// @host localhost:8080
// @BasePath /
func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	cfg, err := config.NewConfig()
	if err != nil {
		log.Panicf("failed to load configuration: %v", err)
	}

	l, err := logger.NewLogger(cfg.LogsPath, "weatherly")
	if err != nil {
		log.Panicf("failed to create logger: %v", err)
	}

	application := app.New(*cfg, l)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		log.Panic(err)
	}
}
