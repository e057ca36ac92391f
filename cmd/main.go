package main

import (
	"log"

	"github.com/FayezAlshami/DTC/internal/app"
	"github.com/FayezAlshami/DTC/internal/app/config"
	"github.com/FayezAlshami/DTC/internal/platform/logger"
)

func main() {
	cfg := config.MustLoad()

	appLogger, err := logger.NewZapLogger(logger.ZapLoggerConfig{
		Level:      cfg.Logger.Level,
		Encoding:   cfg.Logger.Encoding,
		TimeFormat: cfg.Logger.TimeFormat,
	})
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	if err := app.Run(cfg, appLogger); err != nil {
		appLogger.Fatalf("Service terminated: %v", err)
	}
}
