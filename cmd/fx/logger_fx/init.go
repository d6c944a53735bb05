package logger_fx

import (
	"log"

	"chatbill/internal/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Provide(provideLogger)

func provideLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == config.EnvProduction {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	return logger
}
