package config_fx

import (
	"chatbill/internal/config"

	"go.uber.org/fx"
)

var Module = fx.Provide(provideConfig)

func provideConfig() *config.Config {
	return config.Load()
}
