package gateway_fx

import (
	"chatbill/internal/config"
	"chatbill/internal/gateway"

	"go.uber.org/fx"
)

var Module = fx.Provide(provideGateway)

func provideGateway(cfg *config.Config) gateway.Client {
	return gateway.NewStripeClient(cfg.StripeSecretKey)
}
