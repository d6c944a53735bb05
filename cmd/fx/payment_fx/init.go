package payment_fx

import (
	"chatbill/internal/api/controllers"
	"chatbill/internal/config"
	"chatbill/internal/gateway"
	"chatbill/internal/repositories"
	"chatbill/internal/services"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Provide(
	providePaymentService, providePaymentController)

func providePaymentService(
	accountRepo repositories.AccountRepository,
	billingRepo repositories.BillingRepository,
	gatewayClient gateway.Client,
	cfg *config.Config,
	logger *zap.Logger,
) services.PaymentServiceInterface {
	return services.NewPaymentService(accountRepo, billingRepo, gatewayClient, cfg, logger)
}

func providePaymentController(paymentService services.PaymentServiceInterface) *controllers.PaymentController {
	return controllers.NewPaymentController(paymentService)
}
