package billing_fx

import (
	"chatbill/internal/api/controllers"
	"chatbill/internal/config"
	"chatbill/internal/gateway"
	"chatbill/internal/repositories"
	"chatbill/internal/scheduler"
	"chatbill/internal/services"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Provide(
	provideBillingRepo, provideBillingService, provideSupervisor, provideBillingController)

func provideBillingRepo(db *gorm.DB) repositories.BillingRepository {
	return repositories.NewBillingRepository(db)
}

func provideBillingService(
	billingRepo repositories.BillingRepository,
	gatewayClient gateway.Client,
	mailService services.IMailService,
	cfg *config.Config,
	logger *zap.Logger,
) services.BillingServiceInterface {
	return services.NewBillingService(billingRepo, gatewayClient, mailService, cfg, logger)
}

func provideSupervisor(
	billingService services.BillingServiceInterface,
	cfg *config.Config,
	logger *zap.Logger,
) *scheduler.Supervisor {
	return scheduler.NewSupervisor(billingService, cfg.SchedulerInterval, cfg.ReconcileTimeout, logger)
}

func provideBillingController(
	billingService services.BillingServiceInterface,
	supervisor *scheduler.Supervisor,
) *controllers.BillingController {
	return controllers.NewBillingController(billingService, supervisor)
}
