package account_fx

import (
	"chatbill/internal/api/controllers"
	"chatbill/internal/repositories"
	"chatbill/internal/services"
	mem "chatbill/pkg/memcache"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Provide(
	provideAccountRepo, provideAccountService, provideAccountController)

func provideAccountRepo(db *gorm.DB) repositories.AccountRepository {
	return repositories.NewAccountRepository(db)
}

func provideAccountService(
	accountRepo repositories.AccountRepository,
	mailService services.IMailService,
	tokens mem.TokenStore,
	logger *zap.Logger,
) services.AccountServiceInterface {
	return services.NewAccountService(accountRepo, mailService, tokens, logger)
}

func provideAccountController(accountService services.AccountServiceInterface) *controllers.AccountController {
	return controllers.NewAccountController(accountService)
}
