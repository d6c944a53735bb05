package user_fx

import (
	"chatbill/internal/api/controllers"
	"chatbill/internal/repositories"
	"chatbill/internal/services"

	"go.uber.org/fx"
)

var Module = fx.Provide(
	provideUserService, provideUserController)

func provideUserService(accountRepo repositories.AccountRepository) services.UserServiceInterface {
	return services.NewUserService(accountRepo)
}

func provideUserController(userService services.UserServiceInterface) *controllers.UserController {
	return controllers.NewUserController(userService)
}
