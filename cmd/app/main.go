package main

import (
	"context"
	"errors"
	"os"

	"chatbill/cmd/fx/account_fx"
	"chatbill/cmd/fx/billing_fx"
	"chatbill/cmd/fx/config_fx"
	"chatbill/cmd/fx/db_fx"
	"chatbill/cmd/fx/gateway_fx"
	"chatbill/cmd/fx/logger_fx"
	"chatbill/cmd/fx/mail_fx"
	"chatbill/cmd/fx/memcache_fx"
	"chatbill/cmd/fx/payment_fx"
	"chatbill/cmd/fx/user_fx"
	"chatbill/internal/api/controllers"
	"chatbill/internal/scheduler"
	"chatbill/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger}
		}),

		config_fx.Module,
		logger_fx.Module,
		db_fx.Module,
		mail_fx.Module,
		memcache_fx.Module,
		gateway_fx.Module,
		account_fx.Module,
		user_fx.Module,
		payment_fx.Module,
		billing_fx.Module,

		fx.Provide(ProvideRouter),
		fx.Invoke(StartServer),
		fx.Invoke(StartScheduler),
	)

	app.Run()
}

func StartServer(lc fx.Lifecycle, engine *gin.Engine, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := os.Getenv("PORT")
				if port == "" {
					port = "8080"
				}
				logger.Info("Starting HTTP server", zap.String("port", port))
				if err := engine.Run(":" + port); err != nil {
					logger.Fatal("Failed to start server", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping HTTP server")
			return nil
		},
	})
}

func StartScheduler(lc fx.Lifecycle, supervisor *scheduler.Supervisor, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := supervisor.Start(); err != nil {
				// Framework reloads may invoke start twice; one worker is enough.
				if errors.Is(err, scheduler.ErrAlreadyStarted) {
					logger.Warn("Scheduler start suppressed, already running")
					return nil
				}
				return err
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			supervisor.Stop()
			return nil
		},
	})
}

func ProvideRouter(
	accountController *controllers.AccountController,
	userController *controllers.UserController,
	paymentController *controllers.PaymentController,
	billingController *controllers.BillingController,
) *gin.Engine {
	r := gin.Default()
	r.Use(gin.Recovery())
	r.Use(middleware.TraceIDMiddleware())
	r.Use(middleware.CORSMiddleware())

	RegisterRoutes(r, accountController, userController, paymentController, billingController)

	return r
}

func RegisterRoutes(r *gin.Engine,
	accountController *controllers.AccountController,
	userController *controllers.UserController,
	paymentController *controllers.PaymentController,
	billingController *controllers.BillingController) {

	accounts := r.Group("/accounts")
	accounts.POST("/register", accountController.Register)
	accounts.POST("/login", accountController.Login)
	accounts.POST("/forgot-password", accountController.RequestPasswordReset)
	accounts.POST("/reset-password", accountController.ResetPassword)
	accounts.POST("/unlock", accountController.UnlockAccount)

	users := r.Group("/users")
	users.Use(middleware.JWTAuthMiddleware())
	users.POST("/update/:field", userController.UpdateField)
	users.GET("/config", userController.GetConfig)

	payments := r.Group("/payments")
	payments.Use(middleware.JWTAuthMiddleware())
	payments.POST("/create-intent", paymentController.CreateIntent)
	payments.POST("/enable-billing", paymentController.EnableBilling)
	payments.POST("/reserve-plan-change", paymentController.ReservePlanChange)
	payments.POST("/reserve-cancellation", paymentController.ReserveCancellation)
	payments.GET("/status", paymentController.GetStatus)

	// Stripe calls this directly; authenticated by signature, not JWT.
	r.POST("/webhook", paymentController.StripeWebhook)

	admin := r.Group("/admin/billing")
	admin.Use(middleware.JWTAuthMiddleware(), middleware.RoleMiddleware("admin"))
	admin.POST("/run", billingController.RunReconciliation)
	admin.GET("/status", billingController.SchedulerStatus)
}
