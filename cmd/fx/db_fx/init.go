package db_fx

import (
	"context"

	"chatbill/internal/config"
	"chatbill/internal/infra"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Provide(provideDB)

func provideDB(lc fx.Lifecycle, cfg *config.Config) *gorm.DB {
	db := infra.InitPostgresql(cfg)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			infra.ClosePostgresql(db)
			return nil
		},
	})
	return db
}
