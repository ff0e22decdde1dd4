package app

import (
	"go.uber.org/fx"

	"teleindex-backend/internal/common/auth"
	"teleindex-backend/internal/common/cache"
	"teleindex-backend/internal/common/config"
	"teleindex-backend/internal/common/logger"
	"teleindex-backend/internal/features/admin"
	"teleindex-backend/internal/features/category"
	"teleindex-backend/internal/features/channel"
	"teleindex-backend/internal/features/creator"
	"teleindex-backend/internal/features/user"
	httpserver "teleindex-backend/internal/http"
	"teleindex-backend/internal/platform/metrics"
	"teleindex-backend/internal/platform/postgres"
	"teleindex-backend/internal/platform/redis"
	"teleindex-backend/internal/platform/telegram"
)

func CreateApp() fx.Option {
	return fx.Options(
		fx.Provide(config.Load),
		fx.Invoke(initLogger),

		metrics.Module,
		postgres.Module,
		redis.Module,
		cache.Module,
		telegram.Module,
		fx.Provide(auth.NewJWTManager),

		user.Module,
		category.Module,
		channel.Module,
		creator.Module,
		admin.Module,

		httpserver.Module,
	)
}

func initLogger(cfg *config.Config) {
	logger.Init(cfg.ServiceName, cfg.Debug)
}
