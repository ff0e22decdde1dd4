package user

import (
	"context"
	"time"

	"go.uber.org/fx"

	"teleindex-backend/internal/common/logger"
	userhttp "teleindex-backend/internal/features/user/delivery/http"
	"teleindex-backend/internal/features/user/repository/postgres"
	"teleindex-backend/internal/features/user/service"
	httpserver "teleindex-backend/internal/http"
)

const limiterIdle = 10 * time.Minute

var Module = fx.Module(
	"user",
	fx.Provide(
		postgres.NewPostgresRepository,
		service.NewUserService,
		userhttp.NewUserHandler,
		fx.Annotate(
			func(h *userhttp.UserHandler) httpserver.RouteRegistrar { return h },
			fx.ResultTags(`group:"routes"`),
		),
	),
	fx.Invoke(registerLimiterCleanup),
)

// registerLimiterCleanup раз в limiterIdle удаляет лимитеры неактивных адресов
func registerLimiterCleanup(lc fx.Lifecycle, h *userhttp.UserHandler) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				ticker := time.NewTicker(limiterIdle)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						if removed := h.LoginLimiter().Cleanup(limiterIdle); removed > 0 {
							logger.Debug().Int("removed", removed).Msg("Login rate limiters cleaned up")
						}
					case <-ctx.Done():
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			<-done
			return nil
		},
	})
}
