package admin

import (
	"context"

	"go.uber.org/fx"

	"teleindex-backend/internal/common/config"
	adminhttp "teleindex-backend/internal/features/admin/delivery/http"
	"teleindex-backend/internal/features/admin/service"
	channelrepo "teleindex-backend/internal/features/channel/repository"
	channelservice "teleindex-backend/internal/features/channel/service"
	creatorservice "teleindex-backend/internal/features/creator/service"
	httpserver "teleindex-backend/internal/http"
	"teleindex-backend/internal/platform/metrics"
	"teleindex-backend/internal/platform/telegram"
)

var Module = fx.Module(
	"admin",
	fx.Provide(
		NewService,
		service.NewLinkCheckWorker,
		httpserver.AsRoute(adminhttp.NewAdminHandler),
	),
	fx.Invoke(registerLinkCheckWorker),
)

// NewService использует клиент Telegram и для проверки ссылок, и для загрузки страниц
func NewService(
	channelRepo channelrepo.ChannelRepository,
	channels channelservice.ChannelService,
	creators creatorservice.CreatorService,
	client *telegram.Client,
	cfg *config.Config,
	m *metrics.Metrics,
) service.AdminService {
	return service.NewAdminService(channelRepo, channels, creators, client, client, cfg, m)
}

func registerLinkCheckWorker(lc fx.Lifecycle, worker *service.LinkCheckWorker) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			worker.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			worker.Stop()
			return nil
		},
	})
}
