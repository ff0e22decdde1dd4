package channel

import (
	"go.uber.org/fx"

	"teleindex-backend/internal/common/cache"
	channelhttp "teleindex-backend/internal/features/channel/delivery/http"
	"teleindex-backend/internal/features/channel/repository"
	"teleindex-backend/internal/features/channel/repository/postgres"
	"teleindex-backend/internal/features/channel/service"
	creatorservice "teleindex-backend/internal/features/creator/service"
	httpserver "teleindex-backend/internal/http"
)

var Module = fx.Module(
	"channel",
	fx.Provide(
		postgres.NewPostgresRepository,
		NewService,
		httpserver.AsRoute(channelhttp.NewChannelHandler),
	),
)

// NewService подключает пересчёт метрик авторов к изменениям каналов
func NewService(repo repository.ChannelRepository, cacheService cache.Cache, creators creatorservice.CreatorService) service.ChannelService {
	return service.NewChannelService(repo, cacheService, creators)
}
