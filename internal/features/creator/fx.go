package creator

import (
	"go.uber.org/fx"

	creatorhttp "teleindex-backend/internal/features/creator/delivery/http"
	"teleindex-backend/internal/features/creator/repository/postgres"
	"teleindex-backend/internal/features/creator/service"
	httpserver "teleindex-backend/internal/http"
)

var Module = fx.Module(
	"creator",
	fx.Provide(
		postgres.NewPostgresRepository,
		service.NewCreatorService,
		httpserver.AsRoute(creatorhttp.NewCreatorHandler),
	),
)
