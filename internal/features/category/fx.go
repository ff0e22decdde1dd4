package category

import (
	"go.uber.org/fx"

	categoryhttp "teleindex-backend/internal/features/category/delivery/http"
	"teleindex-backend/internal/features/category/repository/postgres"
	"teleindex-backend/internal/features/category/service"
	httpserver "teleindex-backend/internal/http"
)

var Module = fx.Module(
	"category",
	fx.Provide(
		postgres.NewPostgresRepository,
		service.NewCategoryService,
		httpserver.AsRoute(categoryhttp.NewCategoryHandler),
	),
)
