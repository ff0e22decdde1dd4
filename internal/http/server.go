package http

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"

	_ "teleindex-backend/docs"
	"teleindex-backend/internal/common/config"
	"teleindex-backend/internal/common/logger"
	"teleindex-backend/internal/common/middleware"
	"teleindex-backend/internal/common/validation"
	"teleindex-backend/internal/platform/metrics"
	"teleindex-backend/internal/platform/postgres"
	"teleindex-backend/internal/platform/redis"
)

// RouteRegistrar регистрирует маршруты фичи в группе /api
type RouteRegistrar interface {
	RegisterRoutes(router *gin.RouterGroup)
}

// AsRoute помечает конструктор обработчика для группы маршрутов
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(RouteRegistrar)),
		fx.ResultTags(`group:"routes"`),
	)
}

var Module = fx.Module(
	"http",
	fx.Provide(
		fx.Annotate(NewRouter, fx.ParamTags(``, ``, ``, ``, `group:"routes"`)),
	),
	fx.Invoke(RunServer),
)

// NewRouter собирает gin с общими middleware и служебными маршрутами
func NewRouter(cfg *config.Config, m *metrics.Metrics, pg *postgres.Client, rdb redis.RedisClient, routes []RouteRegistrar) (*gin.Engine, error) {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := validation.RegisterGinValidators(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	router := gin.New()
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics(m))
	router.Use(middleware.HandleErrors())

	corsConfig := cors.DefaultConfig()
	if len(cfg.Server.Origins) == 0 || (len(cfg.Server.Origins) == 1 && cfg.Server.Origins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.Server.Origins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	router.Use(cors.New(corsConfig))

	api := router.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ok":   true,
			"time": time.Now().UTC().Format(time.RFC3339),
		})
	})
	for _, r := range routes {
		r.RegisterRoutes(api)
	}

	// Liveness probe
	router.GET("/live", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// Readiness probe
	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := pg.HealthCheck(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unready",
				"error":   "postgres unavailable",
				"details": err.Error(),
			})
			return
		}

		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unready",
					"error":   "redis unavailable",
					"details": err.Error(),
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"timestamp": time.Now().UTC(),
			"service":   cfg.ServiceName,
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return router, nil
}

// RunServer запускает HTTP-сервер при старте приложения и плавно
// останавливает его при завершении
func RunServer(lc fx.Lifecycle, cfg *config.Config, router *gin.Engine) {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			listener, err := net.Listen("tcp", server.Addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", server.Addr, err)
			}

			go func() {
				logger.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
				if err := server.Serve(listener); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
					logger.Error().Err(err).Msg("HTTP server stopped unexpectedly")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("Shutting down HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}
