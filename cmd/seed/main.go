package main

import (
	"context"
	"flag"
	"os"
	"time"

	"teleindex-backend/internal/common/cache"
	"teleindex-backend/internal/common/config"
	"teleindex-backend/internal/common/logger"
	adminservice "teleindex-backend/internal/features/admin/service"
	channelpg "teleindex-backend/internal/features/channel/repository/postgres"
	channelservice "teleindex-backend/internal/features/channel/service"
	creatorpg "teleindex-backend/internal/features/creator/repository/postgres"
	creatorservice "teleindex-backend/internal/features/creator/service"
	"teleindex-backend/internal/platform/metrics"
	"teleindex-backend/internal/platform/postgres"
	"teleindex-backend/internal/platform/telegram"
)

// Загружает демо-каналы и демо-авторов напрямую в базу, без HTTP
func main() {
	creators := flag.Int("creators", 10, "number of demo creators (0 to skip)")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}
	logger.Init(cfg.ServiceName+"-seed", cfg.Debug)

	client, err := postgres.NewClient(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer client.Close()

	if cfg.Postgres.AutoMigrate {
		if err := postgres.Migrate(client.GetDB(), cfg.Postgres.Database); err != nil {
			logger.Fatal().Err(err).Msg("Failed to apply migrations")
		}
	}

	m := metrics.Default()
	noCache := cache.NoopCache{}
	channelRepo := channelpg.NewPostgresRepository(client.GetDB())
	creatorSvc := creatorservice.NewCreatorService(creatorpg.NewPostgresRepository(client.GetDB()), channelRepo, noCache, m)
	channelSvc := channelservice.NewChannelService(channelRepo, noCache, creatorSvc)
	tg := telegram.NewClient(cfg)
	svc := adminservice.NewAdminService(channelRepo, channelSvc, creatorSvc, tg, tg, cfg, m)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	demo, err := svc.SeedDemo(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to seed demo channels")
		os.Exit(1)
	}
	logger.Info().Int("inserted", demo.Inserted).Int("updated", demo.Updated).Msg("Demo channels seeded")

	if *creators > 0 {
		res, err := svc.SeedCreators(ctx, *creators)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to seed demo creators")
			os.Exit(1)
		}
		logger.Info().Int("created", res.Created).Msg("Demo creators seeded")
	}
}
