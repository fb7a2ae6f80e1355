package main

import (
	"fmt"
	"os"

	"dashgo/internal/delivery"
	"dashgo/internal/domain"
	"dashgo/internal/infrastructure"
	"dashgo/internal/usecase"
	"dashgo/pkg/config"
	"dashgo/pkg/logger"
	"dashgo/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level)
	m := metrics.New()

	var cache domain.SnapshotCache
	if cfg.Cache.Dir != "" {
		badgerCache, err := infrastructure.NewBadgerCache(cfg.Cache.Dir, cfg.Cache.TTL, log)
		if err != nil {
			log.WithError(err).Warn("Snapshot cache unavailable, using in-memory cache")
			cache = infrastructure.NewMemoryCache(cfg.Cache.TTL)
		} else {
			defer badgerCache.Close()
			cache = badgerCache
		}
	} else {
		cache = infrastructure.NewMemoryCache(cfg.Cache.TTL)
	}

	audiency := infrastructure.NewAudiencyClient(
		cfg.External.AudiencyBaseURL,
		cfg.External.AudiencyAPIKey,
		cfg.External.RequestTimeout,
		cfg.Aggregation.PageSize,
		cfg.Aggregation.MaxPages,
		cfg.Aggregation.PageDelay,
		cfg.Aggregation.ExecutionDelay,
		log,
		m,
	)

	geocoder := infrastructure.NewGeonamesClient(
		cfg.External.GeonamesBaseURL,
		cfg.External.GeonamesUsername,
		cfg.External.RequestTimeout,
		cfg.Aggregation.GeoDelay,
		cfg.Aggregation.CityLimit,
		log,
		m,
	)

	dashboard := usecase.NewDashboardService(
		audiency,
		audiency,
		geocoder,
		log,
		m,
		cfg.Aggregation.SampleLimit,
		cfg.Aggregation.RecentLimit,
	)

	handlers := delivery.NewHTTPHandlers(dashboard, cache, cfg.Cache.FreshnessWindow, log, m)
	router := delivery.NewHTTPRouter(handlers, log, m, cfg.Server.RequestTimeout)

	log.WithField("port", cfg.Server.Port).Info("Starting server")

	if err := router.SetupRoutes().Run(":" + cfg.Server.Port); err != nil {
		log.WithError(err).Fatal("Server stopped")
	}
}
