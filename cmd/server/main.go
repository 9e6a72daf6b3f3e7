package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/oggyb/matchengine/internal/app"
	"github.com/oggyb/matchengine/internal/cache"
	"github.com/oggyb/matchengine/internal/config"
	"github.com/oggyb/matchengine/internal/db"
	"github.com/oggyb/matchengine/internal/logger"
	"github.com/oggyb/matchengine/internal/server"
)

func main() {
	cfgWatcher := config.NewWatcher()
	cfg := cfgWatcher.Current()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L() // slog.Logger pointer

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	// Wire every component off the shared context.
	appCtx := app.New(database, redisCache, log, cfgWatcher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	supervisor := suture.New("matchengine", suture.Spec{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
	})
	supervisor.Add(appCtx.Refresher)
	supervisor.Add(appCtx.Generator)

	go func() {
		if err := supervisor.Serve(ctx); err != nil && ctx.Err() == nil {
			log.Error("background supervisor stopped", "err", err)
		}
	}()

	server.StartMetricsServer(cfg)

	grpcServer, err := server.StartGRPCServer(cfg)
	if err != nil {
		log.Error("failed to start gRPC server", "err", err)
		return
	}

	addr := cfg.GRPC.Host + ":" + cfg.GRPC.Port
	log.Info("matchengine started", "grpcAddr", addr, "metricsAddr", cfg.Metrics.Addr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("stopping gracefully")
	cancel()
	grpcServer.GracefulStop()
}
