package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"mediavault/internal/cache"
	"mediavault/internal/config"
	"mediavault/internal/database"
	"mediavault/internal/handlers"
	"mediavault/internal/jobs"
	"mediavault/internal/log"
	"mediavault/internal/pipeline"
	"mediavault/internal/queue"
	"mediavault/internal/repository"
	"mediavault/internal/scan"
	"mediavault/internal/server"
	"mediavault/internal/storage"
	"mediavault/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBuckets(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure buckets failed")
	}

	jobRepo := repository.NewJobRepository(dbPool)
	mediaRepo := repository.NewMediaRepository(dbPool)
	moderationRepo := repository.NewModerationRepository(dbPool)
	auditRepo := repository.NewAuditRepository(dbPool)

	layout := pipeline.BucketLayout{
		Staging:    cfg.Storage.BucketStaging,
		Quarantine: cfg.Storage.BucketQuarantine,
		Default:    cfg.Storage.BucketMedia,
		ByCategory: map[string]string{
			"avatar":  cfg.Storage.BucketProfile,
			"banner":  cfg.Storage.BucketProfile,
			"post":    cfg.Storage.BucketContent,
			"comment": cfg.Storage.BucketContent,
			"message": cfg.Storage.BucketMessage,
		},
	}

	orchestrator := pipeline.NewOrchestrator(pipeline.OrchestratorParams{
		Jobs:          jobRepo,
		Media:         mediaRepo,
		Moderation:    moderationRepo,
		Audit:         auditRepo,
		Mover:         objectStore,
		Vision:        scan.NewVisionBackend(cfg.Scan.VisionEndpoint, cfg.Scan.APIKey, cfg.Scan.RequestTimeout, logger),
		Remote:        scan.NewRemoteBackend(cfg.Scan.RemoteEndpoint, cfg.Scan.APIKey, cfg.Scan.RequestTimeout, logger),
		Layout:        layout,
		SmallBatchMax: cfg.Scan.SmallBatchMax,
		RetryAttempts: cfg.Scan.RetryAttempts,
		RetryDelay:    cfg.Scan.RetryDelay,
		Log:           logger,
	})

	batcher := pipeline.NewBatchQueue(ctx, cfg.Batching, orchestrator, logger)

	bootstrap := pipeline.NewBootstrap(jobRepo, objectStore, batcher, cfg.Storage.BucketStaging, cfg.Storage.ReadURLTTL, logger)
	if err := bootstrap.Run(ctx); err != nil {
		// Startup proceeds; the stale sweep retries what recovery missed.
		logger.Error().Err(err).Msg("recovery bootstrap failed")
	}

	confirmProcessor := tasks.NewConfirmProcessor(jobRepo, objectStore, batcher, cfg.Storage.BucketStaging, cfg.Storage.ReadURLTTL, logger)
	consumer := queue.NewConsumer(
		redisClient,
		cfg.Redis.Stream,
		cfg.Redis.Group,
		cfg.Redis.Consumer,
		cfg.Redis.ClaimInterval,
		logger,
		confirmProcessor,
	)

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	go func() {
		if err := consumer.Start(consumerCtx); err != nil && err != context.Canceled {
			logger.Error().Err(err).Msg("stream consumer stopped unexpectedly")
		}
	}()

	scheduler := jobs.NewScheduler(jobRepo, bootstrap, objectStore, cfg.Storage.BucketStaging, cfg.Sweep, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	handlerSet := handlers.NewHandlerSet(logger, cfg, jobRepo, mediaRepo, objectStore, batcher)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, batcher, stopConsumer, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, batcher *pipeline.BatchQueue, stopConsumer context.CancelFunc, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	stopConsumer()
	batcher.Stop()

	if scheduler != nil {
		cancel := scheduler.Stop()
		cancel()
	}

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
