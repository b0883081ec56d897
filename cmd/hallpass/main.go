package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/corepass/hallpass/internal/api"
	"github.com/corepass/hallpass/internal/api/handler"
	"github.com/corepass/hallpass/internal/core/ports"
	"github.com/corepass/hallpass/internal/core/service"
	"github.com/corepass/hallpass/internal/infrastructure/cache"
	mongodb "github.com/corepass/hallpass/internal/infrastructure/db/mongo"
	redisdb "github.com/corepass/hallpass/internal/infrastructure/db/redis"
	"github.com/corepass/hallpass/internal/infrastructure/queue"
	"github.com/corepass/hallpass/internal/pkg/config"
	"github.com/corepass/hallpass/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "hallpass",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("hallpass stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		return err
	}
	defer rdb.Close()

	// --- Repositories ---
	passRepo := mongodb.NewPassRepository(db, logger.Component("mongo"))
	authRepo := mongodb.NewAuthRepository(db)
	rooms := cache.NewRoomCache(mongodb.NewRoomRepository(db), cfg.Rooms.Size, cfg.Rooms.TTL)

	if err := passRepo.EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := authRepo.EnsureIndexes(ctx); err != nil {
		return err
	}

	// --- Notifications ---
	var publisher ports.EventPublisher = queue.NewLogPublisher(logger.Component("notify"))
	if cfg.Notify.AMQPURL != "" {
		amqpPublisher := queue.NewAMQPPublisher(cfg.Notify.AMQPURL, cfg.Notify.Queue)
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	dispatcher := queue.NewDispatcher(cfg.Notify.Workers, publisher, logger.Component("notify"))
	dispatcher.Start(workerCtx)
	defer func() {
		stopWorkers()
		dispatcher.Wait()
	}()

	// --- Services ---
	passLog := logger.Component("passes")
	session := service.NewSession(cfg.SessionFixtureUID)
	revocations := redisdb.NewRevocationList(rdb)
	submitLock := redisdb.NewSubmitLock(rdb, cfg.Redis.SubmitLockTTL)

	submitter := service.NewSubmitter(passRepo, rooms, dispatcher, cfg.SchoolID, passLog)
	passes := service.NewPassQueryService(passRepo, session, dispatcher, passLog)
	authService := service.NewAuthService(authRepo, revocations, service.ClaimsSession{}, cfg.JWTSecret, cfg.TokenTTL)

	e := api.NewRouter(api.Dependencies{
		Auth:        authService,
		Revocations: revocations,
		Passes:      passes,
		Submitter:   submitter,
		NewFlow: func() *service.SubmissionFlow {
			return service.NewSubmissionFlow(submitter, session, submitLock, passLog)
		},
		NewQuery: func() *service.PassQueryService {
			return service.NewPassQueryService(passRepo, session, dispatcher, passLog)
		},
		Readiness: map[string]handler.DependencyCheck{
			"mongodb": func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
			"redis":   func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		JWTSecret:         cfg.JWTSecret,
		SessionFixtureUID: cfg.SessionFixtureUID,
		Log:               logger.Component("http"),
	})

	// Live streams end with the process context instead of holding up shutdown.
	e.Server.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("hallpass listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	return nil
}
