// @title                       Mini CRM API
// @version                     1.0
// @description                 Leads, clients, staff and projects behind role-based access control.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the JWT.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/minicrm/crm-api/internal/api"
	"github.com/minicrm/crm-api/internal/core/service"
	"github.com/minicrm/crm-api/internal/infrastructure/config"
	mongodb "github.com/minicrm/crm-api/internal/infrastructure/db/mongo"
	redisdb "github.com/minicrm/crm-api/internal/infrastructure/db/redis"
	"github.com/minicrm/crm-api/internal/infrastructure/http/handlers"
	"github.com/minicrm/crm-api/internal/infrastructure/queue"
	"github.com/minicrm/crm-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := logger.Init(logger.Options{})
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "crm-api",
	})

	// --- Storage ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		ClientName: "crm-api",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rdb.Close()

	users := mongodb.NewUserRepository(db)
	leads := mongodb.NewLeadRepository(db)
	clients := mongodb.NewClientRepository(db)
	projects := mongodb.NewProjectRepository(db)
	intents := mongodb.NewConversionRepository(db)

	if err := mongodb.EnsureIndexes(ctx, users, leads, clients, projects, intents); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure indexes")
	}

	// --- Domain events ---
	readiness := []handlers.DependencyCheck{handlers.MongoCheck(db), handlers.RedisCheck(rdb)}

	var sink queue.Sink = queue.LogSink{Log: log}
	if cfg.RabbitMQ.URL != "" {
		amqpSink, err := queue.NewAMQPSink(cfg.RabbitMQ.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to rabbitmq")
		}
		defer amqpSink.Close()
		sink = amqpSink
		readiness = append(readiness, handlers.BrokerCheck(amqpSink.IsConnected))
	} else {
		log.Warn().Msg("RABBITMQ_URL not set, domain events will only be logged")
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	dispatcher := queue.NewDispatcher(cfg.RabbitMQ.Workers, sink, logger.Component(log, "dispatcher"))
	dispatcher.Start(workerCtx)

	// --- Services ---
	hasher := service.NewBcryptHasher(cfg.BcryptCost)
	tokens := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.TTL, redisdb.NewRevocationStore(rdb), log)
	authService := service.NewAuthService(users, leads, hasher, tokens, dispatcher, log)
	conversions := service.NewConversionService(
		leads, clients, users, intents,
		redisdb.NewLocker(rdb, cfg.Conversion.LockTTL),
		dispatcher,
		func() string { return primitive.NewObjectID().Hex() },
		logger.Component(log, "conversion"),
	)

	if _, err := service.EnsureAdmin(ctx, users, hasher,
		cfg.InitialAdmin.Name, cfg.InitialAdmin.Email, cfg.InitialAdmin.Password, log); err != nil {
		log.Fatal().Err(err).Msg("failed to seed initial admin")
	}

	sweeper := queue.NewRecoverySweeper(intents, conversions, cfg.Conversion.SweepInterval, cfg.Conversion.SweepAfter, logger.Component(log, "sweeper"))
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sweeper.Run(workerCtx)
	}()

	// --- HTTP ---
	e := api.NewRouter(api.Dependencies{
		Tokens:      tokens,
		Auth:        authService,
		Leads:       service.NewLeadService(leads, clients, log),
		Clients:     service.NewClientService(clients, projects, log),
		Conversions: conversions,
		Staff:       service.NewStaffService(users, projects, clients, hasher, log),
		Projects:    service.NewProjectService(projects, users, clients, log),
		Readiness:   handlers.NewHealthDependenciesHandler(readiness...),
		Log:         log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}

	// Stop background work after the last request so in-flight events are flushed.
	cancelWorkers()
	dispatcher.Wait()
	<-sweepDone
	log.Info().Msg("shutdown complete")
}
