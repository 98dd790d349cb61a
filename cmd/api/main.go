package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/commercekit/slack-relay/internal/bus"
	"github.com/commercekit/slack-relay/internal/config"
	"github.com/commercekit/slack-relay/internal/handler"
	"github.com/commercekit/slack-relay/internal/infra/postgresql"
	"github.com/commercekit/slack-relay/internal/infra/postgresql/migrations"
	infraredis "github.com/commercekit/slack-relay/internal/infra/redis"
	"github.com/commercekit/slack-relay/internal/observability"
	"github.com/commercekit/slack-relay/internal/platform"
	"github.com/commercekit/slack-relay/internal/repository"
	"github.com/commercekit/slack-relay/internal/service"
	"github.com/commercekit/slack-relay/internal/slack"
	"github.com/commercekit/slack-relay/internal/template"
	"github.com/commercekit/slack-relay/internal/transport"
)

const shutdownTimeout = 10 * time.Second

// customFormatters overlays per-event formatters on top of the built-in
// templates. Deployments needing a bespoke message layout for one event add
// an entry here; overrides are scoped to the single event name they key.
var customFormatters = map[string]template.FormatFn{}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	rateLimiter, err := infraredis.NewPostRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	slackClient, err := slack.NewClient(cfg.SlackAPIToken, cfg.SendTimeout())
	if err != nil {
		logger.Fatal("slack client initialization failed", zap.Error(err))
	}

	platformClient, err := platform.NewClient(cfg.PlatformAPIURL, cfg.PlatformAPIToken, cfg.SendTimeout())
	if err != nil {
		logger.Fatal("platform client initialization failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var eventBus bus.EventBus
	var amqpBus *bus.AMQPBus
	if cfg.BrokerEnabled() {
		amqpBus, err = bus.NewAMQPBus(cfg.AMQPURL, logger)
		if err != nil {
			logger.Fatal("amqp bus initialization failed", zap.Error(err))
		}
		defer amqpBus.Close()
		eventBus = amqpBus
	} else {
		eventBus = bus.NewLocalBus(logger)
	}

	registry := template.NewRegistry()
	if err := registry.RegisterAll(template.Builtins(platformClient)...); err != nil {
		logger.Fatal("template registration failed", zap.Error(err))
	}
	if err := registry.MergeFormatters(customFormatters); err != nil {
		logger.Fatal("custom formatter registration failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()

	mux, err := service.NewMultiplexer(eventBus, registry, logger)
	if err != nil {
		logger.Fatal("multiplexer initialization failed", zap.Error(err))
	}
	mux.SetMetrics(metrics)
	if err := mux.AttachAll(); err != nil {
		logger.Fatal("dispatcher attachment failed", zap.Error(err))
	}

	notificationRepo := repository.NewGormNotificationRepo(db)
	eventRepo := repository.NewGormSlackEventRepo(db)

	sender, err := service.NewSender(
		eventBus,
		registry,
		slackClient,
		notificationRepo,
		rateLimiter,
		template.Options{Channel: cfg.SlackChannel, BackendURL: cfg.BackendURL},
		cfg.SendTimeout(),
		logger,
	)
	if err != nil {
		logger.Fatal("sender initialization failed", zap.Error(err))
	}
	sender.SetMetrics(metrics)
	if err := sender.Attach(); err != nil {
		logger.Fatal("sender attachment failed", zap.Error(err))
	}

	eventService, err := service.NewEventService(eventRepo, registry, mux, logger)
	if err != nil {
		logger.Fatal("event service initialization failed", zap.Error(err))
	}
	if err := eventService.Bootstrap(ctx); err != nil {
		logger.Fatal("stored event bootstrap failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          transport.ErrorHandler(logger),
		DisableStartupMessage: true,
	})
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	if err := handler.RegisterNotificationRoutes(app, sender); err != nil {
		logger.Fatal("notification route registration failed", zap.Error(err))
	}
	if err := handler.RegisterEventRoutes(app, eventService); err != nil {
		logger.Fatal("event route registration failed", zap.Error(err))
	}

	group, groupCtx := errgroup.WithContext(ctx)

	if amqpBus != nil {
		group.Go(func() error {
			return amqpBus.Start(groupCtx)
		})
	}

	group.Go(func() error {
		logger.Info("slack-relay api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := group.Wait(); err != nil && ctx.Err() == nil {
		logger.Fatal("api terminated", zap.Error(err))
	}
}
