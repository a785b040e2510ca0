package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/travel-insurance-service/internal/api/http"
	"github.com/spec-kit/travel-insurance-service/internal/api/http/handlers"
	"github.com/spec-kit/travel-insurance-service/internal/assistcard"
	"github.com/spec-kit/travel-insurance-service/internal/auth"
	"github.com/spec-kit/travel-insurance-service/internal/config"
	"github.com/spec-kit/travel-insurance-service/internal/events"
	"github.com/spec-kit/travel-insurance-service/internal/observability"
	"github.com/spec-kit/travel-insurance-service/internal/persistence"
	"github.com/spec-kit/travel-insurance-service/internal/repository"
	"github.com/spec-kit/travel-insurance-service/internal/service"
	"github.com/spec-kit/travel-insurance-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	metrics := observability.NewMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	snapshotRepo := repository.NewQuoteSnapshotRepository(pool)
	passengerRepo := repository.NewPassengerRepository(pool)
	policyRepo := repository.NewPolicyRepository(pool)
	txManager := repository.NewTxManager(pool)

	providerTokens := assistcard.NewTokenManager(cfg.Assistcard, logger)
	providerClient := assistcard.NewClient(cfg.Assistcard, providerTokens, logger, metrics)

	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(*cfg, userRepo)
	quoteService := service.NewQuoteService(cfg.Assistcard, service.QuoteDependencies{
		API:          providerClient,
		SnapshotRepo: snapshotRepo,
		Cache:        redis,
	}, logger)
	issuanceService := service.NewIssuanceService(service.IssuanceDependencies{
		API:           providerClient,
		TxManager:     txManager,
		SnapshotRepo:  snapshotRepo,
		PassengerRepo: passengerRepo,
		PolicyRepo:    policyRepo,
		Dispatcher:    dispatcher,
	}, logger)
	policyService := service.NewPolicyService(providerClient, policyRepo, dispatcher, logger)

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notify)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Quotes:         handlers.NewQuoteHandler(quoteService),
		Issuance:       handlers.NewIssuanceHandler(issuanceService),
		Policies:       handlers.NewPolicyHandler(policyService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
