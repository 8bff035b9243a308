package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/field-service/internal/api/http"
	"github.com/spec-kit/field-service/internal/api/http/handlers"
	"github.com/spec-kit/field-service/internal/auth"
	"github.com/spec-kit/field-service/internal/authz"
	"github.com/spec-kit/field-service/internal/config"
	"github.com/spec-kit/field-service/internal/events"
	"github.com/spec-kit/field-service/internal/observability"
	"github.com/spec-kit/field-service/internal/persistence"
	"github.com/spec-kit/field-service/internal/repository"
	"github.com/spec-kit/field-service/internal/service"
	"github.com/spec-kit/field-service/internal/sla"
	"github.com/spec-kit/field-service/internal/worker"
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
	ticketRepo := repository.NewTicketRepository(pool)
	equipmentRepo := repository.NewEquipmentRepository(pool)
	institutionRepo := repository.NewInstitutionRepository(pool)
	principalRepo := repository.NewPrincipalRepository(pool)

	filter := authz.NewAccessFilter()
	calculator := sla.NewCalculator(cfg.SLA.ThresholdMinutes)
	dispatcher := events.NewInMemoryDispatcher(logger)

	lifecycleService := service.NewLifecycleService(service.LifecycleDependencies{
		TicketRepo:    ticketRepo,
		EquipmentRepo: equipmentRepo,
		Filter:        filter,
		Calculator:    calculator,
		Clock:         sla.SystemClock(),
		Dispatcher:    dispatcher,
	})
	directoryService := service.NewDirectoryService(service.DirectoryDependencies{
		InstitutionRepo: institutionRepo,
		EquipmentRepo:   equipmentRepo,
		Filter:          filter,
	})
	importerService := service.NewImporterService(equipmentRepo, logger)
	reportService := service.NewReportService(service.ReportDependencies{
		TicketRepo:      ticketRepo,
		InstitutionRepo: institutionRepo,
		EquipmentRepo:   equipmentRepo,
		PrincipalRepo:   principalRepo,
		Filter:          filter,
		Calculator:      calculator,
		Cache:           redis.Client,
		CacheTTL:        cfg.SLA.ReportCacheTTL(),
		Logger:          logger,
	})
	authService := service.NewAuthService(cfg.Auth, principalRepo)
	notificationService := service.NewNotificationService(dispatcher, reportService, logger)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewMiddleware(authService.TokenManager(), principalRepo)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(lifecycleService),
		Directory:      handlers.NewDirectoryHandler(directoryService, importerService),
		Reports:        handlers.NewReportsHandler(reportService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	logger.Info("service started",
		zap.String("addr", cfg.App.Addr()),
		zap.String("env", cfg.App.Env),
		zap.String("version", cfg.App.Version))

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
