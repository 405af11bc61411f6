package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/workreport/backend/api/handler"
	"github.com/workreport/backend/domain"
	"github.com/workreport/backend/internal/config"
	"github.com/workreport/backend/internal/infrastructure/monitor"
	pgInfra "github.com/workreport/backend/internal/infrastructure/postgres"
	"github.com/workreport/backend/internal/infrastructure/queue"
	redisInfra "github.com/workreport/backend/internal/infrastructure/redis"
	"github.com/workreport/backend/internal/middleware"
	"github.com/workreport/backend/internal/router"
	"github.com/workreport/backend/internal/services"
	"github.com/workreport/backend/internal/services/lifecycle"
	"github.com/workreport/backend/pkg/clock"
	"github.com/workreport/backend/pkg/httpcontext"
	"github.com/workreport/backend/pkg/logger"
	"github.com/workreport/backend/repository/postgres"
	redisRepo "github.com/workreport/backend/repository/redis"
	authUC "github.com/workreport/backend/usecase/auth"
	"github.com/workreport/backend/usecase/sla"
	taskUC "github.com/workreport/backend/usecase/task"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	reminderStore, err := queue.Open(cfg.Queue.Path, "reminders")
	if err != nil {
		zapLogger.Fatal("failed to open reminder queue", zap.Error(err))
	}
	manager.Register("reminder_queue", func(ctx context.Context) error {
		return reminderStore.Close()
	})

	mon := monitor.New(pool, redisClient, reminderStore, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	taskRepo := postgres.NewTaskRepository(pool)
	timerRepo := postgres.NewTimerRepository(pool)
	projectRepo := postgres.NewProjectRepository(pool)
	settingsRepo := postgres.NewSettingsRepository(pool)
	historyRepo := postgres.NewHistoryRepository(pool)
	sessionRepo := redisRepo.NewSessionRepository(redisClient, 24*time.Hour)
	policyCache := redisRepo.NewPolicyCache(redisClient, cfg.SLA.PolicyCacheTTL, zapLogger)

	systemClock := clock.System()

	defaults := domain.Policy{
		DeadlineHours: cfg.SLA.DeadlineHours,
		AmberHours:    cfg.SLA.AmberHours,
		RedHours:      cfg.SLA.RedHours,
	}.Normalize()

	resolver := sla.NewResolver(projectRepo, settingsRepo, policyCache, defaults, zapLogger)
	controller := sla.NewController(timerRepo, systemClock, zapLogger)
	slaService := sla.NewService(timerRepo, resolver, systemClock, zapLogger)

	sweeper := services.NewSweeper(
		taskRepo,
		slaService,
		reminderStore,
		services.LogNotifier{Logger: zapLogger},
		mon,
		zapLogger,
		services.SweeperConfig{
			Schedule:      cfg.SLA.SweepSchedule,
			DrainInterval: cfg.Queue.DrainInterval,
			BatchSize:     50,
			MaxRetries:    cfg.Queue.MaxRetry,
			Retention:     time.Duration(cfg.Queue.RetentionHours) * time.Hour,
		},
	)
	sweeper.Start()
	manager.Register("sla_sweeper", func(ctx context.Context) error {
		sweeper.Stop(ctx)
		return nil
	})

	authUseCase := authUC.New(sessionRepo, cfg.JWT.Secret, cfg.JWT.Issuer, systemClock, zapLogger)
	taskUseCase := taskUC.New(taskRepo, historyRepo, controller, slaService, systemClock, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Auth:   apiHandler.NewAuthHandler(authUseCase, ctxAdapter, zapLogger, time.Hour),
		Task:   apiHandler.NewTaskHandler(taskUseCase, ctxAdapter, zapLogger),
		Sla:    apiHandler.NewSlaHandler(taskUseCase, projectRepo, settingsRepo, policyCache, ctxAdapter, zapLogger),
		Health: apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(cfg.JWT.Secret, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
