package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/angocine/internal/api/http"
	"github.com/spec-kit/angocine/internal/api/http/handlers"
	"github.com/spec-kit/angocine/internal/auth"
	"github.com/spec-kit/angocine/internal/config"
	"github.com/spec-kit/angocine/internal/events"
	"github.com/spec-kit/angocine/internal/observability"
	"github.com/spec-kit/angocine/internal/persistence"
	"github.com/spec-kit/angocine/internal/repository"
	"github.com/spec-kit/angocine/internal/service"
	"github.com/spec-kit/angocine/internal/worker"
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

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open credential store", zap.Error(err))
	}
	defer closeStore()

	health := map[string]handlers.Pinger{"store": store}
	var (
		resets   repository.ResetTokenRepository
		attempts repository.LoginAttemptRepository
	)
	if cfg.Redis.Enabled {
		redis, err := persistence.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Fatal("failed to connect redis", zap.Error(err))
		}
		defer redis.Close()
		resets = repository.NewRedisResetTokenRepository(redis.Client)
		attempts = repository.NewRedisLoginAttemptRepository(redis.Client)
		health["redis"] = redis
	} else {
		logger.Warn("redis disabled; reset tokens and login counters are kept in process memory")
		ephemeral := repository.NewMemoryEphemeral()
		resets = ephemeral.ResetTokens()
		attempts = ephemeral.LoginAttempts()
	}

	metrics := observability.NewMetrics()
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost, cfg.Auth.HashWorkers).WithObserver(metrics.ObserveHash)
	tokens := auth.NewTokenManager(auth.TokenConfig{
		AccessSecret:  cfg.Auth.JWTSecret,
		AccessTTL:     cfg.Auth.AccessTokenTTL,
		RefreshSecret: cfg.Auth.RefreshSecret,
		RefreshTTL:    cfg.Auth.RefreshTokenTTL,
		Issuer:        cfg.App.Name,
	})

	dispatcher := events.NewInMemoryDispatcher()
	notifications := worker.NewNotificationWorker(service.NewNotificationService(logger, cfg.Notification), logger, 2, 256)
	notifications.Subscribe(dispatcher, service.NotificationEvents...)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := notifications.Run(ctx); err != nil {
			logger.Error("notification worker stopped", zap.Error(err))
		}
	}()

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		Store:         store,
		Hasher:        hasher,
		Tokens:        tokens,
		ResetTokens:   resets,
		LoginAttempts: attempts,
		Dispatcher:    dispatcher,
		Metrics:       metrics,
		Logger:        logger,
	})
	if cfg.Auth.SeedAdminEmail != "" {
		created, err := authService.SeedAdmin(ctx, cfg.Auth.SeedAdminUsername, cfg.Auth.SeedAdminEmail, cfg.Auth.SeedAdminPassword)
		if err != nil {
			logger.Fatal("failed to seed admin", zap.Error(err))
		}
		if created {
			logger.Info("admin account ready", zap.String("email", cfg.Auth.SeedAdminEmail))
		}
	}

	selector := service.NewProfileSelector(store)
	app := httptransport.NewApp(cfg.App.Name, logger, metrics, cfg.App.RequestTimeout(), httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, health),
		Auth:           handlers.NewAuthHandler(authService),
		Accounts:       handlers.NewAccountHandler(service.NewAccountService(store, hasher)),
		Activity:       handlers.NewActivityHandler(service.NewActivityService(selector, store)),
		Admin:          handlers.NewAdminHandler(service.NewAdminService(store, dispatcher, logger)),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Metrics:        metrics,
		CORSOrigins:    cfg.App.CORSOrigins,
		AuthRateLimit:  cfg.App.AuthRateLimit,
		AuthRateWindow: cfg.App.AuthRateWindow,
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()), zap.String("db_driver", cfg.Database.Driver))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	cancel()
	<-workerDone
}

// openStore connects the configured backend, applies migrations and returns
// the store with its cleanup function.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Database.RunMigrations {
			db := pg.SQLDB()
			err := persistence.RunMigrations(ctx, db, goose.DialectPostgres, logger)
			_ = db.Close()
			if err != nil {
				pg.Close()
				return nil, nil, err
			}
		}
		return repository.NewPostgresStore(pg.PoolHandle()), pg.Close, nil
	case config.DriverSQLite:
		sqlite, err := persistence.NewSQLite(ctx, cfg.SQLite, logger)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Database.RunMigrations {
			if err := persistence.RunMigrations(ctx, sqlite.DB, goose.DialectSQLite3, logger); err != nil {
				sqlite.Close()
				return nil, nil, err
			}
		}
		return repository.NewSQLiteStore(sqlite.DB), sqlite.Close, nil
	default:
		return nil, nil, errors.New("unsupported database driver " + cfg.Database.Driver)
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
