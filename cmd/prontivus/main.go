package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/httprate"
	"github.com/hibiken/asynq"

	"github.com/prontivus/prontivus/internal/app"
	"github.com/prontivus/prontivus/internal/auth"
	"github.com/prontivus/prontivus/internal/menu"
	"github.com/prontivus/prontivus/internal/observability"
	"github.com/prontivus/prontivus/internal/platform/cache"
	"github.com/prontivus/prontivus/internal/platform/db"
	"github.com/prontivus/prontivus/internal/rbac"
	"github.com/prontivus/prontivus/internal/roles"
	"github.com/prontivus/prontivus/internal/users"
	"github.com/prontivus/prontivus/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, 10)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := observability.NewMetrics()

	var store rbac.Store
	switch cfg.AuthzCacheBackend {
	case "redis":
		redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.Error("connect redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		store = rbac.NewRedisStore(redisClient, cfg.AuthzCacheTTL)
	default:
		store = rbac.NewMemoryStore(cfg.AuthzCacheSize, cfg.AuthzCacheTTL)
	}

	rolesRepo := roles.NewRepository(pool)
	directory := roles.NewDirectory(rolesRepo)

	menuRepo := menu.NewRepository(pool)

	// Two-step wiring: the menu service feeds the authorization engine and
	// also invalidates it on catalog changes.
	rbacService := rbac.NewService(directory, nil, store, logger, metrics)
	menuService := menu.NewService(menuRepo, rbacService, logger, menu.Config{KeepEmptyGroups: cfg.MenuKeepEmptyGroups})
	rbacService.SetCatalog(menuService)

	rolesService := roles.NewService(rolesRepo, rbacService)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, directory)

	rbacMiddleware := rbac.Middleware{
		Service:     rbacService,
		Principals:  usersService,
		Logger:      logger,
		TrustClaims: cfg.AuthzTrustClaims,
	}

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, rbacService, issuer, jobClient)
	authHandler := auth.NewHandler(logger, authService)
	authHandler.LoginLimiter = httprate.Limit(cfg.LoginRateLimit, cfg.LoginRateWindow, httprate.WithKeyFuncs(httprate.KeyByIP))

	rbacHandler := rbac.NewHandler(logger, rbacService, usersService, rbacMiddleware)
	rolesHandler := roles.NewHandler(logger, rolesService, rbacMiddleware)
	usersHandler := users.NewHandler(logger, usersService, rbacMiddleware)
	menuHandler := menu.NewHandler(logger, menuService, rbacMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		TokenIssuer:  issuer,
		AuthHandler:  authHandler,
		RBACHandler:  rbacHandler,
		RolesHandler: rolesHandler,
		UsersHandler: usersHandler,
		MenuHandler:  menuHandler,
		JobHandler:   jobHandler,
		Metrics:      metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
