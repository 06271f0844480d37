package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/SIM-MBKM/mbkm-equivalence-api/api/swagger"
	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/catalog"
	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/equivalence"
	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/handler"
	internalmiddleware "github.com/SIM-MBKM/mbkm-equivalence-api/internal/middleware"
	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/models"
	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/portal"
	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/repository"
	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/service"
	"github.com/SIM-MBKM/mbkm-equivalence-api/pkg/cache"
	"github.com/SIM-MBKM/mbkm-equivalence-api/pkg/config"
	"github.com/SIM-MBKM/mbkm-equivalence-api/pkg/database"
	"github.com/SIM-MBKM/mbkm-equivalence-api/pkg/jobs"
	"github.com/SIM-MBKM/mbkm-equivalence-api/pkg/logger"
	corsmiddleware "github.com/SIM-MBKM/mbkm-equivalence-api/pkg/middleware/cors"
	reqidmiddleware "github.com/SIM-MBKM/mbkm-equivalence-api/pkg/middleware/requestid"
)

// @title MBKM Equivalence API
// @version 1.0.0
// @description Editing sessions for MBKM course equivalences: catalog search and selection save.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

type backends struct {
	searcher      catalog.Searcher
	registrations service.RegistrationReader
	submitter     equivalence.Submitter
	db            *sqlx.DB
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()

	be, err := openBackends(ctx, cfg, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to initialise portal backend", "backend", cfg.Portal.Backend, "error", err)
	}
	if be.db != nil {
		defer be.db.Close()
	}

	probes := map[string]handler.ReadinessProbe{}
	if be.db != nil {
		probes["database"] = be.db.PingContext
	}

	var catalogCache *service.CacheService
	if cfg.Catalog.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("catalog cache disabled, redis unavailable", "error", err)
		} else {
			cacheRepo := repository.NewCacheRepository(client, logr)
			defer cacheRepo.Close() //nolint:errcheck
			catalogCache = service.NewCacheService(cacheRepo, metrics, "catalog", cfg.Catalog.CacheTTL, logr, true)
			probes["redis"] = cacheRepo.Ping
		}
	}

	catalogSvc := service.NewCatalogService(be.searcher, catalogCache, metrics, logr)
	if catalogCache.Enabled() {
		// pages cached by an earlier process may predate catalog edits
		if err := catalogSvc.Flush(ctx); err != nil {
			logr.Sugar().Warnw("failed to flush catalog cache", "error", err)
		}
	}
	registrationSvc := service.NewRegistrationService(be.registrations, metrics)
	equivalenceSvc := service.NewEquivalenceService(be.submitter, metrics, logr)

	fetchQueue := jobs.NewTaskQueue("catalog-fetch", jobs.QueueConfig{
		Workers:    cfg.Dispatcher.Workers,
		BufferSize: cfg.Dispatcher.BufferSize,
		Logger:     logr,
	})
	fetchQueue.Start(ctx)

	sessionSvc := service.NewSessionService(registrationSvc, catalogSvc, equivalenceSvc, metrics, logr, service.SessionOptions{
		PageSize: cfg.Catalog.PageSize,
		Debounce: cfg.Catalog.Debounce,
		IdleTTL:  cfg.Sessions.IdleTTL,
		Dispatch: fetchQueue.Dispatcher("catalog_fetch"),
	})
	sessionSvc.StartJanitor(ctx, cfg.Sessions.SweepInterval)

	authSvc := service.NewAuthService(service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
		Audience:          cfg.JWT.Audience,
	})

	sessionHandler := handler.NewSessionHandler(sessionSvc, validator.New())
	metricsHandler := handler.NewMetricsHandler(metrics, probes)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(authSvc))
	api.Use(internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleAdvisor, models.RoleEvaluator))
	api.Use(internalmiddleware.AttachActor())

	api.GET("/metrics/summary", internalmiddleware.RequireRoles(models.RoleAdmin), metricsHandler.Summary)

	sessions := api.Group("/registrations/:id/equivalence-session")
	sessions.POST("", sessionHandler.Open)
	sessions.GET("", sessionHandler.View)
	sessions.DELETE("", sessionHandler.Close)
	sessions.POST("/reload", sessionHandler.Reload)
	sessions.PATCH("/filters", sessionHandler.SetFilter)
	sessions.DELETE("/filters", sessionHandler.ClearFilters)
	sessions.POST("/catalog/more", sessionHandler.LoadMore)
	sessions.POST("/selection/toggle", sessionHandler.Toggle)
	sessions.POST("/save", sessionHandler.Save)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "backend", cfg.Portal.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
	sessionSvc.CloseAll()
	fetchQueue.Stop()
}

func openBackends(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*backends, error) {
	switch cfg.Portal.Backend {
	case config.BackendPostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return &backends{
			searcher:      repository.NewSubjectRepository(db),
			registrations: repository.NewRegistrationRepository(db),
			submitter:     repository.NewEquivalenceRepository(db),
			db:            db,
		}, nil
	default:
		client := portal.NewClient(cfg.Portal.BaseURL, cfg.Portal.Token, cfg.Portal.Timeout, portal.WithLogger(logr))
		return &backends{
			searcher:      client,
			registrations: client,
			submitter:     client,
		}, nil
	}
}
