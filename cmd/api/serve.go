package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/triangle-intel/internal/application"
	"github.com/bryanwahyu/triangle-intel/internal/application/beast"
	progressive "github.com/bryanwahyu/triangle-intel/internal/application/cascade"
	"github.com/bryanwahyu/triangle-intel/internal/application/dashboard"
	"github.com/bryanwahyu/triangle-intel/internal/application/goldmine"
	"github.com/bryanwahyu/triangle-intel/internal/application/journey"
	appoutbox "github.com/bryanwahyu/triangle-intel/internal/application/outbox"
	"github.com/bryanwahyu/triangle-intel/internal/application/reports"
	"github.com/bryanwahyu/triangle-intel/internal/application/servicerequests"
	"github.com/bryanwahyu/triangle-intel/internal/config"
	"github.com/bryanwahyu/triangle-intel/internal/domain/intakeform"
	"github.com/bryanwahyu/triangle-intel/internal/infra/ai/openai"
	"github.com/bryanwahyu/triangle-intel/internal/infra/cache"
	"github.com/bryanwahyu/triangle-intel/internal/infra/db/migrations"
	mysqlp "github.com/bryanwahyu/triangle-intel/internal/infra/db/mysql"
	"github.com/bryanwahyu/triangle-intel/internal/infra/db/postgres"
	"github.com/bryanwahyu/triangle-intel/internal/infra/db/sqlstore"
	"github.com/bryanwahyu/triangle-intel/internal/infra/httpserver"
	"github.com/bryanwahyu/triangle-intel/internal/infra/messaging"
	"github.com/bryanwahyu/triangle-intel/internal/infra/metrics"
	minioStore "github.com/bryanwahyu/triangle-intel/internal/infra/storage"
	"github.com/bryanwahyu/triangle-intel/internal/middleware"
)

const shutdownGrace = 5 * time.Second

func connectDB(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	if cfg.Database.Driver == "mysql" {
		return mysqlp.Connect(ctx, cfg.MySQLDSN(), cfg.Database.Pool)
	}
	return postgres.Connect(ctx, cfg.PostgresDSN(), cfg.Database.Pool)
}

func runMigrate(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	db, err := connectDB(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s connect: %w", cfg.Database.Driver, err)
	}
	defer db.Close()

	if err := migrations.Up(db.DB, cfg.Database.Driver); err != nil {
		return err
	}
	v, dirty, err := migrations.Version(db.DB, cfg.Database.Driver)
	if err != nil {
		return err
	}
	log.Info("migrations applied", zap.String("driver", cfg.Database.Driver), zap.Uint("version", v), zap.Bool("dirty", dirty))
	return nil
}

func runServe(parent context.Context, cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := connectDB(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s connect: %w", cfg.Database.Driver, err)
	}
	defer db.Close()
	if cfg.Database.Migrate {
		if err := migrations.Up(db.DB, cfg.Database.Driver); err != nil {
			return err
		}
	}

	reg := metrics.New()
	clock := application.SystemClock{}

	health := map[string]middleware.HealthChecker{"database": middleware.CheckFunc(db.PingContext)}
	ready := map[string]middleware.HealthChecker{"database": middleware.CheckFunc(db.PingContext)}

	var appCache application.Cache = application.NopCache{}
	if cfg.Redis.Addr != "" {
		rc, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn("redis unavailable, running without cache", zap.Error(err))
		} else {
			defer rc.Close()
			c := cache.New(rc, cfg.Redis.Prefix, cfg.Redis.TTL, cache.WithLogger(log), cache.WithObserver(reg))
			appCache = c
			health["redis"] = middleware.CheckFunc(c.Ping)
		}
	}

	publisher, err := messaging.FromConfig(*cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("event publisher close", zap.Error(err))
		}
	}()

	sessions := sqlstore.NewSessionRepository(db)
	events := sqlstore.NewEventRepository(db)
	reference := sqlstore.NewReferenceRepository(db)
	outboxRepo := sqlstore.NewOutboxRepository(db)

	worker := &appoutbox.Worker{
		Repo:         outboxRepo,
		Clock:        clock,
		Logger:       log.Named("outbox"),
		Metrics:      reg,
		PollInterval: cfg.Outbox.PollInterval,
		BatchSize:    cfg.Outbox.BatchSize,
		MaxAttempts:  cfg.Outbox.MaxAttempts,
		BaseBackoff:  cfg.Outbox.BaseBackoff,
	}
	worker.Register(&beast.PatternSaver{
		Sessions:  sessions,
		Events:    events,
		Matches:   sqlstore.NewPatternMatchRepository(db),
		Publisher: publisher,
		Clock:     clock,
		Logger:    log.Named("pattern_saver"),
	})

	gm := &goldmine.Service{
		Sessions:     sessions,
		Events:       events,
		Reference:    reference,
		Market:       sqlstore.NewMarketRepository(db),
		Cache:        appCache,
		Publisher:    publisher,
		Clock:        clock,
		Logger:       log.Named("goldmine"),
		ReferenceTTL: cfg.Intelligence.ReferenceCacheTTL,
		WorkflowTTL:  cfg.Intelligence.WorkflowCacheTTL,
	}
	orchestrator := &beast.Service{
		Sessions: sessions,
		Patterns: reference,
		Outbox:   worker,
		Cache:    appCache,
		Clock:    clock,
		Logger:   log.Named("beast"),
		Metrics:  reg,
		Config: beast.Config{
			AnalyzerTimeout:      cfg.Intelligence.AnalyzerTimeout,
			CacheTTL:             cfg.Intelligence.ActivationCacheTTL,
			BatchSize:            cfg.Intelligence.BatchSize,
			ConfidenceMultiplier: cfg.Intelligence.ConfidenceMultiplier,
			NetworkGrowthCap:     cfg.Intelligence.NetworkGrowthCap,
			DisableShipping:      !cfg.ShippingEnabled(),
		},
	}
	journeySvc := &journey.Service{
		Goldmine: gm,
		Cascade: &progressive.Service{
			States:   sqlstore.NewJourneyRepository(db),
			Profiles: sessions,
			Workflow: gm,
			Clock:    clock,
			Logger:   log.Named("cascade"),
		},
		Clock:  clock,
		Logger: log.Named("journey"),
	}

	reportSvc := &reports.Service{
		Repo:      sqlstore.NewReportRepository(db),
		Clock:     clock,
		Logger:    log.Named("reports"),
		RequireAI: cfg.Reports.RequireAI,
	}
	if cfg.OpenAI.APIKey != "" {
		reportSvc.Writer = openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
	}
	if cfg.Minio.Endpoint != "" {
		store, err := minioStore.New(ctx, minioStore.Options{
			Endpoint:  cfg.Minio.Endpoint,
			Region:    cfg.Minio.Region,
			Bucket:    cfg.Minio.BucketName,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			UseSSL:    cfg.Minio.UseSSL,
		})
		if err != nil {
			log.Warn("minio unavailable, reports will not be uploaded", zap.Error(err))
		} else {
			reportSvc.Store = store
			health["storage"] = middleware.CheckFunc(store.Ping)
		}
	}
	forms, err := intakeform.Default()
	if err != nil {
		return fmt.Errorf("intake forms: %w", err)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.Rate, cfg.RateLimit.Every)
	defer limiter.Stop()

	handler := httpserver.NewRouter(httpserver.Deps{
		Journey: journeySvc,
		Dashboard: &dashboard.Service{
			Beast:    orchestrator,
			Goldmine: gm,
			Clock:    clock,
			Logger:   log.Named("dashboard"),
		},
		Requests: &servicerequests.Service{
			Requests: sqlstore.NewServiceRequestRepository(db),
			Analyses: sqlstore.NewAnalysisRepository(db),
			Clock:    clock,
			Logger:   log.Named("service_requests"),
		},
		Reports:        reportSvc,
		Forms:          forms,
		Logger:         log.Named("http"),
		Metrics:        reg,
		MetricsHandler: reg.Handler(),
		RateLimiter:    limiter,
		AdminKeys:      cfg.Auth.AdminKeys,
		CORSOrigins:    cfg.Server.CORSOrigins,
		MemoryBudgetMB: cfg.Server.MemoryBudgetMB,
		Health:         health,
		Ready:          ready,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(gctx) })
	g.Go(func() error {
		log.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
