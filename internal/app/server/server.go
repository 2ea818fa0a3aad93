package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"payrollcore/internal/db"
	"payrollcore/internal/domain/attendance"
	"payrollcore/internal/domain/audit"
	"payrollcore/internal/domain/directory"
	"payrollcore/internal/domain/payroll"
	"payrollcore/internal/domain/policy"
	"payrollcore/internal/platform/config"
	cryptoutil "payrollcore/internal/platform/crypto"
	"payrollcore/internal/platform/email"
	"payrollcore/internal/platform/jobs"
	"payrollcore/internal/platform/metrics"
	"payrollcore/internal/transport/http/api"
	audithandler "payrollcore/internal/transport/http/handlers/audit"
	payrollhandler "payrollcore/internal/transport/http/handlers/payroll"
	"payrollcore/internal/transport/http/middleware"
)

// Run wires the whole service together and blocks until shutdown. It is
// the only place that knows every component; everything below it takes
// its dependencies as arguments.
func Run() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			return err
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool); err != nil {
			return err
		}
	}

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.New()
	}

	var breakerStore directory.BreakerStore
	if cfg.BreakerStore == "redis" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		breakerStore = directory.NewRedisBreakerStore(client, "payroll:breaker", 24*time.Hour)
	} else {
		breakerStore = directory.NewMemoryBreakerStore()
	}
	breaker := directory.NewBreaker(breakerStore, cfg.BreakerThreshold, cfg.BreakerCooldown)
	retry := directory.Retry{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		MaxDelay:    cfg.RetryMaxDelay,
	}

	var innerDirectory directory.Client
	if cfg.DirectoryMode == "remote" {
		innerDirectory = directory.NewRemoteClient(cfg.DirectoryBaseURL, cfg.DirectoryTimeout)
	} else {
		innerDirectory = directory.NewLocalClient(pool)
	}
	directoryClient := directory.NewResilientClient(innerDirectory, breaker, retry, logger)
	directoryClient.OnOpen = collector.RecordBreakerOpen

	policyStore := policy.NewStore(pool)
	attendanceStore := attendance.NewStore(pool)
	payrollStore := payroll.NewStore(pool)
	auditLog := audit.New(pool)

	engine := payroll.NewEngine(policyStore, attendanceStore, directoryClient, payrollStore, collector, logger)

	var cryptoSvc *cryptoutil.Service
	if cfg.DataEncryptionKey != "" {
		cryptoSvc, err = cryptoutil.New(cfg.DataEncryptionKey)
		if err != nil {
			return err
		}
	}
	payslips := payroll.NewPayslipService(payrollStore, directoryClient, auditLog, cryptoSvc, cfg.PayslipDir)

	jobService := jobs.New(pool, engine, email.New(cfg), cfg.PayrollNotifyTo, logger)
	jobService.Start(ctx)

	router := newRouter(cfg, pool, engine, payrollStore, payslips, jobService, auditLog, collector)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.Addr, "environment", cfg.Environment)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newRouter(
	cfg config.Config,
	pool *pgxpool.Pool,
	engine *payroll.Engine,
	payrollStore *payroll.Store,
	payslips *payroll.PayslipService,
	jobService *jobs.Service,
	auditLog *audit.Logger,
	collector *metrics.Collector,
) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Actor)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		payrollhandler.NewHandler(engine, payrollStore, payslips, jobService).RegisterRoutes(r)
		audithandler.NewHandler(auditLog).RegisterRoutes(r)

		if cfg.MetricsEnabled {
			r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
				api.Success(w, collector.Snapshot(), middleware.GetRequestID(req.Context()))
			})
		}
	})

	return router
}
