package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"miluim/internal/domain/auth"
	"miluim/internal/domain/dates"
	"miluim/internal/domain/importer"
	"miluim/internal/domain/ledger"
	"miluim/internal/domain/reports"
	"miluim/internal/platform/config"
	"miluim/internal/platform/crypto"
	"miluim/internal/platform/db"
	"miluim/internal/platform/jobs"
	"miluim/internal/platform/logger"
	"miluim/internal/platform/metrics"
	"miluim/internal/transport/http/api"
	adminhandler "miluim/internal/transport/http/handlers/admin"
	authhandler "miluim/internal/transport/http/handlers/auth"
	importshandler "miluim/internal/transport/http/handlers/imports"
	ledgerhandler "miluim/internal/transport/http/handlers/ledger"
	reportshandler "miluim/internal/transport/http/handlers/reports"
	"miluim/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	Ledger  *ledger.Ledger
	Jobs    *jobs.Service
	Metrics *metrics.Collector
	Router  http.Handler
	Logger  *zap.Logger

	cancel  context.CancelFunc
	closers []func() error
}

// New wires storage, services and routes. The caller must Close the app.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	log := zap.L()
	app := &App{Config: cfg, Logger: log, Metrics: metrics.New()}
	ok := false
	defer func() {
		if !ok {
			_ = app.Close()
		}
	}()

	sealer, err := crypto.New(cfg.NationalIDKey)
	if err != nil {
		return nil, fmt.Errorf("national id key: %w", err)
	}
	backend, err := app.openBackend(ctx, sealer)
	if err != nil {
		return nil, err
	}

	opts, err := ledgerOptions(cfg)
	if err != nil {
		return nil, err
	}
	l, err := ledger.Open(ctx, backend, opts, log.Named("ledger"))
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	app.Ledger = l
	app.closers = append(app.closers, l.Close)

	idempotency, err := app.idempotencyStore(ctx)
	if err != nil {
		return nil, err
	}

	jobsCtx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel
	app.Jobs = jobs.New(log.Named("jobs"))
	if cfg.BackupSchedule != "" {
		if err := app.Jobs.Schedule(cfg.BackupSchedule, adminhandler.JobBackup, adminhandler.BackupJob(l, "scheduled")); err != nil {
			return nil, err
		}
		app.Jobs.Enqueue(adminhandler.JobBackup, adminhandler.BackupJob(l, "startup"))
	}
	app.Jobs.Start(jobsCtx)

	authSvc := auth.NewService(cfg.JWTSecret, cfg.AdminPasswordHash, cfg.TokenTTL)
	if !authSvc.Enabled() {
		log.Warn("authentication disabled, mutating routes are open")
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer(log))
	router.Use(middleware.Logger(log.Named("http"), app.Metrics))
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(authSvc))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.SensitiveRateLimit(cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := l.Ping(ctx); err != nil {
			log.Warn("readiness check failed", zap.Error(err))
			http.Error(w, "storage not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, app.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(authSvc).RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(authSvc, false))
			r.Use(middleware.Idempotency(idempotency))

			ledgerhandler.NewHandler(l).RegisterRoutes(r)
			importshandler.NewHandler(l, app.Metrics, log.Named("import")).RegisterRoutes(r)
			reportshandler.NewHandler(reports.NewService(l, cfg.PDFFontFile)).RegisterRoutes(r)
			adminhandler.NewHandler(l, app.Jobs, log.Named("admin")).RegisterRoutes(r)
		})
	})

	if cfg.FrontendDir != "" {
		router.Mount("/", spaHandler{staticPath: cfg.FrontendDir, indexPath: "index.html"})
	}

	app.Router = router
	ok = true
	return app, nil
}

func (a *App) openBackend(ctx context.Context, sealer *crypto.Sealer) (ledger.Backend, error) {
	cfg := a.Config
	if cfg.StorageDriver != config.StoragePostgres {
		a.Logger.Info("using file storage", zap.String("path", cfg.DataFile), zap.String("backups", cfg.BackupDir))
		return ledger.NewFileBackend(cfg.DataFile, cfg.BackupDir, sealer), nil
	}

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	a.closers = append(a.closers, conn.Close)
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, conn, db.Migrations()); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}
	a.Logger.Info("using postgres storage")
	return ledger.NewSQLBackend(conn, sealer), nil
}

func (a *App) idempotencyStore(ctx context.Context) (middleware.IdempotencyStore, error) {
	cfg := a.Config
	if cfg.RedisAddr == "" {
		return middleware.NewMemoryIdempotencyStore(cfg.IdempotencyTTL), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	a.closers = append(a.closers, client.Close)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	a.Logger.Info("using redis idempotency store", zap.String("addr", cfg.RedisAddr))
	return middleware.NewRedisIdempotencyStore(client, cfg.IdempotencyTTL), nil
}

func ledgerOptions(cfg config.Config) (ledger.Options, error) {
	order, err := dates.ParseOrder(cfg.SlashDateOrder)
	if err != nil {
		return ledger.Options{}, err
	}
	grouping, err := importer.ParseGrouping(cfg.DutyGrouping)
	if err != nil {
		return ledger.Options{}, err
	}
	vocab, err := importer.LoadVocabulary(cfg.VocabularyFile)
	if err != nil {
		return ledger.Options{}, err
	}
	return ledger.Options{
		DefaultRate:        cfg.DefaultDailyRate,
		Grouping:           grouping,
		DateOrder:          order,
		Vocabulary:         vocab,
		DutySentinels:      importer.DefaultDutySentinels(),
		Holidays:           cfg.Holidays,
		StrictNameIdentity: cfg.StrictNameIdentity,
		BackupBeforeImport: cfg.BackupBeforeImport,
	}, nil
}

// Close stops background work and releases storage in reverse order.
func (a *App) Close() error {
	if a.Jobs != nil {
		a.Jobs.Stop()
	}
	if a.cancel != nil {
		a.cancel()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Run serves until SIGINT or SIGTERM and then drains in-flight requests.
func Run() error {
	cfg := config.Load()
	base, err := logger.New(cfg.LogLevel, cfg.LogFormat, "miluim")
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = base.Sync() }()
	zap.ReplaceGlobals(base)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			base.Error("shutdown failed", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	errCh := make(chan error, 1)
	go func() {
		base.Info("server listening", zap.String("addr", cfg.Addr), zap.String("env", cfg.Environment))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	base.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type spaHandler struct {
	staticPath string
	indexPath  string
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(h.staticPath, filepath.Clean("/"+r.URL.Path))
	_, err := os.Stat(path)
	if err == nil {
		http.FileServer(http.Dir(h.staticPath)).ServeHTTP(w, r)
		return
	}

	if os.IsNotExist(err) {
		http.ServeFile(w, r, filepath.Join(h.staticPath, h.indexPath))
		return
	}

	http.NotFound(w, r)
}
