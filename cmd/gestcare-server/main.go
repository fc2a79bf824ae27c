package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gestcare/gestcare/internal/config"
	"github.com/gestcare/gestcare/internal/domain/gestation"
	"github.com/gestcare/gestcare/internal/domain/prenatal"
	"github.com/gestcare/gestcare/internal/domain/protocol"
	"github.com/gestcare/gestcare/internal/domain/reminder"
	"github.com/gestcare/gestcare/internal/domain/schedule"
	"github.com/gestcare/gestcare/internal/platform/auth"
	"github.com/gestcare/gestcare/internal/platform/db"
	"github.com/gestcare/gestcare/internal/platform/metrics"
	"github.com/gestcare/gestcare/internal/platform/middleware"
	"github.com/gestcare/gestcare/internal/platform/notification"
	"github.com/gestcare/gestcare/internal/platform/store"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gestcare-server",
		Short: "Prenatal ultrasound exam tracking API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(resolveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && cfg.LogLevel != "" {
		logger = logger.Level(lvl)
	}
	return logger
}

// loadCatalog returns the protocol from CATALOG_FILE, or the built-in one.
func loadCatalog(cfg *config.Config) (*protocol.Catalog, error) {
	if cfg.CatalogFile == "" {
		return protocol.Default(), nil
	}
	c, err := protocol.LoadFile(cfg.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", cfg.CatalogFile, err)
	}
	return c, nil
}

func poolConfig(cfg *config.Config) db.PoolConfig {
	return db.PoolConfig{
		URL:               cfg.DatabaseURL,
		MaxConns:          cfg.DBMaxConns,
		MinConns:          cfg.DBMinConns,
		HealthCheckPeriod: cfg.DBHealthCheckPeriod,
		MaxConnIdleTime:   cfg.DBMaxConnIdleTime,
	}
}

type backend struct {
	store  store.Store
	pinger db.Pinger
	close  func()
}

func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*backend, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, poolConfig(cfg))
		if err != nil {
			return nil, err
		}
		n, err := db.NewMigrator(pool, db.Migrations()).Up(ctx)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info().Int("applied", n).Msg("connected to database")
		return &backend{store: store.NewPostgres(pool), pinger: pool, close: pool.Close}, nil

	case config.BackendRedis:
		r, err := store.NewRedis(ctx, store.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		logger.Info().Str("addr", cfg.RedisAddr).Msg("connected to redis")
		return &backend{store: r, pinger: r, close: func() { _ = r.Close() }}, nil

	default:
		logger.Warn().Msg("using in-memory store; data is lost on restart")
		m := store.NewMemory()
		return &backend{store: m, pinger: m, close: func() {}}, nil
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.IsDev() {
		logger.Warn().Msg("ENV=development: DevAuthMiddleware is active and every request acts as admin")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, err := loadCatalog(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load exam catalog")
	}

	be, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("failed to open store")
	}
	defer be.close()

	// Notifier
	templates := notification.NewTemplateEngine()
	var (
		scheduler reminder.Scheduler
		memSched  *notification.MemoryScheduler
	)
	switch cfg.Notifier {
	case config.NotifierKafka:
		ks := notification.NewKafkaScheduler(cfg.KafkaBrokers, cfg.KafkaReminderTopic)
		defer ks.Close()
		scheduler = ks
	default:
		memSched = notification.NewMemoryScheduler(notification.LogSender{Logger: logger}, logger)
		scheduler = memSched
	}

	svc := prenatal.NewService(
		prenatal.Repositories{
			Profiles: gestation.NewProfileRepo(be.store),
			Exams:    schedule.NewRepo(be.store),
			Settings: reminder.NewSettingsRepo(be.store),
			Patients: prenatal.NewPatientRepo(be.store),
		},
		reminder.NewPlanner(scheduler, templates, cfg.ReminderHour),
		templates,
		prenatal.Options{
			Catalog: catalog,
			Tolerances: gestation.Tolerances{
				LMPDueDateDays:  cfg.LMPDueDateToleranceDays,
				UltrasoundWeeks: cfg.UltrasoundToleranceWeeks,
			},
			Lifecycle:      schedule.Lifecycle{AllowLateCompletion: cfg.AllowLateCompletion},
			ClinicWhatsApp: cfg.ClinicWhatsAppNumber,
			Logger:         logger,
		},
	)

	if memSched != nil {
		memSched.OnDelivered(svc.HandleDelivered)
		go memSched.Run(ctx, cfg.DispatchInterval, time.Now)
	}
	go prenatal.NewRefresher(svc, cfg.RefreshInterval, logger).Run(ctx)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.BodyLimit("1M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-User-ID"},
	}))

	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.PublicPaths,
		}))
	}

	apiV1 := e.Group("/api/v1")
	prenatal.NewHandler(svc).RegisterRoutes(apiV1)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(cfg.StoreBackend, be.pinger))
	e.GET("/metrics", metrics.Handler())

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).
			Str("store", cfg.StoreBackend).
			Str("notifier", cfg.Notifier).
			Int("exams", catalog.Len()).
			Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
