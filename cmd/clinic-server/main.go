package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinic/clinic/internal/config"
	"github.com/clinic/clinic/internal/domain/dashboard"
	"github.com/clinic/clinic/internal/domain/faq"
	"github.com/clinic/clinic/internal/domain/identity"
	"github.com/clinic/clinic/internal/domain/patient"
	"github.com/clinic/clinic/internal/domain/refdata"
	"github.com/clinic/clinic/internal/domain/scheduling"
	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/logging"
	"github.com/clinic/clinic/internal/platform/middleware"
	"github.com/clinic/clinic/internal/platform/settings"
	"github.com/clinic/clinic/internal/platform/validate"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-server",
		Short: "Clinic appointment management API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

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

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			cfg, pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			count, err := db.NewMigrator(pool, dir).Up(cmd.Context())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			cfg, pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			statuses, err := db.NewMigrator(pool, dir).Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				state, at := "pending", ""
				if s.Applied {
					state = "applied"
					if s.AppliedAt != nil {
						at = s.AppliedAt.Format(time.RFC3339)
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, state, at)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert missing reference data rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, pool, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			added, err := refdata.NewService(refdata.NewRepoPG(pool)).Seed(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Inserted %d reference data row(s).\n", added)
			return nil
		},
	}
}

func connect(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		Dev:        cfg.IsDev(),
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	store, err := settings.Open(cfg.SettingsFile, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.SettingsFile).Msg("failed to load settings")
	}

	e := newServer(cfg, pool, store, logger)

	// Start server in a goroutine
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("version", version).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// services holds everything the HTTP layer dispatches to.
type services struct {
	identity   *identity.Service
	patient    *patient.Service
	scheduling *scheduling.Service
	faq        *faq.Service
	dashboard  *dashboard.Service
	refdata    *refdata.Service
	settings   *settings.Store
}

func newServer(cfg *config.Config, pool *pgxpool.Pool, store *settings.Store, logger zerolog.Logger) *echo.Echo {
	tx := db.NewTxManager(pool)
	tokens := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.TokenTTL())
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)

	refSvc := refdata.NewService(refdata.NewRepoPG(pool))
	if added, err := refSvc.Seed(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("failed to seed reference data")
	} else if added > 0 {
		logger.Info().Int("rows", added).Msg("seeded reference data")
	}

	patientSvc := patient.NewService(patient.NewPatientRepoPG(pool), patient.NewNoteRepoPG(pool), refSvc)
	identitySvc := identity.NewService(identity.NewUserRepoPG(pool), patientDirectory{svc: patientSvc},
		tokens, hasher, tx, logger.With().Str("component", "identity").Logger())
	svc := services{
		identity: identitySvc,
		patient:  patientSvc,
		scheduling: scheduling.NewService(scheduling.NewAppointmentRepoPG(pool), scheduling.NewAvailabilityRepoPG(pool),
			patientSvc, doctorDirectory{svc: identitySvc}, store, tx, logger.With().Str("component", "scheduling").Logger()),
		faq:       faq.NewService(faq.NewRepoPG(pool), logger.With().Str("component", "faq").Logger()),
		dashboard: dashboard.NewService(dashboard.NewRepoPG(pool), logger),
		refdata:   refSvc,
		settings:  store,
	}
	return newEcho(cfg, logger, tokens, pool, func() *db.PoolStats { return db.GetPoolStats(pool) }, svc)
}

func newEcho(cfg *config.Config, logger zerolog.Logger, tokens auth.TokenParser, pinger db.Pinger,
	stats func() *db.PoolStats, svc services) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(logger, cfg.IsDev())
	e.Validator = validate.Echo()

	// Global middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderXRequestID},
	}))
	e.Use(echomw.BodyLimit("1M"))

	// Health checks
	e.GET("/health", db.LivenessHandler())
	e.GET("/health/db", db.HealthHandler(pinger, stats))

	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))
	apiV1.Use(middleware.RequestTimeout(cfg.RequestTimeout()))
	apiV1.Use(auth.JWTMiddleware(auth.MiddlewareConfig{
		Tokens:   tokens,
		Skipper:  auth.AuthSkipper,
		Optional: auth.OptionalAuth,
	}))
	apiV1.Use(middleware.Audit(logger))

	identity.NewHandler(svc.identity).RegisterRoutes(apiV1)
	patient.NewHandler(svc.patient).RegisterRoutes(apiV1)
	scheduling.NewHandler(svc.scheduling, svc.refdata).RegisterRoutes(apiV1)
	faq.NewHandler(svc.faq).RegisterRoutes(apiV1)
	dashboard.NewHandler(svc.dashboard).RegisterRoutes(apiV1)
	refdata.NewHandler(svc.refdata).RegisterRoutes(apiV1)
	settings.NewHandler(svc.settings).RegisterRoutes(apiV1)

	return e
}
