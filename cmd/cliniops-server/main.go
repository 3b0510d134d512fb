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

	"github.com/cliniops/cliniops/internal/config"
	"github.com/cliniops/cliniops/internal/domain/patient"
	"github.com/cliniops/cliniops/internal/domain/practitioner"
	"github.com/cliniops/cliniops/internal/domain/procedure"
	"github.com/cliniops/cliniops/internal/domain/product"
	"github.com/cliniops/cliniops/internal/domain/treatment"
	"github.com/cliniops/cliniops/internal/platform/artifact"
	"github.com/cliniops/cliniops/internal/platform/auth"
	"github.com/cliniops/cliniops/internal/platform/cleanup"
	"github.com/cliniops/cliniops/internal/platform/db"
	"github.com/cliniops/cliniops/internal/platform/metrics"
	"github.com/cliniops/cliniops/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cliniops-server",
		Short: "Clinical operations API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

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

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Artifact store
	store, err := newArtifactStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize artifact store")
	}
	logger.Info().Str("driver", cfg.ArtifactDriver).Msg("artifact store ready")

	// Metrics
	m := metrics.New()

	// Domain wiring
	patientSvc := patient.NewService(patient.NewRepoPG(pool))
	practitionerSvc := practitioner.NewService(practitioner.NewRepoPG(pool))
	treatmentSvc := treatment.NewService(treatment.NewRepoPG(pool))
	productSvc := product.NewService(product.NewRepoPG(pool))

	ledger := product.NewLedgerPG(pool, logger)
	sweeper := procedure.NewArtifactSweeper(store, time.Duration(cfg.CleanupMaxAgeMinutes)*time.Minute, logger)
	saga := procedure.NewSaga(db.NewTransactor(pool), procedure.NewRepoPG(pool), ledger, store, sweeper, m, logger)

	// Background cleanup
	trigger := cleanup.NewTrigger(logger)
	trigger.Register(sweeper)
	cleanupInterval := time.Duration(cfg.CleanupIntervalMinutes) * time.Minute
	if cleanupInterval <= 0 {
		cleanupInterval = 15 * time.Minute
	}
	cleanupCtx, cancelCleanup := context.WithCancel(ctx)
	defer cancelCleanup()
	go trigger.Start(cleanupCtx, cleanupInterval)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", cfg.ArtifactMaxBytes/(1024*1024)+1)))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() && cfg.JWTSecret == "" {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{Secret: cfg.JWTSecret}))
	}

	// Health and metrics
	e.GET("/health", db.HealthHandler(pool))
	e.GET("/metrics", m.Handler())

	// API routes
	apiV1 := e.Group("/api/v1")
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	practitioner.NewHandler(practitionerSvc).RegisterRoutes(apiV1)
	treatment.NewHandler(treatmentSvc).RegisterRoutes(apiV1)
	product.NewHandler(productSvc).RegisterRoutes(apiV1)
	procedure.NewHandler(saga, cfg.ArtifactMaxBytes).RegisterRoutes(apiV1)

	// Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("server starting")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	cancelCleanup()
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
		return err
	}
	return nil
}

func newArtifactStore(ctx context.Context, cfg *config.Config) (artifact.Store, error) {
	switch cfg.ArtifactDriver {
	case "s3":
		return artifact.NewS3Store(ctx, artifact.S3Config{
			Region:    cfg.ArtifactS3Region,
			Bucket:    cfg.ArtifactS3Bucket,
			Endpoint:  cfg.ArtifactS3Endpoint,
			PathStyle: cfg.ArtifactS3PathStyle,
		})
	default:
		return artifact.NewMemoryStore(), nil
	}
}
