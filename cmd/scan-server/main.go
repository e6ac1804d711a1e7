package main

import (
	"context"
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

	"github.com/vaidyavision/vaidya/internal/config"
	"github.com/vaidyavision/vaidya/internal/domain/followup"
	"github.com/vaidyavision/vaidya/internal/domain/identity"
	"github.com/vaidyavision/vaidya/internal/domain/notification"
	"github.com/vaidyavision/vaidya/internal/domain/scan"
	"github.com/vaidyavision/vaidya/internal/platform/artifact"
	"github.com/vaidyavision/vaidya/internal/platform/auth"
	"github.com/vaidyavision/vaidya/internal/platform/db"
	"github.com/vaidyavision/vaidya/internal/platform/delivery"
	"github.com/vaidyavision/vaidya/internal/platform/inference"
	"github.com/vaidyavision/vaidya/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "scan-server",
		Short: "Medical scan intake and triage API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(followupsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the scan API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
	}

	var migrationsDir string

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, _, pool, err := bootstrap()
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, migrationsDir)
			applied, err := migrator.Up(context.Background())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			logger.Info().Int("applied", applied).Msg("migrations complete")
			return nil
		},
	}
	upCmd.Flags().StringVar(&migrationsDir, "dir", "migrations", "migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, pool, err := bootstrap()
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, migrationsDir)
			statuses, err := migrator.Status(context.Background())
			if err != nil {
				return err
			}
			for _, st := range statuses {
				state := "pending"
				if st.Applied {
					state = "applied"
				}
				fmt.Printf("%3d  %-40s %s\n", st.Version, st.Name, state)
			}
			return nil
		},
	}
	statusCmd.Flags().StringVar(&migrationsDir, "dir", "migrations", "migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

// followupsCmd runs a single delivery sweep and exits. Intended to be
// invoked from cron; the HTTP endpoint covers on-demand runs.
func followupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "followups",
		Short: "Follow-up reminder commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Deliver all due follow-up reminders once",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, cfg, pool, err := bootstrap()
			if err != nil {
				return err
			}
			defer pool.Close()

			deps, err := buildServices(cfg, pool, logger)
			if err != nil {
				return err
			}
			result, err := deps.followups.RunDuePass(context.Background(), time.Now())
			if err != nil {
				return err
			}
			logger.Info().
				Int("processed", result.ProcessedCount).
				Int("failed", len(result.FailedIDs)).
				Msg("follow-up sweep complete")
			return nil
		},
	})
	return cmd
}

func bootstrap() (zerolog.Logger, *config.Config, *pgxpool.Pool, error) {
	logger := newLogger()
	cfg, err := config.Load()
	if err != nil {
		return logger, nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return logger, nil, nil, err
	}
	pool, err := db.NewPool(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return logger, nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	return logger, cfg, pool, nil
}

func newLogger() zerolog.Logger {
	if os.Getenv("ENV") == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// services groups the wired domain layer for reuse between the server
// and the CLI sweeps.
type services struct {
	users         *identity.Service
	scans         *scan.Service
	followups     *followup.Service
	notifications notification.Repository
}

func buildServices(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) (*services, error) {
	userRepo := identity.NewRepoPG(pool)
	users := identity.NewService(userRepo, logger)

	store, err := newArtifactStore(cfg)
	if err != nil {
		return nil, err
	}

	ml := inference.NewHTTPClient(cfg.MLServiceURL, time.Duration(cfg.MLTimeoutSeconds)*time.Second)

	notifRepo := notification.NewRepoPG(pool)
	fanout := notification.NewFanout(notifRepo, &notification.DoctorPool{Users: users}, logger)

	scanRepo := scan.NewRepoPG(pool)
	scans := scan.NewService(scanRepo, store, ml, users, fanout, logger)

	followupRepo := followup.NewRepoPG(pool)
	followups := followup.NewService(followupRepo, scans, users, newChannelRegistry(cfg), cfg.BaseURL, logger)

	return &services{
		users:         users,
		scans:         scans,
		followups:     followups,
		notifications: notifRepo,
	}, nil
}

func newArtifactStore(cfg *config.Config) (artifact.Store, error) {
	if cfg.ArtifactBackend == "s3" {
		return artifact.NewS3Store(context.Background(), cfg.S3Bucket)
	}
	return artifact.NewFSStore(cfg.UploadDir)
}

func newChannelRegistry(cfg *config.Config) delivery.Registry {
	registry := delivery.Registry{}
	if cfg.SMTPServer != "" {
		email := delivery.NewEmailDeliverer(cfg.SMTPServer, cfg.SMTPPort, cfg.SMTPEmail, cfg.SMTPPassword)
		registry[followup.TypeMessage] = email
		registry[followup.TypeEmail] = email
	}
	if cfg.CallGateway != "" {
		registry[followup.TypeCall] = delivery.NewCallDeliverer(cfg.CallGateway, 30*time.Second)
	}
	return registry
}

func runServer() error {
	logger, cfg, pool, err := bootstrap()
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	deps, err := buildServices(cfg, pool, logger)
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{SigningKey: []byte(cfg.JWTSigningKey)}))
	}

	apiV1 := e.Group("/api/v1")
	scan.NewHandler(deps.scans).RegisterRoutes(apiV1)
	followup.NewHandler(deps.followups).RegisterRoutes(apiV1)
	notification.NewHandler(deps.notifications).RegisterRoutes(apiV1)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
