package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
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

	"github.com/clinicops/agenda/internal/config"
	"github.com/clinicops/agenda/internal/domain/agenda"
	"github.com/clinicops/agenda/internal/domain/appointment"
	"github.com/clinicops/agenda/internal/domain/clinic"
	"github.com/clinicops/agenda/internal/domain/insights"
	"github.com/clinicops/agenda/internal/domain/lead"
	"github.com/clinicops/agenda/internal/domain/professional"
	"github.com/clinicops/agenda/internal/platform/auth"
	"github.com/clinicops/agenda/internal/platform/calendar"
	"github.com/clinicops/agenda/internal/platform/db"
	"github.com/clinicops/agenda/internal/platform/middleware"
	"github.com/clinicops/agenda/internal/platform/telemetry"
)

const maxBodySize = "1M"

func main() {
	rootCmd := &cobra.Command{
		Use:   "agenda-server",
		Short: "Clinic agenda API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(insightsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the agenda API server",
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

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			migrator, closeFn, err := openMigrator(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	addMigrateFlags(upCmd)
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			migrator, closeFn, err := openMigrator(ctx, cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printStatuses(os.Stdout, statuses)
			return nil
		},
	}
	addMigrateFlags(statusCmd)
	cmd.AddCommand(statusCmd)

	return cmd
}

func addMigrateFlags(cmd *cobra.Command) {
	cmd.Flags().String("schema", db.DefaultSchema, "Target schema for migrations")
	cmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
}

func openMigrator(ctx context.Context, cmd *cobra.Command) (*db.Migrator, func(), error) {
	schema, _ := cmd.Flags().GetString("schema")
	dir, _ := cmd.Flags().GetString("dir")

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if dir == "" {
		dir = cfg.MigrationsDir
	}

	logger := newLogger(cfg.Env, os.Stderr)
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, logger)
	if err != nil {
		return nil, nil, err
	}

	migrator, err := db.NewMigrator(pool, dir).WithSchema(schema)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return migrator.WithLogger(logger), pool.Close, nil
}

func printStatuses(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func insightsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Print the 30-day agenda insights of a clinic as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			clinicID, _ := cmd.Flags().GetString("clinic")
			if clinicID == "" {
				return fmt.Errorf("--clinic is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Env, os.Stderr)
			loc, err := cfg.Location()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := insights.NewService(
				appointment.NewService(appointment.NewRepoPG(pool), loc, logger),
				lead.NewService(lead.NewRepoPG(pool), logger),
				logger,
			)
			summary, err := svc.Summary(ctx, clinicID)
			if err != nil {
				return err
			}
			return writeJSON(os.Stdout, summary)
		},
	}
	cmd.Flags().String("clinic", "", "Clinic identifier")
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newLogger(env string, w io.Writer) zerolog.Logger {
	if env == "development" {
		w = zerolog.ConsoleWriter{Out: w}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

func authMiddleware(cfg *config.Config) echo.MiddlewareFunc {
	if cfg.IsDev() && cfg.AuthSigningKey == "" {
		return auth.DevAuthMiddleware()
	}
	return auth.JWTMiddleware(auth.JWTConfig{
		SigningKey: []byte(cfg.AuthSigningKey),
	})
}

func bridgeConfig(cfg *config.Config, loc *time.Location) calendar.BridgeConfig {
	bc := calendar.BridgeConfig{
		BaseURL:  cfg.CalendarBridgeURL,
		Password: cfg.CalendarBridgePassword,
		Timeout:  cfg.CalendarRequestTimeout,
		Location: loc,
	}
	if cfg.CalendarBridgeTokenSecret != "" {
		bc.TokenSecret = []byte(cfg.CalendarBridgeTokenSecret)
	}
	return bc
}

func runServer() error {
	// Logger
	logger := newLogger(os.Getenv("ENV"), os.Stdout)

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	loc, _ := cfg.Location()

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	metrics := telemetry.NewProvider(telemetry.Config{IncludeRuntime: true})
	e := newServer(cfg, pool, loc, metrics, logger)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("timezone", loc.String()).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

func newServer(cfg *config.Config, pool *pgxpool.Pool, loc *time.Location, metrics *telemetry.Provider, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(metrics.MetricsMiddleware())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader, "X-Clinic-ID"},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool, metrics))
	e.GET("/metrics", metrics.PrometheusHandler())

	apiV1 := e.Group("/api/v1",
		authMiddleware(cfg),
		auth.ClinicMiddleware(),
		middleware.RateLimit(middleware.DefaultRateLimitConfig()),
		middleware.BodyLimit(maxBodySize),
		middleware.RequestTimeout(cfg.RequestTimeout),
		middleware.SecurityHeaders(),
	)

	// Stores
	clinicSvc := clinic.NewService(clinic.NewRepoPG(pool))
	professionalSvc := professional.NewService(professional.NewRepoPG(pool), logger)
	appointmentSvc := appointment.NewService(appointment.NewRepoPG(pool), loc, logger)
	leadSvc := lead.NewService(lead.NewRepoPG(pool), logger)

	// Calendar providers
	router := calendar.NewRouter(clinicSvc, calendar.NewBridge(bridgeConfig(cfg, loc)), logger)
	router.Register(calendar.ProviderICS, calendar.NewFeed(clinicSvc, cfg.CalendarRequestTimeout, loc))
	professionalSvc.WithCalendars(router)

	agendaSvc := agenda.NewService(router, professionalSvc, agenda.Options{
		Location:    loc,
		SlotsPerDay: cfg.OccupancySlotsPerDay,
		Metrics:     metrics,
	}, logger)
	insightsSvc := insights.NewService(appointmentSvc, leadSvc, logger)

	agenda.NewHandler(agendaSvc, calendar.EncodeICS).RegisterRoutes(apiV1)
	professional.NewHandler(professionalSvc).RegisterRoutes(apiV1)
	appointment.NewHandler(appointmentSvc).RegisterRoutes(apiV1)
	lead.NewHandler(leadSvc).RegisterRoutes(apiV1)
	insights.NewHandler(insightsSvc).RegisterRoutes(apiV1)

	return e
}
