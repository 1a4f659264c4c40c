package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trainer-scheduler/internal/app"
	"trainer-scheduler/internal/config"
	"trainer-scheduler/internal/scheduling"
	"trainer-scheduler/internal/server"
	"trainer-scheduler/internal/storage"
	"trainer-scheduler/internal/telemetry"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "trainer-scheduler",
		Short:         "Appointment availability and booking service for a personal trainer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	serve := newServeCommand()
	root.AddCommand(serve, newMigrateCommand(), newSlotsCommand())
	// no subcommand means serve
	root.RunE = serve.RunE
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := app.NewLogger(cfg.Environment)
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdownTracing, err := telemetry.Setup(ctx, telemetry.ConfigFromEnv("trainer-scheduler"))
			if err != nil {
				return fmt.Errorf("telemetry: %w", err)
			}
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownTracing(sctx); err != nil {
					logger.Warn("tracer shutdown failed", zap.Error(err))
				}
			}()

			deps, err := wire(ctx, cfg, logger, true)
			if err != nil {
				return err
			}
			defer deps.Close()

			if cfg.TrainerEmail == "" {
				logger.Warn("TRAINER_EMAIL is not set; availability and booking requests will fail")
			}

			router := server.NewRouter(cfg.Environment, logger)
			deps.App().Routes(router, app.AuthMiddleware(cfg.StaticTokens, cfg.JWTSecret))

			err = server.Run(ctx, router, cfg.Port, logger)
			// let in-flight notifications finish before closing their transports
			deps.Engine.Wait()
			return err
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL required")
			}
			logger := app.NewLogger(cfg.Environment)
			defer func() { _ = logger.Sync() }()

			pg, err := storage.OpenPostgres(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pg.Close()
			return migrate(cmd.Context(), pg, logger)
		},
	}
}

func newSlotsCommand() *cobra.Command {
	var date, service string
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Print the available slots for a day as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.TrainerEmail == "" {
				return errors.New("TRAINER_EMAIL required")
			}
			logger := app.NewLogger(cfg.Environment)
			defer func() { _ = logger.Sync() }()

			deps, err := wire(cmd.Context(), cfg, logger, false)
			if err != nil {
				return err
			}
			defer deps.Close()

			day, err := scheduling.ParseDate(date, cfg.Location)
			if err != nil {
				return fmt.Errorf("invalid --date: %w", err)
			}
			svc, err := deps.Catalog.Lookup(service)
			if err != nil {
				return err
			}
			slots, err := deps.Engine.GetAvailableSlots(cmd.Context(), cfg.TrainerEmail, day, svc)
			if err != nil {
				return fmt.Errorf("%s: %w", scheduling.ErrorCode(err), err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string][]scheduling.Slot{"slots": slots})
		},
	}
	cmd.Flags().StringVar(&date, "date", time.Now().Format(scheduling.DateLayout), "Day to query (YYYY-MM-DD)")
	cmd.Flags().StringVar(&service, "service", "", "Service ID")
	_ = cmd.MarkFlagRequired("service")
	return cmd
}

func migrate(ctx context.Context, pg *storage.Postgres, logger *zap.Logger) error {
	m, err := storage.NewMigrator(pg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()
	return m.Up(ctx)
}
