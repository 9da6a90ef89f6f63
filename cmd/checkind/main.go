// Command checkind runs the intern check-in backend: work update intake,
// AI follow-up question generation, and background cleanup.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"checkin/internal/cleanup"
	"checkin/internal/config"
	"checkin/internal/followup"
	"checkin/internal/httpapi"
	"checkin/internal/llm"
	"checkin/internal/logging"
	"checkin/internal/metrics"
	"checkin/internal/store"
	"checkin/internal/store/postgres"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "checkind",
		Short: "Intern check-in backend",
		Long: `checkind collects daily work updates from interns, generates AI
follow-up questions for each update, and finalizes updates once the
follow-up answers arrive. Configuration comes from checkin-config.yaml
and CHECKIN_* environment variables.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server (default)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "sweep",
			Short: "Run one cleanup pass and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSweep(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Print storage statistics and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runStats(cmd.Context())
			},
		},
	)
	return rootCmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Configure(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	return cfg, nil
}

// openStore picks Postgres when a database URL is configured, otherwise the
// in-memory store. The returned closer is a no-op for the memory store.
func openStore(ctx context.Context, cfg *config.Config, logger logging.Logger) (store.Store, func(), error) {
	if cfg.Database.URL == "" {
		logger.Warn("No database URL configured; using in-memory storage (data is lost on restart)")
		return store.NewMemoryStore(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	pg := postgres.New(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	logger.Info("Connected to Postgres")
	return pg, pool.Close, nil
}

func runServe(ctx context.Context) error {
	logger := logging.NewComponentLogger("Main")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.Info("Starting check-in server on %s (model: %s)", cfg.Server.Addr(), cfg.AI.Model)

	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	client, err := llm.NewGeminiClient(cfg.AI.Model, llm.Config{
		APIKey:  cfg.AI.APIKey,
		BaseURL: cfg.AI.BaseURL,
		Timeout: cfg.AI.TimeoutSeconds,
	})
	if err != nil {
		return fmt.Errorf("create AI client: %w", err)
	}

	observer, err := metrics.NewPrometheusObserver("checkin", nil)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	service := followup.NewService(st, client, followup.WithObserver(observer))
	janitor := &cleanup.Janitor{
		Store:     st,
		Retention: cfg.Cleanup.Retention(),
		Observer:  observer,
		Logger:    logging.NewComponentLogger("Cleanup"),
	}

	server := httpapi.New(st, service, janitor, httpapi.Options{
		CORSOrigins: cfg.Server.CORSOrigins,
		Observer:    observer,
		Logger:      logging.NewComponentLogger("HTTP"),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := &cleanup.Runner{
		Janitor:  janitor,
		Interval: cfg.Cleanup.Interval(),
		Logger:   logging.NewComponentLogger("Cleanup"),
	}
	go func() {
		if err := runner.Run(runCtx); err != nil {
			logger.Error("Cleanup runner stopped: %v", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening on %s", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-runCtx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

func runSweep(ctx context.Context) error {
	logger := logging.NewComponentLogger("Sweep")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	janitor := &cleanup.Janitor{
		Store:     st,
		Retention: cfg.Cleanup.Retention(),
		Logger:    logger,
	}
	result, err := janitor.Sweep(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d temp updates and %d sessions\n", result.TempUpdates, result.Sessions)
	return nil
}

func runStats(ctx context.Context) error {
	logger := logging.NewComponentLogger("Stats")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	stats, err := st.Stats(ctx)
	if err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}
