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

	"garment-dashboard/internal/infrastructure"
	"garment-dashboard/internal/service"
	"garment-dashboard/pkg/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var envFiles []string

	root := &cobra.Command{
		Use:           "garment-dashboard",
		Short:         "Garment order dashboard backend",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withRuntime(envFiles, func(cfg *config.Config, logger *zap.Logger) error {
					return serve(cmd.Context(), cfg, logger)
				})
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the database schema",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withRuntime(envFiles, func(cfg *config.Config, logger *zap.Logger) error {
					db, err := infrastructure.ConnectDatabase(cfg.DatabaseDSN())
					if err != nil {
						return err
					}
					if err := infrastructure.MigrateAllSchemas(db); err != nil {
						return err
					}
					logger.Info("database schema migrated")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Load sample users and products into an empty database",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withRuntime(envFiles, func(cfg *config.Config, logger *zap.Logger) error {
					db, err := infrastructure.ConnectDatabase(cfg.DatabaseDSN())
					if err != nil {
						return err
					}
					if err := infrastructure.MigrateAllSchemas(db); err != nil {
						return err
					}
					users := service.NewUserService(db, nil)
					products := service.NewProductService(db)
					return infrastructure.NewSeedDataManager(users, products, logger).SeedAll(cmd.Context())
				})
			},
		},
	)
	return root
}

func withRuntime(envFiles []string, run func(*config.Config, *zap.Logger) error) error {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck
	return run(cfg, logger)
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	logger.Info("service configuration",
		zap.String("port", cfg.Port),
		zap.String("order_store", cfg.OrderStore),
		zap.Bool("kafka_enabled", cfg.KafkaEnabled),
		zap.Duration("role_cache_ttl", cfg.RoleCacheTTL))

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-quit:
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server exited")
	return nil
}
