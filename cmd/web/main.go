package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"finitefield.org/routine-web/internal/catalog"
	"finitefield.org/routine-web/internal/config"
	"finitefield.org/routine-web/internal/observability"
	"finitefield.org/routine-web/internal/routine"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:          "routine-web",
		Short:        "Product catalog browser with routine builder",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with local overrides")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), envFile)
		},
	}

	var ids string
	routineCmd := &cobra.Command{
		Use:   "routine",
		Short: "Print a routine for the given product ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoutine(cmd.Context(), cmd.OutOrStdout(), envFile, ids)
		},
	}
	routineCmd.Flags().StringVar(&ids, "ids", "", "comma separated product ids")

	root.AddCommand(serve, routineCmd)
	return root
}

func loadRuntime(envFile string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(config.WithEnvFile(envFile))
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

func runServe(ctx context.Context, envFile string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, logger, err := loadRuntime(envFile)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	app, err := NewApp(cfg, logger)
	if err != nil {
		logger.Error("app init failed", zap.Error(err))
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("close failed", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           app.Routes(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			logger.Error("server failed", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}

func runRoutine(ctx context.Context, out io.Writer, envFile, ids string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, logger, err := loadRuntime(envFile)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	store := catalog.NewStore(cfg.Catalog.Source, catalog.WithLogger(logger.Named("catalog")))
	if _, err := store.Load(ctx); err != nil {
		return err
	}
	var products []catalog.Product
	for _, id := range strings.Split(ids, ",") {
		if id = strings.TrimSpace(id); id == "" {
			continue
		}
		p, ok := store.Lookup(id)
		if !ok {
			logger.Warn("unknown product id", zap.String("id", id))
			continue
		}
		products = append(products, p)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.AI.Timeout+5*time.Second)
	defer cancel()
	res := routine.NewBuilder(cfg.Routine(), logger.Named("routine")).Build(ctx, products)
	if res.Failed() {
		return errors.New(res.Err)
	}
	_, err = fmt.Fprintln(out, res.Text)
	return err
}
