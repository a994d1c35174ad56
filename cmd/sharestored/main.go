// Command sharestored serves the share ledgers over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bitfsorg/sharestore-go/api"
	"github.com/bitfsorg/sharestore-go/auth"
	"github.com/bitfsorg/sharestore-go/config"
	"github.com/bitfsorg/sharestore-go/ledger"
	"github.com/bitfsorg/sharestore-go/logging"
	"github.com/bitfsorg/sharestore-go/metrics"
	"github.com/bitfsorg/sharestore-go/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	dataDir := flag.String("datadir", "", "data directory (default $SHARESTORE_DATADIR or ~/.sharestore)")
	writeConfig := flag.Bool("init", false, "write a default config.toml into the data directory and exit")
	flag.Parse()

	if err := run(*dataDir, *writeConfig); err != nil {
		fmt.Fprintf(os.Stderr, "sharestored: %v\n", err)
		os.Exit(1)
	}
}

func run(dataDir string, writeConfig bool) error {
	cfg, err := config.Load(dataDir)
	if err != nil {
		return err
	}
	if writeConfig {
		path := config.ConfigPath(cfg.DataDir)
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.SaveConfig(path, cfg); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	}

	logger, closer, err := logging.Setup(logging.Options{
		Service: "sharestored",
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	store, err := storage.OpenBoltStore(cfg.DBPath())
	if err != nil {
		return err
	}
	defer store.Close()

	opts := []ledger.Option{
		ledger.WithLogger(logger.With("component", "ledger")),
		ledger.WithReserveFloor(cfg.ReserveFloor),
	}
	if cfg.MetricsEnabled {
		opts = append(opts, ledger.WithMetrics(metrics.Ledger()))
	}
	svc := ledger.New(store, opts...)

	if cfg.GenesisFile != "" {
		if err := svc.LoadGenesis(cfg.GenesisFile); err != nil {
			return err
		}
	}

	var apiOpts []api.Option
	apiOpts = append(apiOpts,
		api.WithLogger(logger.With("component", "api")),
		api.WithReplayGuard(auth.NewReplayGuard(cfg.MaxClockSkew(), 0)),
	)
	if cfg.MetricsEnabled {
		apiOpts = append(apiOpts, api.WithMetrics(metrics.HTTP(), true))
	}
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewServer(svc, apiOpts...).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr, "datadir", cfg.DataDir, "metrics", cfg.MetricsEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", slog.Any("error", err))
		return err
	}
	return <-errCh
}
