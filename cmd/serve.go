package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lumadocs/driveline/internal/api"
	"github.com/lumadocs/driveline/internal/daemon"
	"github.com/lumadocs/driveline/internal/logger"
	"github.com/lumadocs/driveline/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync daemon with its HTTP API",
	Long: `Starts the background daemon: runs a sync pass every configured
interval and serves the HTTP API for triggering passes, checking status,
and inspecting pass history.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Shutdown()
	log := logger.With("component", "serve")

	pidPath, err := daemon.DefaultPIDPath()
	if err != nil {
		return err
	}
	pidFile := daemon.NewPIDFile(pidPath)
	if err := pidFile.Write(); err != nil {
		return err
	}
	defer pidFile.Remove()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	syncSvc, err := service.NewSyncService(ctx, cfg)
	if err != nil {
		return err
	}

	d, err := service.NewDaemonService(syncSvc)
	if err != nil {
		syncSvc.Close()
		return err
	}
	defer d.Close()

	if err := d.Start(ctx, cfg.Sync.Interval); err != nil {
		return err
	}

	apiServer, err := api.NewServer(syncSvc, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http api listening", "addr", cfg.API.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	fmt.Printf("driveline daemon started (interval %s, api %s)\n", cfg.Sync.Interval, cfg.API.Addr)

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http server shutdown failed", "error", err)
	}

	return nil
}
