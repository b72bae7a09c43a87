package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lumadocs/driveline/internal/logger"
	"github.com/lumadocs/driveline/internal/service"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a single sync pass and exit",
	RunE:  runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Shutdown()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := service.NewSyncService(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	fmt.Println("Starting sync pass...")
	results, err := svc.RunSync(ctx)
	if results != nil {
		added, updated, removed, skipped, errs := results.Counts()
		fmt.Printf("Added:   %d\n", added)
		fmt.Printf("Updated: %d\n", updated)
		fmt.Printf("Removed: %d\n", removed)
		fmt.Printf("Skipped: %d\n", skipped)
		fmt.Printf("Errors:  %d\n", errs)
		for _, e := range results.Errors {
			fmt.Printf("  %s: %s\n", e.Path, e.Err)
		}
	}
	if err != nil {
		return fmt.Errorf("sync pass failed: %w", err)
	}

	return nil
}
