package cmd

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/lumadocs/driveline/internal/config"
	"github.com/lumadocs/driveline/internal/engine"
	"github.com/lumadocs/driveline/internal/logger"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Force-clear a stuck sync slot",
	Long: `Clears the in-progress sync marker and closes the circuit breaker.
Use this when a crashed pass left the engine claiming a sync is running.
Synced content, metadata, and pass history are not touched.`,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	// A running daemon owns the live state; go through its API first
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(fmt.Sprintf("http://%s/api/v1/sync/reset", cfg.API.Addr), "application/json", nil)
	if err == nil {
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("daemon returned %s: %s", resp.Status, string(body))
		}
		fmt.Println("Sync state reset.")
		return nil
	}

	// No daemon reachable: clear the on-disk marker directly
	state, err := engine.NewStateStore(cfg.DataDir(), cfg.Sync.StaleTimeout, logger.Get())
	if err != nil {
		return err
	}
	if err := state.ForceReset(); err != nil {
		return err
	}

	fmt.Println("Sync state reset.")
	return nil
}
