package cmd

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lumadocs/driveline/internal/config"
	"github.com/lumadocs/driveline/internal/daemon"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running daemon's sync status",
	RunE:  runStatus,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent sync pass history",
	RunE:  runHistory,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of passes to show")
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
}

// apiGet queries the running daemon's HTTP API and writes the JSON body
// to stdout.
func apiGet(path string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://%s%s", cfg.API.Addr, path))
	if err != nil {
		if pidPath, perr := daemon.DefaultPIDPath(); perr == nil {
			if running, _ := daemon.NewPIDFile(pidPath).IsRunning(); !running {
				return fmt.Errorf("daemon is not running (start it with 'driveline serve')")
			}
		}
		return fmt.Errorf("failed to reach daemon at %s: %w", cfg.API.Addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("daemon returned %s: %s", resp.Status, string(body))
	}

	_, err = io.Copy(os.Stdout, resp.Body)
	return err
}

func runStatus(cmd *cobra.Command, args []string) error {
	return apiGet("/api/v1/sync/status")
}

func runHistory(cmd *cobra.Command, args []string) error {
	return apiGet(fmt.Sprintf("/api/v1/sync/history?limit=%d", historyLimit))
}
