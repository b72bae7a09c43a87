package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lumadocs/driveline/internal/config"
	"github.com/lumadocs/driveline/internal/source/gdrive"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize access to Google Drive",
	Long: `Runs the OAuth authorization flow and stores the resulting token.
Required once before the first sync, and again if the stored token is
revoked or can no longer be refreshed.`,
	RunE: runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	auth := gdrive.NewAuthenticator(cfg.Drive.ClientID, cfg.Drive.ClientSecret, cfg.Drive.TokenPath)
	if _, err := auth.Authenticate(cmd.Context()); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	fmt.Printf("Token stored at %s\n", auth.TokenPath())
	return nil
}
