package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/mcpgate/internal/config"
)

func driveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drive",
		Short: "Google Drive authorization",
	}
	cmd.AddCommand(driveAuthCmd())
	cmd.AddCommand(driveStatusCmd())
	return cmd
}

func driveAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Run the OAuth consent flow and store the token",
		Long: `Open the Google consent URL, wait for the redirect on the configured
OAuth port and store the resulting token (file or OS keyring). Servers
started afterwards reuse the token without prompting.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc := newDriveService(cfg)
			if err := svc.Authenticate(cmd.Context()); err != nil {
				return fmt.Errorf("google drive: %w", err)
			}
			fmt.Println("Google Drive authenticated successfully.")
			return nil
		},
	}
}

func driveStatusCmd() *cobra.Command {
	var connect bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show Drive configuration and connection state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc := newDriveService(cfg)
			if connect {
				if err := svc.Authenticate(cmd.Context()); err != nil {
					fmt.Fprintf(os.Stderr, "connect failed: %v\n", err)
				}
			}
			out := map[string]any{
				"credentials_path": config.ExpandHome(cfg.Drive.CredentialsPath),
				"token_store":      cfg.Drive.TokenStore,
				"status":           svc.Status(),
			}
			data, _ := json.MarshalIndent(out, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	}
	cmd.Flags().BoolVar(&connect, "connect", false, "connect first (may start the consent flow)")
	return cmd
}
