// Package cmd is the mcpgate command line and composition root.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/mcpgate/internal/config"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

var (
	cfgFile string
	verbose bool

	// logLevel is shared by every handler installed by setupLogging so a
	// config reload can change it in place.
	logLevel = new(slog.LevelVar)
)

var rootCmd = &cobra.Command{
	Use:   "mcpgate",
	Short: "mcpgate: multi-user LLM gateway with Google Drive commands, served over REST, WebSocket and MCP",
	Long: `mcpgate authenticates users, stores their per-provider API keys and brokers
chat requests to OpenAI, Anthropic or a local model. Chat messages that start
with a Google Drive command are executed against Drive instead.

Run without a subcommand to start the server.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $MCPGATE_CONFIG or "+config.DefaultPath+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		serveCmd(),
		migrateCmd(),
		userCmd(),
		apikeyCmd(),
		chatCmd(),
		driveCmd(),
		cacheCmd(),
		configCmd(),
		modelsCmd(),
		doctorCmd(),
		onboardCmd(),
		versionCmd(),
	)
}

// Execute runs the root command and exits non-zero on error. SIGINT and
// SIGTERM cancel the command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// resolveConfigPath picks --config, then MCPGATE_CONFIG, then the default.
func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if v := os.Getenv("MCPGATE_CONFIG"); v != "" {
		return v
	}
	return config.ExpandHome(config.DefaultPath)
}

// loadConfig loads the config and installs the logger it describes.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Log)
	return cfg, nil
}

// setupLogging installs the default slog handler. --verbose wins over the
// configured level.
func setupLogging(lc config.LogConfig) {
	applyLogLevel(lc)
	opts := &slog.HandlerOptions{Level: logLevel}
	var h slog.Handler
	if lc.Format == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

func applyLogLevel(lc config.LogConfig) {
	if verbose {
		logLevel.Set(slog.LevelDebug)
		return
	}
	logLevel.Set(lc.SlogLevel())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("mcpgate %s\n", Version)
		},
	}
}
