package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/mcpgate/internal/config"
	"github.com/nextlevelbuilder/mcpgate/internal/providers"
)

func modelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Show provider families and how model names resolve",
	}
	cmd.AddCommand(modelsListCmd())
	cmd.AddCommand(modelsResolveCmd())
	return cmd
}

type modelEntry struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Status   string `json:"status"`
}

func modelsListCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List provider families and their backend defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			entries := buildModelList(cfg)

			if jsonOutput {
				data, _ := json.MarshalIndent(entries, "", "  ")
				fmt.Println(string(data))
				return nil
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "PROVIDER\tMODEL\tSTATUS\n")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Provider, e.Model, e.Status)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func buildModelList(cfg *config.Config) []modelEntry {
	p := cfg.Providers
	status := func(env string) string {
		if os.Getenv(env) != "" {
			return "per-user keys, " + env + " fallback"
		}
		return "per-user keys"
	}

	entries := []modelEntry{
		{Provider: "openai", Model: p.OpenAI.DefaultModel, Status: status(providers.EnvOpenAIKey)},
		{Provider: "anthropic", Model: p.Anthropic.DefaultModel, Status: status(providers.EnvAnthropicKey)},
	}
	if p.Local.Enabled {
		entries = append(entries, modelEntry{Provider: "local", Model: "(any other name)", Status: p.Local.APIBase})
	} else {
		entries = append(entries, modelEntry{Provider: "local", Model: "-", Status: "disabled"})
	}
	for i := range entries {
		if entries[i].Provider == p.DefaultModel {
			entries[i].Status += " (default)"
		}
	}
	return entries
}

func modelsResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <model>",
		Short: "Explain which family, backend model and keys a model name uses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			plan, err := providers.Plan(args[0], providerSettings(cfg))
			if err != nil {
				return err
			}
			fmt.Printf("family:   %s\n", plan.Family)
			fmt.Printf("backend:  %s\n", plan.Backend)
			if len(plan.KeyNames) > 0 {
				fmt.Printf("keys:     %s\n", strings.Join(plan.KeyNames, ", "))
			}
			if plan.EnvKey != "" {
				fmt.Printf("fallback: $%s\n", plan.EnvKey)
			}
			return nil
		},
	}
}
