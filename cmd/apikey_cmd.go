package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/mcpgate/internal/store"
)

func apikeyCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage a user's provider API keys",
	}
	cmd.PersistentFlags().StringVarP(&user, "user", "u", "", "account that owns the keys (required)")
	cmd.AddCommand(apikeySetCmd(&user))
	cmd.AddCommand(apikeyListCmd(&user))
	cmd.AddCommand(apikeyDeleteCmd(&user))
	return cmd
}

func apikeySetCmd(user *string) *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "set <model>",
		Short: "Store or replace the key for a model name (e.g. openai, claude, gpt-4)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model := args[0]
			if err := store.ValidateModelName(model); err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStores(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.requireUser(cmd.Context(), *user); err != nil {
				return err
			}

			if key == "" {
				if key, err = promptPassword("API key for "+model, "Stored encrypted when an encryption key is configured"); err != nil {
					return err
				}
			}
			if key == "" {
				return fmt.Errorf("api key is required")
			}
			if err := st.creds.Upsert(cmd.Context(), *user, model, key); err != nil {
				return err
			}
			fmt.Printf("API key for model '%s' saved successfully for user '%s'\n", model, *user)
			fmt.Println("Running servers keep cached clients until 'mcpgate cache clear'.")
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "API key (omit to be prompted)")
	return cmd
}

func apikeyListCmd(user *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the model names a user has keys for",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStores(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.requireUser(cmd.Context(), *user); err != nil {
				return err
			}

			keys, err := st.creds.List(cmd.Context(), *user)
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				fmt.Println("No API keys stored.")
				return nil
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "MODEL\tUPDATED")
			for _, k := range keys {
				fmt.Fprintf(tw, "%s\t%s\n", k.ModelName, k.UpdatedAt.Local().Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
}

func apikeyDeleteCmd(user *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <model>",
		Short: "Delete the key for a model name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStores(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.requireUser(cmd.Context(), *user); err != nil {
				return err
			}

			ok, err := st.creds.Delete(cmd.Context(), *user, args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("API key for model '%s' not found", args[0])
			}
			fmt.Printf("API key for model '%s' deleted successfully\n", args[0])
			return nil
		},
	}
}
