package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/mcpgate/internal/auth"
	"github.com/nextlevelbuilder/mcpgate/internal/store"
)

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	cmd.AddCommand(userAddCmd())
	cmd.AddCommand(userTokenCmd())
	return cmd
}

func userAddCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create an account (prompts for the password)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := store.ValidateUsername(args[0]); err != nil {
				return err
			}
			if password == "" {
				if password, err = promptNewPassword(args[0]); err != nil {
					return err
				}
			}

			st, err := openStores(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			defer st.Close()

			// Registration never signs tokens.
			svc := auth.NewService(st.users, nil)
			if _, err := svc.Register(cmd.Context(), args[0], password); err != nil {
				if errors.Is(err, store.ErrUserExists) {
					return fmt.Errorf("user %q already exists", args[0])
				}
				return err
			}
			fmt.Printf("User %q created.\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password (omit to be prompted)")
	return cmd
}

func userTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token <username>",
		Short: "Issue an access token for an existing user",
		Long: `Issue an access token without a password check. The token is signed
with auth.jwt_secret, so it is only accepted by servers sharing that secret.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			issuer, err := newTokenIssuer(cfg, false)
			if err != nil {
				return err
			}
			st, err := openStores(cmd.Context(), cfg, true)
			if err != nil {
				return err
			}
			defer st.Close()

			tok, err := auth.NewService(st.users, issuer).IssueToken(cmd.Context(), args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("user %q not found", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Println(tok)
			return nil
		},
	}
}
