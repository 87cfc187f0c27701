package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/mcpgate/pkg/protocol"
)

// The provider client cache lives in the server process, so these commands
// talk to it over the WS gateway.
func cacheCmd() *cobra.Command {
	var user, token string
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear your entries in a running server's provider client cache",
	}
	cmd.PersistentFlags().StringVarP(&user, "user", "u", "", "account to authenticate as")
	cmd.PersistentFlags().StringVar(&token, "token", "", "bearer token (default: minted from the JWT secret)")
	cmd.AddCommand(cacheRPCCmd("inspect", "Show your cached models", protocol.MethodCacheInspect, &user, &token))
	cmd.AddCommand(cacheRPCCmd("clear", "Evict your cached clients", protocol.MethodCacheClear, &user, &token))
	return cmd
}

func cacheRPCCmd(use, short, method string, user, token *string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			tok, err := cliToken(cfg, *user, *token)
			if err != nil {
				return err
			}
			gc, err := dialGateway(cmd.Context(), cfg, tok)
			if err != nil {
				return err
			}
			defer gc.Close()
			// cache.cleared is also sent to our own connection; the response says it all.
			gc.onEvent = nil

			raw, err := gc.call(method, nil, 10*time.Second)
			if err != nil {
				return err
			}
			var pretty any
			if err := json.Unmarshal(raw, &pretty); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			data, _ := json.MarshalIndent(pretty, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	}
}
