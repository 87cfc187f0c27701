package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/mcpgate/internal/config"
	"github.com/nextlevelbuilder/mcpgate/internal/dispatch"
	"github.com/nextlevelbuilder/mcpgate/internal/providers"
	"github.com/nextlevelbuilder/mcpgate/pkg/protocol"
)

const chatTimeout = 5 * time.Minute

type chatFlags struct {
	user        string
	model       string
	message     string
	token       string
	maxTokens   int
	temperature float64
	standalone  bool
}

func chatCmd() *cobra.Command {
	var f chatFlags

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with a model or run Drive commands interactively or one-shot",
		Long: `Send messages through the dispatcher, either via the running server
(WebSocket client mode) or in-process when the server is not running.

Examples:
  mcpgate chat -u alice                              # Interactive REPL
  mcpgate chat -u alice -m "hello" --model claude    # One-shot message
  mcpgate chat -u alice -m "list files"              # Drive command`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, f)
		},
	}

	cmd.Flags().StringVarP(&f.user, "user", "u", "", "username to chat as")
	cmd.Flags().StringVar(&f.model, "model", "", "model name (default: providers.default_model)")
	cmd.Flags().StringVarP(&f.message, "message", "m", "", "one-shot message (omit for interactive mode)")
	cmd.Flags().StringVar(&f.token, "token", "", "bearer token for client mode (default: minted from the JWT secret)")
	cmd.Flags().IntVar(&f.maxTokens, "max-tokens", 0, "maximum tokens for the response")
	cmd.Flags().Float64Var(&f.temperature, "temperature", 0, "sampling temperature")
	cmd.Flags().BoolVar(&f.standalone, "standalone", false, "never connect to a running server")

	return cmd
}

// chatFunc sends one message and returns the reply.
type chatFunc func(ctx context.Context, message, model string) (string, error)

func runChat(cmd *cobra.Command, f chatFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var opts providers.Options
	if cmd.Flags().Changed("max-tokens") {
		opts.MaxTokens = &f.maxTokens
	}
	if cmd.Flags().Changed("temperature") {
		opts.Temperature = &f.temperature
	}

	var send chatFunc
	addr := gatewayAddr(cfg)
	if !f.standalone && isGatewayRunning(addr) {
		fmt.Fprintf(os.Stderr, "Connected to server at %s\n", addr)
		fn, closeFn, err := clientChat(ctx, cfg, f, opts)
		if err != nil {
			return err
		}
		defer closeFn()
		send = fn
	} else {
		if !f.standalone {
			fmt.Fprintf(os.Stderr, "Server not running, using standalone mode\n")
		}
		fn, closeFn, err := standaloneChat(ctx, cfg, f.user, opts)
		if err != nil {
			return err
		}
		defer closeFn()
		send = fn
	}

	model := f.model
	if model == "" {
		model = cfg.Providers.DefaultModel
	}

	if f.message != "" {
		reply, err := send(ctx, f.message, model)
		if err != nil {
			return err
		}
		fmt.Println(reply)
		return nil
	}
	return chatREPL(ctx, send, model)
}

func chatREPL(ctx context.Context, send chatFunc, model string) error {
	fmt.Fprintf(os.Stderr, "\nmcpgate chat (model: %s)\n", model)
	fmt.Fprintf(os.Stderr, "Type \"exit\" to quit, \"/model <name>\" to switch models, \"help\" for Drive commands\n\n")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(os.Stderr, "You: ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		switch {
		case input == "":
			continue
		case input == "exit" || input == "quit":
			fmt.Fprintln(os.Stderr, "Goodbye!")
			return nil
		case strings.HasPrefix(input, "/model"):
			if name := strings.TrimSpace(strings.TrimPrefix(input, "/model")); name != "" {
				model = name
			}
			fmt.Fprintf(os.Stderr, "Model: %s\n\n", model)
			continue
		}

		reply, err := send(ctx, input, model)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
			continue
		}
		fmt.Printf("\n%s\n\n", reply)
	}
}

// clientChat talks to the running server over the WS gateway.
func clientChat(ctx context.Context, cfg *config.Config, f chatFlags, opts providers.Options) (chatFunc, func(), error) {
	token, err := cliToken(cfg, f.user, f.token)
	if err != nil {
		return nil, nil, err
	}
	gc, err := dialGateway(ctx, cfg, token)
	if err != nil {
		return nil, nil, fmt.Errorf("gateway auth failed: %w", err)
	}

	send := func(_ context.Context, message, model string) (string, error) {
		params := map[string]any{"message": message, "model_name": model}
		if opts.MaxTokens != nil {
			params["max_tokens"] = *opts.MaxTokens
		}
		if opts.Temperature != nil {
			params["temperature"] = *opts.Temperature
		}
		raw, err := gc.call(protocol.MethodChatSend, params, chatTimeout)
		if err != nil {
			return "", err
		}
		var out struct {
			Reply string `json:"reply"`
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return "", fmt.Errorf("decode reply: %w", err)
		}
		return out.Reply, nil
	}
	return send, func() { gc.Close() }, nil
}

// standaloneChat builds the dispatcher in-process over the same stores the
// server would use.
func standaloneChat(ctx context.Context, cfg *config.Config, user string, opts providers.Options) (chatFunc, func(), error) {
	st, err := openStores(ctx, cfg, true)
	if err != nil {
		return nil, nil, err
	}
	if err := st.requireUser(ctx, user); err != nil {
		st.Close()
		return nil, nil, err
	}

	resolver := providers.NewResolver(st.creds, providerSettings(cfg))
	d := newDispatcher(cfg, newDriveService(cfg), resolver)

	send := func(ctx context.Context, message, model string) (string, error) {
		return d.Dispatch(ctx, dispatch.Request{
			Username: user,
			Message:  message,
			Model:    model,
			Options:  opts,
		}), nil
	}
	return send, st.Close, nil
}
