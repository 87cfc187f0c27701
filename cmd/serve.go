package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/mcpgate/internal/auth"
	"github.com/nextlevelbuilder/mcpgate/internal/config"
	"github.com/nextlevelbuilder/mcpgate/internal/gateway"
	"github.com/nextlevelbuilder/mcpgate/internal/gateway/methods"
	httpapi "github.com/nextlevelbuilder/mcpgate/internal/http"
	"github.com/nextlevelbuilder/mcpgate/internal/mcp"
	"github.com/nextlevelbuilder/mcpgate/internal/providers"
	"github.com/nextlevelbuilder/mcpgate/pkg/protocol"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the MCP endpoint and the WebSocket gateway",
		Long: `Run the server. This is also what a bare 'mcpgate' does.

Routes:
  /health, /register, /login                  public
  /protected, /set_api_key, /api_keys/*        REST API (JWT bearer)
  /chat, /hello, /cache, /google-drive/*       REST API (JWT bearer)
  /mcp                                         MCP streamable HTTP (JWT bearer)
  /ws                                          WebSocket RPC (JWT in connect)`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	shutdownOTel := initOTelExporter(ctx, cfg)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			slog.Warn("otel: shutdown failed", "error", err)
		}
	}()

	st, err := openStores(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer st.Close()

	issuer, err := newTokenIssuer(cfg, true)
	if err != nil {
		return err
	}
	authSvc := auth.NewService(st.users, issuer)

	resolver := providers.NewResolver(st.creds, providerSettings(cfg))
	driveSvc := newDriveService(cfg)
	dispatcher := newDispatcher(cfg, driveSvc, resolver)

	limiter := gateway.NewRateLimiter(cfg.Gateway.RateLimitRPM, cfg.Gateway.RateLimitBurst)
	defer limiter.Stop()

	api := httpapi.NewServer(httpapi.Deps{
		Auth:         authSvc,
		Credentials:  st.creds,
		Cache:        resolver,
		Chat:         dispatcher,
		Drive:        driveSvc,
		Limiter:      limiter,
		DefaultModel: cfg.Providers.DefaultModel,
		MaxBodyBytes: cfg.Gateway.MaxBodyBytes,
	})

	mcpSrv := mcp.NewServer(mcp.Deps{
		Chat:         dispatcher,
		Drive:        mcpDrive(cfg, driveSvc),
		DefaultModel: cfg.Providers.DefaultModel,
		Version:      Version,
	})
	api.Mount("/mcp", mcpSrv.Handler(), true)

	gw := gateway.NewServer(authSvc)
	router := gw.Router()
	methods.NewChatMethods(dispatcher, cfg.Providers.DefaultModel, limiter).Register(router)
	methods.NewAPIKeyMethods(st.creds).Register(router)
	methods.NewCacheMethods(resolver, gw).Register(router)
	methods.NewDriveMethods(driveSvc).Register(router)
	cfgPath := resolveConfigPath()
	cfgMethods := methods.NewConfigMethods(cfg, cfgPath)
	cfgMethods.Register(router)
	api.Mount("/ws", gw, false)

	if watcher, err := config.NewWatcher(cfgPath); err != nil {
		slog.Warn("config: hot reload unavailable", "error", err)
	} else {
		watcher.OnChange(func(next *config.Config) {
			applyLogLevel(next.Log)
			resolver.UpdateSettings(providerSettings(next))
			cfgMethods.Update(next)
			gw.Broadcast(protocol.NewEvent(protocol.EventConfigChanged, map[string]string{"hash": next.Hash()}))
		})
		if err := watcher.Start(); err != nil {
			slog.Warn("config: hot reload unavailable", "path", cfgPath, "error", err)
		} else {
			defer watcher.Stop()
		}
	}

	addr := net.JoinHostPort(cfg.Gateway.Host, strconv.Itoa(cfg.Gateway.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("mcpgate: listening",
			"addr", addr,
			"version", Version,
			"driver", cfg.Database.Driver,
			"credentials", cfg.Database.CredentialBackend,
			"rate_limit_rpm", cfg.Gateway.RateLimitRPM,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("mcpgate: shutting down")
	gw.Shutdown()
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("mcpgate: stopped")
	return nil
}
