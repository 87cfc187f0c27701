package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/nextlevelbuilder/mcpgate/internal/config"
	"github.com/nextlevelbuilder/mcpgate/internal/providers"
)

// providerVerifyError holds the result of a provider connectivity check.
type providerVerifyError struct {
	fatal   bool   // true = bad credentials
	message string // human-readable description
}

func (e *providerVerifyError) Error() string { return e.message }

// verifyProviderConnectivity checks a key by POSTing an empty body to an
// endpoint that always requires authentication.
//
//   - 401/403 → invalid API key (fatal)
//   - 400/422 → auth passed, the body was rejected
//   - 2xx     → fine
//   - 5xx     → transient (warning)
//
// The local family has no key; any HTTP answer from /api/tags counts as up.
func verifyProviderConnectivity(name, apiBase, apiKey string) *providerVerifyError {
	apiBase = strings.TrimRight(apiBase, "/")
	if apiBase == "" {
		return nil
	}
	client := &http.Client{Timeout: 10 * time.Second}

	if name == "local" {
		resp, err := client.Get(apiBase + "/api/tags")
		if err != nil {
			return &providerVerifyError{message: fmt.Sprintf("local endpoint unreachable: %v", err)}
		}
		resp.Body.Close()
		return nil
	}
	if apiKey == "" {
		return nil
	}

	req, err := http.NewRequest(http.MethodPost, resolveAuthCheckEndpoint(name, apiBase), strings.NewReader("{}"))
	if err != nil {
		return &providerVerifyError{message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if name == "anthropic" {
		req.Header.Set("x-api-key", apiKey)
		req.Header.Set("anthropic-version", "2023-06-01")
	} else {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return &providerVerifyError{message: fmt.Sprintf("connectivity check failed (transient): %v", err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == 401 || resp.StatusCode == 403:
		return &providerVerifyError{fatal: true, message: fmt.Sprintf("%s returned %d: invalid API key", name, resp.StatusCode)}
	case resp.StatusCode == 400 || resp.StatusCode == 422:
		return nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500:
		return &providerVerifyError{message: fmt.Sprintf("%s returned %d (transient)", name, resp.StatusCode)}
	default:
		return &providerVerifyError{message: fmt.Sprintf("%s returned %d (unexpected)", name, resp.StatusCode)}
	}
}

// resolveAuthCheckEndpoint returns the chat URL the provider clients use.
func resolveAuthCheckEndpoint(name, apiBase string) string {
	if name == "anthropic" {
		return apiBase + "/messages"
	}
	return apiBase + "/chat/completions"
}

// providerTarget is one family as the server would reach it.
type providerTarget struct {
	name    string
	apiBase string
	envKey  string
}

func providerTargets(cfg *config.Config) []providerTarget {
	targets := []providerTarget{
		{name: "openai", apiBase: cfg.Providers.OpenAI.APIBase, envKey: providers.EnvOpenAIKey},
		{name: "anthropic", apiBase: cfg.Providers.Anthropic.APIBase, envKey: providers.EnvAnthropicKey},
	}
	if cfg.Providers.Local.Enabled {
		targets = append(targets, providerTarget{name: "local", apiBase: cfg.Providers.Local.APIBase})
	}
	return targets
}

// verifyAllProviders checks every family that has a fallback key in the
// environment, plus the local endpoint when enabled. Per-user keys live in
// the credential store and are not checked. Returns the fatal failures.
func verifyAllProviders(cfg *config.Config) []string {
	var fatalErrors []string

	for _, p := range providerTargets(cfg) {
		key := ""
		if p.envKey != "" {
			key = os.Getenv(p.envKey)
			if key == "" {
				fmt.Printf("    %-10s skipped (%s not set)\n", p.name+":", p.envKey)
				continue
			}
		}

		verr := verifyProviderConnectivity(p.name, p.apiBase, key)
		if verr == nil {
			slog.Info("provider connectivity verified", "provider", p.name)
			fmt.Printf("    %-10s %s\n", p.name+":", okStyle.Render("OK"))
			continue
		}
		if verr.fatal {
			slog.Error("provider key invalid", "provider", p.name, "error", verr.message)
			fmt.Printf("    %-10s %s %s\n", p.name+":", failStyle.Render("FAILED"), verr.message)
			fatalErrors = append(fatalErrors, fmt.Sprintf("%s: %s", p.name, verr.message))
		} else {
			slog.Warn("provider connectivity warning", "provider", p.name, "warning", verr.message)
			fmt.Printf("    %-10s %s %s\n", p.name+":", warnStyle.Render("WARNING"), verr.message)
		}
	}
	return fatalErrors
}
