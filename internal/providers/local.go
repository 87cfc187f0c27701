package providers

import (
	"context"
	"net/http"
	"strings"
	"time"
)

const localDefaultBase = "http://localhost:11434"

// LocalConfig configures a local-inference client (Ollama-compatible /api/chat).
type LocalConfig struct {
	APIBase string
	Model   string
	Timeout time.Duration
}

// LocalClient talks to a local inference server. The model name is its only
// configuration; no credential is involved.
type LocalClient struct {
	apiBase string
	model   string
	hc      *http.Client
}

func NewLocalClient(cfg LocalConfig) *LocalClient {
	c := &LocalClient{
		apiBase: strings.TrimRight(cfg.APIBase, "/"),
		model:   cfg.Model,
	}
	if c.apiBase == "" {
		c.apiBase = localDefaultBase
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	c.hc = &http.Client{Timeout: timeout}
	return c
}

func (c *LocalClient) Family() Family { return FamilyLocal }

type localRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type localResponse struct {
	Message openAIMessage `json:"message"`
}

func (c *LocalClient) Chat(ctx context.Context, message string, opts Options) (string, error) {
	model := opts.ModelVariant
	if model == "" {
		model = c.model
	}
	body := localRequest{
		Model:    model,
		Messages: []openAIMessage{{Role: "user", Content: message}},
	}
	if opts.MaxTokens != nil || opts.Temperature != nil {
		body.Options = map[string]any{}
		if opts.MaxTokens != nil {
			body.Options["num_predict"] = *opts.MaxTokens
		}
		if opts.Temperature != nil {
			body.Options["temperature"] = *opts.Temperature
		}
	}

	var out localResponse
	if err := postJSON(ctx, c.hc, "local", c.apiBase+"/api/chat", nil, body, &out); err != nil {
		return "", err
	}
	return out.Message.Content, nil
}
