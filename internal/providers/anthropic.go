package providers

import (
	"context"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicDefaultBase      = "https://api.anthropic.com/v1"
	anthropicDefaultModel     = "claude-3-sonnet-20240229"
	anthropicDefaultMaxTokens = 1000
	anthropicAPIVersion       = "2023-06-01"
)

// AnthropicConfig configures an Anthropic messages-API client.
type AnthropicConfig struct {
	APIKey       string
	APIBase      string
	DefaultModel string
	MaxTokens    int
	Timeout      time.Duration
}

// AnthropicClient calls POST {apiBase}/messages.
type AnthropicClient struct {
	apiKey       string
	apiBase      string
	defaultModel string
	maxTokens    int
	hc           *http.Client
}

func NewAnthropicClient(cfg AnthropicConfig) *AnthropicClient {
	c := &AnthropicClient{
		apiKey:       cfg.APIKey,
		apiBase:      strings.TrimRight(cfg.APIBase, "/"),
		defaultModel: cfg.DefaultModel,
		maxTokens:    cfg.MaxTokens,
	}
	if c.apiBase == "" {
		c.apiBase = anthropicDefaultBase
	}
	if c.defaultModel == "" {
		c.defaultModel = anthropicDefaultModel
	}
	if c.maxTokens <= 0 {
		c.maxTokens = anthropicDefaultMaxTokens
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	c.hc = &http.Client{Timeout: timeout}
	return c
}

func (c *AnthropicClient) Family() Family { return FamilyAnthropic }

type anthropicRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Messages    []openAIMessage `json:"messages"`
	Temperature *float64        `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *AnthropicClient) Chat(ctx context.Context, message string, opts Options) (string, error) {
	model := opts.ModelVariant
	if model == "" {
		model = c.defaultModel
	}
	maxTokens := c.maxTokens
	if opts.MaxTokens != nil && *opts.MaxTokens > 0 {
		maxTokens = *opts.MaxTokens
	}
	body := anthropicRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Messages:    []openAIMessage{{Role: "user", Content: message}},
		Temperature: opts.Temperature,
	}

	var out anthropicResponse
	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicAPIVersion,
	}
	if err := postJSON(ctx, c.hc, "anthropic", c.apiBase+"/messages", headers, body, &out); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 && len(out.Content) == 0 {
		return "", &ProviderError{Provider: "anthropic", Status: http.StatusOK, Message: "response contained no content"}
	}
	return sb.String(), nil
}
