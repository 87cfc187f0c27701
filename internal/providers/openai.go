package providers

import (
	"context"
	"net/http"
	"strings"
	"time"
)

const (
	openAIDefaultBase  = "https://api.openai.com/v1"
	openAIDefaultModel = "gpt-3.5-turbo"
)

// OpenAIConfig configures an OpenAI-compatible chat client.
type OpenAIConfig struct {
	APIKey       string
	APIBase      string
	DefaultModel string
	Timeout      time.Duration
}

// OpenAIClient calls POST {apiBase}/chat/completions.
type OpenAIClient struct {
	apiKey       string
	apiBase      string
	defaultModel string
	hc           *http.Client
}

func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	c := &OpenAIClient{
		apiKey:       cfg.APIKey,
		apiBase:      strings.TrimRight(cfg.APIBase, "/"),
		defaultModel: cfg.DefaultModel,
	}
	if c.apiBase == "" {
		c.apiBase = openAIDefaultBase
	}
	if c.defaultModel == "" {
		c.defaultModel = openAIDefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	c.hc = &http.Client{Timeout: timeout}
	return c
}

func (c *OpenAIClient) Family() Family { return FamilyOpenAI }

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   *int            `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIClient) Chat(ctx context.Context, message string, opts Options) (string, error) {
	model := opts.ModelVariant
	if model == "" {
		model = c.defaultModel
	}
	body := openAIRequest{
		Model:       model,
		Messages:    []openAIMessage{{Role: "user", Content: message}},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}

	var out openAIResponse
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	if err := postJSON(ctx, c.hc, "openai", c.apiBase+"/chat/completions", headers, body, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", &ProviderError{Provider: "openai", Status: http.StatusOK, Message: "response contained no choices"}
	}
	return out.Choices[0].Message.Content, nil
}
