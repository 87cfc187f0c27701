package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIClient_Chat(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("auth header = %q", r.Header.Get("Authorization"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hi there"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test", APIBase: srv.URL})
	reply, err := c.Chat(context.Background(), "hello", Options{MaxTokens: IntPtr(50), Temperature: FloatPtr(0.2)})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply != "hi there" {
		t.Errorf("reply = %q", reply)
	}
	if got["model"] != "gpt-3.5-turbo" {
		t.Errorf("model = %v", got["model"])
	}
	if got["max_tokens"] != float64(50) || got["temperature"] != 0.2 {
		t.Errorf("options not forwarded: %v", got)
	}
}

func TestOpenAIClient_OmitsUnsetOptions(t *testing.T) {
	var raw map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "k", APIBase: srv.URL})
	if _, err := c.Chat(context.Background(), "x", Options{ModelVariant: "gpt-4"}); err != nil {
		t.Fatal(err)
	}
	if _, ok := raw["max_tokens"]; ok {
		t.Error("max_tokens sent though unset")
	}
	if string(raw["model"]) != `"gpt-4"` {
		t.Errorf("model = %s", raw["model"])
	}
}

func TestOpenAIClient_ErrorPreservesProviderText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided: sk-bad"}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "sk-bad", APIBase: srv.URL})
	_, err := c.Chat(context.Background(), "x", Options{})
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *ProviderError", err)
	}
	if perr.Status != 401 || !strings.Contains(perr.Message, "Incorrect API key provided: sk-bad") {
		t.Errorf("ProviderError = %+v", perr)
	}
	if !strings.HasPrefix(err.Error(), "OpenAI API error: ") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestAnthropicClient_Chat(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "ak" || r.Header.Get("anthropic-version") != anthropicAPIVersion {
			t.Errorf("headers = %v", r.Header)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"content":[{"type":"text","text":"bonjour"}]}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient(AnthropicConfig{APIKey: "ak", APIBase: srv.URL})
	reply, err := c.Chat(context.Background(), "hello", Options{})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply != "bonjour" {
		t.Errorf("reply = %q", reply)
	}
	if got.MaxTokens != 1000 || got.Model != anthropicDefaultModel {
		t.Errorf("request = %+v", got)
	}

	if _, err := c.Chat(context.Background(), "hello", Options{MaxTokens: IntPtr(12)}); err != nil {
		t.Fatal(err)
	}
	if got.MaxTokens != 12 {
		t.Errorf("max_tokens override = %d", got.MaxTokens)
	}
}

func TestAnthropicClient_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient(AnthropicConfig{APIKey: "ak", APIBase: srv.URL})
	_, err := c.Chat(context.Background(), "x", Options{})
	if err == nil || err.Error() != "Anthropic API error: 429: slow down" {
		t.Errorf("err = %v", err)
	}
}

func TestLocalClient_Chat(t *testing.T) {
	var got localRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"message":{"role":"assistant","content":"local reply"}}`))
	}))
	defer srv.Close()

	c := NewLocalClient(LocalConfig{APIBase: srv.URL, Model: "llama3"})
	reply, err := c.Chat(context.Background(), "hi", Options{Temperature: FloatPtr(0.5)})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply != "local reply" || got.Model != "llama3" || got.Stream {
		t.Errorf("reply = %q, request = %+v", reply, got)
	}
	if got.Options["temperature"] != 0.5 {
		t.Errorf("options = %v", got.Options)
	}
}

func TestLocalClient_TransportError(t *testing.T) {
	c := NewLocalClient(LocalConfig{APIBase: "http://127.0.0.1:1", Model: "llama3"})
	_, err := c.Chat(context.Background(), "hi", Options{})
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.Status != 0 {
		t.Errorf("err = %v, want transport ProviderError", err)
	}
}
