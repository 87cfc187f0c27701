// Package methods holds the RPC method groups served by the gateway.
package methods

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nextlevelbuilder/mcpgate/internal/dispatch"
	"github.com/nextlevelbuilder/mcpgate/internal/gateway"
	"github.com/nextlevelbuilder/mcpgate/internal/providers"
	"github.com/nextlevelbuilder/mcpgate/pkg/protocol"
)

// Chatter routes one chat message and always returns a reply string.
type Chatter interface {
	Dispatch(ctx context.Context, req dispatch.Request) string
}

// ChatMethods handles chat.send.
type ChatMethods struct {
	chat         Chatter
	defaultModel string
	rateLimiter  *gateway.RateLimiter
}

func NewChatMethods(chat Chatter, defaultModel string, rl *gateway.RateLimiter) *ChatMethods {
	return &ChatMethods{chat: chat, defaultModel: defaultModel, rateLimiter: rl}
}

func (m *ChatMethods) Register(router *gateway.MethodRouter) {
	router.Register(protocol.MethodChatSend, m.handleSend)
}

type chatSendParams struct {
	Message     string   `json:"message"`
	ModelName   string   `json:"model_name"`
	MaxTokens   *int     `json:"max_tokens"`
	Temperature *float64 `json:"temperature"`
}

// handleSend replies asynchronously so a slow provider does not stall the
// read pump. The reply is the dispatcher's text, errors included.
func (m *ChatMethods) handleSend(ctx context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	if !m.rateLimiter.Allow("user:" + client.Username()) {
		client.SendResponse(protocol.NewRetryResponse(req.ID, protocol.ErrResourceExhausted,
			"rate limit exceeded, please wait before sending more messages", 60_000))
		return
	}

	var params chatSendParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "invalid params: "+err.Error()))
		return
	}
	if params.Message == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "message is required"))
		return
	}
	model := params.ModelName
	if model == "" {
		model = m.defaultModel
	}

	dreq := dispatch.Request{
		Username: client.Username(),
		Message:  params.Message,
		Model:    model,
		Options:  providers.Options{MaxTokens: params.MaxTokens, Temperature: params.Temperature},
	}
	go func() {
		reply := m.chat.Dispatch(ctx, dreq)
		slog.Debug("gateway: chat replied", "client", client.ID(), "user", dreq.Username, "model", model)
		client.SendResponse(protocol.NewOKResponse(req.ID, map[string]any{"reply": reply}))
	}()
}
