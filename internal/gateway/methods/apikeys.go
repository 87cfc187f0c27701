package methods

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nextlevelbuilder/mcpgate/internal/gateway"
	"github.com/nextlevelbuilder/mcpgate/internal/store"
	"github.com/nextlevelbuilder/mcpgate/pkg/protocol"
)

// APIKeyMethods handles apikeys.set, apikeys.list and apikeys.delete for the
// connected user. Like the REST API they leave the provider cache alone.
type APIKeyMethods struct {
	creds store.CredentialStore
}

func NewAPIKeyMethods(creds store.CredentialStore) *APIKeyMethods {
	return &APIKeyMethods{creds: creds}
}

func (m *APIKeyMethods) Register(router *gateway.MethodRouter) {
	router.Register(protocol.MethodAPIKeysSet, m.handleSet)
	router.Register(protocol.MethodAPIKeysList, m.handleList)
	router.Register(protocol.MethodAPIKeysDelete, m.handleDelete)
}

type apiKeyParams struct {
	ModelName string `json:"model_name"`
	APIKey    string `json:"api_key"`
}

func parseParams(req *protocol.RequestFrame, dst any) error {
	if len(req.Params) == 0 {
		return nil
	}
	return json.Unmarshal(req.Params, dst)
}

func (m *APIKeyMethods) handleSet(ctx context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	var p apiKeyParams
	if err := parseParams(req, &p); err != nil {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "invalid params: "+err.Error()))
		return
	}
	if p.APIKey == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "api_key is required"))
		return
	}
	if err := store.ValidateModelName(p.ModelName); err != nil {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, err.Error()))
		return
	}
	user := client.Username()
	if err := m.creds.Upsert(ctx, user, p.ModelName, p.APIKey); err != nil {
		slog.Error("gateway: save api key failed", "user", user, "model", p.ModelName, "error", err)
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInternal, "failed to save API key"))
		return
	}
	slog.Info("gateway: api key saved", "user", user, "model", p.ModelName)
	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]any{
		"msg": fmt.Sprintf("API key for model '%s' saved successfully for user '%s'", p.ModelName, user),
	}))
}

func (m *APIKeyMethods) handleList(ctx context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	keys, err := m.creds.List(ctx, client.Username())
	if err != nil {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInternal, err.Error()))
		return
	}
	models := make([]string, 0, len(keys))
	for _, k := range keys {
		models = append(models, k.ModelName)
	}
	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]any{"models": models}))
}

func (m *APIKeyMethods) handleDelete(ctx context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	var p apiKeyParams
	if err := parseParams(req, &p); err != nil {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "invalid params: "+err.Error()))
		return
	}
	ok, err := m.creds.Delete(ctx, client.Username(), p.ModelName)
	if err != nil {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInternal, err.Error()))
		return
	}
	if !ok {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrNotFound,
			fmt.Sprintf("API key for model '%s' not found", p.ModelName)))
		return
	}
	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]any{
		"msg": fmt.Sprintf("API key for model '%s' deleted", p.ModelName),
	}))
}
