package methods

import (
	"context"
	"sync"

	"github.com/nextlevelbuilder/mcpgate/internal/config"
	"github.com/nextlevelbuilder/mcpgate/internal/gateway"
	"github.com/nextlevelbuilder/mcpgate/pkg/protocol"
)

// ConfigMethods handles config.get. Secrets are always masked.
type ConfigMethods struct {
	mu   sync.RWMutex
	cfg  *config.Config
	path string
}

func NewConfigMethods(cfg *config.Config, path string) *ConfigMethods {
	return &ConfigMethods{cfg: cfg, path: path}
}

func (m *ConfigMethods) Register(router *gateway.MethodRouter) {
	router.Register(protocol.MethodConfigGet, m.handleGet)
}

// Update swaps the config reported by config.get. Wired to the file watcher.
func (m *ConfigMethods) Update(cfg *config.Config) {
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
}

func (m *ConfigMethods) handleGet(_ context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	m.mu.RLock()
	cfg := m.cfg
	m.mu.RUnlock()
	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]any{
		"config": cfg.Redacted(),
		"hash":   cfg.Hash(),
		"path":   m.path,
	}))
}
