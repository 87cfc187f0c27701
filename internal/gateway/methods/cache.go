package methods

import (
	"context"

	"github.com/nextlevelbuilder/mcpgate/internal/gateway"
	"github.com/nextlevelbuilder/mcpgate/internal/providers"
	"github.com/nextlevelbuilder/mcpgate/pkg/protocol"
)

// CacheAdmin exposes one user's slice of the provider client cache.
type CacheAdmin interface {
	InspectUser(username string) providers.CacheInfo
	ClearUser(username string) int
}

// CacheMethods handles cache.inspect and cache.clear for the connected user.
// A clear is announced as a cache.cleared event to that user's connections.
type CacheMethods struct {
	cache  CacheAdmin
	server *gateway.Server
}

func NewCacheMethods(cache CacheAdmin, server *gateway.Server) *CacheMethods {
	return &CacheMethods{cache: cache, server: server}
}

func (m *CacheMethods) Register(router *gateway.MethodRouter) {
	router.Register(protocol.MethodCacheInspect, m.handleInspect)
	router.Register(protocol.MethodCacheClear, m.handleClear)
}

func (m *CacheMethods) handleInspect(_ context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	client.SendResponse(protocol.NewOKResponse(req.ID, m.cache.InspectUser(client.Username())))
}

func (m *CacheMethods) handleClear(_ context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	n := m.cache.ClearUser(client.Username())
	if m.server != nil {
		m.server.SendToUser(client.Username(), protocol.NewEvent(protocol.EventCacheCleared, map[string]any{"evicted": n}))
	}
	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]any{"msg": "Cache cleared", "evicted": n}))
}
