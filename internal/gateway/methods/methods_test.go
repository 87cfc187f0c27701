package methods

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nextlevelbuilder/mcpgate/internal/config"
	"github.com/nextlevelbuilder/mcpgate/internal/dispatch"
	"github.com/nextlevelbuilder/mcpgate/internal/drive"
	"github.com/nextlevelbuilder/mcpgate/internal/gateway"
	"github.com/nextlevelbuilder/mcpgate/internal/providers"
	"github.com/nextlevelbuilder/mcpgate/internal/store"
	"github.com/nextlevelbuilder/mcpgate/pkg/protocol"
)

type tokenAuth struct{}

func (tokenAuth) Authenticate(_ context.Context, token string) (string, error) {
	if user, ok := strings.CutPrefix(token, "token-"); ok {
		return user, nil
	}
	return "", fmt.Errorf("bad token")
}

type fakeChat struct {
	mu   sync.Mutex
	reqs []dispatch.Request
}

func (f *fakeChat) Dispatch(_ context.Context, req dispatch.Request) string {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if req.Model == "broken" {
		return "Error: No API key found for model 'broken'"
	}
	return "echo: " + req.Message
}

func (f *fakeChat) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

type memCreds struct {
	mu   sync.Mutex
	keys map[[2]string]string
}

func newMemCreds() *memCreds { return &memCreds{keys: map[[2]string]string{}} }

func (m *memCreds) Get(_ context.Context, user, model string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.keys[[2]string{user, model}]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

func (m *memCreds) Upsert(_ context.Context, user, model, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[[2]string{user, model}] = secret
	return nil
}

func (m *memCreds) Delete(_ context.Context, user, model string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := [2]string{user, model}
	_, ok := m.keys[k]
	delete(m.keys, k)
	return ok, nil
}

func (m *memCreds) List(_ context.Context, user string) ([]store.CredentialInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.CredentialInfo
	for k := range m.keys {
		if k[0] == user {
			out = append(out, store.CredentialInfo{ModelName: k[1]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModelName < out[j].ModelName })
	return out, nil
}

type fakeCache struct {
	mu   sync.Mutex
	keys []providers.CacheKey
}

func (f *fakeCache) InspectUser(username string) providers.CacheInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []providers.CacheKey
	for _, k := range f.keys {
		if k.Username == username {
			keys = append(keys, k)
		}
	}
	return providers.CacheInfo{Size: len(keys), Keys: keys}
}

func (f *fakeCache) ClearUser(username string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.keys[:0]
	for _, k := range f.keys {
		if k.Username != username {
			kept = append(kept, k)
		}
	}
	n := len(f.keys) - len(kept)
	f.keys = kept
	return n
}

type fakeDrive struct{ st drive.Status }

func (f fakeDrive) Status() drive.Status { return f.st }

type env struct {
	chat  *fakeChat
	creds *memCreds
	cache *fakeCache
	conf  *ConfigMethods
	url   string
}

func newEnv(t *testing.T, rl *gateway.RateLimiter) *env {
	t.Helper()
	e := &env{
		chat:  &fakeChat{},
		creds: newMemCreds(),
		cache: &fakeCache{keys: []providers.CacheKey{
			{Username: "alice", Model: "openai"},
			{Username: "bob", Model: "claude"},
		}},
	}
	srv := gateway.NewServer(tokenAuth{})
	NewChatMethods(e.chat, "openai", rl).Register(srv.Router())
	NewAPIKeyMethods(e.creds).Register(srv.Router())
	NewCacheMethods(e.cache, srv).Register(srv.Router())
	NewDriveMethods(fakeDrive{drive.Status{Authenticated: true, ServiceAvailable: true}}).Register(srv.Router())
	cfg := config.Default()
	cfg.Auth.JWTSecret = "super-secret-signing-key"
	e.conf = NewConfigMethods(cfg, "/etc/mcpgate/config.json5")
	e.conf.Register(srv.Router())

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	e.url = "ws" + strings.TrimPrefix(ts.URL, "http")
	return e
}

type frame struct {
	Type    string               `json:"type"`
	ID      string               `json:"id"`
	OK      bool                 `json:"ok"`
	Payload json.RawMessage      `json:"payload"`
	Error   *protocol.ErrorShape `json:"error"`
	Event   string               `json:"event"`
}

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
	seq  int
}

func (e *env) dial(t *testing.T, user string) *wsClient {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(e.url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	c := &wsClient{t: t, conn: conn}
	if res, _ := c.call(protocol.MethodConnect, map[string]string{"token": "token-" + user}); !res.OK {
		t.Fatalf("connect: %+v", res.Error)
	}
	return c
}

func (c *wsClient) call(method string, params any) (frame, []frame) {
	c.t.Helper()
	c.seq++
	id := fmt.Sprintf("%d", c.seq)
	req := map[string]any{"type": "req", "id": id, "method": method}
	if params != nil {
		req["params"] = params
	}
	if err := c.conn.WriteJSON(req); err != nil {
		c.t.Fatalf("write: %v", err)
	}
	var events []frame
	for {
		c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var f frame
		if err := c.conn.ReadJSON(&f); err != nil {
			c.t.Fatalf("read: %v", err)
		}
		if f.Type == protocol.FrameTypeEvent {
			events = append(events, f)
			continue
		}
		if f.ID != id {
			c.t.Fatalf("response id = %q, want %q", f.ID, id)
		}
		return f, events
	}
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return v
}

func TestChatSend(t *testing.T) {
	e := newEnv(t, nil)
	c := e.dial(t, "alice")

	tests := []struct {
		name      string
		params    any
		wantOK    bool
		wantReply string
		wantModel string
	}{
		{"default model", map[string]any{"message": "hi"}, true, "echo: hi", "openai"},
		{"explicit model", map[string]any{"message": "hi", "model_name": "claude", "max_tokens": 50}, true, "echo: hi", "claude"},
		{"dispatcher error is a reply", map[string]any{"message": "hi", "model_name": "broken"}, true, "Error: No API key found for model 'broken'", "broken"},
		{"missing message", map[string]any{}, false, "", ""},
		{"no params", nil, false, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := e.chat.count()
			res, _ := c.call(protocol.MethodChatSend, tt.params)
			if res.OK != tt.wantOK {
				t.Fatalf("ok = %v (%+v)", res.OK, res.Error)
			}
			if !tt.wantOK {
				if res.Error.Code != protocol.ErrInvalidRequest {
					t.Errorf("code = %q", res.Error.Code)
				}
				return
			}
			p := decode[map[string]string](t, res.Payload)
			if p["reply"] != tt.wantReply {
				t.Errorf("reply = %q, want %q", p["reply"], tt.wantReply)
			}
			e.chat.mu.Lock()
			last := e.chat.reqs[len(e.chat.reqs)-1]
			n := len(e.chat.reqs)
			e.chat.mu.Unlock()
			if n != before+1 || last.Username != "alice" || last.Model != tt.wantModel {
				t.Errorf("dispatched %+v", last)
			}
		})
	}
}

func TestChatSendOptions(t *testing.T) {
	e := newEnv(t, nil)
	c := e.dial(t, "alice")
	c.call(protocol.MethodChatSend, map[string]any{"message": "hi", "max_tokens": 50, "temperature": 0.2})

	e.chat.mu.Lock()
	defer e.chat.mu.Unlock()
	opts := e.chat.reqs[0].Options
	if opts.MaxTokens == nil || *opts.MaxTokens != 50 || opts.Temperature == nil || *opts.Temperature != 0.2 {
		t.Errorf("options = %+v", opts)
	}
}

func TestChatSendRateLimited(t *testing.T) {
	rl := gateway.NewRateLimiter(1, 1)
	t.Cleanup(rl.Stop)
	e := newEnv(t, rl)
	c := e.dial(t, "alice")

	if res, _ := c.call(protocol.MethodChatSend, map[string]any{"message": "one"}); !res.OK {
		t.Fatalf("first send: %+v", res.Error)
	}
	res, _ := c.call(protocol.MethodChatSend, map[string]any{"message": "two"})
	if res.OK || res.Error.Code != protocol.ErrResourceExhausted || !res.Error.Retryable {
		t.Fatalf("second send = %+v", res)
	}

	// Buckets are per user.
	other := e.dial(t, "bob")
	if res, _ := other.call(protocol.MethodChatSend, map[string]any{"message": "one"}); !res.OK {
		t.Errorf("bob send: %+v", res.Error)
	}
}

func TestAPIKeys(t *testing.T) {
	e := newEnv(t, nil)
	alice := e.dial(t, "alice")
	bob := e.dial(t, "bob")

	res, _ := alice.call(protocol.MethodAPIKeysSet, map[string]string{"model_name": "openai", "api_key": "sk-1"})
	if !res.OK {
		t.Fatalf("set: %+v", res.Error)
	}
	if msg := decode[map[string]string](t, res.Payload)["msg"]; msg != "API key for model 'openai' saved successfully for user 'alice'" {
		t.Errorf("msg = %q", msg)
	}
	if got, _ := e.creds.Get(context.Background(), "alice", "openai"); got != "sk-1" {
		t.Errorf("stored = %q", got)
	}

	for _, p := range []map[string]string{{"model_name": "", "api_key": "x"}, {"model_name": "openai"}} {
		if res, _ := alice.call(protocol.MethodAPIKeysSet, p); res.OK || res.Error.Code != protocol.ErrInvalidRequest {
			t.Errorf("set %v = %+v", p, res)
		}
	}

	res, _ = alice.call(protocol.MethodAPIKeysList, nil)
	if models := decode[map[string][]string](t, res.Payload)["models"]; len(models) != 1 || models[0] != "openai" {
		t.Errorf("alice models = %v", models)
	}
	res, _ = bob.call(protocol.MethodAPIKeysList, nil)
	if models := decode[map[string][]string](t, res.Payload)["models"]; len(models) != 0 {
		t.Errorf("bob models = %v", models)
	}

	if res, _ := bob.call(protocol.MethodAPIKeysDelete, map[string]string{"model_name": "openai"}); res.OK || res.Error.Code != protocol.ErrNotFound {
		t.Errorf("bob delete = %+v", res)
	}
	if res, _ := alice.call(protocol.MethodAPIKeysDelete, map[string]string{"model_name": "openai"}); !res.OK {
		t.Errorf("alice delete = %+v", res.Error)
	}
}

func TestCacheScopedToCaller(t *testing.T) {
	e := newEnv(t, nil)
	alice := e.dial(t, "alice")
	bob := e.dial(t, "bob")

	res, _ := alice.call(protocol.MethodCacheInspect, nil)
	info := decode[providers.CacheInfo](t, res.Payload)
	if info.Size != 1 || info.Keys[0].Username != "alice" || info.Keys[0].Model != "openai" {
		t.Errorf("alice inspect = %+v", info)
	}
	res, _ = bob.call(protocol.MethodCacheInspect, nil)
	if info := decode[providers.CacheInfo](t, res.Payload); info.Size != 1 || info.Keys[0].Username != "bob" {
		t.Errorf("bob inspect = %+v", info)
	}

	res, events := alice.call(protocol.MethodCacheClear, nil)
	if got := decode[map[string]any](t, res.Payload)["evicted"]; got != float64(1) {
		t.Errorf("evicted = %v", got)
	}
	if len(events) != 1 || events[0].Event != protocol.EventCacheCleared {
		t.Errorf("alice events = %+v", events)
	}

	// bob is neither notified nor evicted.
	_, events = bob.call(protocol.MethodHealth, nil)
	if len(events) != 0 {
		t.Errorf("bob events = %+v", events)
	}
	res, _ = bob.call(protocol.MethodCacheInspect, nil)
	if info := decode[providers.CacheInfo](t, res.Payload); info.Size != 1 {
		t.Errorf("bob entries after alice clear = %+v", info)
	}
}

func TestDriveStatus(t *testing.T) {
	e := newEnv(t, nil)
	c := e.dial(t, "alice")
	res, _ := c.call(protocol.MethodDriveStatus, nil)
	st := decode[drive.Status](t, res.Payload)
	if !st.Authenticated || !st.ServiceAvailable {
		t.Errorf("status = %+v", st)
	}
}

func TestConfigGet(t *testing.T) {
	e := newEnv(t, nil)
	c := e.dial(t, "alice")

	type payload struct {
		Config map[string]map[string]any `json:"config"`
		Hash   string                    `json:"hash"`
		Path   string                    `json:"path"`
	}
	res, _ := c.call(protocol.MethodConfigGet, nil)
	if !res.OK {
		t.Fatalf("config.get: %+v", res.Error)
	}
	got := decode[payload](t, res.Payload)
	if got.Path != "/etc/mcpgate/config.json5" {
		t.Errorf("path = %q", got.Path)
	}
	if s := got.Config["auth"]["jwt_secret"]; s == "super-secret-signing-key" {
		t.Errorf("jwt_secret leaked")
	}

	next := config.Default()
	next.Gateway.Port = 9999
	e.conf.Update(next)
	res, _ = c.call(protocol.MethodConfigGet, nil)
	after := decode[payload](t, res.Payload)
	if after.Hash == got.Hash {
		t.Errorf("hash unchanged after Update")
	}
	if port := after.Config["gateway"]["port"]; port != float64(9999) {
		t.Errorf("port = %v", port)
	}
}
