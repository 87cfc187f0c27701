package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nextlevelbuilder/mcpgate/internal/store"
	"github.com/nextlevelbuilder/mcpgate/internal/tracing"
)

// CacheKey identifies one cached client. Model is kept verbatim, so "GPT-4"
// and "gpt-4" are distinct entries.
type CacheKey struct {
	Username string `json:"username"`
	Model    string `json:"model_name"`
}

// CacheInfo is a read-only snapshot of the cache. It never contains secrets.
type CacheInfo struct {
	Size int        `json:"cache_size"`
	Keys []CacheKey `json:"cached_keys"`
}

// Settings are the family-wide defaults used when constructing clients.
type Settings struct {
	OpenAIBase            string
	OpenAIDefaultModel    string
	AnthropicBase         string
	AnthropicDefaultModel string
	AnthropicMaxTokens    int
	LocalEnabled          bool
	LocalBase             string
	Timeout               time.Duration
}

// ClientSpec is everything needed to construct a client for one cache key.
type ClientSpec struct {
	Family Family
	Model  string
	Secret string
}

// Constructor builds a client from a ClientSpec. Replaceable in tests.
type Constructor func(cs ClientSpec, s Settings) (Client, error)

// Resolver resolves (user, model) to a provider client and memoizes the
// result. Cached clients are never revalidated: rotating or deleting a
// credential has no effect on an existing entry until Clear is called.
type Resolver struct {
	creds     store.CredentialStore
	lookupEnv func(string) string
	construct Constructor

	mu       sync.Mutex
	settings Settings
	cache    map[CacheKey]Client
	gen      uint64            // bumped by Clear; stale in-flight builds are not inserted
	userGen  map[string]uint64 // bumped by ClearUser for one user
	group    singleflight.Group
}

// ResolverOption customises a Resolver.
type ResolverOption func(*Resolver)

// WithLookupEnv overrides the environment lookup used for fallback keys.
func WithLookupEnv(fn func(string) string) ResolverOption {
	return func(r *Resolver) { r.lookupEnv = fn }
}

// WithConstructor overrides client construction.
func WithConstructor(fn Constructor) ResolverOption {
	return func(r *Resolver) { r.construct = fn }
}

func NewResolver(creds store.CredentialStore, s Settings, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		creds:     creds,
		lookupEnv: os.Getenv,
		construct: NewClient,
		settings:  s,
		cache:     make(map[CacheKey]Client),
		userGen:   make(map[string]uint64),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// NewClient is the default Constructor.
func NewClient(cs ClientSpec, s Settings) (Client, error) {
	switch cs.Family {
	case FamilyOpenAI:
		return NewOpenAIClient(OpenAIConfig{
			APIKey:       cs.Secret,
			APIBase:      s.OpenAIBase,
			DefaultModel: variantFor(cs.Model, s.OpenAIDefaultModel),
			Timeout:      s.Timeout,
		}), nil
	case FamilyAnthropic:
		return NewAnthropicClient(AnthropicConfig{
			APIKey:       cs.Secret,
			APIBase:      s.AnthropicBase,
			DefaultModel: variantFor(cs.Model, s.AnthropicDefaultModel),
			MaxTokens:    s.AnthropicMaxTokens,
			Timeout:      s.Timeout,
		}), nil
	case FamilyLocal:
		return NewLocalClient(LocalConfig{
			APIBase: s.LocalBase,
			Model:   cs.Model,
			Timeout: s.Timeout,
		}), nil
	default:
		return nil, &UnsupportedProviderError{Model: cs.Model}
	}
}

// variantFor picks the backend model: a concrete requested name is used as-is,
// a family alias maps to the configured default.
func variantFor(model, familyDefault string) string {
	if isGenericAlias(model) {
		return familyDefault
	}
	return model
}

// Resolve returns the cached client for (username, model), constructing it on
// first use. Concurrent first resolutions of one key build a single client.
func (r *Resolver) Resolve(ctx context.Context, username, model string) (Client, error) {
	key := CacheKey{Username: username, Model: model}

	ctx, span := tracing.Start(ctx, "providers.resolve",
		tracing.AttrUser.String(username), tracing.AttrModel.String(model))

	r.mu.Lock()
	if c, ok := r.cache[key]; ok {
		r.mu.Unlock()
		span.SetAttributes(tracing.AttrCacheHit.Bool(true))
		tracing.End(span, nil)
		return c, nil
	}
	gen, ugen := r.gen, r.userGen[username]
	settings := r.settings
	r.mu.Unlock()
	span.SetAttributes(tracing.AttrCacheHit.Bool(false))

	// The build is shared by every waiter on this key, so it must not die
	// with whichever caller happened to start it.
	buildCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(flightKey(key), func() (any, error) {
		r.mu.Lock()
		if c, ok := r.cache[key]; ok {
			r.mu.Unlock()
			return c, nil
		}
		r.mu.Unlock()

		c, err := r.build(buildCtx, key, settings)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if existing, ok := r.cache[key]; ok {
			return existing, nil
		}
		if r.gen == gen && r.userGen[username] == ugen {
			r.cache[key] = c
		}
		slog.Debug("providers: client created", "user", username, "model", model, "family", c.Family().String())
		return c, nil
	})

	select {
	case <-ctx.Done():
		tracing.End(span, ctx.Err())
		return nil, ctx.Err()
	case res := <-ch:
		tracing.End(span, res.Err)
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Client), nil
	}
}

func (r *Resolver) build(ctx context.Context, key CacheKey, s Settings) (Client, error) {
	family, err := Classify(key.Model, s.LocalEnabled)
	if err != nil {
		return nil, err
	}

	cs := ClientSpec{Family: family, Model: key.Model}
	if family != FamilyLocal {
		secret, err := r.lookupSecret(ctx, family, key)
		if err != nil {
			return nil, err
		}
		cs.Secret = secret
	}
	return r.construct(cs, s)
}

// lookupSecret tries the user's stored keys in order, then the environment.
func (r *Resolver) lookupSecret(ctx context.Context, f Family, key CacheKey) (string, error) {
	if r.creds != nil {
		for _, name := range credentialNames(f, key.Model) {
			secret, err := r.creds.Get(ctx, key.Username, name)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return "", fmt.Errorf("load api key %q: %w", name, err)
			}
			if secret != "" {
				return secret, nil
			}
		}
	}
	if env := envKey(f); env != "" {
		if v := r.lookupEnv(env); v != "" {
			return v, nil
		}
	}
	return "", &CredentialMissingError{Username: key.Username, Model: key.Model}
}

// Clear evicts every cached client and returns how many were dropped.
func (r *Resolver) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.cache)
	r.cache = make(map[CacheKey]Client)
	r.gen++
	slog.Info("providers: cache cleared", "evicted", n)
	return n
}

// ClearUser evicts the cached clients of one user and returns how many were
// dropped. Other users' entries are untouched.
func (r *Resolver) ClearUser(username string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k := range r.cache {
		if k.Username == username {
			delete(r.cache, k)
			n++
		}
	}
	r.userGen[username]++
	slog.Info("providers: user cache cleared", "user", username, "evicted", n)
	return n
}

// Inspect returns the entry count and keys, sorted by user then model.
func (r *Resolver) Inspect() CacheInfo {
	return r.snapshot(func(CacheKey) bool { return true })
}

// InspectUser is Inspect restricted to one user's entries.
func (r *Resolver) InspectUser(username string) CacheInfo {
	return r.snapshot(func(k CacheKey) bool { return k.Username == username })
}

func (r *Resolver) snapshot(keep func(CacheKey) bool) CacheInfo {
	r.mu.Lock()
	keys := make([]CacheKey, 0, len(r.cache))
	for k := range r.cache {
		if keep(k) {
			keys = append(keys, k)
		}
	}
	r.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Username != keys[j].Username {
			return keys[i].Username < keys[j].Username
		}
		return keys[i].Model < keys[j].Model
	})
	return CacheInfo{Size: len(keys), Keys: keys}
}

// UpdateSettings swaps the construction defaults and clears the cache so the
// next resolution picks them up.
func (r *Resolver) UpdateSettings(s Settings) {
	r.mu.Lock()
	r.settings = s
	r.mu.Unlock()
	r.Clear()
}

// Settings returns the current construction defaults.
func (r *Resolver) Settings() Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings
}

func flightKey(k CacheKey) string {
	return strconv.Quote(k.Username) + "/" + strconv.Quote(k.Model)
}
