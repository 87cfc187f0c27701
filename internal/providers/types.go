// Package providers defines the uniform chat contract over LLM backends,
// classifies model names into provider families, and caches constructed
// clients per (user, model).
package providers

import "context"

// Client is a constructed provider backend. Implementations are safe for
// concurrent use; the Resolver hands out one shared instance per cache key.
type Client interface {
	// Family reports which provider family the client talks to.
	Family() Family
	// Chat sends a single user message and returns the assistant text.
	// Failures from the backend are returned as *ProviderError.
	Chat(ctx context.Context, message string, opts Options) (string, error)
}

// Options are advisory per-call parameters. A backend that cannot honour one
// ignores it rather than failing.
type Options struct {
	MaxTokens    *int
	Temperature  *float64
	ModelVariant string // concrete backend model; empty = client default
}

// Family is the closed set of provider families.
type Family int

const (
	FamilyOpenAI Family = iota + 1
	FamilyAnthropic
	FamilyLocal
)

func (f Family) String() string {
	switch f {
	case FamilyOpenAI:
		return "openai"
	case FamilyAnthropic:
		return "anthropic"
	case FamilyLocal:
		return "local"
	default:
		return "unknown"
	}
}

// IntPtr and FloatPtr build optional option values.
func IntPtr(v int) *int { return &v }

func FloatPtr(v float64) *float64 { return &v }
