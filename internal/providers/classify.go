package providers

import (
	"slices"
	"strings"
)

var (
	openAIAliases    = []string{"openai", "gpt", "gpt-3.5-turbo", "gpt-4"}
	anthropicAliases = []string{"anthropic", "claude", "claude-3"}

	// genericAliases name a family rather than a concrete backend model.
	genericAliases = []string{"openai", "gpt", "anthropic", "claude", "claude-3"}
)

const (
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
)

// Classify maps a model name onto exactly one family. Matching is
// case-insensitive: known aliases first, then substring sniffing. Anything
// else falls back to local inference when it is enabled.
func Classify(model string, localEnabled bool) (Family, error) {
	m := strings.ToLower(strings.TrimSpace(model))
	if m == "" {
		return 0, &UnsupportedProviderError{Model: model}
	}
	switch {
	case slices.Contains(openAIAliases, m), strings.Contains(m, "gpt"), strings.Contains(m, "openai"):
		return FamilyOpenAI, nil
	case slices.Contains(anthropicAliases, m), strings.Contains(m, "claude"), strings.Contains(m, "anthropic"):
		return FamilyAnthropic, nil
	case localEnabled:
		return FamilyLocal, nil
	default:
		return 0, &UnsupportedProviderError{Model: model}
	}
}

// credentialNames returns the stored-key names to try, in order, for a model
// of the given family. An alias is looked up in plain alias order; any other
// model name is tried as-is before the aliases.
func credentialNames(f Family, model string) []string {
	var aliases []string
	switch f {
	case FamilyOpenAI:
		aliases = openAIAliases
	case FamilyAnthropic:
		aliases = anthropicAliases
	default:
		return nil
	}
	if slices.Contains(aliases, strings.ToLower(strings.TrimSpace(model))) {
		return slices.Clone(aliases)
	}
	names := make([]string, 0, len(aliases)+1)
	names = append(names, model)
	return append(names, aliases...)
}

// envKey returns the environment fallback variable for a family.
func envKey(f Family) string {
	switch f {
	case FamilyOpenAI:
		return EnvOpenAIKey
	case FamilyAnthropic:
		return EnvAnthropicKey
	default:
		return ""
	}
}

// isGenericAlias reports whether model names a family rather than a concrete
// backend model, in which case the family's configured default is used.
func isGenericAlias(model string) bool {
	return slices.Contains(genericAliases, strings.ToLower(strings.TrimSpace(model)))
}

// LookupPlan describes how a model name would be resolved, without touching
// any credential store.
type LookupPlan struct {
	Family   Family   `json:"-"`
	Backend  string   `json:"backend_model"`
	KeyNames []string `json:"key_names,omitempty"` // stored-key names, in lookup order
	EnvKey   string   `json:"env_fallback,omitempty"`
}

// Plan classifies model under s and lists the lookups Resolve would make.
func Plan(model string, s Settings) (LookupPlan, error) {
	f, err := Classify(model, s.LocalEnabled)
	if err != nil {
		return LookupPlan{}, err
	}
	p := LookupPlan{Family: f, KeyNames: credentialNames(f, model), EnvKey: envKey(f)}
	switch f {
	case FamilyOpenAI:
		p.Backend = variantFor(model, s.OpenAIDefaultModel)
	case FamilyAnthropic:
		p.Backend = variantFor(model, s.AnthropicDefaultModel)
	default:
		p.Backend = model
	}
	return p, nil
}
