package providers

import (
	"errors"
	"fmt"
)

var (
	// ErrCredentialMissing matches any *CredentialMissingError via errors.Is.
	ErrCredentialMissing = errors.New("credential missing")
	// ErrUnsupportedProvider matches any *UnsupportedProviderError via errors.Is.
	ErrUnsupportedProvider = errors.New("unsupported provider")
)

// CredentialMissingError means neither the user's stored keys nor the
// environment hold a secret for the model's family.
type CredentialMissingError struct {
	Username string
	Model    string
}

func (e *CredentialMissingError) Error() string {
	return fmt.Sprintf("API key for model '%s' not found for user '%s'. Please set it using /set_api_key endpoint.", e.Model, e.Username)
}

func (e *CredentialMissingError) Is(target error) bool { return target == ErrCredentialMissing }

// UnsupportedProviderError means the model name maps to no family.
type UnsupportedProviderError struct {
	Model string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("Unsupported model: %s", e.Model)
}

func (e *UnsupportedProviderError) Is(target error) bool { return target == ErrUnsupportedProvider }

// ProviderError wraps a failed backend call. Message holds the backend's own
// diagnostic text, unredacted. Status is 0 for transport failures.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s API error: %s", providerLabel(e.Provider), e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func providerLabel(name string) string {
	switch name {
	case "openai":
		return "OpenAI"
	case "anthropic":
		return "Anthropic"
	case "local":
		return "Local model"
	default:
		return name
	}
}
