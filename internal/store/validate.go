package store

import (
	"fmt"
	"strings"
)

// MaxUsernameLength matches the VARCHAR(255) constraint on users.username.
const MaxUsernameLength = 255

// MaxModelNameLength matches the VARCHAR(255) constraint on api_keys.model_name.
const MaxModelNameLength = 255

// ValidateUsername checks that a username is non-empty, has no surrounding
// whitespace, and does not exceed MaxUsernameLength.
func ValidateUsername(name string) error {
	if name == "" {
		return fmt.Errorf("username is required")
	}
	if strings.TrimSpace(name) != name {
		return fmt.Errorf("username must not start or end with whitespace")
	}
	if len(name) > MaxUsernameLength {
		return fmt.Errorf("username too long: %d chars (max %d)", len(name), MaxUsernameLength)
	}
	return nil
}

// ValidateModelName checks a credential model name.
func ValidateModelName(model string) error {
	if strings.TrimSpace(model) == "" {
		return fmt.Errorf("model_name is required")
	}
	if len(model) > MaxModelNameLength {
		return fmt.Errorf("model_name too long: %d chars (max %d)", len(model), MaxModelNameLength)
	}
	return nil
}
