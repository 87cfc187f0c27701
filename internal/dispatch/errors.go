package dispatch

import (
	"errors"
	"strings"

	"github.com/nextlevelbuilder/mcpgate/internal/drive"
	"github.com/nextlevelbuilder/mcpgate/internal/providers"
)

// UsageError reports malformed command arguments. Usage is the literal
// synopsis of the command that was matched.
type UsageError struct {
	Usage string
}

func (e *UsageError) Error() string { return "Usage: " + e.Usage }

// Error kinds reported in logs and span attributes.
const (
	KindCredentialMissing   = "credential_missing"
	KindUnsupportedProvider = "unsupported_provider"
	KindProvider            = "provider"
	KindStorage             = "storage"
	KindUsage               = "usage"
	KindInternal            = "internal"
)

// Kind classifies err into the dispatcher's error taxonomy. The user only
// sees the rendered string; the kind keeps failures distinguishable for
// operators.
func Kind(err error) string {
	var (
		usage    *UsageError
		storage  *drive.StorageError
		provider *providers.ProviderError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &usage):
		return KindUsage
	case errors.Is(err, providers.ErrCredentialMissing):
		return KindCredentialMissing
	case errors.Is(err, providers.ErrUnsupportedProvider):
		return KindUnsupportedProvider
	case errors.As(err, &provider):
		return KindProvider
	case errors.As(err, &storage):
		return KindStorage
	default:
		return KindInternal
	}
}

// render turns any failure into the user-facing string.
func render(err error) string {
	msg := strings.TrimSpace(err.Error())
	if strings.HasPrefix(msg, "Error: ") {
		return msg
	}
	return "Error: " + msg
}
