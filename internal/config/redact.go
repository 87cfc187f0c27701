package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// secretKeys are masked wherever they appear. Values under secretMaps are
// masked wholesale.
var (
	secretKeys = map[string]bool{
		"jwt_secret":     true,
		"encryption_key": true,
		"postgres_dsn":   true,
		"redis_url":      true,
	}
	secretMaps = map[string]bool{
		"headers": true,
	}
)

// Redacted returns a JSON-shaped copy of the config with secrets masked.
func (c *Config) Redacted() map[string]any {
	data, _ := json.Marshal(c)
	var raw map[string]any
	_ = json.Unmarshal(data, &raw)
	redactMap(raw, false)
	return raw
}

// Hash identifies the config contents. Secrets contribute, so two configs
// that differ only by a key hash differently.
func (c *Config) Hash() string {
	data, _ := json.Marshal(c)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

func redactMap(m map[string]any, all bool) {
	for k, v := range m {
		switch val := v.(type) {
		case string:
			if all || secretKeys[k] {
				m[k] = mask(val)
			}
		case map[string]any:
			redactMap(val, all || secretMaps[k])
		}
	}
}

// mask keeps a short prefix and suffix of long values so operators can tell
// keys apart.
func mask(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) > 12:
		return s[:4] + "****" + s[len(s)-4:]
	default:
		return "****"
	}
}
