package models

import (
	"fmt"
	"os"
	"strings"

	"github.com/dstessier/accord/internal/config"
)

// ResolvedAuth holds the resolved API credentials for a provider.
type ResolvedAuth struct {
	Value string
}

// ResolveAuth resolves the credentials for a provider.
// Resolution order: direct api_key → ${VAR} env reference → driver default env.
func ResolveAuth(cfg config.ProviderConfig) (ResolvedAuth, error) {
	resolve := func(token string) string {
		trimmed := strings.TrimSpace(token)
		if trimmed == "" {
			return ""
		}
		if strings.HasPrefix(trimmed, "${") && strings.HasSuffix(trimmed, "}") {
			return os.Getenv(trimmed[2 : len(trimmed)-1])
		}
		return trimmed
	}

	// Direct API key from config
	if apiKey := resolve(cfg.Auth.APIKey); apiKey != "" {
		return ResolvedAuth{Value: apiKey}, nil
	}

	// Default env vars per driver
	switch strings.ToLower(cfg.Driver) {
	case "anthropic":
		if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
			return ResolvedAuth{Value: key}, nil
		}
		return ResolvedAuth{}, fmt.Errorf("ANTHROPIC_API_KEY not set")
	case "openai":
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			return ResolvedAuth{Value: key}, nil
		}
		return ResolvedAuth{}, fmt.Errorf("OPENAI_API_KEY not set")
	case "mistral":
		if key := os.Getenv("MISTRAL_API_KEY"); key != "" {
			return ResolvedAuth{Value: key}, nil
		}
		return ResolvedAuth{}, fmt.Errorf("MISTRAL_API_KEY not set")
	}

	return ResolvedAuth{}, fmt.Errorf("no credentials for driver %q", cfg.Driver)
}
