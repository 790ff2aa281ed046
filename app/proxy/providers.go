package proxy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Provider holds the spoofed request headers a media origin requires. Feed
// consumers cannot supply these themselves, which is why enclosures point
// at the passthrough endpoint instead of the origin.
type Provider struct {
	Referer   string `yaml:"referer"`
	UserAgent string `yaml:"user_agent"`
}

func DefaultProviders() map[string]Provider {
	return map[string]Provider{
		"bilibili": {
			Referer:   "https://www.bilibili.com",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.36",
		},
	}
}

// LoadProviders returns the built-in provider table, overlaid with entries
// from the optional YAML file at path.
func LoadProviders(path string) (map[string]Provider, error) {
	providers := DefaultProviders()
	if path == "" {
		return providers, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read providers file: %w", err)
	}

	var overrides map[string]Provider
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse providers file: %w", err)
	}

	for name, p := range overrides {
		providers[name] = p
	}
	return providers, nil
}
