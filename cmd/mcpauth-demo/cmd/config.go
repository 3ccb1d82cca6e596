package cmd

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ArcadeAI/mcp-server-auth/registry"
)

// Config is the YAML configuration of the demo server. The resource section
// can still be overridden through the registry environment variables, which
// take precedence inside the middleware.
type Config struct {
	Address              string        `yaml:"address" validate:"required"`
	CanonicalURL         string        `yaml:"canonical_url" validate:"required,url"`
	LogLevel             string        `yaml:"log_level"`
	Metrics              bool          `yaml:"metrics"`
	AuthorizationServers []ServerEntry `yaml:"authorization_servers" validate:"required,min=1,dive"`
}

// ServerEntry is the YAML form of one trusted authorization server.
type ServerEntry struct {
	Issuer                 string `yaml:"issuer" validate:"required,url"`
	JWKSURI                string `yaml:"jwks_uri" validate:"required,url"`
	AuthorizationServerURL string `yaml:"authorization_server_url" validate:"omitempty,url"`
	Algorithm              string `yaml:"algorithm"`
	Audience               string `yaml:"audience"`
	ForwardMetadata        bool   `yaml:"forward_authorization_server_metadata"`
	VerifyAudience         *bool  `yaml:"verify_aud"`
}

// LoadConfigFile reads, parses and validates a configuration file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := Config{LogLevel: "info"}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unmarshal config file: %w", err)
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &config, nil
}

// resourceConfig converts the YAML form into the middleware configuration.
func (c *Config) resourceConfig() *registry.Config {
	entries := make([]registry.Entry, 0, len(c.AuthorizationServers))
	for _, server := range c.AuthorizationServers {
		entries = append(entries, server.entry())
	}
	return &registry.Config{
		CanonicalURL:         c.CanonicalURL,
		AuthorizationServers: entries,
	}
}

func (s ServerEntry) entry() registry.Entry {
	entry := registry.Entry{
		Issuer:                    s.Issuer,
		JWKSURI:                   s.JWKSURI,
		AuthorizationServerURL:    s.AuthorizationServerURL,
		Algorithm:                 s.Algorithm,
		Audience:                  s.Audience,
		ForwardAuthServerMetadata: s.ForwardMetadata,
	}
	if s.VerifyAudience != nil && !*s.VerifyAudience {
		options := registry.DefaultValidationOptions()
		options.VerifyAudience = false
		entry.ValidationOptions = options
	}
	return entry
}
