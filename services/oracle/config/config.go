// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the oracle's runtime configuration from an optional
// YAML file with environment variable overrides. Environment values always
// win so container deployments can inject credentials without a file.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the oracle service configuration.
type Config struct {
	// Port the HTTP server listens on.
	Port string `yaml:"port"`

	// GitHubToken authenticates diff fetches and comment posts.
	GitHubToken string `yaml:"github_token"`

	// WebhookSecret is the shared HMAC secret for webhook signatures.
	WebhookSecret string `yaml:"webhook_secret"`

	// LLMBackend selects the analysis provider: "anthropic" or "openai".
	LLMBackend string `yaml:"llm_backend"`

	// AnthropicAPIKey authenticates against the Anthropic API.
	AnthropicAPIKey string `yaml:"anthropic_api_key"`

	// OpenAIAPIKey authenticates against the OpenAI API.
	OpenAIAPIKey string `yaml:"openai_api_key"`

	// Model overrides the backend's default model name.
	Model string `yaml:"model"`

	// OTLPEndpoint is the OTLP gRPC collector address. Tracing is
	// disabled when empty.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

// DefaultConfig returns the configuration used before file and environment
// values are applied.
func DefaultConfig() Config {
	return Config{
		Port:       "8000",
		LLMBackend: "anthropic",
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// it exists) and environment overrides, then validates it. An empty path
// skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read the config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse the config file: %w", err)
			}
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setIfPresent := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setIfPresent(&cfg.Port, "ORACLE_PORT")
	setIfPresent(&cfg.GitHubToken, "GITHUB_TOKEN")
	setIfPresent(&cfg.WebhookSecret, "WEBHOOK_SECRET")
	setIfPresent(&cfg.LLMBackend, "LLM_BACKEND")
	setIfPresent(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	setIfPresent(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	setIfPresent(&cfg.Model, "LLM_MODEL")
	setIfPresent(&cfg.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// Validate reports every missing required key in one error so operators
// can fix them all at once.
func (c *Config) Validate() error {
	var missing []string
	if c.GitHubToken == "" {
		missing = append(missing, "github_token (GITHUB_TOKEN)")
	}
	if c.WebhookSecret == "" {
		missing = append(missing, "webhook_secret (WEBHOOK_SECRET)")
	}

	switch c.LLMBackend {
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			missing = append(missing, "anthropic_api_key (ANTHROPIC_API_KEY)")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			missing = append(missing, "openai_api_key (OPENAI_API_KEY)")
		}
	default:
		return fmt.Errorf("unknown llm_backend %q, expected anthropic or openai", c.LLMBackend)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
