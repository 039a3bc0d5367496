// Package config loads client configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	Typing    TypingConfig    `yaml:"typing"`
}

type ServerConfig struct {
	URL string `yaml:"url"`
}

type ReconnectConfig struct {
	BaseDelay time.Duration `yaml:"base_delay"`
	MaxDelay  time.Duration `yaml:"max_delay"`
}

type TypingConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL: "ws://localhost:3000",
		},
		Reconnect: ReconnectConfig{
			BaseDelay: 300 * time.Millisecond,
			MaxDelay:  5 * time.Second,
		},
		Typing: TypingConfig{
			Debounce: 1500 * time.Millisecond,
		},
	}
}

// Load reads the config at path, falling back to defaults when path is
// empty. CHAT_SERVER_URL overrides the server URL either way.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	if url := os.Getenv("CHAT_SERVER_URL"); url != "" {
		cfg.Server.URL = url
	}

	return cfg, nil
}
