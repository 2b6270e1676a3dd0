// Package config loads the service configuration from YAML with
// environment-variable expansion.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hikevindiaz/linkai/pkg/models"
)

// Config is the top-level service configuration.
type Config struct {
	Server    ServerConfig          `yaml:"server"`
	Storage   StorageConfig         `yaml:"storage"`
	Providers ProvidersConfig       `yaml:"providers"`
	Channels  ChannelsConfig        `yaml:"channels"`
	Retrieval RetrievalConfig       `yaml:"retrieval"`
	Logging   LoggingConfig         `yaml:"logging"`
	Agents    []*models.AgentConfig `yaml:"agents"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type StorageConfig struct {
	// Driver selects the conversation store: "memory" or "sqlite".
	Driver string `yaml:"driver"`
	// Path is the SQLite database file (":memory:" for ephemeral).
	Path string `yaml:"path"`
	// MaxMessages bounds per-thread history for the memory driver.
	MaxMessages int `yaml:"max_messages"`
}

type ProvidersConfig struct {
	OpenAI    ProviderConfig `yaml:"openai"`
	Anthropic ProviderConfig `yaml:"anthropic"`
	Google    ProviderConfig `yaml:"google"`
}

type ProviderConfig struct {
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// Enabled reports whether the provider is configured.
func (p ProviderConfig) Enabled() bool {
	return p.APIKey != ""
}

type ChannelsConfig struct {
	Web      ChannelConfig `yaml:"web"`
	Voice    ChannelConfig `yaml:"voice"`
	SMS      ChannelConfig `yaml:"sms"`
	WhatsApp ChannelConfig `yaml:"whatsapp"`
}

// ChannelConfig binds one channel endpoint to an agent.
type ChannelConfig struct {
	Enabled bool   `yaml:"enabled"`
	AgentID string `yaml:"agent_id"`
	// OutboundURL is where webhook channels deliver replies (the
	// telephony or messaging collaborator's send endpoint). Empty means
	// replies are logged only, which is useful in development.
	OutboundURL string `yaml:"outbound_url"`
}

type RetrievalConfig struct {
	// Limit is the maximum snippets added to a prompt.
	Limit int `yaml:"limit"`
	// Sources maps knowledge source IDs to their documents for the
	// built-in static retriever.
	Sources map[string][]string `yaml:"sources"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads, expands and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	config := Default()
	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Default returns the configuration defaults applied before parsing.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			Driver: "memory",
		},
		Retrieval: RetrievalConfig{
			Limit: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	switch c.Storage.Driver {
	case "memory":
	case "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}

	seen := map[string]bool{}
	for _, agent := range c.Agents {
		if agent.AgentID == "" {
			return fmt.Errorf("agent missing agent_id")
		}
		if seen[agent.AgentID] {
			return fmt.Errorf("duplicate agent_id %q", agent.AgentID)
		}
		seen[agent.AgentID] = true

		switch agent.Provider {
		case "openai", "anthropic", "google":
		default:
			return fmt.Errorf("agent %q: unknown provider %q", agent.AgentID, agent.Provider)
		}
		if agent.Model == "" {
			return fmt.Errorf("agent %q: model is required", agent.AgentID)
		}
	}

	for name, channel := range map[string]ChannelConfig{
		"web":      c.Channels.Web,
		"voice":    c.Channels.Voice,
		"sms":      c.Channels.SMS,
		"whatsapp": c.Channels.WhatsApp,
	} {
		if channel.Enabled && !seen[channel.AgentID] {
			return fmt.Errorf("channels.%s: unknown agent_id %q", name, channel.AgentID)
		}
	}
	return nil
}

// AgentMap indexes the configured agents by ID.
func (c *Config) AgentMap() map[string]*models.AgentConfig {
	agents := make(map[string]*models.AgentConfig, len(c.Agents))
	for _, agent := range c.Agents {
		agents[agent.AgentID] = agent
	}
	return agents
}
