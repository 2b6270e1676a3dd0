package models

import "time"

// AgentConfig is the tenant-owned configuration bound to one agent.
//
// The runtime treats a config as an immutable snapshot for the duration of
// one message-processing call: concurrent edits by the owning tenant become
// visible only to subsequent calls.
type AgentConfig struct {
	AgentID  string `json:"agent_id" yaml:"agent_id"`
	TenantID string `json:"tenant_id" yaml:"tenant_id"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`

	// SystemPrompt is the rendered system prompt template for this agent.
	SystemPrompt string `json:"system_prompt" yaml:"system_prompt"`

	// Provider selects the backing gateway ("openai", "google", "anthropic").
	Provider string `json:"provider" yaml:"provider"`

	// Model is the provider-specific model identifier.
	Model string `json:"model" yaml:"model"`

	// Temperature and MaxTokens pass through to the provider verbatim; the
	// gateway clamps only when the provider would hard-reject the value.
	Temperature float32 `json:"temperature" yaml:"temperature"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`

	// Channels lists the channel types this agent is enabled on.
	Channels []ChannelType `json:"channels,omitempty" yaml:"channels,omitempty"`

	// KnowledgeSourceIDs names the knowledge sources used for retrieval
	// augmentation. Empty means no augmentation.
	KnowledgeSourceIDs []string `json:"knowledge_source_ids,omitempty" yaml:"knowledge_source_ids,omitempty"`

	// WelcomeMessage opens a brand-new thread; ErrorMessage is what users
	// see when generation fails (never raw provider error text).
	WelcomeMessage string `json:"welcome_message,omitempty" yaml:"welcome_message,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty" yaml:"error_message,omitempty"`

	// ProviderTimeout bounds each gateway call. Zero means the
	// provider-specific default.
	ProviderTimeout time.Duration `json:"provider_timeout,omitempty" yaml:"provider_timeout,omitempty"`
}

// EnabledOn reports whether the agent accepts traffic from the channel.
// An empty Channels list enables all channels.
func (c *AgentConfig) EnabledOn(channel ChannelType) bool {
	if len(c.Channels) == 0 {
		return true
	}
	for _, ch := range c.Channels {
		if ch == channel {
			return true
		}
	}
	return false
}

// RenderError returns the tenant-configured error message, falling back to
// a generic one when unset.
func (c *AgentConfig) RenderError() string {
	if c.ErrorMessage != "" {
		return c.ErrorMessage
	}
	return "Sorry, something went wrong. Please try again."
}

// Clone returns a deep copy, giving callers snapshot semantics.
func (c *AgentConfig) Clone() *AgentConfig {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Channels = append([]ChannelType(nil), c.Channels...)
	clone.KnowledgeSourceIDs = append([]string(nil), c.KnowledgeSourceIDs...)
	return &clone
}
