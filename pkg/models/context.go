package models

import "fmt"

// Capabilities declares, statically per channel type, what a channel can
// render and accept. Adapters expose a fixed value; it is validated once at
// adapter registration, never derived per call.
type Capabilities struct {
	// Streaming indicates the channel can render partial text as it is
	// generated (e.g. SSE token streaming on the web widget).
	Streaming bool `json:"streaming"`

	// Audio indicates the channel carries audio transcripts.
	Audio bool `json:"audio"`

	// RichText indicates the channel supports formatted text (markdown, etc.).
	RichText bool `json:"rich_text"`

	// Typing indicates the channel can show a typing/progress indicator.
	Typing bool `json:"typing"`

	// MaxMessageLength is the maximum outbound message length in characters
	// (0 = unlimited). Longer replies are chunked by the adapter.
	MaxMessageLength int `json:"max_message_length,omitempty"`
}

// Validate checks the capability declaration for internal consistency.
func (c Capabilities) Validate() error {
	if c.MaxMessageLength < 0 {
		return fmt.Errorf("max_message_length must be >= 0, got %d", c.MaxMessageLength)
	}
	return nil
}

// ChannelContext identifies the channel-level session for one exchange and
// carries the channel's declared capability set into the runtime.
//
// ThreadID is the authoritative conversation key; SessionID identifies the
// channel session and may span multiple logical threads. Thread identity is
// decided once by the adapter and is stable for the life of the channel
// session (a phone call, a web tab, a phone-number pair).
type ChannelContext struct {
	ChannelType  ChannelType    `json:"channel_type"`
	SessionID    string         `json:"session_id"`
	TenantID     string         `json:"tenant_id"`
	AgentID      string         `json:"agent_id"`
	ThreadID     string         `json:"thread_id"`
	Capabilities Capabilities   `json:"capabilities"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Validate checks that the context carries the identifiers the runtime
// depends on.
func (c *ChannelContext) Validate() error {
	if c == nil {
		return fmt.Errorf("channel context is required")
	}
	if c.ChannelType == "" {
		return fmt.Errorf("channel type is required")
	}
	if c.ThreadID == "" {
		return fmt.Errorf("thread id is required")
	}
	if c.AgentID == "" {
		return fmt.Errorf("agent id is required")
	}
	return nil
}
