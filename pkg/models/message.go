package models

import (
	"time"

	"github.com/google/uuid"
)

// ChannelType identifies a communication surface.
// The set is open: adapters may register additional values.
type ChannelType string

const (
	ChannelWeb      ChannelType = "web"
	ChannelVoice    ChannelType = "voice"
	ChannelPhone    ChannelType = "phone"
	ChannelSMS      ChannelType = "sms"
	ChannelWhatsApp ChannelType = "whatsapp"
)

// Role indicates the message author type.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MessageType describes the payload kind of a message.
// Only text and audio transcripts are handled by the runtime core;
// tool calls and results are extension points.
type MessageType string

const (
	TypeText            MessageType = "text"
	TypeAudioTranscript MessageType = "audio_transcript"
	TypeToolCall        MessageType = "tool_call"
	TypeToolResult      MessageType = "tool_result"
)

// Message is the canonical, channel-independent representation of one
// conversation turn. Adapters translate channel-native payloads into this
// type on the way in and back out of it on the way out.
//
// Content is immutable once created. CreatedAt is producer-assigned and is
// NOT guaranteed monotonic per thread (adapters run on different clocks);
// persistence order is the ordering authority, never the timestamp.
type Message struct {
	ID        string         `json:"id"`
	ThreadID  string         `json:"thread_id"`
	Role      Role           `json:"role"`
	Type      MessageType    `json:"type"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewMessage builds a message with a generated ID and creation time.
func NewMessage(role Role, msgType MessageType, content string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Role:      role,
		Type:      msgType,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// IsPartial reports whether this message was persisted after a cancelled
// generation and contains only the tokens produced before the cancel.
func (m *Message) IsPartial() bool {
	if m == nil || m.Metadata == nil {
		return false
	}
	partial, ok := m.Metadata["partial"].(bool)
	return ok && partial
}

// MarkPartial flags the message as a partial assistant turn.
func (m *Message) MarkPartial() {
	if m.Metadata == nil {
		m.Metadata = map[string]any{}
	}
	m.Metadata["partial"] = true
}

// Conversation is the durable aggregate for one logical thread. It carries
// bookkeeping only; the ordered message sequence lives in the store.
type Conversation struct {
	ThreadID     string      `json:"thread_id"`
	TenantID     string      `json:"tenant_id"`
	AgentID      string      `json:"agent_id"`
	Channel      ChannelType `json:"channel"`
	CreatedAt    time.Time   `json:"created_at"`
	LastActivity time.Time   `json:"last_activity"`
}
