package models

import "testing"

func TestNewMessageAssignsIDAndTimestamp(t *testing.T) {
	msg := NewMessage(RoleUser, TypeText, "hello")
	if msg.ID == "" {
		t.Fatal("expected message id to be assigned")
	}
	if msg.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be assigned")
	}
	if msg.Role != RoleUser || msg.Type != TypeText || msg.Content != "hello" {
		t.Fatalf("unexpected message fields: %+v", msg)
	}
}

func TestMessage_PartialFlag(t *testing.T) {
	msg := NewMessage(RoleAssistant, TypeText, "par")
	if msg.IsPartial() {
		t.Fatal("fresh message should not be partial")
	}
	msg.MarkPartial()
	if !msg.IsPartial() {
		t.Fatal("expected message to be partial after MarkPartial")
	}
}

func TestChannelContext_Validate(t *testing.T) {
	tests := []struct {
		name    string
		ctx     *ChannelContext
		wantErr bool
	}{
		{"valid", &ChannelContext{ChannelType: ChannelWeb, ThreadID: "t1", AgentID: "a1"}, false},
		{"missing thread", &ChannelContext{ChannelType: ChannelWeb, AgentID: "a1"}, true},
		{"missing channel", &ChannelContext{ThreadID: "t1", AgentID: "a1"}, true},
		{"missing agent", &ChannelContext{ChannelType: ChannelSMS, ThreadID: "t1"}, true},
		{"nil", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ctx.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAgentConfig_EnabledOn(t *testing.T) {
	cfg := &AgentConfig{Channels: []ChannelType{ChannelWeb, ChannelSMS}}
	if !cfg.EnabledOn(ChannelWeb) {
		t.Fatal("expected web to be enabled")
	}
	if cfg.EnabledOn(ChannelVoice) {
		t.Fatal("expected voice to be disabled")
	}

	open := &AgentConfig{}
	if !open.EnabledOn(ChannelVoice) {
		t.Fatal("empty channel list should enable all channels")
	}
}

func TestAgentConfig_CloneIsIndependent(t *testing.T) {
	cfg := &AgentConfig{
		AgentID:            "a1",
		Channels:           []ChannelType{ChannelWeb},
		KnowledgeSourceIDs: []string{"kb-1"},
	}
	clone := cfg.Clone()
	clone.Channels[0] = ChannelSMS
	clone.KnowledgeSourceIDs[0] = "kb-2"

	if cfg.Channels[0] != ChannelWeb {
		t.Fatal("clone mutated original channels")
	}
	if cfg.KnowledgeSourceIDs[0] != "kb-1" {
		t.Fatal("clone mutated original knowledge sources")
	}
}
