// Package web adapts the web chat widget to the agent runtime. Inbound
// messages arrive as JSON POSTs; replies stream back over server-sent
// events when the client asks for them, or as a single JSON body otherwise.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hikevindiaz/linkai/internal/channels"
	"github.com/hikevindiaz/linkai/internal/observability"
	"github.com/hikevindiaz/linkai/pkg/models"
)

// inboundPayload is the chat widget's request body.
type inboundPayload struct {
	ThreadID string `json:"thread_id"`
	TenantID string `json:"tenant_id"`
	Content  string `json:"content"`
}

// Adapter translates web chat payloads into canonical messages.
type Adapter struct {
	agentID string
	logger  *observability.Logger
}

// New creates a web adapter bound to one agent.
func New(agentID string, logger *observability.Logger) *Adapter {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Adapter{agentID: agentID, logger: logger}
}

func (a *Adapter) Type() models.ChannelType {
	return models.ChannelWeb
}

func (a *Adapter) Capabilities() models.Capabilities {
	return models.Capabilities{
		Streaming: true,
		Audio:     false,
		RichText:  true,
		Typing:    true,
	}
}

// HandleIncoming decodes the widget's JSON body. The widget supplies an
// explicit thread identifier; a first message without one starts a fresh
// thread.
func (a *Adapter) HandleIncoming(ctx context.Context, payload []byte) (*models.Message, *models.ChannelContext, error) {
	var in inboundPayload
	if err := json.Unmarshal(payload, &in); err != nil {
		return nil, nil, fmt.Errorf("parse web payload: %w", err)
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, nil, fmt.Errorf("web payload missing content")
	}

	cctx := a.Context(in.ThreadID, in.TenantID)
	msg := models.NewMessage(models.RoleUser, models.TypeText, in.Content)
	msg.ThreadID = cctx.ThreadID
	return msg, cctx, nil
}

// Context builds the channel context for a thread. An empty thread ID
// starts a fresh thread.
func (a *Adapter) Context(threadID, tenantID string) *models.ChannelContext {
	if threadID == "" {
		threadID = "web-" + uuid.NewString()
	}
	return &models.ChannelContext{
		ChannelType:  models.ChannelWeb,
		SessionID:    threadID,
		ThreadID:     threadID,
		TenantID:     tenantID,
		AgentID:      a.agentID,
		Capabilities: a.Capabilities(),
	}
}

// SendOutgoing is a no-op for web: replies travel back on the HTTP response
// that carried the inbound message (see Handler).
func (a *Adapter) SendOutgoing(ctx context.Context, msg *models.Message, cctx *models.ChannelContext) error {
	return nil
}

var _ channels.Adapter = (*Adapter)(nil)
