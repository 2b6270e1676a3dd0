// Package whatsapp adapts WhatsApp Business webhook payloads (Twilio-style
// form encoding with whatsapp:-prefixed addresses) to the agent runtime.
package whatsapp

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/hikevindiaz/linkai/internal/channels"
	"github.com/hikevindiaz/linkai/internal/observability"
	"github.com/hikevindiaz/linkai/pkg/models"
)

const maxMessageLength = 4096

// Sender delivers outbound WhatsApp messages to the messaging provider.
type Sender interface {
	SendWhatsApp(ctx context.Context, to, from, body string) error
}

// Adapter translates WhatsApp webhook payloads into canonical messages.
type Adapter struct {
	agentID string
	chunker *channels.MessageChunker
	sender  Sender
	logger  *observability.Logger
}

// New creates a WhatsApp adapter bound to one agent.
func New(agentID string, sender Sender, logger *observability.Logger) *Adapter {
	if logger == nil {
		logger = observability.NopLogger()
	}
	a := &Adapter{
		agentID: agentID,
		sender:  sender,
		logger:  logger,
	}
	a.chunker = channels.ChunkerFromCapabilities(a.Capabilities())
	return a
}

func (a *Adapter) Type() models.ChannelType {
	return models.ChannelWhatsApp
}

func (a *Adapter) Capabilities() models.Capabilities {
	return models.Capabilities{
		Streaming:        false,
		Audio:            false,
		RichText:         true,
		Typing:           false,
		MaxMessageLength: maxMessageLength,
	}
}

// stripPrefix removes the whatsapp: address prefix, leaving the bare
// E.164 number.
func stripPrefix(addr string) string {
	return strings.TrimPrefix(addr, "whatsapp:")
}

// HandleIncoming decodes a form-encoded webhook (From, To, Body). Thread
// identity follows the phone-number pair, after prefix stripping, so SMS
// and WhatsApp conversations with the same number stay distinct threads.
func (a *Adapter) HandleIncoming(ctx context.Context, payload []byte) (*models.Message, *models.ChannelContext, error) {
	form, err := url.ParseQuery(string(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("parse whatsapp webhook: %w", err)
	}

	from := stripPrefix(strings.TrimSpace(form.Get("From")))
	to := stripPrefix(strings.TrimSpace(form.Get("To")))
	body := strings.TrimSpace(form.Get("Body"))
	if from == "" || body == "" {
		return nil, nil, fmt.Errorf("whatsapp webhook missing From or Body")
	}

	msg := models.NewMessage(models.RoleUser, models.TypeText, body)
	msg.Metadata = map[string]any{"from": from, "to": to}

	cctx := &models.ChannelContext{
		ChannelType:  models.ChannelWhatsApp,
		SessionID:    fmt.Sprintf("whatsapp-%s", from),
		ThreadID:     fmt.Sprintf("whatsapp-%s-%s", from, to),
		AgentID:      a.agentID,
		Capabilities: a.Capabilities(),
		Metadata:     map[string]any{"from": from, "to": to},
	}
	msg.ThreadID = cctx.ThreadID
	return msg, cctx, nil
}

// SendOutgoing delivers the reply, restoring the whatsapp: address prefix
// and chunking if the message exceeds the platform limit.
func (a *Adapter) SendOutgoing(ctx context.Context, msg *models.Message, cctx *models.ChannelContext) error {
	to, _ := cctx.Metadata["from"].(string)
	from, _ := cctx.Metadata["to"].(string)
	if to == "" {
		return fmt.Errorf("whatsapp context missing recipient")
	}

	chunks := a.chunker.Chunk(msg.Content)
	for i, chunk := range chunks {
		if err := a.sender.SendWhatsApp(ctx, "whatsapp:"+to, "whatsapp:"+from, chunk); err != nil {
			return fmt.Errorf("send whatsapp message %d/%d: %w", i+1, len(chunks), err)
		}
	}
	a.logger.Debug(ctx, "whatsapp reply sent", "chunks", len(chunks), "to", to)
	return nil
}

var _ channels.Adapter = (*Adapter)(nil)
