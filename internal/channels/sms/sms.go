// Package sms adapts Twilio-style SMS webhooks to the agent runtime.
// Replies are chunked to the 160-character segment limit and delivered
// through an outbound Sender.
package sms

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/hikevindiaz/linkai/internal/channels"
	"github.com/hikevindiaz/linkai/internal/observability"
	"github.com/hikevindiaz/linkai/pkg/models"
)

const maxSegmentLength = 160

// Sender delivers outbound SMS segments to the telephony provider.
type Sender interface {
	SendSMS(ctx context.Context, to, from, body string) error
}

// Adapter translates SMS webhook payloads into canonical messages.
type Adapter struct {
	agentID string
	chunker *channels.MessageChunker
	sender  Sender
	logger  *observability.Logger
}

// New creates an SMS adapter bound to one agent.
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
	return models.ChannelSMS
}

func (a *Adapter) Capabilities() models.Capabilities {
	return models.Capabilities{
		Streaming:        false,
		Audio:            false,
		RichText:         false,
		Typing:           false,
		MaxMessageLength: maxSegmentLength,
	}
}

// HandleIncoming decodes a form-encoded SMS webhook (From, To, Body). The
// thread key is derived from the phone-number pair so the same two numbers
// always continue one conversation.
func (a *Adapter) HandleIncoming(ctx context.Context, payload []byte) (*models.Message, *models.ChannelContext, error) {
	form, err := url.ParseQuery(string(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("parse sms webhook: %w", err)
	}

	from := strings.TrimSpace(form.Get("From"))
	to := strings.TrimSpace(form.Get("To"))
	body := strings.TrimSpace(form.Get("Body"))
	if from == "" || body == "" {
		return nil, nil, fmt.Errorf("sms webhook missing From or Body")
	}

	msg := models.NewMessage(models.RoleUser, models.TypeText, body)
	msg.Metadata = map[string]any{"from": from, "to": to}

	cctx := &models.ChannelContext{
		ChannelType:  models.ChannelSMS,
		SessionID:    fmt.Sprintf("sms-%s", from),
		ThreadID:     fmt.Sprintf("sms-%s-%s", from, to),
		AgentID:      a.agentID,
		Capabilities: a.Capabilities(),
		Metadata:     map[string]any{"from": from, "to": to},
	}
	msg.ThreadID = cctx.ThreadID
	return msg, cctx, nil
}

// SendOutgoing chunks the assistant reply into segments and sends them in
// order. The webhook's From/To pair is swapped for the reply direction.
func (a *Adapter) SendOutgoing(ctx context.Context, msg *models.Message, cctx *models.ChannelContext) error {
	to, _ := cctx.Metadata["from"].(string)
	from, _ := cctx.Metadata["to"].(string)
	if to == "" {
		return fmt.Errorf("sms context missing recipient")
	}

	segments := a.chunker.Chunk(msg.Content)
	for i, segment := range segments {
		if err := a.sender.SendSMS(ctx, to, from, segment); err != nil {
			return fmt.Errorf("send sms segment %d/%d: %w", i+1, len(segments), err)
		}
	}
	a.logger.Debug(ctx, "sms reply sent", "segments", len(segments), "to", to)
	return nil
}

var _ channels.Adapter = (*Adapter)(nil)
