// Package voice adapts telephony speech-transcript webhooks to the agent
// runtime. Telephony signaling itself (call setup, media) lives with the
// external telephony collaborator; this adapter only sees transcripts and
// hands replies back for speech synthesis.
package voice

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/hikevindiaz/linkai/internal/channels"
	"github.com/hikevindiaz/linkai/internal/observability"
	"github.com/hikevindiaz/linkai/pkg/models"
)

// Speaker hands a reply back to the telephony collaborator for synthesis
// and playback on the call.
type Speaker interface {
	Speak(ctx context.Context, callID, text string) error
}

// Adapter translates voice transcript webhooks into canonical messages.
type Adapter struct {
	agentID string
	speaker Speaker
	logger  *observability.Logger
}

// New creates a voice adapter bound to one agent.
func New(agentID string, speaker Speaker, logger *observability.Logger) *Adapter {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Adapter{agentID: agentID, speaker: speaker, logger: logger}
}

func (a *Adapter) Type() models.ChannelType {
	return models.ChannelVoice
}

func (a *Adapter) Capabilities() models.Capabilities {
	return models.Capabilities{
		Streaming: false, // turn-taking: the full reply is spoken at once
		Audio:     true,
		RichText:  false,
		Typing:    false,
	}
}

// HandleIncoming decodes a form-encoded transcript webhook (CallSid,
// SpeechResult, From). The call ID keys the thread, so every turn of one
// call lands in the same conversation.
func (a *Adapter) HandleIncoming(ctx context.Context, payload []byte) (*models.Message, *models.ChannelContext, error) {
	form, err := url.ParseQuery(string(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("parse voice webhook: %w", err)
	}

	callID := strings.TrimSpace(form.Get("CallSid"))
	transcript := strings.TrimSpace(form.Get("SpeechResult"))
	from := strings.TrimSpace(form.Get("From"))
	if callID == "" || transcript == "" {
		return nil, nil, fmt.Errorf("voice webhook missing CallSid or SpeechResult")
	}

	msg := models.NewMessage(models.RoleUser, models.TypeAudioTranscript, transcript)
	msg.Metadata = map[string]any{"call_id": callID, "from": from}

	cctx := &models.ChannelContext{
		ChannelType:  models.ChannelVoice,
		SessionID:    fmt.Sprintf("voice-%s", callID),
		ThreadID:     fmt.Sprintf("voice-%s", callID),
		AgentID:      a.agentID,
		Capabilities: a.Capabilities(),
		Metadata:     map[string]any{"call_id": callID, "from": from},
	}
	msg.ThreadID = cctx.ThreadID
	return msg, cctx, nil
}

// SendOutgoing hands the full reply to the speaker. Voice has no length
// limit; the telephony side paces playback.
func (a *Adapter) SendOutgoing(ctx context.Context, msg *models.Message, cctx *models.ChannelContext) error {
	callID, _ := cctx.Metadata["call_id"].(string)
	if callID == "" {
		return fmt.Errorf("voice context missing call id")
	}
	if err := a.speaker.Speak(ctx, callID, msg.Content); err != nil {
		return fmt.Errorf("speak reply: %w", err)
	}
	a.logger.Debug(ctx, "voice reply spoken", "call_id", callID, "length", len(msg.Content))
	return nil
}

var _ channels.Adapter = (*Adapter)(nil)
