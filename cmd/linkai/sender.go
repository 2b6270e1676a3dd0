package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hikevindiaz/linkai/internal/observability"
)

// outboundSender delivers replies to the external channel collaborator
// (telephony or messaging provider) as form-encoded POSTs. Without an
// outbound URL it degrades to log-only delivery for local development.
//
// It backs all three webhook channels: SMS, WhatsApp and voice.
type outboundSender struct {
	endpoint string
	client   *http.Client
	logger   *observability.Logger
}

func newOutboundSender(endpoint string, logger *observability.Logger) *outboundSender {
	return &outboundSender{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
		logger:   logger,
	}
}

func (s *outboundSender) post(ctx context.Context, form url.Values) error {
	if s.endpoint == "" {
		s.logger.Info(ctx, "outbound delivery (dry run)", "payload", form.Encode())
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("outbound delivery failed: status %d", resp.StatusCode)
	}
	return nil
}

// SendSMS implements sms.Sender.
func (s *outboundSender) SendSMS(ctx context.Context, to, from, body string) error {
	return s.post(ctx, url.Values{"To": {to}, "From": {from}, "Body": {body}})
}

// SendWhatsApp implements whatsapp.Sender.
func (s *outboundSender) SendWhatsApp(ctx context.Context, to, from, body string) error {
	return s.post(ctx, url.Values{"To": {to}, "From": {from}, "Body": {body}})
}

// Speak implements voice.Speaker.
func (s *outboundSender) Speak(ctx context.Context, callID, text string) error {
	return s.post(ctx, url.Values{"CallSid": {callID}, "Text": {text}})
}
