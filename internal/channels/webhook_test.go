package channels

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hikevindiaz/linkai/internal/provider"
	"github.com/hikevindiaz/linkai/internal/stream"
	"github.com/hikevindiaz/linkai/pkg/models"
)

// echoAdapter is a minimal webhook adapter for handler tests.
type echoAdapter struct {
	sent []string
}

func (a *echoAdapter) Type() models.ChannelType          { return models.ChannelSMS }
func (a *echoAdapter) Capabilities() models.Capabilities { return models.Capabilities{MaxMessageLength: 160} }

func (a *echoAdapter) HandleIncoming(ctx context.Context, payload []byte) (*models.Message, *models.ChannelContext, error) {
	form, err := url.ParseQuery(string(payload))
	if err != nil || form.Get("Body") == "" {
		return nil, nil, errors.New("bad payload")
	}
	msg := models.NewMessage(models.RoleUser, models.TypeText, form.Get("Body"))
	cctx := &models.ChannelContext{
		ChannelType:  models.ChannelSMS,
		ThreadID:     "sms-test",
		AgentID:      "agent-1",
		Capabilities: a.Capabilities(),
	}
	return msg, cctx, nil
}

func (a *echoAdapter) SendOutgoing(ctx context.Context, msg *models.Message, cctx *models.ChannelContext) error {
	a.sent = append(a.sent, msg.Content)
	return nil
}

type scriptedProcessor struct {
	reply string
	err   error
}

func (p *scriptedProcessor) ProcessMessage(ctx context.Context, msg *models.Message, cctx *models.ChannelContext, listener stream.Listener) (*models.Message, error) {
	if p.err != nil {
		return nil, p.err
	}
	return models.NewMessage(models.RoleAssistant, models.TypeText, p.reply), nil
}

func (p *scriptedProcessor) Cancel(threadID string) bool { return false }

func (p *scriptedProcessor) WelcomeMessage(ctx context.Context, cctx *models.ChannelContext) (*models.Message, error) {
	return nil, nil
}

func (p *scriptedProcessor) ErrorReply(ctx context.Context, agentID string) string {
	return "Please try again later."
}

func postForm(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestWebhookHandler_Success(t *testing.T) {
	adapter := &echoAdapter{}
	handler := WebhookHandler(adapter, &scriptedProcessor{reply: "the answer"}, nil)

	rec := postForm(t, handler, "Body=question")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(adapter.sent) != 1 || adapter.sent[0] != "the answer" {
		t.Errorf("sent = %v", adapter.sent)
	}
}

func TestWebhookHandler_BadPayload(t *testing.T) {
	handler := WebhookHandler(&echoAdapter{}, &scriptedProcessor{}, nil)
	rec := postForm(t, handler, "nothing=here")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestWebhookHandler_ProviderFailureSendsConfiguredError(t *testing.T) {
	adapter := &echoAdapter{}
	handler := WebhookHandler(adapter, &scriptedProcessor{
		err: &provider.Error{Kind: provider.KindUnavailable, Provider: "openai", Message: "500 internal"},
	}, nil)

	rec := postForm(t, handler, "Body=question")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (the user still gets a reply)", rec.Code)
	}
	if len(adapter.sent) != 1 || adapter.sent[0] != "Please try again later." {
		t.Errorf("sent = %v, want tenant-configured error text", adapter.sent)
	}
	if strings.Contains(adapter.sent[0], "500") {
		t.Errorf("raw provider error leaked to the user")
	}
}
