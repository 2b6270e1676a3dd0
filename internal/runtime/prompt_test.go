package runtime

import (
	"strings"
	"testing"

	"github.com/hikevindiaz/linkai/internal/knowledge"
	"github.com/hikevindiaz/linkai/pkg/models"
)

func testAgentConfig() *models.AgentConfig {
	return &models.AgentConfig{
		AgentID:      "agent-1",
		SystemPrompt: "You are a helpful assistant.",
		Model:        "model-x",
		MaxTokens:    100,
	}
}

func historyOf(contents ...string) []*models.Message {
	msgs := make([]*models.Message, len(contents))
	for i, content := range contents {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		msgs[i] = models.NewMessage(role, models.TypeText, content)
	}
	return msgs
}

func TestBuildSystemPrompt_AppendsSnippets(t *testing.T) {
	config := testAgentConfig()
	snippets := []knowledge.Snippet{
		{Text: "returns accepted within 30 days", SourceID: "kb-1"},
		{Text: "shipping is free over $50", SourceID: "kb-1"},
	}

	system := buildSystemPrompt(config, snippets)
	if !strings.HasPrefix(system, config.SystemPrompt) {
		t.Errorf("system prompt must start with the configured prompt")
	}
	for _, snippet := range snippets {
		if !strings.Contains(system, snippet.Text) {
			t.Errorf("system prompt missing snippet %q", snippet.Text)
		}
	}
}

func TestBuildSystemPrompt_NoSnippets(t *testing.T) {
	config := testAgentConfig()
	if got := buildSystemPrompt(config, nil); got != config.SystemPrompt {
		t.Errorf("unaugmented prompt = %q, want configured prompt unchanged", got)
	}
}

func TestBuildPrompt_KeepsFullHistoryWhenItFits(t *testing.T) {
	config := testAgentConfig()
	history := historyOf("hi", "hello", "how are you?")

	req := buildPrompt(config, config.SystemPrompt, history, 8000)
	if len(req.Messages) != 3 {
		t.Fatalf("expected full history, got %d messages", len(req.Messages))
	}
	if req.Model != "model-x" || req.MaxTokens != 100 {
		t.Errorf("config fields not carried through: %+v", req)
	}
}

func TestBuildPrompt_DropsOldestFirst(t *testing.T) {
	config := testAgentConfig()
	long := strings.Repeat("word ", 200) // ~250 tokens each
	history := historyOf(long+"1", long+"2", long+"3", "newest question")

	// Budget fits roughly one long message plus the newest.
	req := buildPrompt(config, config.SystemPrompt, history, 500)

	if len(req.Messages) == 0 {
		t.Fatalf("window must never be empty")
	}
	newest := req.Messages[len(req.Messages)-1]
	if newest.Content != "newest question" {
		t.Errorf("newest user message was dropped: last = %q", newest.Content)
	}
	if len(req.Messages) == len(history) {
		t.Errorf("expected oldest messages to be dropped")
	}
	// Whatever survives must be a suffix of history.
	offset := len(history) - len(req.Messages)
	for i, msg := range req.Messages {
		if msg.Content != history[offset+i].Content {
			t.Errorf("window is not a contiguous suffix at %d", i)
		}
	}
}

func TestBuildPrompt_KeepsNewestEvenWhenOverBudget(t *testing.T) {
	config := testAgentConfig()
	huge := strings.Repeat("x", 100000)
	history := historyOf(huge)

	req := buildPrompt(config, config.SystemPrompt, history, 500)
	if len(req.Messages) != 1 || req.Messages[0].Content != huge {
		t.Fatalf("the newest user message must always be kept")
	}
}

func TestBuildPrompt_ExcludesPersistedSystemMessages(t *testing.T) {
	config := testAgentConfig()
	sys := models.NewMessage(models.RoleSystem, models.TypeText, "legacy system row")
	history := append([]*models.Message{sys}, historyOf("hi")...)

	req := buildPrompt(config, config.SystemPrompt, history, 8000)
	for _, msg := range req.Messages {
		if msg.Role == models.RoleSystem {
			t.Errorf("system rows must travel in Request.System, not Messages")
		}
	}
}
