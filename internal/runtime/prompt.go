package runtime

import (
	"strings"

	"github.com/hikevindiaz/linkai/internal/knowledge"
	"github.com/hikevindiaz/linkai/internal/provider"
	"github.com/hikevindiaz/linkai/pkg/models"
)

// estimateTokens approximates token count from character length. Four
// characters per token is a workable cross-provider estimate for English
// text; the window policy only needs to be roughly right, the provider
// enforces the hard limit.
func estimateTokens(s string) int {
	return len(s)/4 + 1
}

// buildSystemPrompt renders the agent's system prompt with retrieved
// knowledge appended.
func buildSystemPrompt(config *models.AgentConfig, snippets []knowledge.Snippet) string {
	if len(snippets) == 0 {
		return config.SystemPrompt
	}

	var sb strings.Builder
	sb.WriteString(config.SystemPrompt)
	sb.WriteString("\n\nUse the following knowledge to answer when relevant:\n")
	for _, snippet := range snippets {
		sb.WriteString("- ")
		sb.WriteString(snippet.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

// buildPrompt assembles the provider request from history. History is
// expected oldest-first with the newest user message last. When the token
// estimate exceeds the model's context window, the oldest messages are
// dropped first; the system prompt and the newest user message are never
// dropped.
func buildPrompt(config *models.AgentConfig, system string, history []*models.Message, maxContextTokens int) *provider.Request {
	budget := maxContextTokens
	if budget <= 0 {
		budget = 8192
	}
	// Reserve room for the reply.
	budget -= config.MaxTokens
	budget -= estimateTokens(system)

	// Walk newest to oldest, keeping messages while they fit. The newest
	// message is always kept even if it alone blows the budget.
	keepFrom := len(history)
	used := 0
	for i := len(history) - 1; i >= 0; i-- {
		cost := estimateTokens(history[i].Content)
		if used+cost > budget && keepFrom < len(history) {
			break
		}
		used += cost
		keepFrom = i
	}

	messages := make([]provider.PromptMessage, 0, len(history)-keepFrom)
	for _, msg := range history[keepFrom:] {
		if msg.Role == models.RoleSystem {
			continue
		}
		messages = append(messages, provider.PromptMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	return &provider.Request{
		Model:       config.Model,
		System:      system,
		Messages:    messages,
		Temperature: config.Temperature,
		MaxTokens:   config.MaxTokens,
	}
}
