package provider

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/hikevindiaz/linkai/internal/observability"
	"github.com/hikevindiaz/linkai/pkg/models"
)

// GoogleGateway backs the gateway with the Gemini API.
type GoogleGateway struct {
	client *genai.Client
	logger *observability.Logger
}

// NewGoogleGateway creates a gateway using the given API key.
func NewGoogleGateway(ctx context.Context, apiKey string, logger *observability.Logger) (*GoogleGateway, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GoogleGateway{client: client, logger: logger}, nil
}

func (g *GoogleGateway) Name() string { return "google" }

// Capabilities reports model limits. Gemini models share a 1M-token window.
func (g *GoogleGateway) Capabilities(model string) ModelCapabilities {
	return ModelCapabilities{MaxContextTokens: 1000000, MaxOutputTokens: 8192, Streaming: true, Tools: true}
}

func (g *GoogleGateway) buildRequest(req *Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	r := *req
	if adjusted := clampRequest(&r, g.Capabilities(r.Model), 2.0); len(adjusted) > 0 {
		g.logger.Warn(context.Background(), "clamped request parameters",
			"provider", g.Name(), "model", r.Model, "adjusted", adjusted)
	}

	contents := make([]*genai.Content, 0, len(r.Messages))
	for _, m := range r.Messages {
		role := genai.RoleUser
		if m.Role == models.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(r.MaxTokens),
		Temperature:     genai.Ptr(r.Temperature),
	}
	if r.System != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: r.System}}}
	}
	return contents, config
}

func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String()
}

// Generate performs a blocking completion.
func (g *GoogleGateway) Generate(ctx context.Context, req *Request) (*Result, error) {
	contents, config := g.buildRequest(req)
	resp, err := g.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return nil, Classify(g.Name(), req.Model, err)
	}

	result := &Result{Text: collectText(resp)}
	if resp.UsageMetadata != nil {
		result.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return result, nil
}

// Stream performs a streaming completion.
func (g *GoogleGateway) Stream(ctx context.Context, req *Request) (<-chan *Chunk, error) {
	contents, config := g.buildRequest(req)

	chunks := make(chan *Chunk)
	go func() {
		defer close(chunks)

		var inputTokens, outputTokens int
		for resp, err := range g.client.Models.GenerateContentStream(ctx, req.Model, contents, config) {
			if err != nil {
				chunks <- &Chunk{Err: Classify(g.Name(), req.Model, err)}
				return
			}
			if resp.UsageMetadata != nil {
				inputTokens = int(resp.UsageMetadata.PromptTokenCount)
				outputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
			}
			if text := collectText(resp); text != "" {
				select {
				case chunks <- &Chunk{Text: text}:
				case <-ctx.Done():
					chunks <- &Chunk{Err: Classify(g.Name(), req.Model, ctx.Err())}
					return
				}
			}
		}
		chunks <- &Chunk{Done: true, InputTokens: inputTokens, OutputTokens: outputTokens}
	}()
	return chunks, nil
}

var _ Gateway = (*GoogleGateway)(nil)
