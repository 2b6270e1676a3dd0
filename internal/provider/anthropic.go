package provider

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hikevindiaz/linkai/internal/observability"
	"github.com/hikevindiaz/linkai/pkg/models"
)

// AnthropicGateway backs the gateway with the Anthropic Messages API.
type AnthropicGateway struct {
	client anthropic.Client
	logger *observability.Logger
}

// NewAnthropicGateway creates a gateway using the given API key.
func NewAnthropicGateway(apiKey string, logger *observability.Logger) *AnthropicGateway {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &AnthropicGateway{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		logger: logger,
	}
}

func (g *AnthropicGateway) Name() string { return "anthropic" }

// Capabilities reports model limits. All current Claude models share the
// same context window.
func (g *AnthropicGateway) Capabilities(model string) ModelCapabilities {
	return ModelCapabilities{MaxContextTokens: 200000, MaxOutputTokens: 8192, Streaming: true, Tools: true}
}

func (g *AnthropicGateway) buildParams(req *Request) anthropic.MessageNewParams {
	r := *req
	if adjusted := clampRequest(&r, g.Capabilities(r.Model), 1.0); len(adjusted) > 0 {
		g.logger.Warn(context.Background(), "clamped request parameters",
			"provider", g.Name(), "model", r.Model, "adjusted", adjusted)
	}

	messages := make([]anthropic.MessageParam, 0, len(r.Messages))
	for _, m := range r.Messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == models.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(r.Model),
		Messages:    messages,
		MaxTokens:   int64(r.MaxTokens),
		Temperature: anthropic.Float(float64(r.Temperature)),
	}
	if r.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: r.System}}
	}
	return params
}

// Generate performs a blocking completion.
func (g *AnthropicGateway) Generate(ctx context.Context, req *Request) (*Result, error) {
	msg, err := g.client.Messages.New(ctx, g.buildParams(req))
	if err != nil {
		return nil, Classify(g.Name(), req.Model, err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return &Result{
		Text:         text,
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}, nil
}

// Stream performs a streaming completion.
func (g *AnthropicGateway) Stream(ctx context.Context, req *Request) (<-chan *Chunk, error) {
	stream := g.client.Messages.NewStreaming(ctx, g.buildParams(req))

	chunks := make(chan *Chunk)
	go func() {
		defer close(chunks)
		defer stream.Close()

		var inputTokens, outputTokens int
		for stream.Next() {
			event := stream.Current()
			switch event.Type {
			case "message_start":
				inputTokens = int(event.AsMessageStart().Message.Usage.InputTokens)
			case "content_block_delta":
				delta := event.AsContentBlockDelta().Delta
				if delta.Type == "text_delta" && delta.Text != "" {
					select {
					case chunks <- &Chunk{Text: delta.Text}:
					case <-ctx.Done():
						chunks <- &Chunk{Err: Classify(g.Name(), req.Model, ctx.Err())}
						return
					}
				}
			case "message_delta":
				outputTokens = int(event.AsMessageDelta().Usage.OutputTokens)
			}
		}
		if err := stream.Err(); err != nil {
			chunks <- &Chunk{Err: Classify(g.Name(), req.Model, err)}
			return
		}
		chunks <- &Chunk{Done: true, InputTokens: inputTokens, OutputTokens: outputTokens}
	}()
	return chunks, nil
}

var _ Gateway = (*AnthropicGateway)(nil)
