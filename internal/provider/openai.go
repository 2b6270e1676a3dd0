package provider

import (
	"context"
	"errors"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hikevindiaz/linkai/internal/observability"
	"github.com/hikevindiaz/linkai/pkg/models"
)

// OpenAIGateway backs the gateway with the OpenAI chat completions API.
type OpenAIGateway struct {
	client *openai.Client
	logger *observability.Logger
}

// NewOpenAIGateway creates a gateway using the given API key.
func NewOpenAIGateway(apiKey string, logger *observability.Logger) *OpenAIGateway {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &OpenAIGateway{
		client: openai.NewClient(apiKey),
		logger: logger,
	}
}

func (g *OpenAIGateway) Name() string { return "openai" }

// Capabilities reports model limits. Unknown models fall back to a
// conservative default.
func (g *OpenAIGateway) Capabilities(model string) ModelCapabilities {
	switch model {
	case openai.GPT4o, openai.GPT4oMini:
		return ModelCapabilities{MaxContextTokens: 128000, MaxOutputTokens: 16384, Streaming: true, Tools: true}
	case openai.GPT4Turbo:
		return ModelCapabilities{MaxContextTokens: 128000, MaxOutputTokens: 4096, Streaming: true, Tools: true}
	case openai.GPT3Dot5Turbo:
		return ModelCapabilities{MaxContextTokens: 16385, MaxOutputTokens: 4096, Streaming: true, Tools: true}
	default:
		return ModelCapabilities{MaxContextTokens: 16000, MaxOutputTokens: 4096, Streaming: true}
	}
}

func (g *OpenAIGateway) buildRequest(req *Request) openai.ChatCompletionRequest {
	r := *req
	if adjusted := clampRequest(&r, g.Capabilities(r.Model), 2.0); len(adjusted) > 0 {
		g.logger.Warn(context.Background(), "clamped request parameters",
			"provider", g.Name(), "model", r.Model, "adjusted", adjusted)
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(r.Messages)+1)
	if r.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: r.System,
		})
	}
	for _, m := range r.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == models.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	return openai.ChatCompletionRequest{
		Model:       r.Model,
		Messages:    messages,
		Temperature: r.Temperature,
		MaxTokens:   r.MaxTokens,
	}
}

// Generate performs a blocking completion.
func (g *OpenAIGateway) Generate(ctx context.Context, req *Request) (*Result, error) {
	resp, err := g.client.CreateChatCompletion(ctx, g.buildRequest(req))
	if err != nil {
		return nil, Classify(g.Name(), req.Model, err)
	}
	if len(resp.Choices) == 0 {
		return nil, &Error{Kind: KindUnavailable, Provider: g.Name(), Model: req.Model, Message: "no choices returned"}
	}
	return &Result{
		Text:         resp.Choices[0].Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// Stream performs a streaming completion.
func (g *OpenAIGateway) Stream(ctx context.Context, req *Request) (<-chan *Chunk, error) {
	apiReq := g.buildRequest(req)
	apiReq.Stream = true
	apiReq.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

	stream, err := g.client.CreateChatCompletionStream(ctx, apiReq)
	if err != nil {
		return nil, Classify(g.Name(), req.Model, err)
	}

	chunks := make(chan *Chunk)
	go func() {
		defer close(chunks)
		defer stream.Close()

		var inputTokens, outputTokens int
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				chunks <- &Chunk{Done: true, InputTokens: inputTokens, OutputTokens: outputTokens}
				return
			}
			if err != nil {
				chunks <- &Chunk{Err: Classify(g.Name(), req.Model, err)}
				return
			}
			if resp.Usage != nil {
				inputTokens = resp.Usage.PromptTokens
				outputTokens = resp.Usage.CompletionTokens
			}
			if len(resp.Choices) == 0 {
				continue
			}
			if delta := resp.Choices[0].Delta.Content; delta != "" {
				select {
				case chunks <- &Chunk{Text: delta}:
				case <-ctx.Done():
					chunks <- &Chunk{Err: Classify(g.Name(), req.Model, ctx.Err())}
					return
				}
			}
		}
	}()
	return chunks, nil
}

var _ Gateway = (*OpenAIGateway)(nil)
