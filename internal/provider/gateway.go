// Package provider abstracts LLM backends behind a uniform gateway
// interface with normalized errors, streaming, and capability reporting.
package provider

import (
	"context"

	"github.com/hikevindiaz/linkai/pkg/models"
)

// PromptMessage is one turn of the prompt sent to a backend.
type PromptMessage struct {
	Role    models.Role
	Content string
}

// Request is a normalized completion request. The gateway translates it to
// the backend's native shape.
type Request struct {
	Model       string
	System      string
	Messages    []PromptMessage
	Temperature float32
	MaxTokens   int
}

// Result is a completed, non-streaming generation.
type Result struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Chunk is one streaming increment. A terminal chunk has Done set; token
// usage is only populated on the terminal chunk. Err is set instead of Done
// when the stream fails mid-flight.
type Chunk struct {
	Text         string
	Done         bool
	Err          error
	InputTokens  int
	OutputTokens int
}

// ModelCapabilities describes what a model supports.
type ModelCapabilities struct {
	MaxContextTokens int
	MaxOutputTokens  int
	Streaming        bool
	Tools            bool
}

// Gateway is a provider backend. Implementations must normalize backend
// failures into *Error so the caller can classify them.
type Gateway interface {
	// Name returns the provider identifier (e.g. "openai").
	Name() string

	// Generate performs a blocking completion.
	Generate(ctx context.Context, req *Request) (*Result, error)

	// Stream performs a streaming completion. The returned channel is
	// closed after a terminal chunk (Done or Err) is delivered. Cancelling
	// ctx aborts the stream.
	Stream(ctx context.Context, req *Request) (<-chan *Chunk, error)

	// Capabilities reports limits for a model. Unknown models get
	// conservative defaults rather than an error.
	Capabilities(model string) ModelCapabilities
}

// clampRequest bounds temperature and max tokens to what the model accepts,
// returning what was adjusted so the caller can log it.
func clampRequest(req *Request, caps ModelCapabilities, maxTemp float32) (adjusted []string) {
	if req.Temperature < 0 {
		req.Temperature = 0
		adjusted = append(adjusted, "temperature")
	} else if req.Temperature > maxTemp {
		req.Temperature = maxTemp
		adjusted = append(adjusted, "temperature")
	}
	if caps.MaxOutputTokens > 0 && req.MaxTokens > caps.MaxOutputTokens {
		req.MaxTokens = caps.MaxOutputTokens
		adjusted = append(adjusted, "max_tokens")
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = 1024
	}
	return adjusted
}
