package provider

import (
	"context"
	"errors"
	"time"

	"github.com/hikevindiaz/linkai/internal/observability"
	"github.com/hikevindiaz/linkai/internal/retry"
)

// RetryingGateway wraps a Gateway with bounded retries for transient
// failures. Rate limits and timeouts are retried with exponential backoff;
// everything else is surfaced immediately.
type RetryingGateway struct {
	inner  Gateway
	config retry.Config
	logger *observability.Logger
}

// NewRetryingGateway wraps inner with the default retry policy: two retries
// after the initial attempt.
func NewRetryingGateway(inner Gateway, logger *observability.Logger) *RetryingGateway {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &RetryingGateway{
		inner:  inner,
		config: retry.Exponential(3, 500*time.Millisecond, 5*time.Second),
		logger: logger,
	}
}

func (g *RetryingGateway) Name() string { return g.inner.Name() }

func (g *RetryingGateway) Capabilities(model string) ModelCapabilities {
	return g.inner.Capabilities(model)
}

// Generate retries transient failures of the inner gateway.
func (g *RetryingGateway) Generate(ctx context.Context, req *Request) (*Result, error) {
	attempt := 0
	return retry.DoWithValue(ctx, g.config, func() (*Result, error) {
		attempt++
		result, err := g.inner.Generate(ctx, req)
		if err != nil {
			err = g.wrap(ctx, req, attempt, err)
		}
		return result, err
	})
}

// Stream retries transient failures that occur before the first chunk is
// delivered. Once tokens are flowing a failure is surfaced on the channel;
// replaying a half-delivered stream would duplicate output.
func (g *RetryingGateway) Stream(ctx context.Context, req *Request) (<-chan *Chunk, error) {
	attempt := 0
	return retry.DoWithValue(ctx, g.config, func() (<-chan *Chunk, error) {
		attempt++
		chunks, err := g.inner.Stream(ctx, req)
		if err != nil {
			err = g.wrap(ctx, req, attempt, err)
		}
		return chunks, err
	})
}

func (g *RetryingGateway) wrap(ctx context.Context, req *Request, attempt int, err error) error {
	var pe *Error
	if errors.As(err, &pe) && pe.Retryable() {
		g.logger.Warn(ctx, "provider request failed, retrying",
			"provider", g.Name(), "model", req.Model, "attempt", attempt, "kind", string(pe.Kind))
		return err
	}
	return retry.Permanent(err)
}

var _ Gateway = (*RetryingGateway)(nil)
