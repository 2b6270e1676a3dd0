// Package runtime orchestrates message processing: validation, persistence,
// retrieval-augmented prompt assembly, provider invocation, and response
// delivery through the streaming session controller.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hikevindiaz/linkai/internal/conversation"
	"github.com/hikevindiaz/linkai/internal/knowledge"
	"github.com/hikevindiaz/linkai/internal/observability"
	"github.com/hikevindiaz/linkai/internal/provider"
	"github.com/hikevindiaz/linkai/internal/stream"
	"github.com/hikevindiaz/linkai/pkg/models"
)

const (
	defaultRetrievalLimit  = 5
	defaultProviderTimeout = 60 * time.Second
)

// ConfigSource resolves agent configuration. Implementations return an
// immutable snapshot; edits become visible only to subsequent calls.
type ConfigSource interface {
	AgentConfig(ctx context.Context, agentID string) (*models.AgentConfig, error)
}

// StaticConfigSource serves agent configs from a fixed map.
type StaticConfigSource map[string]*models.AgentConfig

func (s StaticConfigSource) AgentConfig(ctx context.Context, agentID string) (*models.AgentConfig, error) {
	config, ok := s[agentID]
	if !ok {
		return nil, fmt.Errorf("agent %q not configured", agentID)
	}
	return config.Clone(), nil
}

// Options configures optional runtime collaborators.
type Options struct {
	Retriever      knowledge.Retriever
	Logger         *observability.Logger
	Metrics        *observability.Metrics
	RetrievalLimit int
}

// Runtime binds agent configuration to provider gateways and drives one
// message exchange end to end. It is safe for concurrent use.
type Runtime struct {
	configs        ConfigSource
	store          conversation.Store
	providers      *provider.Registry
	controller     *stream.Controller
	retriever      knowledge.Retriever
	logger         *observability.Logger
	metrics        *observability.Metrics
	retrievalLimit int
}

// New creates a runtime. store must already enforce per-thread append
// serialization (see conversation.LockingStore).
func New(configs ConfigSource, store conversation.Store, providers *provider.Registry, opts Options) *Runtime {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}
	limit := opts.RetrievalLimit
	if limit <= 0 {
		limit = defaultRetrievalLimit
	}
	return &Runtime{
		configs:        configs,
		store:          store,
		providers:      providers,
		controller:     stream.NewController(),
		retriever:      opts.Retriever,
		logger:         logger,
		metrics:        opts.Metrics,
		retrievalLimit: limit,
	}
}

// ProcessMessage runs one exchange: validates the inbound user message,
// persists it, assembles a grounded prompt, invokes the provider (streaming
// when the listener and channel allow it), persists the assistant reply and
// returns it.
//
// A cancelled generation is not an error: the partial assistant message is
// returned with its partial flag set. A concurrent call for the same thread
// fails with stream.ErrConversationBusy and persists nothing.
func (r *Runtime) ProcessMessage(ctx context.Context, msg *models.Message, cctx *models.ChannelContext, listener stream.Listener) (*models.Message, error) {
	if err := cctx.Validate(); err != nil {
		return nil, err
	}
	if msg == nil || msg.Content == "" {
		return nil, errors.New("message content is required")
	}
	if msg.Role != models.RoleUser {
		return nil, fmt.Errorf("inbound message must have role %q, got %q", models.RoleUser, msg.Role)
	}
	if err := checkCapabilities(msg, cctx); err != nil {
		return nil, err
	}

	ctx = observability.WithThreadID(ctx, cctx.ThreadID)
	ctx = observability.WithChannel(ctx, string(cctx.ChannelType))
	ctx = observability.WithTenantID(ctx, cctx.TenantID)

	config, err := r.configs.AgentConfig(ctx, cctx.AgentID)
	if err != nil {
		return nil, err
	}
	if !config.EnabledOn(cctx.ChannelType) {
		return nil, &CapabilityError{Channel: cctx.ChannelType, Reason: "channel not enabled for this agent"}
	}

	gateway, err := r.providers.Get(config.Provider)
	if err != nil {
		return nil, err
	}

	// Reserve the thread's generation slot before touching the store: a
	// busy rejection must leave the transcript untouched.
	gen, err := r.controller.Begin(cctx.ThreadID, listener, func(assistant *models.Message) error {
		if err := r.store.Append(ctx, cctx.ThreadID, assistant); err != nil {
			return &PersistenceError{Op: "assistant append", Err: err}
		}
		if r.metrics != nil {
			r.metrics.MessageCounter.WithLabelValues(string(cctx.ChannelType), "outbound").Inc()
		}
		return nil
	})
	if err != nil {
		if r.metrics != nil && errors.Is(err, stream.ErrConversationBusy) {
			r.metrics.BusyRejections.WithLabelValues(string(cctx.ChannelType)).Inc()
		}
		return nil, err
	}

	if r.metrics != nil {
		r.metrics.ActiveGenerations.WithLabelValues(string(cctx.ChannelType)).Inc()
		defer r.metrics.ActiveGenerations.WithLabelValues(string(cctx.ChannelType)).Dec()
	}

	if err := r.persistInbound(ctx, msg, cctx); err != nil {
		gen.Fail(err)
		return nil, err
	}

	history, err := r.store.History(ctx, cctx.ThreadID, 0)
	if err != nil {
		err = &PersistenceError{Op: "history read", Err: err}
		gen.Fail(err)
		return nil, err
	}

	system := buildSystemPrompt(config, r.retrieve(ctx, msg.Content, config))
	req := buildPrompt(config, system, history, gateway.Capabilities(config.Model).MaxContextTokens)

	timeout := config.ProviderTimeout
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	useStreaming := listener != nil && cctx.Capabilities.Streaming && gateway.Capabilities(config.Model).Streaming

	start := time.Now()
	var assistant *models.Message
	if useStreaming {
		assistant, err = r.generateStreaming(pctx, gateway, req, gen, cancel)
	} else {
		assistant, err = r.generateBlocking(pctx, gateway, req, gen)
	}
	r.observeProvider(config, time.Since(start), assistant, err)

	if err != nil {
		r.logger.Error(ctx, "generation failed", "provider", config.Provider, "model", config.Model, "error", err)
		return nil, err
	}
	if assistant.IsPartial() {
		r.logger.Info(ctx, "generation cancelled, partial turn persisted", "length", len(assistant.Content))
	}
	return assistant, nil
}

// Cancel stops the thread's in-flight generation. Idle threads are a no-op.
func (r *Runtime) Cancel(threadID string) bool {
	cancelled := r.controller.Cancel(threadID)
	if cancelled && r.metrics != nil {
		r.metrics.CancelledGenerations.Inc()
	}
	return cancelled
}

// Busy reports whether the thread has an in-flight generation.
func (r *Runtime) Busy(threadID string) bool {
	return r.controller.Busy(threadID)
}

// WelcomeMessage opens the thread's conversation and persists and returns
// the agent's configured greeting. It returns nil when the agent has no
// welcome message; the thread open still registers as activity.
func (r *Runtime) WelcomeMessage(ctx context.Context, cctx *models.ChannelContext) (*models.Message, error) {
	if err := cctx.Validate(); err != nil {
		return nil, err
	}
	config, err := r.configs.AgentConfig(ctx, cctx.AgentID)
	if err != nil {
		return nil, err
	}

	if _, err := r.store.GetOrCreate(ctx, cctx); err != nil {
		return nil, &PersistenceError{Op: "conversation create", Err: err}
	}
	if config.WelcomeMessage == "" {
		// No greeting to append; advance the activity cursor directly.
		if err := r.store.Touch(ctx, cctx.ThreadID, time.Now()); err != nil {
			return nil, &PersistenceError{Op: "conversation touch", Err: err}
		}
		return nil, nil
	}

	welcome := models.NewMessage(models.RoleAssistant, models.TypeText, config.WelcomeMessage)
	welcome.ThreadID = cctx.ThreadID
	if err := r.store.Append(ctx, cctx.ThreadID, welcome); err != nil {
		return nil, &PersistenceError{Op: "welcome append", Err: err}
	}
	if r.metrics != nil {
		r.metrics.MessageCounter.WithLabelValues(string(cctx.ChannelType), "outbound").Inc()
	}
	return welcome, nil
}

// ErrorReply returns the agent's configured user-facing error message.
// Adapters render this instead of raw provider errors.
func (r *Runtime) ErrorReply(ctx context.Context, agentID string) string {
	config, err := r.configs.AgentConfig(ctx, agentID)
	if err != nil {
		return (&models.AgentConfig{}).RenderError()
	}
	return config.RenderError()
}

func checkCapabilities(msg *models.Message, cctx *models.ChannelContext) error {
	switch msg.Type {
	case models.TypeText, "":
	case models.TypeAudioTranscript:
		if !cctx.Capabilities.Audio {
			return &CapabilityError{Channel: cctx.ChannelType, Reason: "audio transcripts not supported"}
		}
	default:
		return &CapabilityError{Channel: cctx.ChannelType, Reason: fmt.Sprintf("message type %q not supported", msg.Type)}
	}
	return nil
}

func (r *Runtime) persistInbound(ctx context.Context, msg *models.Message, cctx *models.ChannelContext) error {
	if _, err := r.store.GetOrCreate(ctx, cctx); err != nil {
		return &PersistenceError{Op: "conversation create", Err: err}
	}
	if err := r.store.Append(ctx, cctx.ThreadID, msg); err != nil {
		return &PersistenceError{Op: "inbound append", Err: err}
	}
	if r.metrics != nil {
		r.metrics.MessageCounter.WithLabelValues(string(cctx.ChannelType), "inbound").Inc()
	}
	return nil
}

// retrieve is best-effort: failures degrade to an unaugmented prompt.
func (r *Runtime) retrieve(ctx context.Context, query string, config *models.AgentConfig) []knowledge.Snippet {
	if r.retriever == nil || len(config.KnowledgeSourceIDs) == 0 {
		return nil
	}
	snippets, err := r.retriever.Retrieve(ctx, query, config.KnowledgeSourceIDs, r.retrievalLimit)
	if err != nil {
		r.logger.Warn(ctx, "knowledge retrieval failed, continuing without augmentation", "error", err)
		if r.metrics != nil {
			r.metrics.RetrievalFailures.Inc()
		}
		return nil
	}
	return snippets
}

func (r *Runtime) generateBlocking(ctx context.Context, gateway provider.Gateway, req *provider.Request, gen *stream.Generation) (*models.Message, error) {
	result, err := gateway.Generate(ctx, req)
	if err != nil {
		gen.Fail(err)
		return nil, err
	}

	if !gen.SetText(result.Text) {
		// Cancelled while the provider call was in flight.
		return gen.PartialMessage(), nil
	}
	gen.SetUsage(result.InputTokens, result.OutputTokens)
	return r.complete(gen)
}

func (r *Runtime) generateStreaming(ctx context.Context, gateway provider.Gateway, req *provider.Request, gen *stream.Generation, abort context.CancelFunc) (*models.Message, error) {
	chunks, err := gateway.Stream(ctx, req)
	if err != nil {
		gen.Fail(err)
		return nil, err
	}

	for chunk := range chunks {
		if chunk.Err != nil {
			gen.Fail(chunk.Err)
			return nil, chunk.Err
		}
		if chunk.Done {
			gen.SetUsage(chunk.InputTokens, chunk.OutputTokens)
			break
		}
		if !gen.Feed(chunk.Text) {
			// Cancelled: stop the provider and drain the channel so the
			// producer goroutine can exit.
			abort()
			go func() {
				for range chunks {
				}
			}()
			return gen.PartialMessage(), nil
		}
	}
	return r.complete(gen)
}

func (r *Runtime) complete(gen *stream.Generation) (*models.Message, error) {
	assistant, err := gen.Complete()
	if errors.Is(err, stream.ErrCancelled) {
		return gen.PartialMessage(), nil
	}
	if err != nil {
		return nil, err
	}
	return assistant, nil
}

func (r *Runtime) observeProvider(config *models.AgentConfig, elapsed time.Duration, assistant *models.Message, err error) {
	if r.metrics == nil {
		return
	}
	r.metrics.ProviderRequestDuration.WithLabelValues(config.Provider, config.Model).Observe(elapsed.Seconds())

	status := "success"
	if err != nil {
		status = "error"
	}
	r.metrics.ProviderRequestCounter.WithLabelValues(config.Provider, config.Model, status).Inc()

	if assistant != nil && assistant.Metadata != nil {
		if in, ok := assistant.Metadata["input_tokens"].(int); ok {
			r.metrics.ProviderTokensUsed.WithLabelValues(config.Provider, config.Model, "prompt").Add(float64(in))
		}
		if out, ok := assistant.Metadata["output_tokens"].(int); ok {
			r.metrics.ProviderTokensUsed.WithLabelValues(config.Provider, config.Model, "completion").Add(float64(out))
		}
	}
}
