// Package stream enforces the single-writer rule for conversation threads
// and tracks in-flight generations so they can be cancelled.
package stream

import (
	"errors"
	"strings"
	"sync"

	"github.com/hikevindiaz/linkai/pkg/models"
)

var (
	// ErrConversationBusy is returned when a thread already has an
	// in-flight generation.
	ErrConversationBusy = errors.New("stream: conversation busy")

	// ErrCancelled is returned by Complete when the generation was
	// cancelled mid-flight; the partial turn was already finalized.
	ErrCancelled = errors.New("stream: generation cancelled")
)

// Listener receives generation progress. OnToken fires per streamed token;
// exactly one of OnComplete or OnError fires last.
type Listener interface {
	OnToken(token string)
	OnComplete(msg *models.Message)
	OnError(err error)
}

// NopListener discards all events.
type NopListener struct{}

func (NopListener) OnToken(string)             {}
func (NopListener) OnComplete(*models.Message) {}
func (NopListener) OnError(error)              {}

// FinalizeFunc persists a finished (or partial) assistant message.
type FinalizeFunc func(msg *models.Message) error

type genState int

const (
	stateGenerating genState = iota
	stateCancelled
	stateDone
)

// Controller admits at most one generation per thread.
type Controller struct {
	mu     sync.Mutex
	active map[string]*Generation
}

// NewController creates an idle controller.
func NewController() *Controller {
	return &Controller{active: make(map[string]*Generation)}
}

// Begin reserves the thread's generation slot. It fails with
// ErrConversationBusy if a generation is already in flight.
func (c *Controller) Begin(threadID string, listener Listener, finalize FinalizeFunc) (*Generation, error) {
	if listener == nil {
		listener = NopListener{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.active[threadID]; busy {
		return nil, ErrConversationBusy
	}

	gen := &Generation{
		controller: c,
		threadID:   threadID,
		listener:   listener,
		finalize:   finalize,
	}
	c.active[threadID] = gen
	return gen, nil
}

// Busy reports whether the thread has an in-flight generation.
func (c *Controller) Busy(threadID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, busy := c.active[threadID]
	return busy
}

// Cancel stops the thread's in-flight generation, finalizes the tokens
// accumulated so far as a partial assistant turn, and fires OnComplete.
// Cancelling an idle thread is a no-op; it returns whether a generation was
// actually cancelled.
func (c *Controller) Cancel(threadID string) bool {
	c.mu.Lock()
	gen, ok := c.active[threadID]
	c.mu.Unlock()
	if !ok {
		return false
	}
	return gen.cancel()
}

func (c *Controller) release(threadID string, gen *Generation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active[threadID] == gen {
		delete(c.active, threadID)
	}
}

// Generation is one in-flight assistant turn. Methods are safe for
// concurrent use with Cancel, but Feed/Complete/Fail are expected to be
// driven by a single producer goroutine.
type Generation struct {
	controller *Controller
	threadID   string
	listener   Listener
	finalize   FinalizeFunc

	// dispatchMu serializes listener delivery so a terminal OnComplete or
	// OnError is never followed by a late OnToken.
	dispatchMu sync.Mutex

	mu           sync.Mutex
	buf          strings.Builder
	state        genState
	inputTokens  int
	outputTokens int
	partial      *models.Message
}

// ThreadID returns the owning thread.
func (g *Generation) ThreadID() string { return g.threadID }

// Feed appends a token and forwards it to the listener. It returns false
// once the generation has been cancelled; the producer should stop.
func (g *Generation) Feed(token string) bool {
	g.dispatchMu.Lock()
	defer g.dispatchMu.Unlock()

	g.mu.Lock()
	if g.state != stateGenerating {
		g.mu.Unlock()
		return false
	}
	g.buf.WriteString(token)
	g.mu.Unlock()

	g.listener.OnToken(token)
	return true
}

// SetText replaces the accumulator without notifying the listener. The
// non-streaming path uses it when the full text arrives at once; the
// listener sees only the terminal OnComplete. It returns false once the
// generation has been cancelled.
func (g *Generation) SetText(text string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != stateGenerating {
		return false
	}
	g.buf.Reset()
	g.buf.WriteString(text)
	return true
}

// PartialMessage returns the partial turn finalized by a cancel, or nil if
// the generation was not cancelled.
func (g *Generation) PartialMessage() *models.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.partial
}

// SetUsage records token counts from the provider's terminal chunk.
func (g *Generation) SetUsage(inputTokens, outputTokens int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inputTokens = inputTokens
	g.outputTokens = outputTokens
}

// Complete finalizes the full assistant turn: persists it, fires
// OnComplete, and frees the thread's slot. If the generation was cancelled
// first, Complete is a no-op returning ErrCancelled. A persistence failure
// fires OnError instead of OnComplete and is returned to the caller.
func (g *Generation) Complete() (*models.Message, error) {
	g.mu.Lock()
	if g.state == stateCancelled {
		g.mu.Unlock()
		return nil, ErrCancelled
	}
	if g.state == stateDone {
		g.mu.Unlock()
		return nil, errors.New("stream: generation already finished")
	}
	g.state = stateDone
	msg := g.buildMessageLocked(false)
	g.mu.Unlock()

	defer g.controller.release(g.threadID, g)

	g.dispatchMu.Lock()
	defer g.dispatchMu.Unlock()

	if g.finalize != nil {
		if err := g.finalize(msg); err != nil {
			g.listener.OnError(err)
			return nil, err
		}
	}
	g.listener.OnComplete(msg)
	return msg, nil
}

// Fail aborts the generation. Nothing is persisted; OnError fires and the
// thread's slot is freed.
func (g *Generation) Fail(err error) {
	g.mu.Lock()
	if g.state != stateGenerating {
		g.mu.Unlock()
		return
	}
	g.state = stateDone
	g.mu.Unlock()

	g.controller.release(g.threadID, g)

	g.dispatchMu.Lock()
	defer g.dispatchMu.Unlock()
	g.listener.OnError(err)
}

func (g *Generation) cancel() bool {
	g.mu.Lock()
	if g.state != stateGenerating {
		g.mu.Unlock()
		return false
	}
	g.state = stateCancelled
	msg := g.buildMessageLocked(true)
	g.partial = msg
	g.mu.Unlock()

	g.controller.release(g.threadID, g)

	g.dispatchMu.Lock()
	defer g.dispatchMu.Unlock()

	// Persist only if tokens were actually produced; an empty partial
	// turn carries no information.
	if g.finalize != nil && msg.Content != "" {
		if err := g.finalize(msg); err != nil {
			g.listener.OnError(err)
			return true
		}
	}
	g.listener.OnComplete(msg)
	return true
}

func (g *Generation) buildMessageLocked(partial bool) *models.Message {
	msg := models.NewMessage(models.RoleAssistant, models.TypeText, g.buf.String())
	msg.ThreadID = g.threadID
	if partial {
		msg.MarkPartial()
	}
	if g.inputTokens > 0 || g.outputTokens > 0 {
		if msg.Metadata == nil {
			msg.Metadata = map[string]any{}
		}
		msg.Metadata["input_tokens"] = g.inputTokens
		msg.Metadata["output_tokens"] = g.outputTokens
	}
	return msg
}
