package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/hikevindiaz/linkai/internal/channels"
	"github.com/hikevindiaz/linkai/internal/runtime"
	"github.com/hikevindiaz/linkai/internal/stream"
	"github.com/hikevindiaz/linkai/pkg/models"
)

// Handler serves the web chat endpoints. POST /threads opens a fresh
// thread; POST /messages processes a message (streaming over SSE when the
// client sends Accept: text/event-stream); POST /cancel stops an in-flight
// generation.
type Handler struct {
	adapter   *Adapter
	processor channels.Processor
}

// NewHandler creates the web chat handler.
func NewHandler(adapter *Adapter, processor channels.Processor) *Handler {
	return &Handler{adapter: adapter, processor: processor}
}

// Routes registers the handler's endpoints on mux under prefix.
func (h *Handler) Routes(mux *http.ServeMux, prefix string) {
	mux.HandleFunc("POST "+prefix+"/threads", h.handleNewThread)
	mux.HandleFunc("POST "+prefix+"/messages", h.handleMessage)
	mux.HandleFunc("POST "+prefix+"/cancel", h.handleCancel)
}

// handleNewThread opens a fresh thread and returns the agent's welcome
// message, if one is configured.
func (h *Handler) handleNewThread(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		TenantID string `json:"tenant_id"`
	}
	// An empty body is fine; the thread ID is generated server-side.
	json.NewDecoder(r.Body).Decode(&payload)

	cctx := h.adapter.Context("", payload.TenantID)
	welcome, err := h.processor.WelcomeMessage(r.Context(), cctx)
	if err != nil {
		h.writeError(w, r, cctx, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"thread_id": cctx.ThreadID,
		"message":   welcome,
	})
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
		return
	}

	msg, cctx, err := h.adapter.HandleIncoming(r.Context(), body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		h.streamResponse(w, r, msg, cctx)
		return
	}
	h.jsonResponse(w, r, msg, cctx)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ThreadID string `json:"thread_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.ThreadID == "" {
		http.Error(w, "thread_id is required", http.StatusBadRequest)
		return
	}

	cancelled := h.processor.Cancel(payload.ThreadID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"cancelled": cancelled})
}

func (h *Handler) jsonResponse(w http.ResponseWriter, r *http.Request, msg *models.Message, cctx *models.ChannelContext) {
	// Non-streaming: suppress the streaming capability so the runtime
	// takes the blocking path.
	cctx.Capabilities.Streaming = false

	reply, err := h.processor.ProcessMessage(r.Context(), msg, cctx, nil)
	if err != nil {
		h.writeError(w, r, cctx, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"thread_id": cctx.ThreadID,
		"message":   reply,
	})
}

func (h *Handler) streamResponse(w http.ResponseWriter, r *http.Request, msg *models.Message, cctx *models.ChannelContext) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writer := &sseWriter{
		w:            w,
		flusher:      flusher,
		errorMessage: h.processor.ErrorReply(r.Context(), cctx.AgentID),
	}
	writer.event("thread", map[string]string{"thread_id": cctx.ThreadID})

	if _, err := h.processor.ProcessMessage(r.Context(), msg, cctx, writer); err != nil {
		// Generation failures already emitted a terminal event through the
		// listener; busy rejections and validation failures arrive here
		// without one.
		if !writer.sawTerminal() {
			reason := "failed"
			if errors.Is(err, stream.ErrConversationBusy) {
				reason = "busy"
			}
			writer.event("error", map[string]string{"error": reason, "message": writer.errorMessage})
		}
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, cctx *models.ChannelContext, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, stream.ErrConversationBusy):
		status = http.StatusConflict
	case runtime.IsCapabilityError(err):
		status = http.StatusBadRequest
	}

	// Tenant-configured message, never raw provider text.
	message := h.processor.ErrorReply(r.Context(), cctx.AgentID)
	if runtime.IsCapabilityError(err) {
		message = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// sseWriter forwards generation events as server-sent events. It satisfies
// stream.Listener; events are serialized under a mutex because the
// controller may fire the terminal event from another goroutine on cancel.
type sseWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher

	// errorMessage is the tenant-configured text rendered instead of raw
	// provider errors.
	errorMessage string
	terminal     bool
}

func (s *sseWriter) event(name string, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	encoded, err := json.Marshal(data)
	if err != nil {
		return
	}
	io.WriteString(s.w, "event: "+name+"\n")
	io.WriteString(s.w, "data: "+string(encoded)+"\n\n")
	s.flusher.Flush()
}

func (s *sseWriter) OnToken(token string) {
	s.event("token", map[string]string{"text": token})
}

func (s *sseWriter) OnComplete(msg *models.Message) {
	s.markTerminal()
	s.event("done", map[string]any{
		"message": msg,
		"partial": msg.IsPartial(),
	})
}

func (s *sseWriter) OnError(err error) {
	s.markTerminal()
	s.event("error", map[string]string{"error": "failed", "message": s.errorMessage})
}

func (s *sseWriter) markTerminal() {
	s.mu.Lock()
	s.terminal = true
	s.mu.Unlock()
}

func (s *sseWriter) sawTerminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminal
}

var _ stream.Listener = (*sseWriter)(nil)
