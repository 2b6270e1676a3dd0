package channels

import (
	"io"
	"net/http"

	"github.com/hikevindiaz/linkai/internal/observability"
	"github.com/hikevindiaz/linkai/internal/runtime"
	"github.com/hikevindiaz/linkai/pkg/models"
)

// WebhookHandler drives one webhook-style adapter end to end: decode the
// payload, process the message, deliver the reply back over the channel.
// Errors are rendered as the tenant-configured error message, never as raw
// provider text. Used by the SMS, WhatsApp and voice channels; web has its
// own handler because replies travel on the same HTTP response.
func WebhookHandler(adapter Adapter, processor Processor, logger *observability.Logger) http.HandlerFunc {
	if logger == nil {
		logger = observability.NopLogger()
	}

	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
		if err != nil {
			http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
			return
		}

		msg, cctx, err := adapter.HandleIncoming(r.Context(), payload)
		if err != nil {
			logger.Warn(r.Context(), "webhook decode failed", "channel", string(adapter.Type()), "error", err)
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}

		ctx := observability.WithThreadID(r.Context(), cctx.ThreadID)
		ctx = observability.WithChannel(ctx, string(cctx.ChannelType))

		reply, err := processor.ProcessMessage(ctx, msg, cctx, nil)
		if err != nil {
			if runtime.IsCapabilityError(err) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			logger.Error(ctx, "message processing failed", "error", err)
			reply = models.NewMessage(models.RoleAssistant, models.TypeText, processor.ErrorReply(ctx, cctx.AgentID))
			reply.ThreadID = cctx.ThreadID
		}

		if err := adapter.SendOutgoing(ctx, reply, cctx); err != nil {
			logger.Error(ctx, "outbound delivery failed", "error", err)
			http.Error(w, "delivery failed", http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
