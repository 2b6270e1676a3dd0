// Package channels defines the adapter contract between channel-native
// transports and the agent runtime, plus shared helpers (registry,
// chunking) used by the per-channel implementations.
package channels

import (
	"context"

	"github.com/hikevindiaz/linkai/internal/stream"
	"github.com/hikevindiaz/linkai/pkg/models"
)

// Processor is the slice of the agent runtime that adapters delegate to.
// Adapters never call the knowledge retriever or provider gateways
// directly; they translate payloads and hand off here.
type Processor interface {
	ProcessMessage(ctx context.Context, msg *models.Message, cctx *models.ChannelContext, listener stream.Listener) (*models.Message, error)
	Cancel(threadID string) bool
	WelcomeMessage(ctx context.Context, cctx *models.ChannelContext) (*models.Message, error)
	ErrorReply(ctx context.Context, agentID string) string
}

// Adapter translates between one channel's wire format and the canonical
// message model.
type Adapter interface {
	// Type returns the channel this adapter serves.
	Type() models.ChannelType

	// Capabilities returns the channel's fixed capability declaration. It
	// is validated once at registration and never derived per call.
	Capabilities() models.Capabilities

	// HandleIncoming decodes a channel-native payload into a canonical
	// message and its channel context. The adapter owns the channel's
	// thread-identity scheme.
	HandleIncoming(ctx context.Context, payload []byte) (*models.Message, *models.ChannelContext, error)

	// SendOutgoing delivers an assistant message back over the channel,
	// chunking to the channel's length limit where needed. Channels
	// without streaming support transmit the full message once.
	SendOutgoing(ctx context.Context, msg *models.Message, cctx *models.ChannelContext) error
}
