// Package conversation provides durable, append-only per-thread message
// history with a mutable last-activity cursor.
package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/hikevindiaz/linkai/pkg/models"
)

var (
	// ErrThreadNotFound is returned when a thread does not exist.
	ErrThreadNotFound = errors.New("conversation: thread not found")

	// ErrNilMessage is returned when a nil message is appended.
	ErrNilMessage = errors.New("conversation: message is required")
)

// Store is the interface for conversation persistence.
//
// Appends for one thread must be externally serialized by the caller (see
// LockingStore); the store itself only guarantees that insertion order is
// preserved and immutable once written.
type Store interface {
	// GetOrCreate returns the conversation for the context's thread,
	// creating it lazily on first contact.
	GetOrCreate(ctx context.Context, cctx *models.ChannelContext) (*models.Conversation, error)

	// Append adds a message to the end of the thread's history and
	// advances the last-activity cursor.
	Append(ctx context.Context, threadID string, msg *models.Message) error

	// History returns messages oldest-first. A positive limit returns only
	// the most recent limit messages (still oldest-first).
	History(ctx context.Context, threadID string, limit int) ([]*models.Message, error)

	// Touch advances the last-activity cursor without appending.
	Touch(ctx context.Context, threadID string, at time.Time) error
}

func cloneMessage(msg *models.Message) *models.Message {
	if msg == nil {
		return nil
	}
	clone := *msg
	if msg.Metadata != nil {
		clone.Metadata = make(map[string]any, len(msg.Metadata))
		for k, v := range msg.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}
