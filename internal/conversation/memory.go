package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/hikevindiaz/linkai/pkg/models"
)

const defaultMaxMessages = 1000

// MemoryStore is an in-memory Store for local runs and tests.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*models.Conversation
	messages      map[string][]*models.Message
	maxMessages   int
}

// NewMemoryStore creates an in-memory store. maxMessages bounds per-thread
// history; zero or negative means the default of 1000.
func NewMemoryStore(maxMessages int) *MemoryStore {
	if maxMessages <= 0 {
		maxMessages = defaultMaxMessages
	}
	return &MemoryStore{
		conversations: make(map[string]*models.Conversation),
		messages:      make(map[string][]*models.Message),
		maxMessages:   maxMessages,
	}
}

// GetOrCreate returns the thread's conversation, creating it on first contact.
func (s *MemoryStore) GetOrCreate(ctx context.Context, cctx *models.ChannelContext) (*models.Conversation, error) {
	if err := cctx.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if conv, ok := s.conversations[cctx.ThreadID]; ok {
		clone := *conv
		return &clone, nil
	}

	now := time.Now()
	conv := &models.Conversation{
		ThreadID:     cctx.ThreadID,
		TenantID:     cctx.TenantID,
		AgentID:      cctx.AgentID,
		Channel:      cctx.ChannelType,
		CreatedAt:    now,
		LastActivity: now,
	}
	s.conversations[cctx.ThreadID] = conv

	clone := *conv
	return &clone, nil
}

// Append adds a message to the end of the thread's history.
func (s *MemoryStore) Append(ctx context.Context, threadID string, msg *models.Message) error {
	if msg == nil {
		return ErrNilMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[threadID]
	if !ok {
		return ErrThreadNotFound
	}

	stored := cloneMessage(msg)
	stored.ThreadID = threadID
	history := append(s.messages[threadID], stored)

	// Trim oldest messages when the bound is exceeded.
	if len(history) > s.maxMessages {
		history = history[len(history)-s.maxMessages:]
	}
	s.messages[threadID] = history
	conv.LastActivity = time.Now()
	return nil
}

// History returns the thread's messages oldest-first.
func (s *MemoryStore) History(ctx context.Context, threadID string, limit int) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.conversations[threadID]; !ok {
		return nil, ErrThreadNotFound
	}

	history := s.messages[threadID]
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}

	out := make([]*models.Message, len(history))
	for i, msg := range history {
		out[i] = cloneMessage(msg)
	}
	return out, nil
}

// Touch advances the last-activity cursor.
func (s *MemoryStore) Touch(ctx context.Context, threadID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[threadID]
	if !ok {
		return ErrThreadNotFound
	}
	if at.After(conv.LastActivity) {
		conv.LastActivity = at
	}
	return nil
}
