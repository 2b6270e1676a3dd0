package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hikevindiaz/linkai/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	thread_id     TEXT PRIMARY KEY,
	tenant_id     TEXT NOT NULL DEFAULT '',
	agent_id      TEXT NOT NULL DEFAULT '',
	channel       TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMP NOT NULL,
	last_activity TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL,
	thread_id  TEXT NOT NULL REFERENCES conversations(thread_id),
	role       TEXT NOT NULL,
	type       TEXT NOT NULL,
	content    TEXT NOT NULL,
	metadata   TEXT,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id, seq);
`

// SQLiteStore persists conversations in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and applies the
// schema. Use ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite handles one writer at a time; a larger pool just trades
	// contention for SQLITE_BUSY errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetOrCreate returns the thread's conversation, creating it on first contact.
func (s *SQLiteStore) GetOrCreate(ctx context.Context, cctx *models.ChannelContext) (*models.Conversation, error) {
	if err := cctx.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (thread_id, tenant_id, agent_id, channel, created_at, last_activity)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(thread_id) DO NOTHING`,
		cctx.ThreadID, cctx.TenantID, cctx.AgentID, string(cctx.ChannelType), now, now)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT thread_id, tenant_id, agent_id, channel, created_at, last_activity
		FROM conversations WHERE thread_id = ?`, cctx.ThreadID)

	var conv models.Conversation
	var channel string
	if err := row.Scan(&conv.ThreadID, &conv.TenantID, &conv.AgentID, &channel, &conv.CreatedAt, &conv.LastActivity); err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	conv.Channel = models.ChannelType(channel)
	return &conv, nil
}

// Append adds a message to the end of the thread's history.
func (s *SQLiteStore) Append(ctx context.Context, threadID string, msg *models.Message) error {
	if msg == nil {
		return ErrNilMessage
	}

	var metadata []byte
	if len(msg.Metadata) > 0 {
		var err error
		metadata, err = json.Marshal(msg.Metadata)
		if err != nil {
			return fmt.Errorf("encode message metadata: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`UPDATE conversations SET last_activity = ? WHERE thread_id = ?`, now, threadID)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	if affected == 0 {
		return ErrThreadNotFound
	}

	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, thread_id, role, type, content, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, threadID, string(msg.Role), string(msg.Type), msg.Content, metadata, createdAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	return tx.Commit()
}

// History returns the thread's messages oldest-first.
func (s *SQLiteStore) History(ctx context.Context, threadID string, limit int) ([]*models.Message, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM conversations WHERE thread_id = ?`, threadID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check conversation: %w", err)
	}
	if exists == 0 {
		return nil, ErrThreadNotFound
	}

	query := `
		SELECT id, role, type, content, metadata, created_at
		FROM messages WHERE thread_id = ? ORDER BY seq ASC`
	args := []any{threadID}
	if limit > 0 {
		// Take the newest limit rows, then flip back to oldest-first.
		query = `
			SELECT id, role, type, content, metadata, created_at FROM (
				SELECT seq, id, role, type, content, metadata, created_at
				FROM messages WHERE thread_id = ? ORDER BY seq DESC LIMIT ?
			) ORDER BY seq ASC`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var history []*models.Message
	for rows.Next() {
		var msg models.Message
		var role, msgType string
		var metadata sql.NullString
		if err := rows.Scan(&msg.ID, &role, &msgType, &msg.Content, &metadata, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.ThreadID = threadID
		msg.Role = models.Role(role)
		msg.Type = models.MessageType(msgType)
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &msg.Metadata); err != nil {
				return nil, fmt.Errorf("decode message metadata: %w", err)
			}
		}
		history = append(history, &msg)
	}
	return history, rows.Err()
}

// Touch advances the last-activity cursor.
func (s *SQLiteStore) Touch(ctx context.Context, threadID string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET last_activity = ?
		WHERE thread_id = ? AND last_activity < ?`, at.UTC(), threadID, at.UTC())
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	if affected == 0 {
		var exists int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM conversations WHERE thread_id = ?`, threadID).Scan(&exists); err != nil {
			return fmt.Errorf("check conversation: %w", err)
		}
		if exists == 0 {
			return ErrThreadNotFound
		}
	}
	return nil
}

var _ Store = (*SQLiteStore)(nil)
var _ Store = (*MemoryStore)(nil)
var _ Store = (*LockingStore)(nil)
