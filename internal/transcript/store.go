// Package transcript persists chat conversations and messages to
// PostgreSQL for long-term history. The store is nil-safe: with no
// database configured every operation is a no-op.
package transcript

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message roles.
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// Store persists conversations and messages.
type Store struct {
	db *sql.DB
}

// NewStore creates a transcript store. A nil db yields a nil store, which
// is safe to call.
func NewStore(db *sql.DB) *Store {
	if db == nil {
		return nil
	}
	return &Store{db: db}
}

// ConversationRecord represents a conversation row.
type ConversationRecord struct {
	ID               uuid.UUID
	ConversationID   string
	Status           string
	MessageCount     int
	UserMessageCount int
	BotMessageCount  int
	StartedAt        time.Time
	LastMessageAt    *time.Time
	EndedAt          *time.Time
}

// MessageRecord represents one transcript line.
type MessageRecord struct {
	ID             uuid.UUID
	ConversationID string
	Role           string
	Content        string
	CreatedAt      time.Time
}

// EnsureConversation creates the conversation row if missing and returns
// its UUID.
func (s *Store) EnsureConversation(ctx context.Context, conversationID string) (uuid.UUID, error) {
	if s == nil || s.db == nil {
		return uuid.Nil, nil
	}

	var existingID uuid.UUID
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM conversations WHERE conversation_id = $1`,
		conversationID,
	).Scan(&existingID)
	if err == nil {
		return existingID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("transcript: failed to check existing: %w", err)
	}

	newID := uuid.New()
	now := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (
			id, conversation_id, status,
			message_count, user_message_count, bot_message_count,
			started_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $7, $7)
	`, newID, conversationID, "active", 0, 0, 0, now)
	if err != nil {
		// another process may have created it first
		if strings.Contains(err.Error(), "duplicate key") {
			return s.EnsureConversation(ctx, conversationID)
		}
		return uuid.Nil, fmt.Errorf("transcript: failed to create: %w", err)
	}
	return newID, nil
}

// AppendMessage persists one transcript line and bumps the conversation
// counters.
func (s *Store) AppendMessage(ctx context.Context, conversationID, role, content string) error {
	if s == nil || s.db == nil {
		return nil
	}
	if _, err := s.EnsureConversation(ctx, conversationID); err != nil {
		return err
	}

	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_messages (
			id, conversation_id, role, content, created_at
		) VALUES ($1, $2, $3, $4, $5)
	`, uuid.New(), conversationID, role, content, now)
	if err != nil {
		return fmt.Errorf("transcript: failed to insert message: %w", err)
	}

	counterColumn := "bot_message_count"
	if role == RoleUser {
		counterColumn = "user_message_count"
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE conversations SET
			message_count = message_count + 1,
			%s = %s + 1,
			last_message_at = $1,
			updated_at = $1
		WHERE conversation_id = $2
	`, counterColumn, counterColumn), now, conversationID)
	if err != nil {
		return fmt.Errorf("transcript: failed to update counters: %w", err)
	}
	return nil
}

// EndConversation marks a conversation as ended.
func (s *Store) EndConversation(ctx context.Context, conversationID string) error {
	if s == nil || s.db == nil {
		return nil
	}
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET
			status = 'ended',
			ended_at = $1,
			updated_at = $1
		WHERE conversation_id = $2 AND ended_at IS NULL
	`, now, conversationID)
	if err != nil {
		return fmt.Errorf("transcript: failed to end conversation: %w", err)
	}
	return nil
}

// History returns up to limit transcript lines in chronological order.
func (s *Store) History(ctx context.Context, conversationID string, limit int) ([]MessageRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, created_at
		FROM conversation_messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
		LIMIT $2
	`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("transcript: failed to query history: %w", err)
	}
	defer rows.Close()

	var out []MessageRecord
	for rows.Next() {
		var msg MessageRecord
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("transcript: failed to scan message: %w", err)
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("transcript: failed to read history: %w", err)
	}
	return out, nil
}

// GetConversation retrieves a conversation by its public id, nil when not
// found.
func (s *Store) GetConversation(ctx context.Context, conversationID string) (*ConversationRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}

	var conv ConversationRecord
	var lastMessageAt, endedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, status,
			   message_count, user_message_count, bot_message_count,
			   started_at, last_message_at, ended_at
		FROM conversations
		WHERE conversation_id = $1
	`, conversationID).Scan(
		&conv.ID, &conv.ConversationID, &conv.Status,
		&conv.MessageCount, &conv.UserMessageCount, &conv.BotMessageCount,
		&conv.StartedAt, &lastMessageAt, &endedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("transcript: failed to load conversation: %w", err)
	}
	if lastMessageAt.Valid {
		conv.LastMessageAt = &lastMessageAt.Time
	}
	if endedAt.Valid {
		conv.EndedAt = &endedAt.Time
	}
	return &conv, nil
}
