package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"supportpilot/internal/entities"
)

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// Insert appends one turn. Messages are never updated after this.
func (r *MessageRepository) Insert(ctx context.Context, msg *entities.Message) error {
	var media []byte
	if msg.Media != nil {
		var err error
		if media, err = json.Marshal(msg.Media); err != nil {
			return err
		}
	}

	linked := msg.LinkedDocIDs
	if linked == nil {
		linked = []string{}
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, direction, sender_role, text, media, llm_confidence, linked_doc_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		msg.ID, msg.ConversationID, msg.Direction, msg.SenderRole, msg.Text, media, msg.LLMConfidence, linked, msg.CreatedAt)
	return err
}

// History returns at most limit messages newer than since, oldest first. The
// query walks newest-first so the row cap keeps the most recent turns, then
// the slice is reversed into chronological order.
func (r *MessageRepository) History(ctx context.Context, conversationID string, since time.Time, limit int) ([]entities.Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, conversation_id, direction, sender_role, text, media, llm_confidence, linked_doc_ids, created_at
		FROM messages
		WHERE conversation_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT $3`,
		conversationID, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// RecentBotMessages returns up to limit bot-authored messages, newest first.
func (r *MessageRepository) RecentBotMessages(ctx context.Context, conversationID string, limit int) ([]entities.Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, conversation_id, direction, sender_role, text, media, llm_confidence, linked_doc_ids, created_at
		FROM messages
		WHERE conversation_id = $1 AND sender_role = 'bot'
		ORDER BY created_at DESC
		LIMIT $2`,
		conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanMessages(rows rowScanner) ([]entities.Message, error) {
	msgs := []entities.Message{}
	for rows.Next() {
		var m entities.Message
		var media []byte
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Direction, &m.SenderRole, &m.Text, &media, &m.LLMConfidence, &m.LinkedDocIDs, &m.CreatedAt); err != nil {
			return nil, err
		}
		if len(media) > 0 {
			var d entities.MediaDescriptor
			if json.Unmarshal(media, &d) == nil {
				m.Media = &d
			}
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
