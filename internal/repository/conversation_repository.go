package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"supportpilot/internal/entities"
)

type ConversationRepository struct {
	db *pgxpool.Pool
}

func NewConversationRepository(db *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: db}
}

const conversationColumns = "id, org_id, customer_id, session_id, status, created_at, updated_at"

// UpsertOpen returns the customer's open conversation, creating an active
// one when none exists. The insert targets the partial unique index on open
// conversations, which makes resolve-or-create atomic under concurrent
// inbound messages. An existing escalated conversation is returned as-is.
func (r *ConversationRepository) UpsertOpen(ctx context.Context, orgID, customerID, sessionID string) (*entities.Conversation, error) {
	var c entities.Conversation
	err := r.db.QueryRow(ctx, `
		INSERT INTO conversations (id, org_id, customer_id, session_id, status)
		VALUES ($1, $2, $3, $4, 'active')
		ON CONFLICT (org_id, customer_id) WHERE status IN ('active', 'escalated')
		DO UPDATE SET updated_at = NOW()
		RETURNING `+conversationColumns,
		uuid.NewString(), orgID, customerID, sessionID).
		Scan(&c.ID, &c.OrgID, &c.CustomerID, &c.SessionID, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ConversationRepository) GetByID(ctx context.Context, conversationID string) (*entities.Conversation, error) {
	var c entities.Conversation
	err := r.db.QueryRow(ctx,
		"SELECT "+conversationColumns+" FROM conversations WHERE id = $1",
		conversationID).
		Scan(&c.ID, &c.OrgID, &c.CustomerID, &c.SessionID, &c.Status, &c.CreatedAt, &c.UpdatedAt)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ConversationRepository) SetStatus(ctx context.Context, conversationID string, status entities.ConversationStatus) error {
	_, err := r.db.Exec(ctx,
		"UPDATE conversations SET status = $1, updated_at = NOW() WHERE id = $2",
		status, conversationID)
	return err
}
