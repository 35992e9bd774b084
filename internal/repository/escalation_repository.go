package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"supportpilot/internal/entities"
)

type EscalationRepository struct {
	db *pgxpool.Pool
}

func NewEscalationRepository(db *pgxpool.Pool) *EscalationRepository {
	return &EscalationRepository{db: db}
}

const escalationColumns = "id, org_id, conversation_id, customer_id, reason, status, COALESCE(assigned_to, ''), created_at, resolved_at"

func (r *EscalationRepository) Insert(ctx context.Context, esc *entities.Escalation) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO escalations (id, org_id, conversation_id, customer_id, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		esc.ID, esc.OrgID, esc.ConversationID, esc.CustomerID, esc.Reason, esc.Status, esc.CreatedAt)
	return err
}

func (r *EscalationRepository) GetByID(ctx context.Context, escalationID string) (*entities.Escalation, error) {
	var e entities.Escalation
	err := r.db.QueryRow(ctx,
		"SELECT "+escalationColumns+" FROM escalations WHERE id = $1",
		escalationID).
		Scan(&e.ID, &e.OrgID, &e.ConversationID, &e.CustomerID, &e.Reason, &e.Status, &e.AssignedTo, &e.CreatedAt, &e.ResolvedAt)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EscalationRepository) Update(ctx context.Context, esc *entities.Escalation) error {
	var assigned *string
	if esc.AssignedTo != "" {
		assigned = &esc.AssignedTo
	}
	_, err := r.db.Exec(ctx,
		"UPDATE escalations SET status = $1, assigned_to = $2, resolved_at = $3 WHERE id = $4",
		esc.Status, assigned, esc.ResolvedAt, esc.ID)
	return err
}

func (r *EscalationRepository) ListByStatus(ctx context.Context, orgID string, status entities.EscalationStatus) ([]entities.Escalation, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+escalationColumns+" FROM escalations WHERE org_id = $1 AND status = $2 ORDER BY created_at DESC",
		orgID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	escalations := []entities.Escalation{}
	for rows.Next() {
		var e entities.Escalation
		if err := rows.Scan(&e.ID, &e.OrgID, &e.ConversationID, &e.CustomerID, &e.Reason, &e.Status, &e.AssignedTo, &e.CreatedAt, &e.ResolvedAt); err != nil {
			return nil, err
		}
		escalations = append(escalations, e)
	}
	return escalations, rows.Err()
}
