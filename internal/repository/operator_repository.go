package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"supportpilot/internal/entities"
)

type OperatorRepository struct {
	db *pgxpool.Pool
}

func NewOperatorRepository(db *pgxpool.Pool) *OperatorRepository {
	return &OperatorRepository{db: db}
}

func (r *OperatorRepository) Create(ctx context.Context, op *entities.Operator) error {
	_, err := r.db.Exec(ctx,
		"INSERT INTO operators (username, password_hash, role, org_id, is_active) VALUES ($1, $2, $3, $4, $5)",
		op.Username, op.PasswordHash, op.Role, op.OrgID, op.IsActive)
	return err
}

func (r *OperatorRepository) GetByUsername(ctx context.Context, username string) (*entities.Operator, error) {
	var op entities.Operator
	err := r.db.QueryRow(ctx,
		"SELECT id, username, password_hash, role, org_id, is_active, created_at FROM operators WHERE username = $1",
		username).Scan(&op.ID, &op.Username, &op.PasswordHash, &op.Role, &op.OrgID, &op.IsActive, &op.CreatedAt)

	if err == pgx.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}
	return &op, nil
}
