package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"supportpilot/internal/entities"
)

type CustomerRepository struct {
	db *pgxpool.Pool
}

func NewCustomerRepository(db *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{db: db}
}

const customerColumns = "id, org_id, phone, COALESCE(display_name, ''), first_seen_at, order_count, tags, COALESCE(last_order_summary, '')"

// Upsert resolves or creates a customer by (org, phone) in one statement so
// two messages from a new customer racing each other resolve to the same
// row.
func (r *CustomerRepository) Upsert(ctx context.Context, orgID, phone string) (*entities.CustomerProfile, error) {
	var c entities.CustomerProfile
	err := r.db.QueryRow(ctx, `
		INSERT INTO customers (id, org_id, phone)
		VALUES ($1, $2, $3)
		ON CONFLICT (org_id, phone) DO UPDATE SET phone = EXCLUDED.phone
		RETURNING `+customerColumns,
		uuid.NewString(), orgID, phone).
		Scan(&c.ID, &c.OrgID, &c.Phone, &c.DisplayName, &c.FirstSeenAt, &c.OrderCount, &c.Tags, &c.LastOrderSummary)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CustomerRepository) GetByID(ctx context.Context, customerID string) (*entities.CustomerProfile, error) {
	var c entities.CustomerProfile
	err := r.db.QueryRow(ctx,
		"SELECT "+customerColumns+" FROM customers WHERE id = $1",
		customerID).
		Scan(&c.ID, &c.OrgID, &c.Phone, &c.DisplayName, &c.FirstSeenAt, &c.OrderCount, &c.Tags, &c.LastOrderSummary)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
