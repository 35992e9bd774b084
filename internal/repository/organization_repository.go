package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"supportpilot/internal/entities"
)

type OrganizationRepository struct {
	db *pgxpool.Pool
}

func NewOrganizationRepository(db *pgxpool.Pool) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// GetByID loads an organization with defaults applied to its settings.
// Unknown ids return (nil, nil).
func (r *OrganizationRepository) GetByID(ctx context.Context, orgID string) (*entities.Organization, error) {
	var org entities.Organization
	var settings []byte
	err := r.db.QueryRow(ctx,
		"SELECT id, name, session_id, COALESCE(settings, 'null'), created_at FROM organizations WHERE id = $1",
		orgID).Scan(&org.ID, &org.Name, &org.SessionID, &settings, &org.CreatedAt)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	org.Settings = entities.DefaultOrgSettings()
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, org.Settings); err == nil {
			org.Settings.ApplyDefaults()
		}
	}
	return &org, nil
}

func (r *OrganizationRepository) Create(ctx context.Context, org *entities.Organization) error {
	settings, err := json.Marshal(org.Settings)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		"INSERT INTO organizations (id, name, session_id, settings) VALUES ($1, $2, $3, $4)",
		org.ID, org.Name, org.SessionID, settings)
	return err
}
