package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"supportpilot/internal/entities"
)

type AutomationRepository struct {
	db *pgxpool.Pool
}

func NewAutomationRepository(db *pgxpool.Pool) *AutomationRepository {
	return &AutomationRepository{db: db}
}

// GetByOrg returns (nil, nil) when the organization has no automation row;
// the assembler substitutes the stock defaults in that case.
func (r *AutomationRepository) GetByOrg(ctx context.Context, orgID string) (*entities.AutomationConfig, error) {
	var a entities.AutomationConfig
	err := r.db.QueryRow(ctx,
		"SELECT org_id, scope, fallback_message, escalation_rules FROM automations WHERE org_id = $1",
		orgID).Scan(&a.OrgID, &a.Scope, &a.FallbackMessage, &a.EscalationRules)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AutomationRepository) Upsert(ctx context.Context, a *entities.AutomationConfig) error {
	rules := a.EscalationRules
	if rules == nil {
		rules = []string{}
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO automations (org_id, scope, fallback_message, escalation_rules, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (org_id) DO UPDATE SET
			scope = EXCLUDED.scope,
			fallback_message = EXCLUDED.fallback_message,
			escalation_rules = EXCLUDED.escalation_rules,
			updated_at = NOW()`,
		a.OrgID, a.Scope, a.FallbackMessage, rules)
	return err
}
