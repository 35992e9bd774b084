package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"supportpilot/internal/entities"
	"supportpilot/internal/interfaces"
)

// EscalationManager owns the escalation ticket lifecycle:
// pending → {assigned, in_progress} → resolved. No transition may skip
// pending, and creating or resolving a ticket also flips the parent
// conversation's status.
type EscalationManager struct {
	escalations   interfaces.EscalationStore
	conversations interfaces.ConversationStore
}

func NewEscalationManager(escalations interfaces.EscalationStore, conversations interfaces.ConversationStore) *EscalationManager {
	return &EscalationManager{escalations: escalations, conversations: conversations}
}

// Create opens a pending escalation and marks the conversation escalated so
// the pipeline mutes itself until a human resolves it.
func (m *EscalationManager) Create(ctx context.Context, orgID, conversationID, customerID, reason string) (*entities.Escalation, error) {
	esc := &entities.Escalation{
		ID:             uuid.NewString(),
		OrgID:          orgID,
		ConversationID: conversationID,
		CustomerID:     customerID,
		Reason:         reason,
		Status:         entities.EscalationPending,
		CreatedAt:      time.Now().UTC(),
	}

	if err := m.escalations.Insert(ctx, esc); err != nil {
		return nil, fmt.Errorf("create escalation: %w", err)
	}

	if err := m.conversations.SetStatus(ctx, conversationID, entities.ConversationEscalated); err != nil {
		return nil, fmt.Errorf("mark conversation escalated: %w", err)
	}

	log.WithFields(log.Fields{
		"escalation_id":   esc.ID,
		"conversation_id": conversationID,
		"org_id":          orgID,
	}).Info("escalation created")
	return esc, nil
}

// Takeover assigns the ticket to an operator and moves it to in_progress.
// Unknown ids return (nil, nil).
func (m *EscalationManager) Takeover(ctx context.Context, escalationID, operator string) (*entities.Escalation, error) {
	esc, err := m.escalations.GetByID(ctx, escalationID)
	if err != nil || esc == nil {
		return nil, err
	}

	esc.Status = entities.EscalationInProgress
	esc.AssignedTo = operator
	if err := m.escalations.Update(ctx, esc); err != nil {
		return nil, fmt.Errorf("takeover escalation: %w", err)
	}

	log.WithFields(log.Fields{"escalation_id": esc.ID, "operator": operator}).Info("escalation taken over")
	return esc, nil
}

// Resolve closes the ticket and hands the conversation back to the bot.
// Unknown ids return (nil, nil).
func (m *EscalationManager) Resolve(ctx context.Context, escalationID string) (*entities.Escalation, error) {
	esc, err := m.escalations.GetByID(ctx, escalationID)
	if err != nil || esc == nil {
		return nil, err
	}

	now := time.Now().UTC()
	esc.Status = entities.EscalationResolved
	esc.ResolvedAt = &now
	if err := m.escalations.Update(ctx, esc); err != nil {
		return nil, fmt.Errorf("resolve escalation: %w", err)
	}

	// Reactivate only conversations still parked in escalated: one that was
	// archived or resolved in the meantime must stay closed.
	conv, err := m.conversations.GetByID(ctx, esc.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if conv != nil && conv.Status == entities.ConversationEscalated {
		if err := m.conversations.SetStatus(ctx, esc.ConversationID, entities.ConversationActive); err != nil {
			return nil, fmt.Errorf("reactivate conversation: %w", err)
		}
	}

	log.WithField("escalation_id", esc.ID).Info("escalation resolved")
	return esc, nil
}

// ListByStatus is a read-through for the operator API.
func (m *EscalationManager) ListByStatus(ctx context.Context, orgID string, status entities.EscalationStatus) ([]entities.Escalation, error) {
	return m.escalations.ListByStatus(ctx, orgID, status)
}
