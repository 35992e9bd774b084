package entities

import "time"

type EscalationStatus string

const (
	EscalationPending    EscalationStatus = "pending"
	EscalationAssigned   EscalationStatus = "assigned"
	EscalationInProgress EscalationStatus = "in_progress"
	EscalationResolved   EscalationStatus = "resolved"
	// EscalationDismissed is reserved. No operation currently transitions an
	// escalation into it; kept in the enum pending product clarification.
	EscalationDismissed EscalationStatus = "dismissed"
)

// Escalation is a ticket handing a conversation to a human operator.
type Escalation struct {
	ID             string           `json:"id"`
	OrgID          string           `json:"org_id"`
	ConversationID string           `json:"conversation_id"`
	CustomerID     string           `json:"customer_id"`
	Reason         string           `json:"reason"`
	Status         EscalationStatus `json:"status"`
	AssignedTo     string           `json:"assigned_to,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	ResolvedAt     *time.Time       `json:"resolved_at,omitempty"`
}
