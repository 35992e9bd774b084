package entities

import "time"

type ConversationStatus string

const (
	ConversationActive    ConversationStatus = "active"
	ConversationEscalated ConversationStatus = "escalated"
	ConversationResolved  ConversationStatus = "resolved"
	ConversationArchived  ConversationStatus = "archived"
)

// Conversation groups the message history between one customer and one
// organization. At most one conversation per (org, customer) may be in
// {active, escalated} at a time; the partial unique index in the schema
// enforces this.
type Conversation struct {
	ID         string             `json:"id"`
	OrgID      string             `json:"org_id"`
	CustomerID string             `json:"customer_id"`
	SessionID  string             `json:"session_id"`
	Status     ConversationStatus `json:"status"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// IsOpen reports whether the conversation is still accepting bot traffic.
func (c *Conversation) IsOpen() bool {
	return c.Status == ConversationActive || c.Status == ConversationEscalated
}
