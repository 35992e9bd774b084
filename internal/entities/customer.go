package entities

import "time"

// CustomerProfile is created on the first message from an unknown phone
// within an organization. Order fields are maintained by external
// order-management tooling; this core only reads them.
type CustomerProfile struct {
	ID               string    `json:"id"`
	OrgID            string    `json:"org_id"`
	Phone            string    `json:"phone"` // unique per organization
	DisplayName      string    `json:"display_name,omitempty"`
	FirstSeenAt      time.Time `json:"first_seen_at"`
	OrderCount       int       `json:"order_count"`
	Tags             []string  `json:"tags,omitempty"`
	LastOrderSummary string    `json:"last_order_summary,omitempty"`
}

// UnknownCustomer is the synthetic profile used when a customer id cannot be
// resolved during context assembly.
func UnknownCustomer(phone string) *CustomerProfile {
	return &CustomerProfile{
		Phone:       phone,
		DisplayName: "Unknown customer",
	}
}
