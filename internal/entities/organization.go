package entities

import "time"

// Organization is a tenant. Settings live in a JSONB column; missing keys
// fall back to the defaults below when the row is read.
type Organization struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	SessionID string       `json:"session_id"` // current transport session
	Settings  *OrgSettings `json:"settings"`
	CreatedAt time.Time    `json:"created_at"`
}

// OrgSettings are the recognized per-organization configuration options.
type OrgSettings struct {
	RAGTopK             int            `json:"rag_top_k"`
	SimilarityThreshold float64        `json:"similarity_threshold"`
	ConfidenceThreshold float64        `json:"confidence_threshold"`
	MaxContextMessages  int            `json:"max_context_messages"`
	MaxContextDays      int            `json:"max_context_days"`
	MaxContextTokens    int            `json:"max_context_tokens"`
	FallbackMessage     string         `json:"fallback_message"`
	BusinessHours       *BusinessHours `json:"business_hours,omitempty"`
}

// BusinessHours maps weekday names (lowercase English, "monday".."sunday")
// to a daily window. A missing weekday means closed that day.
type BusinessHours struct {
	Enabled  bool                 `json:"enabled"`
	Timezone string               `json:"timezone"`
	Schedule map[string]DayWindow `json:"schedule"`
}

// DayWindow is an opening window in "HH:MM" 24h form. Boundaries are
// inclusive on both ends.
type DayWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

const DefaultFallbackMessage = "Thanks for reaching out! I want to make sure you get an accurate answer, so I'm connecting you with a member of our team. They'll be with you shortly."

// DefaultOrgSettings returns the settings applied when an organization has
// no stored configuration.
func DefaultOrgSettings() *OrgSettings {
	return &OrgSettings{
		RAGTopK:             5,
		SimilarityThreshold: 0.7,
		ConfidenceThreshold: 0.7,
		MaxContextMessages:  20,
		MaxContextDays:      7,
		MaxContextTokens:    4000,
		FallbackMessage:     DefaultFallbackMessage,
	}
}

// ApplyDefaults fills zero-valued fields with the stock defaults.
func (s *OrgSettings) ApplyDefaults() {
	d := DefaultOrgSettings()
	if s.RAGTopK <= 0 {
		s.RAGTopK = d.RAGTopK
	}
	if s.SimilarityThreshold <= 0 {
		s.SimilarityThreshold = d.SimilarityThreshold
	}
	if s.ConfidenceThreshold <= 0 {
		s.ConfidenceThreshold = d.ConfidenceThreshold
	}
	if s.MaxContextMessages <= 0 {
		s.MaxContextMessages = d.MaxContextMessages
	}
	if s.MaxContextDays <= 0 {
		s.MaxContextDays = d.MaxContextDays
	}
	if s.MaxContextTokens <= 0 {
		s.MaxContextTokens = d.MaxContextTokens
	}
	if s.FallbackMessage == "" {
		s.FallbackMessage = d.FallbackMessage
	}
}
