package entities

import "time"

// ChatContext is the transient view assembled per pipeline invocation. It is
// owned by exactly one invocation and never persisted as a whole.
type ChatContext struct {
	ConversationHistory []ContextMessage  `json:"conversation_history"` // chronological ascending
	CustomerProfile     *CustomerProfile  `json:"customer_profile"`
	Session             *SessionMetadata  `json:"session_metadata"`
	Automation          *AutomationConfig `json:"automation_config"`
	RetrievalResults    []RetrievalResult `json:"retrieval_results"` // descending score
	PreviousBotAnswers  []BotAnswer       `json:"previous_bot_answers"`
}

// ContextMessage is one history turn as seen by the prompt. Immutable once
// created.
type ContextMessage struct {
	ID           string     `json:"id"`
	Timestamp    time.Time  `json:"timestamp"`
	Direction    Direction  `json:"direction"`
	SenderRole   SenderRole `json:"sender_role"`
	Text         string     `json:"text"`
	Media        *MediaDescriptor `json:"media,omitempty"`
	LinkedDocIDs []string   `json:"linked_doc_ids,omitempty"`
}

// RetrievalResult is one scored knowledge chunk. Produced fresh per query and
// never persisted; the persisted copy lives in document storage.
type RetrievalResult struct {
	DocID     string  `json:"doc_id"`
	Title     string  `json:"title"`
	SourceURL string  `json:"source_url,omitempty"`
	ChunkText string  `json:"chunk_text"`
	Score     float64 `json:"score"` // similarity in [0,1]
}

type AutomationScope string

const (
	ScopeAll    AutomationScope = "all"
	ScopeRepeat AutomationScope = "repeat"
	ScopeCustom AutomationScope = "custom"
)

// AutomationConfig is the per-organization automation policy. Read-only from
// the pipeline's perspective.
type AutomationConfig struct {
	OrgID           string          `json:"org_id"`
	Scope           AutomationScope `json:"scope"`
	FallbackMessage string          `json:"fallback_message"`
	EscalationRules []string        `json:"escalation_rules,omitempty"`
}

// BotAnswer summarizes a prior bot reply so the model can stay consistent
// with itself. Confirmed is carried for forward compatibility and is always
// false today.
type BotAnswer struct {
	MessageID  string    `json:"message_id"`
	Text       string    `json:"text"`
	Confidence *float64  `json:"confidence,omitempty"`
	Confirmed  bool      `json:"confirmed"`
	Timestamp  time.Time `json:"timestamp"`
}

// SessionMetadata describes the transport session a conversation is bound to,
// plus the business-hours flag computed at assembly time.
type SessionMetadata struct {
	SessionID           string `json:"session_id"`
	Connected           bool   `json:"connected"`
	WithinBusinessHours bool   `json:"within_business_hours"`
}
