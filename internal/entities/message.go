package entities

import "time"

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type SenderRole string

const (
	RoleCustomer SenderRole = "customer"
	RoleAgent    SenderRole = "agent"
	RoleBot      SenderRole = "bot"
)

// Message is a persisted conversation turn. Rows are append-only and never
// mutated after insert.
type Message struct {
	ID             string           `json:"id"`
	ConversationID string           `json:"conversation_id"`
	Direction      Direction        `json:"direction"`
	SenderRole     SenderRole       `json:"sender_role"`
	Text           string           `json:"text"`
	Media          *MediaDescriptor `json:"media,omitempty"`
	LLMConfidence  *float64         `json:"llm_confidence,omitempty"` // only set for bot-authored messages
	LinkedDocIDs   []string         `json:"linked_doc_ids,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// MediaDescriptor records that a message carried media. Bytes are not stored.
type MediaDescriptor struct {
	Type     string `json:"type"`
	Filename string `json:"filename,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

// InboundMessage is what a transport adapter hands to the pipeline.
type InboundMessage struct {
	ID            string
	From          string // phone identifier, transport suffixes already stripped
	Body          string
	Timestamp     time.Time
	HasMedia      bool
	MediaType     string
	MediaFilename string
	MediaMimeType string
}
