package interfaces

import (
	"context"
	"time"

	"supportpilot/internal/entities"
)

// Transport carries messages to and from customers. SendMessage must fail
// loudly when the underlying session is not in a ready state. SendComposing
// is cosmetic and therefore best-effort.
type Transport interface {
	SendMessage(ctx context.Context, to, text string) error
	SendComposing(to string)
	IsReady() bool
}

// LLMRequest is the request contract for the language-model collaborator.
type LLMRequest struct {
	SystemPrompt string
	Messages     []LLMMessage
	Temperature  float64
	MaxTokens    int
}

type LLMMessage struct {
	Role    string // "user" or "assistant"
	Content string
}

type LLMResponse struct {
	Content string
	Usage   TokenUsage
}

type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// LLMClient is the language-model collaborator.
type LLMClient interface {
	Complete(ctx context.Context, req *LLMRequest) (*LLMResponse, error)
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorHit is one raw nearest-neighbor candidate before enrichment.
type VectorHit struct {
	ChunkID string
	Score   float64 // similarity in [0,1]
	Text    string
	DocID   string
	Title   string
}

// VectorIndex is the vector-search collaborator.
type VectorIndex interface {
	Search(ctx context.Context, orgID string, embedding []float32, topK int) ([]VectorHit, error)
}

// SessionDirectory reports transport session state per organization.
type SessionDirectory interface {
	IsConnected(orgID string) bool
}

// TransportProvider resolves the outbound transport for an organization.
type TransportProvider interface {
	TransportFor(orgID string) (Transport, error)
}

// Storage ports. The pgx implementations live in internal/repository;
// "not found" is reported as (nil, nil) rather than an error.

type OrganizationStore interface {
	GetByID(ctx context.Context, orgID string) (*entities.Organization, error)
}

type CustomerStore interface {
	// Upsert resolves or creates a customer atomically by (orgID, phone).
	Upsert(ctx context.Context, orgID, phone string) (*entities.CustomerProfile, error)
	GetByID(ctx context.Context, customerID string) (*entities.CustomerProfile, error)
}

type ConversationStore interface {
	// UpsertOpen returns the open (active or escalated) conversation for the
	// customer, creating an active one bound to sessionID when none exists.
	// The resolve is atomic with respect to concurrent inbound messages.
	UpsertOpen(ctx context.Context, orgID, customerID, sessionID string) (*entities.Conversation, error)
	GetByID(ctx context.Context, conversationID string) (*entities.Conversation, error)
	SetStatus(ctx context.Context, conversationID string, status entities.ConversationStatus) error
}

type MessageStore interface {
	Insert(ctx context.Context, msg *entities.Message) error
	// History returns at most limit messages no older than since, oldest
	// first.
	History(ctx context.Context, conversationID string, since time.Time, limit int) ([]entities.Message, error)
	// RecentBotMessages returns up to limit bot-authored messages, newest
	// first.
	RecentBotMessages(ctx context.Context, conversationID string, limit int) ([]entities.Message, error)
}

type EscalationStore interface {
	Insert(ctx context.Context, esc *entities.Escalation) error
	GetByID(ctx context.Context, escalationID string) (*entities.Escalation, error)
	Update(ctx context.Context, esc *entities.Escalation) error
	ListByStatus(ctx context.Context, orgID string, status entities.EscalationStatus) ([]entities.Escalation, error)
}

type AutomationStore interface {
	GetByOrg(ctx context.Context, orgID string) (*entities.AutomationConfig, error)
}

type OperatorStore interface {
	Create(ctx context.Context, op *entities.Operator) error
	GetByUsername(ctx context.Context, username string) (*entities.Operator, error)
}

type DocumentStore interface {
	GetByID(ctx context.Context, docID string) (*entities.Document, error)
	UpsertDocument(ctx context.Context, doc *entities.Document) error
	InsertChunks(ctx context.Context, chunks []entities.DocumentChunk) error
}
