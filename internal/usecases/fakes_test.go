package usecases

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"supportpilot/internal/entities"
	"supportpilot/internal/interfaces"
)

// In-memory fakes for the storage and collaborator ports.

type fakeOrgStore struct {
	orgs map[string]*entities.Organization
}

func (f *fakeOrgStore) GetByID(_ context.Context, orgID string) (*entities.Organization, error) {
	return f.orgs[orgID], nil
}

type fakeCustomerStore struct {
	mu   sync.Mutex
	byID map[string]*entities.CustomerProfile
	seq  int
}

func newFakeCustomerStore() *fakeCustomerStore {
	return &fakeCustomerStore{byID: make(map[string]*entities.CustomerProfile)}
}

func (f *fakeCustomerStore) Upsert(_ context.Context, orgID, phone string) (*entities.CustomerProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.byID {
		if c.OrgID == orgID && c.Phone == phone {
			return c, nil
		}
	}
	f.seq++
	c := &entities.CustomerProfile{
		ID:          fmt.Sprintf("cust-%d", f.seq),
		OrgID:       orgID,
		Phone:       phone,
		FirstSeenAt: time.Now(),
	}
	f.byID[c.ID] = c
	return c, nil
}

func (f *fakeCustomerStore) GetByID(_ context.Context, customerID string) (*entities.CustomerProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[customerID], nil
}

type fakeConversationStore struct {
	mu            sync.Mutex
	conversations map[string]*entities.Conversation
	seq           int
}

func newFakeConversationStore() *fakeConversationStore {
	return &fakeConversationStore{conversations: make(map[string]*entities.Conversation)}
}

func (f *fakeConversationStore) UpsertOpen(_ context.Context, orgID, customerID, sessionID string) (*entities.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.conversations {
		if c.OrgID == orgID && c.CustomerID == customerID && c.IsOpen() {
			return c, nil
		}
	}
	f.seq++
	c := &entities.Conversation{
		ID:         fmt.Sprintf("conv-%d", f.seq),
		OrgID:      orgID,
		CustomerID: customerID,
		SessionID:  sessionID,
		Status:     entities.ConversationActive,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	f.conversations[c.ID] = c
	return c, nil
}

func (f *fakeConversationStore) GetByID(_ context.Context, conversationID string) (*entities.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conversations[conversationID], nil
}

func (f *fakeConversationStore) SetStatus(_ context.Context, conversationID string, status entities.ConversationStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conversations[conversationID]
	if !ok {
		return errors.New("conversation not found")
	}
	c.Status = status
	return nil
}

type fakeMessageStore struct {
	mu        sync.Mutex
	messages  []entities.Message
	insertErr error
}

func (f *fakeMessageStore) Insert(_ context.Context, msg *entities.Message) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeMessageStore) History(_ context.Context, conversationID string, since time.Time, limit int) ([]entities.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entities.Message
	for _, m := range f.messages {
		if m.ConversationID == conversationID && !m.CreatedAt.Before(since) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeMessageStore) RecentBotMessages(_ context.Context, conversationID string, limit int) ([]entities.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entities.Message
	for _, m := range f.messages {
		if m.ConversationID == conversationID && m.SenderRole == entities.RoleBot {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMessageStore) byRole(role entities.SenderRole) []entities.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entities.Message
	for _, m := range f.messages {
		if m.SenderRole == role {
			out = append(out, m)
		}
	}
	return out
}

type fakeEscalationStore struct {
	mu          sync.Mutex
	escalations map[string]*entities.Escalation
	order       []string
}

func newFakeEscalationStore() *fakeEscalationStore {
	return &fakeEscalationStore{escalations: make(map[string]*entities.Escalation)}
}

func (f *fakeEscalationStore) Insert(_ context.Context, esc *entities.Escalation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *esc
	f.escalations[esc.ID] = &clone
	f.order = append(f.order, esc.ID)
	return nil
}

func (f *fakeEscalationStore) GetByID(_ context.Context, escalationID string) (*entities.Escalation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	esc, ok := f.escalations[escalationID]
	if !ok {
		return nil, nil
	}
	clone := *esc
	return &clone, nil
}

func (f *fakeEscalationStore) Update(_ context.Context, esc *entities.Escalation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.escalations[esc.ID]; !ok {
		return errors.New("escalation not found")
	}
	clone := *esc
	f.escalations[esc.ID] = &clone
	return nil
}

func (f *fakeEscalationStore) ListByStatus(_ context.Context, orgID string, status entities.EscalationStatus) ([]entities.Escalation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entities.Escalation
	for _, id := range f.order {
		esc := f.escalations[id]
		if esc.OrgID == orgID && esc.Status == status {
			out = append(out, *esc)
		}
	}
	return out, nil
}

func (f *fakeEscalationStore) all() []entities.Escalation {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entities.Escalation
	for _, id := range f.order {
		out = append(out, *f.escalations[id])
	}
	return out
}

type fakeAutomationStore struct {
	cfg *entities.AutomationConfig
	err error
}

func (f *fakeAutomationStore) GetByOrg(_ context.Context, _ string) (*entities.AutomationConfig, error) {
	return f.cfg, f.err
}

type fakeDocStore struct {
	mu     sync.Mutex
	docs   map[string]*entities.Document
	chunks []entities.DocumentChunk
	err    error
}

func (f *fakeDocStore) GetByID(_ context.Context, docID string) (*entities.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs[docID], nil
}

func (f *fakeDocStore) UpsertDocument(_ context.Context, doc *entities.Document) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.docs == nil {
		f.docs = make(map[string]*entities.Document)
	}
	clone := *doc
	f.docs[doc.ID] = &clone
	return nil
}

func (f *fakeDocStore) InsertChunks(_ context.Context, chunks []entities.DocumentChunk) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(chunks) > 0 {
		kept := f.chunks[:0]
		for _, c := range f.chunks {
			if c.DocumentID != chunks[0].DocumentID {
				kept = append(kept, c)
			}
		}
		f.chunks = kept
	}
	f.chunks = append(f.chunks, chunks...)
	return nil
}

type fakeOperatorStore struct {
	mu  sync.Mutex
	ops map[string]*entities.Operator
	seq int
}

func newFakeOperatorStore() *fakeOperatorStore {
	return &fakeOperatorStore{ops: make(map[string]*entities.Operator)}
}

func (f *fakeOperatorStore) Create(_ context.Context, op *entities.Operator) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	clone := *op
	clone.ID = f.seq
	f.ops[op.Username] = &clone
	return nil
}

func (f *fakeOperatorStore) GetByUsername(_ context.Context, username string) (*entities.Operator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	op, ok := f.ops[username]
	if !ok {
		return nil, nil
	}
	clone := *op
	return &clone, nil
}

type fakeEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	return f.vec, f.err
}

type fakeVectorIndex struct {
	hits []interfaces.VectorHit
	err  error
}

func (f *fakeVectorIndex) Search(_ context.Context, _ string, _ []float32, _ int) ([]interfaces.VectorHit, error) {
	return f.hits, f.err
}

type fakeLLM struct {
	content string
	err     error
	calls   int
	lastReq *interfaces.LLMRequest
}

func (f *fakeLLM) Complete(_ context.Context, req *interfaces.LLMRequest) (*interfaces.LLMResponse, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &interfaces.LLMResponse{
		Content: f.content,
		Usage:   interfaces.TokenUsage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
	}, nil
}

type sentMessage struct {
	To   string
	Text string
}

// fakeTransport doubles as its own provider.
type fakeTransport struct {
	mu        sync.Mutex
	sent      []sentMessage
	composing []string
	sendErr   error
}

func (f *fakeTransport) SendMessage(_ context.Context, to, text string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{To: to, Text: text})
	return nil
}

func (f *fakeTransport) SendComposing(to string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.composing = append(f.composing, to)
}

func (f *fakeTransport) IsReady() bool { return true }

func (f *fakeTransport) TransportFor(_ string) (interfaces.Transport, error) {
	return f, nil
}

type fakeSessionDirectory struct {
	connected bool
}

func (f *fakeSessionDirectory) IsConnected(_ string) bool { return f.connected }
