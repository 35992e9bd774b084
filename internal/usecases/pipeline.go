package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"supportpilot/internal/entities"
	"supportpilot/internal/interfaces"
)

// ErrOrganizationNotFound aborts a message before any side effect.
var ErrOrganizationNotFound = errors.New("organization not found")

// Fallback replies are persisted with this sentinel confidence regardless of
// what the model reported, so downstream analytics can tell fallback traffic
// apart from genuine low-confidence answers.
const fallbackConfidence = 0.1

const (
	llmTemperature = 0.2
	llmMaxTokens   = 1024
)

// ResponsePipeline orchestrates one inbound message end to end: resolve the
// customer and conversation, persist the message, retrieve grounding, build
// and trim the context, call the model and either reply or escalate.
type ResponsePipeline struct {
	orgs          interfaces.OrganizationStore
	customers     interfaces.CustomerStore
	conversations interfaces.ConversationStore
	messages      interfaces.MessageStore
	retrieval     *RetrievalEngine
	assembler     *ContextAssembler
	escalations   *EscalationManager
	llm           interfaces.LLMClient
	transports    interfaces.TransportProvider
}

func NewResponsePipeline(
	orgs interfaces.OrganizationStore,
	customers interfaces.CustomerStore,
	conversations interfaces.ConversationStore,
	messages interfaces.MessageStore,
	retrieval *RetrievalEngine,
	assembler *ContextAssembler,
	escalations *EscalationManager,
	llm interfaces.LLMClient,
	transports interfaces.TransportProvider,
) *ResponsePipeline {
	return &ResponsePipeline{
		orgs:          orgs,
		customers:     customers,
		conversations: conversations,
		messages:      messages,
		retrieval:     retrieval,
		assembler:     assembler,
		escalations:   escalations,
		llm:           llm,
		transports:    transports,
	}
}

// Process is the top-level guard around HandleInbound. One message's failure
// must never affect sibling messages, so every error (and panic) stops here.
func (p *ResponsePipeline) Process(ctx context.Context, orgID string, in entities.InboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{"org_id": orgID, "message_id": in.ID}).Errorf("pipeline panic: %v", r)
		}
	}()

	if err := p.HandleInbound(ctx, orgID, in); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"org_id":     orgID,
			"message_id": in.ID,
		}).Error("inbound message dropped")
	}
}

// HandleInbound runs the strictly ordered pipeline for one inbound message.
func (p *ResponsePipeline) HandleInbound(ctx context.Context, orgID string, in entities.InboundMessage) error {
	started := time.Now()

	// 1. Organization lookup is the only fatal pre-step: unknown org, no
	// side effects.
	org, err := p.orgs.GetByID(ctx, orgID)
	if err != nil {
		return fmt.Errorf("load organization %s: %w", orgID, err)
	}
	if org == nil {
		return fmt.Errorf("%w: %s", ErrOrganizationNotFound, orgID)
	}
	settings := org.Settings
	if settings == nil {
		settings = entities.DefaultOrgSettings()
	}

	// 2. Resolve-or-create the customer atomically by (org, phone).
	phone := NormalizePhone(in.From)
	customer, err := p.customers.Upsert(ctx, org.ID, phone)
	if err != nil {
		return fmt.Errorf("resolve customer: %w", err)
	}

	// 3. Resolve-or-create the open conversation.
	conversation, err := p.conversations.UpsertOpen(ctx, org.ID, customer.ID, org.SessionID)
	if err != nil {
		return fmt.Errorf("resolve conversation: %w", err)
	}

	// 4. The inbound message is always durably recorded before anything
	// downstream can fail.
	inbound := &entities.Message{
		ID:             uuid.NewString(),
		ConversationID: conversation.ID,
		Direction:      entities.DirectionInbound,
		SenderRole:     entities.RoleCustomer,
		Text:           in.Body,
		Media:          mediaDescriptor(in),
		CreatedAt:      in.Timestamp,
	}
	if err := p.messages.Insert(ctx, inbound); err != nil {
		return fmt.Errorf("persist inbound message: %w", err)
	}

	// 5. A human has taken over: persist only, no retrieval, no reply.
	if conversation.Status == entities.ConversationEscalated {
		log.WithField("conversation_id", conversation.ID).Debug("conversation escalated, bot muted")
		return nil
	}

	// 6. Retrieval. Failure degrades to empty results, it never drops the
	// message.
	outcome, err := p.retrieval.Retrieve(ctx, org.ID, in.Body, settings.RAGTopK, settings.SimilarityThreshold)
	if err != nil {
		log.WithError(err).WithField("org_id", org.ID).Warn("retrieval failed, continuing without sources")
		outcome = &RetrievalOutcome{}
	}

	// 7–9. Assemble, trim, render.
	chatCtx := p.assembler.Assemble(ctx, AssembleInput{
		ConversationID:   conversation.ID,
		CustomerID:       customer.ID,
		OrgID:            org.ID,
		SessionID:        org.SessionID,
		RetrievalResults: outcome.Results,
		Settings:         settings,
	})
	chatCtx = TrimToBudget(chatCtx, settings.MaxContextTokens)
	systemPrompt := BuildSystemPrompt(org.Name)
	userPrompt := BuildUserPrompt(in.Body, chatCtx)

	// 10. Show a typing indicator while the model works, then call it. The
	// model runs even with zero sources so greetings still get a natural
	// reply; hallucination control lives in the prompt and the confidence
	// gate.
	if transport, terr := p.transports.TransportFor(org.ID); terr == nil {
		transport.SendComposing(phone)
	}
	resp, err := p.llm.Complete(ctx, &interfaces.LLMRequest{
		SystemPrompt: systemPrompt,
		Messages:     []interfaces.LLMMessage{{Role: "user", Content: userPrompt}},
		Temperature:  llmTemperature,
		MaxTokens:    llmMaxTokens,
	})
	if err != nil {
		return fmt.Errorf("llm call: %w", err)
	}

	// 11. Confidence gate.
	confidence := ExtractConfidence(resp.Content)
	if confidence < settings.ConfidenceThreshold {
		err = p.sendFallback(ctx, org, conversation, customer, chatCtx, confidence)
	} else {
		err = p.sendReply(ctx, org, conversation, phone, resp.Content, confidence, outcome.Results)
	}
	if err != nil {
		return err
	}

	// 12. Completion log.
	log.WithFields(log.Fields{
		"org_id":          org.ID,
		"conversation_id": conversation.ID,
		"confidence":      confidence,
		"latency_ms":      time.Since(started).Milliseconds(),
		"prompt_tokens":   resp.Usage.PromptTokens,
		"total_tokens":    resp.Usage.TotalTokens,
	}).Info("inbound message handled")
	return nil
}

// sendReply persists and delivers an autonomous answer with its citations.
func (p *ResponsePipeline) sendReply(ctx context.Context, org *entities.Organization, conversation *entities.Conversation, phone, rawReply string, confidence float64, results []entities.RetrievalResult) error {
	text := StripFooter(rawReply)
	docIDs := ResolveCitations(ExtractCitations(rawReply), results)

	msg := &entities.Message{
		ID:             uuid.NewString(),
		ConversationID: conversation.ID,
		Direction:      entities.DirectionOutbound,
		SenderRole:     entities.RoleBot,
		Text:           text,
		LLMConfidence:  &confidence,
		LinkedDocIDs:   docIDs,
		CreatedAt:      time.Now().UTC(),
	}
	if err := p.messages.Insert(ctx, msg); err != nil {
		return fmt.Errorf("persist bot reply: %w", err)
	}

	p.deliver(ctx, org.ID, phone, text)
	return nil
}

// sendFallback persists and delivers the organization's fallback text, then
// opens an escalation. Citations are not extracted on this path.
func (p *ResponsePipeline) sendFallback(ctx context.Context, org *entities.Organization, conversation *entities.Conversation, customer *entities.CustomerProfile, chatCtx *entities.ChatContext, confidence float64) error {
	fallback := entities.DefaultFallbackMessage
	if chatCtx.Automation != nil && chatCtx.Automation.FallbackMessage != "" {
		fallback = chatCtx.Automation.FallbackMessage
	}

	sentinel := fallbackConfidence
	msg := &entities.Message{
		ID:             uuid.NewString(),
		ConversationID: conversation.ID,
		Direction:      entities.DirectionOutbound,
		SenderRole:     entities.RoleBot,
		Text:           fallback,
		LLMConfidence:  &sentinel,
		CreatedAt:      time.Now().UTC(),
	}
	if err := p.messages.Insert(ctx, msg); err != nil {
		return fmt.Errorf("persist fallback message: %w", err)
	}

	p.deliver(ctx, org.ID, customer.Phone, fallback)

	reason := fmt.Sprintf("LLM confidence too low: %.2f", confidence)
	if _, err := p.escalations.Create(ctx, org.ID, conversation.ID, customer.ID, reason); err != nil {
		return err
	}
	return nil
}

// deliver sends the text over the organization's transport. The message is
// already persisted, so a delivery failure is logged and swallowed.
func (p *ResponsePipeline) deliver(ctx context.Context, orgID, to, text string) {
	transport, err := p.transports.TransportFor(orgID)
	if err != nil {
		log.WithError(err).WithField("org_id", orgID).Error("no transport for organization")
		return
	}
	if err := transport.SendMessage(ctx, to, text); err != nil {
		log.WithError(err).WithFields(log.Fields{"org_id": orgID, "to": to}).Error("outbound send failed")
	}
}

// NormalizePhone reduces a transport identifier to bare digits so the
// (org, phone) uniqueness key is stable across transports.
func NormalizePhone(raw string) string {
	if at := strings.IndexByte(raw, '@'); at >= 0 {
		raw = raw[:at]
	}
	var sb strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func mediaDescriptor(in entities.InboundMessage) *entities.MediaDescriptor {
	if !in.HasMedia {
		return nil
	}
	return &entities.MediaDescriptor{
		Type:     in.MediaType,
		Filename: in.MediaFilename,
		MimeType: in.MediaMimeType,
	}
}
