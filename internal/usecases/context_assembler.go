package usecases

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"supportpilot/internal/entities"
	"supportpilot/internal/interfaces"
)

const maxPreviousBotAnswers = 10

// AssembleInput carries everything the assembler needs for one invocation.
type AssembleInput struct {
	ConversationID   string
	CustomerID       string
	OrgID            string
	SessionID        string
	RetrievalResults []entities.RetrievalResult
	Settings         *entities.OrgSettings
}

// ContextAssembler gathers the conversation history, customer profile,
// session state, automation config and prior bot answers that ground a
// reply.
type ContextAssembler struct {
	messages    interfaces.MessageStore
	customers   interfaces.CustomerStore
	automations interfaces.AutomationStore
	sessions    interfaces.SessionDirectory

	now func() time.Time // overridable in tests
}

func NewContextAssembler(messages interfaces.MessageStore, customers interfaces.CustomerStore, automations interfaces.AutomationStore, sessions interfaces.SessionDirectory) *ContextAssembler {
	return &ContextAssembler{
		messages:    messages,
		customers:   customers,
		automations: automations,
		sessions:    sessions,
		now:         time.Now,
	}
}

// Assemble runs its five sub-fetches concurrently. A failed sub-fetch
// degrades to its default instead of aborting the others; only the caller's
// organization lookup (done before Assemble) is fatal.
func (a *ContextAssembler) Assemble(ctx context.Context, in AssembleInput) *entities.ChatContext {
	out := &entities.ChatContext{RetrievalResults: in.RetrievalResults}

	var wg sync.WaitGroup
	wg.Add(5)

	go func() {
		defer wg.Done()
		out.ConversationHistory = a.fetchHistory(ctx, in)
	}()
	go func() {
		defer wg.Done()
		out.CustomerProfile = a.fetchProfile(ctx, in.CustomerID)
	}()
	go func() {
		defer wg.Done()
		out.Session = a.fetchSession(in)
	}()
	go func() {
		defer wg.Done()
		out.Automation = a.fetchAutomation(ctx, in.OrgID, in.Settings)
	}()
	go func() {
		defer wg.Done()
		out.PreviousBotAnswers = a.fetchBotAnswers(ctx, in.ConversationID)
	}()

	wg.Wait()
	return out
}

// fetchHistory bounds the window by both message count and age: query by the
// age cutoff, then cap the rows, so the effective limit is
// min(count, messages-within-days).
func (a *ContextAssembler) fetchHistory(ctx context.Context, in AssembleInput) []entities.ContextMessage {
	since := a.now().AddDate(0, 0, -in.Settings.MaxContextDays)
	msgs, err := a.messages.History(ctx, in.ConversationID, since, in.Settings.MaxContextMessages)
	if err != nil {
		log.WithError(err).WithField("conversation_id", in.ConversationID).Warn("history fetch failed")
		return nil
	}

	history := make([]entities.ContextMessage, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, entities.ContextMessage{
			ID:           m.ID,
			Timestamp:    m.CreatedAt,
			Direction:    m.Direction,
			SenderRole:   m.SenderRole,
			Text:         m.Text,
			Media:        m.Media,
			LinkedDocIDs: m.LinkedDocIDs,
		})
	}
	return history
}

func (a *ContextAssembler) fetchProfile(ctx context.Context, customerID string) *entities.CustomerProfile {
	profile, err := a.customers.GetByID(ctx, customerID)
	if err != nil {
		log.WithError(err).WithField("customer_id", customerID).Warn("customer fetch failed")
	}
	if profile == nil {
		return entities.UnknownCustomer("")
	}
	return profile
}

func (a *ContextAssembler) fetchSession(in AssembleInput) *entities.SessionMetadata {
	connected := false
	if a.sessions != nil {
		connected = a.sessions.IsConnected(in.OrgID)
	}
	return &entities.SessionMetadata{
		SessionID:           in.SessionID,
		Connected:           connected,
		WithinBusinessHours: WithinBusinessHours(in.Settings.BusinessHours, a.now()),
	}
}

func (a *ContextAssembler) fetchAutomation(ctx context.Context, orgID string, settings *entities.OrgSettings) *entities.AutomationConfig {
	cfg, err := a.automations.GetByOrg(ctx, orgID)
	if err != nil {
		log.WithError(err).WithField("org_id", orgID).Warn("automation fetch failed")
	}
	if cfg == nil {
		fallback := settings.FallbackMessage
		if fallback == "" {
			fallback = entities.DefaultFallbackMessage
		}
		return &entities.AutomationConfig{
			OrgID:           orgID,
			Scope:           entities.ScopeAll,
			FallbackMessage: fallback,
		}
	}
	return cfg
}

func (a *ContextAssembler) fetchBotAnswers(ctx context.Context, conversationID string) []entities.BotAnswer {
	msgs, err := a.messages.RecentBotMessages(ctx, conversationID, maxPreviousBotAnswers)
	if err != nil {
		log.WithError(err).WithField("conversation_id", conversationID).Warn("bot answer fetch failed")
		return nil
	}

	answers := make([]entities.BotAnswer, 0, len(msgs))
	for _, m := range msgs {
		answers = append(answers, entities.BotAnswer{
			MessageID:  m.ID,
			Text:       m.Text,
			Confidence: m.LLMConfidence,
			Confirmed:  false,
			Timestamp:  m.CreatedAt,
		})
	}
	return answers
}

// WithinBusinessHours evaluates the schedule for the current weekday in the
// organization's timezone. Both window boundaries are inclusive. Disabled or
// missing configuration means always open, and any computation error fails
// open too: the flag tunes tone, it must never block a reply.
func WithinBusinessHours(bh *entities.BusinessHours, now time.Time) bool {
	if bh == nil || !bh.Enabled {
		return true
	}

	loc, err := time.LoadLocation(bh.Timezone)
	if err != nil {
		log.WithError(err).WithField("timezone", bh.Timezone).Warn("invalid business-hours timezone")
		return true
	}

	local := now.In(loc)
	weekday := strings.ToLower(local.Weekday().String())
	window, ok := bh.Schedule[weekday]
	if !ok {
		return false // no hours that day
	}

	start, err1 := parseClock(window.Start)
	end, err2 := parseClock(window.End)
	if err1 != nil || err2 != nil {
		return true
	}

	minutes := local.Hour()*60 + local.Minute()
	return minutes >= start && minutes <= end
}

func parseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	m := 0
	if len(parts) == 2 {
		if m, err = strconv.Atoi(parts[1]); err != nil {
			return 0, err
		}
	}
	return h*60 + m, nil
}
