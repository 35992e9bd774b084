package usecases

import (
	"fmt"
	"strings"

	"supportpilot/internal/entities"
)

// Literal sentences the model is instructed to use. The confidence gate and
// dashboards key off these, so they are fixed strings, not suggestions.
const (
	RefusalSentence  = "I don't have enough information in my sources to answer that, so I'd rather not guess."
	RedirectSentence = "That's outside what I can help with here, but I'm happy to answer questions about our products and services."
)

const promptDivider = "\n---\n"

// BuildSystemPrompt returns the fixed rule set for the model. It is a pure
// function of the organization name.
func BuildSystemPrompt(orgName string) string {
	var sb strings.Builder
	sb.WriteString("You are the customer support assistant for " + orgName + ".\n\n")
	sb.WriteString("Follow these rules on every reply:\n")
	sb.WriteString("1. Use ONLY the supplied sources for factual claims about products, policies, prices or services.\n")
	sb.WriteString("2. Answer greetings and pleasantries naturally; they do not require sources.\n")
	sb.WriteString("3. If the sources are insufficient for a factual question, reply exactly: \"" + RefusalSentence + "\"\n")
	sb.WriteString("4. Never fabricate names, numbers, dates or other specifics.\n")
	sb.WriteString("5. Cite sources with bracketed numeric markers like [1], matching the numbering of the source list.\n")
	sb.WriteString("6. End every reply with a footer of the form: Sources: [1], [2] | Confidence: 0.85\n")
	sb.WriteString("   Omit the Sources part when no sources were used, but always report Confidence between 0.00 and 1.00.\n")
	sb.WriteString("7. For topics unrelated to " + orgName + ", reply exactly: \"" + RedirectSentence + "\"\n")
	sb.WriteString("8. Stay consistent with your previous answers in this conversation.\n")
	return sb.String()
}

// BuildUserPrompt serializes the trimmed context and the current customer
// message into one prompt. Same inputs always produce byte-identical output.
func BuildUserPrompt(queryText string, ctx *entities.ChatContext) string {
	sections := []string{
		renderSources(ctx.RetrievalResults),
		renderHistory(ctx.ConversationHistory),
		renderProfile(ctx.CustomerProfile),
		renderSession(ctx.Session),
		renderAutomation(ctx.Automation),
	}
	if len(ctx.PreviousBotAnswers) > 0 {
		sections = append(sections, renderBotAnswers(ctx.PreviousBotAnswers))
	}
	sections = append(sections, fmt.Sprintf("CUSTOMER MESSAGE:\n\"%s\"", queryText))
	return strings.Join(sections, promptDivider)
}

func renderSources(results []entities.RetrievalResult) string {
	var sb strings.Builder
	sb.WriteString("SOURCES:\n")
	if len(results) == 0 {
		sb.WriteString("No relevant documents found.")
		return sb.String()
	}
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("[%d] %s", i+1, r.Title))
		if r.SourceURL != "" {
			sb.WriteString(" (" + r.SourceURL + ")")
		}
		sb.WriteString(fmt.Sprintf(" - relevance %.0f%%\n", r.Score*100))
		sb.WriteString(r.ChunkText)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderHistory(history []entities.ContextMessage) string {
	var sb strings.Builder
	sb.WriteString("CONVERSATION HISTORY:\n")
	if len(history) == 0 {
		sb.WriteString("(no prior messages)")
		return sb.String()
	}
	for _, m := range history {
		sb.WriteString(fmt.Sprintf("%s [%s] %s\n", roleEmoji(m.SenderRole), m.Timestamp.UTC().Format("2006-01-02 15:04"), m.Text))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func roleEmoji(role entities.SenderRole) string {
	switch role {
	case entities.RoleBot:
		return "🤖"
	case entities.RoleAgent:
		return "🧑‍💼"
	default:
		return "👤"
	}
}

func renderProfile(p *entities.CustomerProfile) string {
	var sb strings.Builder
	sb.WriteString("CUSTOMER:\n")
	if p == nil {
		sb.WriteString("Unknown customer")
		return sb.String()
	}
	name := p.DisplayName
	if name == "" {
		name = p.Phone
	}
	sb.WriteString(fmt.Sprintf("Name: %s\nPhone: %s\nOrders: %d", name, p.Phone, p.OrderCount))
	if len(p.Tags) > 0 {
		sb.WriteString("\nTags: " + strings.Join(p.Tags, ", "))
	}
	if p.LastOrderSummary != "" {
		sb.WriteString("\nLast order: " + p.LastOrderSummary)
	}
	return sb.String()
}

func renderSession(s *entities.SessionMetadata) string {
	if s == nil {
		return "SESSION:\n(unknown)"
	}
	within := "outside business hours"
	if s.WithinBusinessHours {
		within = "within business hours"
	}
	return fmt.Sprintf("SESSION:\nSession: %s\nCurrently %s", s.SessionID, within)
}

func renderAutomation(a *entities.AutomationConfig) string {
	if a == nil {
		return "AUTOMATION:\nScope: all"
	}
	return fmt.Sprintf("AUTOMATION:\nScope: %s\nFallback: %s", a.Scope, a.FallbackMessage)
}

func renderBotAnswers(answers []entities.BotAnswer) string {
	var sb strings.Builder
	sb.WriteString("YOUR PREVIOUS ANSWERS:\n")
	for _, a := range answers {
		sb.WriteString("- " + a.Text + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
