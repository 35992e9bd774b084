package usecases

import (
	"unicode/utf8"

	"supportpilot/internal/entities"
)

// Token accounting is an estimate: character counts divided by a fixed
// chars-per-token ratio, plus a small per-field overhead. It only needs to be
// consistent, not exact, because the same estimator drives both the budget
// check and the trim cascade.
const (
	charsPerToken   = 4
	fieldOverhead   = 4
	trimmedBotMax   = 3
	trimmedHistory1 = 10
	trimmedHistory2 = 5
	trimmedChunkLen = 500
)

// EstimateTokens approximates the serialized size of a chat context.
func EstimateTokens(ctx *entities.ChatContext) int {
	chars := 0
	fields := 0

	for _, m := range ctx.ConversationHistory {
		chars += len(m.Text)
		fields++
	}
	for _, r := range ctx.RetrievalResults {
		chars += len(r.ChunkText) + len(r.Title)
		fields++
	}
	for _, a := range ctx.PreviousBotAnswers {
		chars += len(a.Text)
		fields++
	}
	if ctx.CustomerProfile != nil {
		chars += len(ctx.CustomerProfile.DisplayName) + len(ctx.CustomerProfile.Phone) + len(ctx.CustomerProfile.LastOrderSummary)
		for _, t := range ctx.CustomerProfile.Tags {
			chars += len(t)
		}
		fields++
	}
	if ctx.Session != nil {
		chars += len(ctx.Session.SessionID)
		fields++
	}
	if ctx.Automation != nil {
		chars += len(ctx.Automation.FallbackMessage) + len(ctx.Automation.Scope)
		for _, r := range ctx.Automation.EscalationRules {
			chars += len(r)
		}
		fields++
	}

	return chars/charsPerToken + fields*fieldOverhead
}

// TrimToBudget shrinks a context until its token estimate fits maxTokens,
// applying a strict priority cascade and stopping as soon as the budget is
// met. Contexts that already fit are returned unchanged. Retrieval results
// are never removed, only their chunk text shortened; if the budget still
// cannot be met after the last step the result is returned best-effort.
// The input context is not modified.
func TrimToBudget(ctx *entities.ChatContext, maxTokens int) *entities.ChatContext {
	if EstimateTokens(ctx) <= maxTokens {
		return ctx
	}

	out := cloneContext(ctx)

	// 1. Cap previous bot answers to the most recent (answers are stored
	// newest first).
	if len(out.PreviousBotAnswers) > trimmedBotMax {
		out.PreviousBotAnswers = out.PreviousBotAnswers[:trimmedBotMax]
	}
	if EstimateTokens(out) <= maxTokens {
		return out
	}

	// 2 and 3. Cap history to the most recent turns (history is oldest
	// first).
	for _, keep := range []int{trimmedHistory1, trimmedHistory2} {
		if len(out.ConversationHistory) > keep {
			out.ConversationHistory = out.ConversationHistory[len(out.ConversationHistory)-keep:]
		}
		if EstimateTokens(out) <= maxTokens {
			return out
		}
	}

	// 4. Truncate retrieval chunk text. Results themselves survive.
	for i := range out.RetrievalResults {
		out.RetrievalResults[i].ChunkText = truncateRunes(out.RetrievalResults[i].ChunkText, trimmedChunkLen)
	}
	return out
}

// truncateRunes cuts at the last rune boundary at or before max bytes, so a
// multibyte character is never split.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func cloneContext(ctx *entities.ChatContext) *entities.ChatContext {
	out := *ctx
	out.ConversationHistory = append([]entities.ContextMessage(nil), ctx.ConversationHistory...)
	out.RetrievalResults = append([]entities.RetrievalResult(nil), ctx.RetrievalResults...)
	out.PreviousBotAnswers = append([]entities.BotAnswer(nil), ctx.PreviousBotAnswers...)
	return &out
}
