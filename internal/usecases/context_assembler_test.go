package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportpilot/internal/entities"
)

// 2026-03-02 is a Monday.
var mondayNoon = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func weekdaySchedule() *entities.BusinessHours {
	return &entities.BusinessHours{
		Enabled:  true,
		Timezone: "UTC",
		Schedule: map[string]entities.DayWindow{
			"monday":  {Start: "09:00", End: "18:00"},
			"tuesday": {Start: "09:00", End: "18:00"},
		},
	}
}

func TestWithinBusinessHours(t *testing.T) {
	tests := []struct {
		name string
		bh   *entities.BusinessHours
		now  time.Time
		want bool
	}{
		{"nil config is always open", nil, mondayNoon, true},
		{"disabled is always open", &entities.BusinessHours{Enabled: false}, mondayNoon, true},
		{"within window", weekdaySchedule(), mondayNoon, true},
		{"start boundary inclusive", weekdaySchedule(), time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), true},
		{"end boundary inclusive", weekdaySchedule(), time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC), true},
		{"one minute past close", weekdaySchedule(), time.Date(2026, 3, 2, 18, 1, 0, 0, time.UTC), false},
		{"one minute before open", weekdaySchedule(), time.Date(2026, 3, 2, 8, 59, 0, 0, time.UTC), false},
		{"day without hours is closed", weekdaySchedule(), time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC), false}, // Wednesday
		{
			"invalid timezone fails open",
			&entities.BusinessHours{Enabled: true, Timezone: "Mars/Olympus", Schedule: map[string]entities.DayWindow{"monday": {Start: "09:00", End: "18:00"}}},
			mondayNoon,
			true,
		},
		{
			"unparseable window fails open",
			&entities.BusinessHours{Enabled: true, Timezone: "UTC", Schedule: map[string]entities.DayWindow{"monday": {Start: "soon", End: "later"}}},
			mondayNoon,
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WithinBusinessHours(tt.bh, tt.now))
		})
	}
}

func TestWithinBusinessHoursTimezoneConversion(t *testing.T) {
	bh := &entities.BusinessHours{
		Enabled:  true,
		Timezone: "Asia/Jakarta", // UTC+7, no DST
		Schedule: map[string]entities.DayWindow{
			"monday": {Start: "09:00", End: "18:00"},
		},
	}

	// 03:00 UTC Monday is 10:00 in Jakarta.
	assert.True(t, WithinBusinessHours(bh, time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC)))
	// 13:00 UTC Monday is 20:00 in Jakarta.
	assert.False(t, WithinBusinessHours(bh, time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC)))
}

func assemblerFixture() (*ContextAssembler, *fakeMessageStore, *fakeCustomerStore) {
	messages := &fakeMessageStore{}
	customers := newFakeCustomerStore()
	a := NewContextAssembler(messages, customers, &fakeAutomationStore{}, &fakeSessionDirectory{connected: true})
	a.now = func() time.Time { return mondayNoon }
	return a, messages, customers
}

func TestAssembleGathersAllSections(t *testing.T) {
	a, messages, customers := assemblerFixture()

	customer, err := customers.Upsert(context.Background(), "org-1", "628123456789")
	require.NoError(t, err)

	conf := 0.9
	seed := []entities.Message{
		{ID: "m1", ConversationID: "conv-1", Direction: entities.DirectionInbound, SenderRole: entities.RoleCustomer, Text: "old question", CreatedAt: mondayNoon.AddDate(0, 0, -10)},
		{ID: "m2", ConversationID: "conv-1", Direction: entities.DirectionInbound, SenderRole: entities.RoleCustomer, Text: "recent question", CreatedAt: mondayNoon.Add(-2 * time.Hour)},
		{ID: "m3", ConversationID: "conv-1", Direction: entities.DirectionOutbound, SenderRole: entities.RoleBot, Text: "recent answer", LLMConfidence: &conf, CreatedAt: mondayNoon.Add(-1 * time.Hour)},
		{ID: "m4", ConversationID: "conv-other", Direction: entities.DirectionInbound, SenderRole: entities.RoleCustomer, Text: "other conversation", CreatedAt: mondayNoon.Add(-1 * time.Hour)},
	}
	for i := range seed {
		require.NoError(t, messages.Insert(context.Background(), &seed[i]))
	}

	results := []entities.RetrievalResult{{DocID: "doc-1", Title: "FAQ", Score: 0.9}}
	out := a.Assemble(context.Background(), AssembleInput{
		ConversationID:   "conv-1",
		CustomerID:       customer.ID,
		OrgID:            "org-1",
		SessionID:        "sess-1",
		RetrievalResults: results,
		Settings:         entities.DefaultOrgSettings(),
	})

	// The 10-day-old message falls outside the 7-day window.
	require.Len(t, out.ConversationHistory, 2)
	assert.Equal(t, "m2", out.ConversationHistory[0].ID)
	assert.Equal(t, "m3", out.ConversationHistory[1].ID)

	require.NotNil(t, out.CustomerProfile)
	assert.Equal(t, "628123456789", out.CustomerProfile.Phone)

	require.NotNil(t, out.Session)
	assert.Equal(t, "sess-1", out.Session.SessionID)
	assert.True(t, out.Session.Connected)

	require.Len(t, out.PreviousBotAnswers, 1)
	assert.Equal(t, "m3", out.PreviousBotAnswers[0].MessageID)
	require.NotNil(t, out.PreviousBotAnswers[0].Confidence)
	assert.InDelta(t, 0.9, *out.PreviousBotAnswers[0].Confidence, 1e-9)
	assert.False(t, out.PreviousBotAnswers[0].Confirmed)

	assert.Equal(t, results, out.RetrievalResults)
}

func TestAssembleHistoryCountCap(t *testing.T) {
	a, messages, customers := assemblerFixture()
	customer, err := customers.Upsert(context.Background(), "org-1", "628123456789")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		msg := entities.Message{
			ID:             string(rune('a' + i)),
			ConversationID: "conv-1",
			Direction:      entities.DirectionInbound,
			SenderRole:     entities.RoleCustomer,
			Text:           "msg",
			CreatedAt:      mondayNoon.Add(time.Duration(i-5) * time.Hour),
		}
		require.NoError(t, messages.Insert(context.Background(), &msg))
	}

	settings := entities.DefaultOrgSettings()
	settings.MaxContextMessages = 2
	out := a.Assemble(context.Background(), AssembleInput{
		ConversationID: "conv-1",
		CustomerID:     customer.ID,
		OrgID:          "org-1",
		Settings:       settings,
	})

	// The count cap keeps the most recent turns.
	require.Len(t, out.ConversationHistory, 2)
	assert.Equal(t, "d", out.ConversationHistory[0].ID)
	assert.Equal(t, "e", out.ConversationHistory[1].ID)
}

func TestAssembleUnknownCustomerDegrades(t *testing.T) {
	a, _, _ := assemblerFixture()

	out := a.Assemble(context.Background(), AssembleInput{
		ConversationID: "conv-1",
		CustomerID:     "missing",
		OrgID:          "org-1",
		Settings:       entities.DefaultOrgSettings(),
	})

	require.NotNil(t, out.CustomerProfile)
	assert.Equal(t, "Unknown customer", out.CustomerProfile.DisplayName)
}

func TestAssembleDefaultAutomation(t *testing.T) {
	a, _, _ := assemblerFixture()

	settings := entities.DefaultOrgSettings()
	settings.FallbackMessage = "custom fallback"
	out := a.Assemble(context.Background(), AssembleInput{
		ConversationID: "conv-1",
		CustomerID:     "missing",
		OrgID:          "org-1",
		Settings:       settings,
	})

	require.NotNil(t, out.Automation)
	assert.Equal(t, entities.ScopeAll, out.Automation.Scope)
	assert.Equal(t, "custom fallback", out.Automation.FallbackMessage)
}

func TestAssembleStoredAutomationWins(t *testing.T) {
	messages := &fakeMessageStore{}
	customers := newFakeCustomerStore()
	stored := &entities.AutomationConfig{OrgID: "org-1", Scope: entities.ScopeRepeat, FallbackMessage: "stored fallback"}
	a := NewContextAssembler(messages, customers, &fakeAutomationStore{cfg: stored}, &fakeSessionDirectory{})
	a.now = func() time.Time { return mondayNoon }

	out := a.Assemble(context.Background(), AssembleInput{
		ConversationID: "conv-1",
		CustomerID:     "missing",
		OrgID:          "org-1",
		Settings:       entities.DefaultOrgSettings(),
	})

	assert.Equal(t, stored, out.Automation)
}
