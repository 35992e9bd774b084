package infrastructure

import (
	"context"
	"errors"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"supportpilot/internal/entities"
	"supportpilot/internal/interfaces"
)

// TelegramTransport is the alternate transport adapter. One bot token serves
// one organization; chat ids stand in for phone identifiers.
type TelegramTransport struct {
	bot   *tgbotapi.BotAPI
	orgID string
}

var _ interfaces.Transport = (*TelegramTransport)(nil)

func NewTelegramTransport(token, orgID string) (*TelegramTransport, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &TelegramTransport{bot: bot, orgID: orgID}, nil
}

func (t *TelegramTransport) IsReady() bool {
	return t.bot != nil
}

func (t *TelegramTransport) SendMessage(ctx context.Context, to, text string) error {
	if t.bot == nil {
		return errors.New("telegram bot not configured")
	}
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	_, err = t.bot.Send(msg)
	return err
}

// SendComposing broadcasts a typing chat action. Cosmetic, errors ignored.
func (t *TelegramTransport) SendComposing(to string) {
	if t.bot == nil {
		return
	}
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return
	}
	t.bot.Send(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
}

// Listen polls for updates and feeds text messages to the handler until the
// context is cancelled.
func (t *TelegramTransport) Listen(ctx context.Context, handler InboundHandler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.bot.GetUpdatesChan(u)

	log.WithField("org_id", t.orgID).Info("telegram transport listening")
	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			handler(t.orgID, entities.InboundMessage{
				ID:        strconv.Itoa(update.Message.MessageID),
				From:      strconv.FormatInt(update.Message.Chat.ID, 10),
				Body:      update.Message.Text,
				Timestamp: time.Unix(int64(update.Message.Date), 0),
			})
		}
	}
}
