package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"supportpilot/internal/entities"
)

// ErrTransportNotReady is returned when a send is attempted on a session
// that is not connected and logged in.
var ErrTransportNotReady = errors.New("whatsapp session not ready")

// WhatsAppClient wraps one whatsmeow session bound to one organization.
type WhatsAppClient struct {
	Client *whatsmeow.Client
	OrgID  string

	qrCode string
	qrLock sync.RWMutex
}

func NewWhatsAppClient(dbPath, orgID string) (*WhatsAppClient, error) {
	container, err := sqlstore.New(context.Background(), "sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)", newWALogger("whatsapp-store"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to device store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	client := whatsmeow.NewClient(deviceStore, newWALogger("whatsapp"))

	return &WhatsAppClient{
		Client: client,
		OrgID:  orgID,
	}, nil
}

// Connect establishes the session. A device without a stored identity goes
// through QR pairing; the current code is kept readable via GetQR.
func (w *WhatsAppClient) Connect() error {
	if w.Client.Store.ID == nil {
		qrChan, _ := w.Client.GetQRChannel(context.Background())
		if err := w.Client.Connect(); err != nil {
			return err
		}
		go w.watchQR(qrChan)
		return nil
	}

	if err := w.Client.Connect(); err != nil {
		return err
	}
	log.WithField("org_id", w.OrgID).Info("whatsapp session connected (existing pairing)")
	return nil
}

func (w *WhatsAppClient) watchQR(qrChan <-chan whatsmeow.QRChannelItem) {
	for evt := range qrChan {
		if evt.Event == "code" {
			w.qrLock.Lock()
			w.qrCode = evt.Code
			w.qrLock.Unlock()
			log.WithField("org_id", w.OrgID).Info("new pairing QR code available")
		} else {
			log.WithFields(log.Fields{"org_id": w.OrgID, "event": evt.Event}).Info("whatsapp pairing event")
		}
	}
}

func (w *WhatsAppClient) GetQR() string {
	w.qrLock.RLock()
	defer w.qrLock.RUnlock()
	return w.qrCode
}

func (w *WhatsAppClient) IsLoggedIn() bool {
	return w.Client.Store.ID != nil
}

// IsReady reports whether the session can deliver messages right now.
func (w *WhatsAppClient) IsReady() bool {
	return w.Client.IsConnected() && w.Client.Store.ID != nil
}

// Logout clears the pairing and starts a fresh QR cycle.
func (w *WhatsAppClient) Logout() error {
	w.qrLock.Lock()
	w.qrCode = ""
	w.qrLock.Unlock()

	if err := w.Client.Logout(context.Background()); err != nil {
		return err
	}

	w.Client.Disconnect()

	qrChan, _ := w.Client.GetQRChannel(context.Background())
	if err := w.Client.Connect(); err != nil {
		return fmt.Errorf("reconnect after logout: %w", err)
	}
	go w.watchQR(qrChan)
	return nil
}

func (w *WhatsAppClient) Disconnect() {
	w.Client.Disconnect()
}

func (w *WhatsAppClient) AddEventHandler(handler func(interface{})) {
	w.Client.AddEventHandler(handler)
}

// SendMessage delivers a text to a phone identifier. It fails loudly when
// the session is not ready so the caller can log an undelivered (but already
// persisted) reply.
func (w *WhatsAppClient) SendMessage(ctx context.Context, to, text string) error {
	if !w.IsReady() {
		return ErrTransportNotReady
	}

	jid, err := types.ParseJID(to + "@s.whatsapp.net")
	if err != nil {
		return fmt.Errorf("invalid number format: %w", err)
	}

	_, err = w.Client.SendMessage(ctx, jid, &waProto.Message{
		Conversation: &text,
	})
	return err
}

// SendComposing broadcasts a typing indicator. Purely cosmetic; errors are
// ignored.
func (w *WhatsAppClient) SendComposing(to string) {
	jid, err := types.ParseJID(to + "@s.whatsapp.net")
	if err != nil {
		return
	}
	w.Client.SendPresence(context.Background(), types.PresenceAvailable)
	w.Client.SendChatPresence(context.Background(), jid, types.ChatPresenceComposing, types.ChatPresenceMediaText)
}

// ParseMessage converts a whatsmeow message event into the transport-neutral
// inbound shape. Media bytes stay on the wire; only the descriptor is kept.
func (w *WhatsAppClient) ParseMessage(evt *events.Message) entities.InboundMessage {
	in := entities.InboundMessage{
		ID:        evt.Info.ID,
		From:      evt.Info.Sender.User,
		Timestamp: evt.Info.Timestamp,
	}

	switch {
	case evt.Message.Conversation != nil:
		in.Body = *evt.Message.Conversation
	case evt.Message.ExtendedTextMessage != nil && evt.Message.ExtendedTextMessage.Text != nil:
		in.Body = *evt.Message.ExtendedTextMessage.Text
	case evt.Message.ImageMessage != nil:
		in.HasMedia = true
		in.MediaType = "image"
		if evt.Message.ImageMessage.Mimetype != nil {
			in.MediaMimeType = *evt.Message.ImageMessage.Mimetype
		}
		if evt.Message.ImageMessage.Caption != nil {
			in.Body = *evt.Message.ImageMessage.Caption
		}
	case evt.Message.DocumentMessage != nil:
		in.HasMedia = true
		in.MediaType = "document"
		if evt.Message.DocumentMessage.Mimetype != nil {
			in.MediaMimeType = *evt.Message.DocumentMessage.Mimetype
		}
		if evt.Message.DocumentMessage.FileName != nil {
			in.MediaFilename = *evt.Message.DocumentMessage.FileName
		}
	case evt.Message.AudioMessage != nil:
		in.HasMedia = true
		in.MediaType = "audio"
		if evt.Message.AudioMessage.Mimetype != nil {
			in.MediaMimeType = *evt.Message.AudioMessage.Mimetype
		}
	}

	return in
}
