package infrastructure

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"
	"go.mau.fi/whatsmeow/types/events"

	"supportpilot/internal/entities"
	"supportpilot/internal/interfaces"
)

// InboundHandler receives every customer message arriving on an
// organization's session.
type InboundHandler func(orgID string, msg entities.InboundMessage)

// SessionRegistry owns the per-organization WhatsApp sessions: explicit
// create/destroy lifecycle, per-key locking, and a subscriber list per
// organization instead of a single replaceable handler slot. It implements
// both the TransportProvider and SessionDirectory ports.
type SessionRegistry struct {
	mu          sync.RWMutex
	clients     map[string]*WhatsAppClient
	subscribers map[string][]InboundHandler
	baseDir     string
}

func NewSessionRegistry(baseDir string) *SessionRegistry {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		log.WithError(err).WithField("dir", baseDir).Warn("could not create session directory")
	}
	return &SessionRegistry{
		clients:     make(map[string]*WhatsAppClient),
		subscribers: make(map[string][]InboundHandler),
		baseDir:     baseDir,
	}
}

// Subscribe appends a handler for an organization's inbound messages.
// Handlers are never replaced implicitly; every subscriber sees every
// message.
func (r *SessionRegistry) Subscribe(orgID string, handler InboundHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers[orgID] = append(r.subscribers[orgID], handler)
}

// Create builds the session for an organization if it does not exist yet and
// returns it either way.
func (r *SessionRegistry) Create(orgID string) (*WhatsAppClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if client, exists := r.clients[orgID]; exists {
		return client, nil
	}

	dbPath := filepath.Join(r.baseDir, fmt.Sprintf("org_%s.db", orgID))
	client, err := NewWhatsAppClient(dbPath, orgID)
	if err != nil {
		return nil, fmt.Errorf("create session for org %s: %w", orgID, err)
	}

	client.AddEventHandler(func(evt interface{}) {
		msg, ok := evt.(*events.Message)
		if !ok {
			return
		}
		// Group chats and our own echoes are not customer traffic.
		if msg.Info.IsGroup || msg.Info.IsFromMe {
			return
		}
		r.dispatch(orgID, client.ParseMessage(msg))
	})

	r.clients[orgID] = client
	return client, nil
}

func (r *SessionRegistry) dispatch(orgID string, msg entities.InboundMessage) {
	r.mu.RLock()
	handlers := append([]InboundHandler(nil), r.subscribers[orgID]...)
	r.mu.RUnlock()

	for _, h := range handlers {
		h(orgID, msg)
	}
}

// Get returns the session for an organization, or nil.
func (r *SessionRegistry) Get(orgID string) *WhatsAppClient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clients[orgID]
}

// Connect creates the session if needed and dials it.
func (r *SessionRegistry) Connect(orgID string) (*WhatsAppClient, error) {
	client, err := r.Create(orgID)
	if err != nil {
		return nil, err
	}
	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("connect session for org %s: %w", orgID, err)
	}
	return client, nil
}

// Logout clears an organization's pairing so a fresh QR cycle starts.
func (r *SessionRegistry) Logout(orgID string) error {
	client := r.Get(orgID)
	if client == nil {
		return fmt.Errorf("no session for org %s", orgID)
	}
	return client.Logout()
}

// Destroy disconnects and removes an organization's session. Subscribers
// stay registered so a recreated session resumes delivery.
func (r *SessionRegistry) Destroy(orgID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if client, exists := r.clients[orgID]; exists {
		client.Disconnect()
		delete(r.clients, orgID)
	}
}

// DestroyAll tears down every session (graceful shutdown).
func (r *SessionRegistry) DestroyAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, client := range r.clients {
		client.Disconnect()
	}
	r.clients = make(map[string]*WhatsAppClient)
}

// TransportFor implements interfaces.TransportProvider.
func (r *SessionRegistry) TransportFor(orgID string) (interfaces.Transport, error) {
	client := r.Get(orgID)
	if client == nil {
		return nil, fmt.Errorf("no session for org %s", orgID)
	}
	return client, nil
}

// IsConnected implements interfaces.SessionDirectory.
func (r *SessionRegistry) IsConnected(orgID string) bool {
	client := r.Get(orgID)
	return client != nil && client.IsReady()
}

var _ interfaces.TransportProvider = (*SessionRegistry)(nil)
var _ interfaces.SessionDirectory = (*SessionRegistry)(nil)
var _ interfaces.Transport = (*WhatsAppClient)(nil)
