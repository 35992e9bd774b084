package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportpilot/internal/entities"
	"supportpilot/internal/infrastructure"
	"supportpilot/internal/usecases"
)

type stubOperatorStore struct {
	ops map[string]*entities.Operator
	seq int
}

func (s *stubOperatorStore) Create(_ context.Context, op *entities.Operator) error {
	s.seq++
	clone := *op
	clone.ID = s.seq
	s.ops[op.Username] = &clone
	return nil
}

func (s *stubOperatorStore) GetByUsername(_ context.Context, username string) (*entities.Operator, error) {
	op, ok := s.ops[username]
	if !ok {
		return nil, nil
	}
	clone := *op
	return &clone, nil
}

type stubEscalationStore struct {
	escalations []entities.Escalation
}

func (s *stubEscalationStore) Insert(_ context.Context, esc *entities.Escalation) error {
	s.escalations = append(s.escalations, *esc)
	return nil
}

func (s *stubEscalationStore) GetByID(_ context.Context, id string) (*entities.Escalation, error) {
	for _, esc := range s.escalations {
		if esc.ID == id {
			clone := esc
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *stubEscalationStore) Update(_ context.Context, esc *entities.Escalation) error {
	for i := range s.escalations {
		if s.escalations[i].ID == esc.ID {
			s.escalations[i] = *esc
		}
	}
	return nil
}

func (s *stubEscalationStore) ListByStatus(_ context.Context, orgID string, status entities.EscalationStatus) ([]entities.Escalation, error) {
	var out []entities.Escalation
	for _, esc := range s.escalations {
		if esc.OrgID == orgID && esc.Status == status {
			out = append(out, esc)
		}
	}
	return out, nil
}

type stubConversationStore struct{}

func (stubConversationStore) UpsertOpen(_ context.Context, orgID, customerID, sessionID string) (*entities.Conversation, error) {
	return &entities.Conversation{ID: "conv-1", OrgID: orgID, CustomerID: customerID, SessionID: sessionID, Status: entities.ConversationActive}, nil
}

func (stubConversationStore) GetByID(_ context.Context, _ string) (*entities.Conversation, error) {
	return nil, nil
}

func (stubConversationStore) SetStatus(_ context.Context, _ string, _ entities.ConversationStatus) error {
	return nil
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

type stubDocStore struct {
	docs   map[string]*entities.Document
	chunks []entities.DocumentChunk
}

func (s *stubDocStore) GetByID(_ context.Context, id string) (*entities.Document, error) {
	return s.docs[id], nil
}

func (s *stubDocStore) UpsertDocument(_ context.Context, doc *entities.Document) error {
	if s.docs == nil {
		s.docs = make(map[string]*entities.Document)
	}
	clone := *doc
	s.docs[doc.ID] = &clone
	return nil
}

func (s *stubDocStore) InsertChunks(_ context.Context, chunks []entities.DocumentChunk) error {
	s.chunks = append(s.chunks, chunks...)
	return nil
}

type routerFixture struct {
	router      *gin.Engine
	escalations *stubEscalationStore
	docs        *stubDocStore
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	operators := &stubOperatorStore{ops: make(map[string]*entities.Operator)}
	auth := usecases.NewAuthUsecase(operators, "test-secret")
	require.NoError(t, auth.EnsureAdmin(context.Background(), "root", "root"))

	escStore := &stubEscalationStore{}
	manager := usecases.NewEscalationManager(escStore, stubConversationStore{})
	registry := infrastructure.NewSessionRegistry(t.TempDir())
	docs := &stubDocStore{}
	ingestor := usecases.NewDocumentIngestor(stubEmbedder{}, docs)

	r := gin.New()
	SetupRoutes(r, manager, registry, auth, ingestor, NewMiddleware("test-secret"))
	return &routerFixture{router: r, escalations: escStore, docs: docs}
}

func (f *routerFixture) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *routerFixture) login(t *testing.T, username, password string) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/auth/login", "", `{"username":"`+username+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestRegisterRequiresAuth(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(t, http.MethodPost, "/api/auth/register", "", `{"username":"alex","password":"hunter2"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterAdminFlow(t *testing.T) {
	f := newRouterFixture(t)
	admin := f.login(t, "root", "root")

	w := f.do(t, http.MethodPost, "/api/auth/register", admin, `{"username":"alex","password":"hunter2","org_id":"org-1"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	// Duplicate username conflicts.
	w = f.do(t, http.MethodPost, "/api/auth/register", admin, `{"username":"alex","password":"other","org_id":"org-1"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	// The new operator can log in but cannot register others.
	operator := f.login(t, "alex", "hunter2")
	w = f.do(t, http.MethodPost, "/api/auth/register", operator, `{"username":"sam","password":"pw"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListEscalationsRoute(t *testing.T) {
	f := newRouterFixture(t)
	admin := f.login(t, "root", "root")
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/auth/register", admin, `{"username":"alex","password":"hunter2","org_id":"org-1"}`).Code)

	f.escalations.escalations = append(f.escalations.escalations, entities.Escalation{
		ID: "esc-1", OrgID: "org-1", ConversationID: "conv-1", Status: entities.EscalationPending,
	})

	operator := f.login(t, "alex", "hunter2")
	w := f.do(t, http.MethodGet, "/api/escalations", operator, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Escalations []entities.Escalation `json:"escalations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Escalations, 1)
	assert.Equal(t, "esc-1", resp.Escalations[0].ID)
}

func TestSessionLogoutUnknownOrg(t *testing.T) {
	f := newRouterFixture(t)
	admin := f.login(t, "root", "root")

	w := f.do(t, http.MethodPost, "/api/sessions/org-9/logout", admin, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIngestDocumentRoute(t *testing.T) {
	f := newRouterFixture(t)
	admin := f.login(t, "root", "root")

	w := f.do(t, http.MethodPost, "/api/documents", admin, `{"title":"Returns Policy","content":"Items can be returned within 30 days."}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		DocumentID string `json:"document_id"`
		Chunks     int    `json:"chunks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.DocumentID)
	assert.Equal(t, 1, resp.Chunks)

	require.NotNil(t, f.docs.docs[resp.DocumentID])
	require.Len(t, f.docs.chunks, 1)
	assert.Equal(t, resp.DocumentID, f.docs.chunks[0].DocumentID)

	// Empty content is rejected before any store write.
	w = f.do(t, http.MethodPost, "/api/documents", admin, `{"title":"Empty","content":" "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngestDocumentRequiresAdmin(t *testing.T) {
	f := newRouterFixture(t)
	admin := f.login(t, "root", "root")
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/auth/register", admin, `{"username":"alex","password":"hunter2","org_id":"org-1"}`).Code)

	operator := f.login(t, "alex", "hunter2")
	w := f.do(t, http.MethodPost, "/api/documents", operator, `{"title":"X","content":"y"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
