package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"supportpilot/internal/entities"
	"supportpilot/internal/infrastructure"
	"supportpilot/internal/usecases"
)

// Handler serves the operator API: escalation lifecycle, transport session
// management, operator accounts and knowledge ingestion.
type Handler struct {
	escalations *usecases.EscalationManager
	sessions    *infrastructure.SessionRegistry
	auth        *usecases.AuthUsecase
	ingestor    *usecases.DocumentIngestor
}

func NewHandler(escalations *usecases.EscalationManager, sessions *infrastructure.SessionRegistry, auth *usecases.AuthUsecase, ingestor *usecases.DocumentIngestor) *Handler {
	return &Handler{
		escalations: escalations,
		sessions:    sessions,
		auth:        auth,
		ingestor:    ingestor,
	}
}

func SetupRoutes(r *gin.Engine, escalations *usecases.EscalationManager, sessions *infrastructure.SessionRegistry, auth *usecases.AuthUsecase, ingestor *usecases.DocumentIngestor, middleware *Middleware) {
	h := NewHandler(escalations, sessions, auth, ingestor)

	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(1 << 20)) // 1MB max request size

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/api/auth/login", func(c *gin.Context) {
		var loginReq struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&loginReq); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		token, err := auth.Login(c.Request.Context(), loginReq.Username, loginReq.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token})
	})

	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	api.Use(middleware.RateLimitPerOperator(5, 10))
	{
		api.GET("/escalations", h.ListEscalations)
		api.POST("/escalations/:id/takeover", h.TakeoverEscalation)
		api.POST("/escalations/:id/resolve", h.ResolveEscalation)

		api.POST("/sessions/:orgID/connect", h.ConnectSession)
		api.DELETE("/sessions/:orgID", h.DestroySession)
		api.POST("/sessions/:orgID/logout", h.LogoutSession)
		api.GET("/sessions/:orgID/status", h.SessionStatus)
		api.GET("/sessions/:orgID/qr", h.SessionQR)

		api.POST("/auth/register", RequireRole("admin"), h.RegisterOperator)
		api.POST("/documents", RequireRole("admin"), h.IngestDocument)
	}
}

// RegisterOperator creates an operator account. Admin only; the new account
// defaults to the caller's organization.
func (h *Handler) RegisterOperator(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
		OrgID    string `json:"org_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	orgID := req.OrgID
	if orgID == "" {
		orgID = c.GetString("org_id")
	}

	if err := h.auth.Register(c.Request.Context(), req.Username, req.Password, orgID); err != nil {
		if errors.Is(err, usecases.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "Username already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "created"})
}

// IngestDocument writes a knowledge document and its embedded chunks for the
// caller's organization.
func (h *Handler) IngestDocument(c *gin.Context) {
	var req struct {
		ID        string `json:"id"`
		Title     string `json:"title" binding:"required"`
		SourceURL string `json:"source_url"`
		Content   string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	doc := &entities.Document{
		ID:        req.ID,
		OrgID:     c.GetString("org_id"),
		Title:     req.Title,
		SourceURL: req.SourceURL,
		CreatedAt: time.Now().UTC(),
	}
	chunks, err := h.ingestor.Ingest(c.Request.Context(), doc, req.Content)
	if err != nil {
		if errors.Is(err, usecases.ErrEmptyDocument) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Document content is empty"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ingestion failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"document_id": doc.ID, "chunks": chunks})
}

func (h *Handler) ListEscalations(c *gin.Context) {
	orgID := c.GetString("org_id")
	status := entities.EscalationStatus(c.DefaultQuery("status", string(entities.EscalationPending)))

	escalations, err := h.escalations.ListByStatus(c.Request.Context(), orgID, status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list escalations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"escalations": escalations})
}

func (h *Handler) TakeoverEscalation(c *gin.Context) {
	operator := c.GetString("operator")

	esc, err := h.escalations.Takeover(c.Request.Context(), c.Param("id"), operator)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Takeover failed"})
		return
	}
	if esc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Escalation not found"})
		return
	}
	c.JSON(http.StatusOK, esc)
}

func (h *Handler) ResolveEscalation(c *gin.Context) {
	esc, err := h.escalations.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Resolve failed"})
		return
	}
	if esc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Escalation not found"})
		return
	}
	c.JSON(http.StatusOK, esc)
}

func (h *Handler) ConnectSession(c *gin.Context) {
	client, err := h.sessions.Connect(c.Param("orgID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"connected": client.IsReady(),
		"logged_in": client.IsLoggedIn(),
	})
}

func (h *Handler) DestroySession(c *gin.Context) {
	h.sessions.Destroy(c.Param("orgID"))
	c.JSON(http.StatusOK, gin.H{"status": "destroyed"})
}

// LogoutSession clears the pairing so the next QR poll returns a fresh code.
func (h *Handler) LogoutSession(c *gin.Context) {
	if err := h.sessions.Logout(c.Param("orgID")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

func (h *Handler) SessionStatus(c *gin.Context) {
	orgID := c.Param("orgID")
	client := h.sessions.Get(orgID)
	if client == nil {
		c.JSON(http.StatusOK, gin.H{"connected": false, "logged_in": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"connected": client.IsReady(),
		"logged_in": client.IsLoggedIn(),
	})
}

// SessionQR returns the current pairing QR as a PNG, 404 while no pairing is
// in progress.
func (h *Handler) SessionQR(c *gin.Context) {
	client := h.sessions.Get(c.Param("orgID"))
	if client == nil || client.GetQR() == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "No QR code available"})
		return
	}

	png, err := qrcode.Encode(client.GetQR(), qrcode.Medium, 256)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render QR code"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
