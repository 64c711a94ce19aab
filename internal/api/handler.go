package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/camm-community/camm-server/internal/broadcast"
	"github.com/camm-community/camm-server/internal/config"
	"github.com/camm-community/camm-server/internal/ingest"
	"github.com/camm-community/camm-server/internal/repository"
)

type Handler struct {
	cfg         *config.Config
	alerts      repository.AlertRepository
	users       repository.UserRepository
	ingest      *ingest.Service
	broadcaster *broadcast.Broadcaster
}

func NewHandler(cfg *config.Config, alerts repository.AlertRepository, users repository.UserRepository, svc *ingest.Service, broadcaster *broadcast.Broadcaster) *Handler {
	return &Handler{
		cfg:         cfg,
		alerts:      alerts,
		users:       users,
		ingest:      svc,
		broadcaster: broadcaster,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/api/health", h.health)

	// Live delivery and detector ingestion share the /api/alert path; CORS
	// preflight is answered by the cors middleware installed in main.
	r.GET("/api/alert", h.streamAlerts)
	r.GET("/api/alert/ws", h.streamAlertsWS)
	r.POST("/api/alert", h.reportFall)

	r.POST("/api/alerts/trigger", BearerAuthMiddleware(h.cfg.Ingest.APIKey), h.triggerAlert)
	r.POST("/api/alerts", h.createAlert)
	r.GET("/api/alerts", h.listAlerts)
	r.GET("/api/alerts/:id", h.getAlert)
	r.PATCH("/api/alerts/:id", h.updateAlert)

	r.POST("/api/users/register", h.registerUser)
	r.GET("/api/users", h.listUsers)
	r.GET("/api/users/:id", h.getUser)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "CAMM API is running"})
}
