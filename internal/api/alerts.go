package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/camm-community/camm-server/internal/ingest"
	"github.com/camm-community/camm-server/internal/models"
)

// fallReportRequest accepts both the detector's original field names
// (userId/fallDetected) and the subjectId/fallConfirmed aliases.
type fallReportRequest struct {
	UserID        any    `json:"userId"`
	SubjectID     any    `json:"subjectId"`
	Address       string `json:"address"`
	FallDetected  bool   `json:"fallDetected"`
	FallConfirmed bool   `json:"fallConfirmed"`
}

type triggerRequest struct {
	UserID    any    `json:"userId"`
	SubjectID any    `json:"subjectId"`
	AlertType string `json:"alertType"`
	Kind      string `json:"kind"`
	Location  string `json:"location"`
	Message   string `json:"message"`
	Guidance  string `json:"aiResponse"`
}

type createAlertRequest struct {
	UserID   int64  `json:"userId"`
	Kind     string `json:"alertType"`
	Location string `json:"location"`
	Message  string `json:"message"`
}

type updateAlertRequest struct {
	Status      string `json:"status"`
	RespondedBy string `json:"respondedBy"`
}

func (h *Handler) reportFall(c *gin.Context) {
	var req fallReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	subject := subjectID(req.SubjectID, req.UserID)
	ev, notified, err := h.ingest.ReportFall(subject, req.Address, req.FallDetected || req.FallConfirmed)
	if err != nil {
		if errors.Is(err, ingest.ErrFallNotConfirmed) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No fall detected"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to process fall report"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"clientsNotified": notified,
		"eventData":       ev,
	})
}

func (h *Handler) triggerAlert(c *gin.Context) {
	var req triggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	kind := req.AlertType
	if kind == "" {
		kind = req.Kind
	}

	subject := subjectID(req.SubjectID, req.UserID)
	ev, notified, err := h.ingest.Trigger(subject, models.AlertKind(kind), req.Location, req.Message, req.Guidance)
	if err != nil {
		if errors.Is(err, ingest.ErrKindRequired) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "alertType is required"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to trigger alert"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"clientsNotified": notified,
		"alert":           ev,
	})
}

func (h *Handler) createAlert(c *gin.Context) {
	var req createAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == 0 || req.Kind == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: userId and alertType are required"})
		return
	}

	ctx := c.Request.Context()

	user, err := h.users.GetUserByID(ctx, req.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create alert"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found or has not given consent"})
		return
	}

	id, err := h.alerts.CreateAlert(ctx, &models.Alert{
		UserID:    req.UserID,
		Kind:      models.AlertKind(req.Kind),
		Location:  req.Location,
		Message:   req.Message,
		Status:    models.AlertStatusActive,
		CreatedAt: time.Now(),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create alert"})
		return
	}

	alert, err := h.alerts.GetAlertByID(ctx, id)
	if err != nil || alert == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create alert"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Alert created successfully",
		"alert":   alert,
	})
}

func (h *Handler) listAlerts(c *gin.Context) {
	alerts, err := h.alerts.ListActiveAlerts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch alerts"})
		return
	}
	if alerts == nil {
		alerts = []models.AlertWithSubject{}
	}
	c.JSON(http.StatusOK, alerts)
}

func (h *Handler) getAlert(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return
	}

	alert, err := h.alerts.GetAlertByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch alert"})
		return
	}
	if alert == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}
	c.JSON(http.StatusOK, alert)
}

func (h *Handler) updateAlert(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return
	}

	var req updateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status is required"})
		return
	}

	// No forward-only transition guard: any status value may overwrite any
	// other, matching the permissive contract responders rely on today.
	changes, err := h.alerts.UpdateAlertStatus(c.Request.Context(), id, models.AlertStatus(req.Status), req.RespondedBy)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update alert"})
		return
	}
	if changes == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}

	h.ingest.PublishStatusUpdate(id, models.AlertStatus(req.Status), req.RespondedBy)

	c.JSON(http.StatusOK, gin.H{"message": "Alert updated successfully"})
}

// subjectID normalizes the loosely-typed id producers send: JSON strings pass
// through, integral numbers are formatted, anything else reads as unknown.
func subjectID(candidates ...any) string {
	for _, v := range candidates {
		switch id := v.(type) {
		case string:
			if id != "" {
				return id
			}
		case float64:
			return strconv.FormatInt(int64(id), 10)
		}
	}
	return ""
}
