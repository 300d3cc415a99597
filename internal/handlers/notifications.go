package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Maneldor/la-publica-new-sub022/internal/middleware"
	"github.com/Maneldor/la-publica-new-sub022/internal/notifications"
	"github.com/Maneldor/la-publica-new-sub022/internal/services"
	apperrors "github.com/Maneldor/la-publica-new-sub022/pkg/errors"
	"github.com/Maneldor/la-publica-new-sub022/pkg/response"
)

// NotificationHandler exposes HTTP endpoints for notifications.
type NotificationHandler struct {
	service *services.NotificationService
	hub     *notifications.Hub
}

// NewNotificationHandler constructs a notification handler.
func NewNotificationHandler(service *services.NotificationService, hub *notifications.Hub) (*NotificationHandler, error) {
	if service == nil {
		return nil, errors.New("notification handler: service is required")
	}
	return &NotificationHandler{service: service, hub: hub}, nil
}

// GET /api/v1/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	userID := middleware.ActorID(c)
	if userID == "" {
		response.Error(c, apperrors.NewValidation("actor id is required"))
		return
	}

	limit := parseIntQuery(c, "limit", 25)
	offset := parseIntQuery(c, "offset", 0)

	items, err := h.service.ListForUser(requestContext(c), services.ListNotificationsInput{
		UserID: userID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, items)
}

// POST /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := middleware.ActorID(c)
	if userID == "" {
		response.Error(c, apperrors.NewValidation("actor id is required"))
		return
	}

	dto, err := h.service.MarkRead(requestContext(c), userID, strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, dto)
}

// POST /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID := middleware.ActorID(c)
	if userID == "" {
		response.Error(c, apperrors.NewValidation("actor id is required"))
		return
	}

	if err := h.service.MarkAllRead(requestContext(c), userID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"read": true})
}

// GET /api/v1/notifications/ws
func (h *NotificationHandler) Stream(c *gin.Context) {
	userID := middleware.ActorID(c)
	if userID == "" {
		response.Error(c, apperrors.NewValidation("actor id is required"))
		return
	}
	if h.hub == nil {
		response.Error(c, apperrors.New("NOT_ENABLED", "realtime notifications are disabled", http.StatusServiceUnavailable))
		return
	}

	h.hub.Serve(userID, c.Writer, c.Request)
}
