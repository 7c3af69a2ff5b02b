package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"taskflow/pkg/jwt"
	"taskflow/pkg/logger"
	"taskflow/pkg/models"
	"taskflow/services/notification/internal/realtime"
	"taskflow/services/notification/internal/scheduler"
	"taskflow/services/notification/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// JobRunner runs a scheduled job on demand.
type JobRunner interface {
	RunJob(ctx context.Context, job string) (*scheduler.Report, error)
}

type NotificationHandler struct {
	notificationUseCase usecase.NotificationUseCase
	jobs                JobRunner
	hub                 *realtime.Hub
	logger              *logger.Logger
	jwtService          *jwt.Service
}

func NewNotificationHandler(notificationUseCase usecase.NotificationUseCase, jobs JobRunner, hub *realtime.Hub, logger *logger.Logger, jwtService *jwt.Service) *NotificationHandler {
	return &NotificationHandler{
		notificationUseCase: notificationUseCase,
		jobs:                jobs,
		hub:                 hub,
		logger:              logger,
		jwtService:          jwtService,
	}
}

// GetNotifications godoc
// @Summary      Get user notifications
// @Description  Get the authenticated user's notifications, newest first
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        page query int false "Page number (default 1)"
// @Param        limit query int false "Page size (default 20, max 100)"
// @Param        read query bool false "Filter by read state"
// @Success      200  {object}  entity.Page
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /notifications [get]
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	page := 1
	if pageStr := c.Query("page"); pageStr != "" {
		if parsedPage, err := strconv.Atoi(pageStr); err == nil && parsedPage > 0 {
			page = parsedPage
		}
	}

	limit := usecase.DefaultPageLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= usecase.MaxPageLimit {
			limit = parsedLimit
		}
	}

	var read *bool
	if readStr := c.Query("read"); readStr != "" {
		parsedRead, err := strconv.ParseBool(readStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "read must be true or false"})
			return
		}
		read = &parsedRead
	}

	result, err := h.notificationUseCase.GetNotifications(c.Request.Context(), userID, page, limit, read)
	if err != nil {
		h.logger.Error("Failed to get notifications: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get notifications"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetUnreadCount godoc
// @Summary      Get unread notification count
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]string
// @Router       /notifications/unread-count [get]
func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	count, err := h.notificationUseCase.GetUnreadCount(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to count unread notifications: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count unread notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// MarkAsRead godoc
// @Summary      Mark a notification as read
// @Description  Marks the notification read for the authenticated user only
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Notification ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /notifications/{id}/read [put]
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	notificationID := c.Param("id")
	if err := h.notificationUseCase.MarkAsRead(c.Request.Context(), userID, notificationID); err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
			return
		}
		h.logger.Error("Failed to mark notification %s read: %v", notificationID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notification as read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

// MarkAllAsRead godoc
// @Summary      Mark all notifications as read
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]string
// @Router       /notifications/read-all [put]
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	updated, err := h.notificationUseCase.MarkAllAsRead(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to mark all notifications read: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notifications as read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// DeleteNotification godoc
// @Summary      Delete a notification
// @Description  Removes the notification from the authenticated user's list
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Notification ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /notifications/{id} [delete]
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	notificationID := c.Param("id")
	if err := h.notificationUseCase.DeleteNotification(c.Request.Context(), userID, notificationID); err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
			return
		}
		h.logger.Error("Failed to delete notification %s: %v", notificationID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete notification"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted"})
}

// GetPreferences godoc
// @Summary      Get notification preferences
// @Description  Effective on/off setting for every notification type
// @Tags         preferences
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]bool
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /notifications/preferences [get]
func (h *NotificationHandler) GetPreferences(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	prefs, err := h.notificationUseCase.GetPreferences(c.Request.Context(), userID)
	if err != nil {
		h.writePreferenceError(c, err)
		return
	}

	c.JSON(http.StatusOK, prefs)
}

// UpdatePreferences godoc
// @Summary      Update notification preferences
// @Description  Merges the given type -> enabled map into the stored preferences
// @Tags         preferences
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body map[string]bool true "Preferences"
// @Success      200  {object}  map[string]bool
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /notifications/preferences [put]
func (h *NotificationHandler) UpdatePreferences(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req map[string]bool
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prefs, err := h.notificationUseCase.UpdatePreferences(c.Request.Context(), userID, req)
	if err != nil {
		h.writePreferenceError(c, err)
		return
	}

	c.JSON(http.StatusOK, prefs)
}

func (h *NotificationHandler) writePreferenceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrUnknownType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrUserMissing):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	default:
		h.logger.Error("Failed to handle preferences: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to handle preferences"})
	}
}

// RunJob godoc
// @Summary      Run a reminder job now
// @Description  Runs the due-soon or overdue job once and returns its report
// @Tags         jobs
// @Produce      json
// @Security     BearerAuth
// @Param        job path string true "Job name (due-soon or overdue)"
// @Success      200  {object}  scheduler.Report
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /notifications/jobs/{job}/run [post]
func (h *NotificationHandler) RunJob(c *gin.Context) {
	job := c.Param("job")

	// Jobs scan every user's items, so only admins may trigger them
	if c.GetString("role") != string(models.RoleAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only admins can run jobs"})
		return
	}

	report, err := h.jobs.RunJob(c.Request.Context(), job)
	if err != nil {
		switch {
		case errors.Is(err, scheduler.ErrUnknownJob):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, scheduler.ErrJobRunning):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.logger.Error("Failed to run job %s: %v", job, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run job"})
		}
		return
	}

	c.JSON(http.StatusOK, report)
}

// HandleWebSocket godoc
// @Summary      Live notification stream
// @Description  WebSocket of {"event": "notification"|"unreadCount", "data": ...} messages
// @Tags         notifications
// @Param        token query string true "JWT token"
// @Router       /notifications/ws [get]
func (h *NotificationHandler) HandleWebSocket(c *gin.Context) {
	userID := c.GetString("user_id")

	if userID == "" {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token required"})
			return
		}

		claims, err := h.jwtService.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		userID = claims.UserID
	}

	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection to WebSocket: %v", err)
		return
	}

	h.hub.Serve(c.Request.Context(), conn, userID)
}
