// File: internal/notification/handler.go
package notification

import (
	"context"

	"fitcoach_backend/internal/common"
	"fitcoach_backend/internal/profile"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Roster confirms that a student belongs to a trainer.
type Roster interface {
	GetStudentForTrainer(ctx context.Context, trainerID, studentID uuid.UUID) (*profile.Profile, error)
}

type Handler struct {
	service Service
	roster  Roster
	logger  *zap.Logger
}

func NewHandler(service Service, roster Roster, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		roster:  roster,
		logger:  logger,
	}
}

// RegisterRoutes sets up the routes for notification operations.
// All routes in this group should be authenticated.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("", h.getNotifications)
	router.GET("/unread-count", h.unreadCount)
	router.POST("/:notification_id/mark-read", h.markNotificationAsRead)
	router.POST("/mark-all-read", h.markAllNotificationsAsRead)
	router.POST("/devices", h.registerDevice)
	router.DELETE("/devices/:token", h.unregisterDevice)
}

// RegisterTrainerRoutes mounts trainer-only routes; the group must already be trainer guarded.
func (h *Handler) RegisterTrainerRoutes(router *gin.RouterGroup) {
	router.POST("/motivation", h.sendMotivation)
}

func (h *Handler) sendMotivation(c *gin.Context) {
	trainerID := common.GetUserIDFromContext(c)
	if trainerID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}
	var req CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	if _, err := h.roster.GetStudentForTrainer(c.Request.Context(), trainerID, req.UserID); err != nil {
		common.RespondWithError(c, err)
		return
	}
	n, err := h.service.CreateNotification(c.Request.Context(), req.UserID, TypeMotivation, req.Title, req.Message, &trainerID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Message sent.", n)
}

func (h *Handler) getNotifications(c *gin.Context) {
	userID := common.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}

	page, pageSize := common.GetPaginationParams(c)

	notifications, pagination, err := h.service.GetNotificationsForUser(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Notifications retrieved successfully.", notifications, pagination)
}

func (h *Handler) unreadCount(c *gin.Context) {
	userID := common.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}
	n, err := h.service.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "", gin.H{"unread": n})
}

func (h *Handler) markNotificationAsRead(c *gin.Context) {
	userID := common.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}

	notificationID, err := common.ParseUUIDParam(c, "notification_id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	if err := h.service.MarkNotificationAsRead(c.Request.Context(), notificationID, userID); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Notification marked as read successfully.", nil)
}

func (h *Handler) markAllNotificationsAsRead(c *gin.Context) {
	userID := common.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}

	count, err := h.service.MarkAllUserNotificationsAsRead(c.Request.Context(), userID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "All notifications marked as read successfully.", gin.H{"updated": count})
}

func (h *Handler) registerDevice(c *gin.Context) {
	userID := common.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}
	var req RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	if err := h.service.RegisterDevice(c.Request.Context(), userID, req); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Device registered.", nil)
}

func (h *Handler) unregisterDevice(c *gin.Context) {
	userID := common.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}
	token := c.Param("token")
	if token == "" {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Missing device token."))
		return
	}
	if err := h.service.UnregisterDevice(c.Request.Context(), userID, token); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}
