// File: internal/profile/handler.go
package profile

import (
	"fitcoach_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for profile and roster handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new profile handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger.Named("ProfileHandler")}
}

// RegisterRoutes mounts /profile (any signed-in user) and /trainer/students (trainers).
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW, trainerMW gin.HandlerFunc) {
	profileGroup := router.Group("/profile", authMW)
	{
		profileGroup.POST("", h.provision)
		profileGroup.GET("/me", h.getMe)
		profileGroup.PUT("/me", h.updateMe)
		profileGroup.POST("/me/avatar", h.uploadAvatar)
		profileGroup.DELETE("/me/avatar", h.removeAvatar)
		profileGroup.POST("/me/first-login/complete", h.completeFirstLogin)
	}

	roster := router.Group("/trainer/students", trainerMW)
	{
		roster.GET("", h.listStudents)
		roster.POST("", h.addStudent)
		roster.GET("/:id", h.getStudent)
		roster.DELETE("/:id", h.removeStudent)
	}
}

func (h *Handler) currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID := common.GetUserIDFromContext(c)
	if userID == uuid.Nil {
		h.logger.Error("User ID not found in context", zap.String("path", c.Request.URL.Path))
		common.RespondWithError(c, common.ErrUnauthorized)
		return uuid.Nil, false
	}
	return userID, true
}

func (h *Handler) provision(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var req ProvisionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Provision profile: invalid request body", zap.Error(err))
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	p, err := h.service.Provision(c.Request.Context(), userID, c.GetString(common.UserEmailKey), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Profile created successfully.", p)
}

func (h *Handler) getMe(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	p, err := h.service.GetProfile(c.Request.Context(), userID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Profile retrieved successfully.", p)
}

func (h *Handler) updateMe(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	p, err := h.service.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Profile updated successfully.", p)
}

func (h *Handler) uploadAvatar(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Missing avatar file."))
		return
	}
	p, err := h.service.UploadAvatar(c.Request.Context(), userID, fileHeader)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Avatar updated successfully.", p)
}

func (h *Handler) removeAvatar(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	p, err := h.service.RemoveAvatar(c.Request.Context(), userID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Avatar removed successfully.", p)
}

func (h *Handler) completeFirstLogin(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	p, err := h.service.CompleteFirstLogin(c.Request.Context(), userID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Welcome aboard.", p)
}

func (h *Handler) listStudents(c *gin.Context) {
	trainerID, ok := h.currentUser(c)
	if !ok {
		return
	}
	students, err := h.service.ListStudents(c.Request.Context(), trainerID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Students retrieved successfully.", students)
}

func (h *Handler) addStudent(c *gin.Context) {
	trainerID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var req AddStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Add student: invalid request body", zap.Error(err))
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	resp, err := h.service.AddStudent(c.Request.Context(), trainerID, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Student added successfully.", resp)
}

func (h *Handler) getStudent(c *gin.Context) {
	trainerID, ok := h.currentUser(c)
	if !ok {
		return
	}
	studentID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	p, err := h.service.GetStudentForTrainer(c.Request.Context(), trainerID, studentID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Student retrieved successfully.", p)
}

func (h *Handler) removeStudent(c *gin.Context) {
	trainerID, ok := h.currentUser(c)
	if !ok {
		return
	}
	studentID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if err := h.service.RemoveStudent(c.Request.Context(), trainerID, studentID); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}
