// File: internal/progress/handler.go
package progress

import (
	"fitcoach_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for progress handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new progress handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger.Named("ProgressHandler")}
}

// RegisterRoutes mounts progress and measurement routes. Logging progress requires a student.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW, studentMW gin.HandlerFunc) {
	entries := router.Group("/progress", studentMW)
	{
		entries.POST("", h.record)
		entries.PUT("/:id", h.update)
	}
	router.GET("/workouts/:id/progress", authMW, h.listForWorkout)

	students := router.Group("/students/:id", authMW)
	{
		students.GET("/progress", h.listForStudent)
		students.POST("/measurements", h.recordMeasurement)
		students.GET("/measurements", h.listMeasurements)
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

// userAndParam reads the caller and the :id path parameter.
func (h *Handler) userAndParam(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := h.currentUser(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}

func (h *Handler) record(c *gin.Context) {
	studentID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var req RecordProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Record progress: invalid request body", zap.Error(err))
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	p, err := h.service.Record(c.Request.Context(), studentID, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Progress recorded successfully.", p)
}

func (h *Handler) update(c *gin.Context) {
	studentID, id, ok := h.userAndParam(c)
	if !ok {
		return
	}
	var req UpdateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	p, err := h.service.Update(c.Request.Context(), studentID, id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Progress updated successfully.", p)
}

func (h *Handler) listForWorkout(c *gin.Context) {
	userID, workoutID, ok := h.userAndParam(c)
	if !ok {
		return
	}
	entries, err := h.service.ListForWorkout(c.Request.Context(), userID, workoutID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Progress retrieved successfully.", entries)
}

func (h *Handler) listForStudent(c *gin.Context) {
	userID, studentID, ok := h.userAndParam(c)
	if !ok {
		return
	}
	entries, err := h.service.ListForStudent(c.Request.Context(), userID, studentID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Progress retrieved successfully.", entries)
}

func (h *Handler) recordMeasurement(c *gin.Context) {
	userID, studentID, ok := h.userAndParam(c)
	if !ok {
		return
	}
	var req RecordMeasurementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	m, err := h.service.RecordMeasurement(c.Request.Context(), userID, studentID, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Measurement recorded successfully.", m)
}

func (h *Handler) listMeasurements(c *gin.Context) {
	userID, studentID, ok := h.userAndParam(c)
	if !ok {
		return
	}
	ms, err := h.service.ListMeasurements(c.Request.Context(), userID, studentID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Measurements retrieved successfully.", ms)
}
