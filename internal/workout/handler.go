// File: internal/workout/handler.go
package workout

import (
	"fitcoach_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for workout handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new workout handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger.Named("WorkoutHandler")}
}

// RegisterRoutes mounts workout routes. Reads are open to any signed-in user and the service
// checks ownership; writes require a trainer.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW, trainerMW gin.HandlerFunc) {
	workouts := router.Group("/workouts")
	{
		workouts.POST("", trainerMW, h.create)
		workouts.GET("/:id", authMW, h.get)
		workouts.PUT("/:id", trainerMW, h.update)
		workouts.DELETE("/:id", trainerMW, h.deactivate)
	}

	trainer := router.Group("/trainer/workouts", trainerMW)
	{
		trainer.GET("", h.listForTrainer)
		trainer.GET("/search", h.search)
	}

	router.GET("/students/:id/workouts", authMW, h.listForStudent)
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

func (h *Handler) create(c *gin.Context) {
	trainerID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var req CreateWorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Create workout: invalid request body", zap.Error(err))
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	w, err := h.service.Create(c.Request.Context(), trainerID, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Workout created successfully.", w)
}

func (h *Handler) get(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	w, err := h.service.Get(c.Request.Context(), userID, id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Workout retrieved successfully.", w)
}

func (h *Handler) update(c *gin.Context) {
	trainerID, ok := h.currentUser(c)
	if !ok {
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	var req UpdateWorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	w, err := h.service.Update(c.Request.Context(), trainerID, id, req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Workout updated successfully.", w)
}

func (h *Handler) deactivate(c *gin.Context) {
	trainerID, ok := h.currentUser(c)
	if !ok {
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if err := h.service.Deactivate(c.Request.Context(), trainerID, id); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

func (h *Handler) listForTrainer(c *gin.Context) {
	trainerID, ok := h.currentUser(c)
	if !ok {
		return
	}
	page, pageSize := common.GetPaginationParams(c)
	workouts, pagination, err := h.service.ListForTrainer(c.Request.Context(), trainerID, page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Workouts retrieved successfully.", workouts, pagination)
}

func (h *Handler) search(c *gin.Context) {
	trainerID, ok := h.currentUser(c)
	if !ok {
		return
	}
	workouts, err := h.service.Search(c.Request.Context(), trainerID, c.Query("q"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Workouts retrieved successfully.", workouts)
}

func (h *Handler) listForStudent(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	studentID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	workouts, err := h.service.ListForStudent(c.Request.Context(), userID, studentID)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Workouts retrieved successfully.", workouts)
}
