// File: internal/auth/handler.go
package auth

import (
	"context"

	"fitcoach_backend/internal/common"
	"fitcoach_backend/internal/profile"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProfileProvisioner creates the profile row for a freshly signed-up user.
type ProfileProvisioner interface {
	Provision(ctx context.Context, userID uuid.UUID, email string, in profile.ProvisionInput) (*profile.Profile, error)
}

// Handler struct holds dependencies for auth handlers.
type Handler struct {
	provider    Provider
	provisioner ProfileProvisioner
	logger      *zap.Logger
}

// NewHandler creates a new auth handler.
func NewHandler(provider Provider, provisioner ProfileProvisioner, logger *zap.Logger) *Handler {
	return &Handler{
		provider:    provider,
		provisioner: provisioner,
		logger:      logger.Named("AuthHandler"),
	}
}

// RegisterRoutes sets up the routes for authentication operations. signInLimiter guards the
// password endpoints and may be nil.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, signInLimiter gin.HandlerFunc) {
	authGroup := router.Group("/auth")
	limited := []gin.HandlerFunc{}
	if signInLimiter != nil {
		limited = append(limited, signInLimiter)
	}
	{
		authGroup.POST("/signup", append(limited, h.signUp)...)
		authGroup.POST("/signin", append(limited, h.signIn)...)
		authGroup.POST("/signout", h.signOut)
		authGroup.POST("/refresh", h.refresh)
		authGroup.GET("/session", h.currentSession)
	}
}

func (h *Handler) signUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Sign-up: invalid request body", zap.Error(err))
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	clientID := common.GetClientIDFromContext(c)

	sess, err := h.provider.SignUp(c.Request.Context(), clientID, req.Email, req.Password)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	resp := gin.H{"session": newSessionResponse(sess)}
	if req.UserType != "" && h.provisioner != nil {
		p, err := h.provisioner.Provision(c.Request.Context(), sess.UserID, sess.Email, profile.ProvisionInput{
			Name:           req.Name,
			UserType:       req.UserType,
			Specialization: req.Specialization,
			Height:         req.Height,
			Weight:         req.Weight,
			Objective:      req.Objective,
		})
		if err != nil {
			// The account exists; the client lands on the welcome screen and can retry via POST /profile.
			h.logger.Error("Sign-up succeeded but profile provisioning failed",
				zap.String("userID", sess.UserID.String()), zap.Error(err))
		} else {
			resp["profile"] = p
		}
	}
	common.RespondCreated(c, "Account created successfully.", resp)
}

func (h *Handler) signIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.Warn("Sign-in: invalid request body", zap.Error(err))
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	sess, err := h.provider.SignIn(c.Request.Context(), common.GetClientIDFromContext(c), req.Email, req.Password)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Signed in successfully.", newSessionResponse(sess))
}

func (h *Handler) signOut(c *gin.Context) {
	if err := h.provider.SignOut(c.Request.Context(), common.GetClientIDFromContext(c)); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Signed out successfully.", nil)
}

func (h *Handler) refresh(c *gin.Context) {
	sess, err := h.provider.Refresh(c.Request.Context(), common.GetClientIDFromContext(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Session refreshed.", newSessionResponse(sess))
}

func (h *Handler) currentSession(c *gin.Context) {
	sess, err := h.provider.CurrentSession(c.Request.Context(), common.GetClientIDFromContext(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	if sess == nil {
		common.RespondWithError(c, ErrSessionNotFound)
		return
	}
	common.RespondOK(c, "Session retrieved successfully.", newSessionResponse(sess))
}
