// File: internal/web/screens.go

// Package web serves the navigable screens and the client auth state endpoints. Screens are
// JSON descriptors; the front end renders them.
package web

import (
	"context"
	"net/http"
	"time"

	"fitcoach_backend/internal/auth"
	"fitcoach_backend/internal/authstate"
	"fitcoach_backend/internal/common"
	"fitcoach_backend/internal/guard"
	"fitcoach_backend/internal/role"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Screen describes what the client should render.
type Screen struct {
	Name    string      `json:"screen"`
	Title   string      `json:"title"`
	Error   string      `json:"error,omitempty"`
	Content interface{} `json:"content,omitempty"`
}

// SessionActions is the part of the auth collaborator the login screens drive.
type SessionActions interface {
	SignIn(ctx context.Context, clientID, email, password string) (*auth.Session, error)
	SignOut(ctx context.Context, clientID string) error
}

// Handler serves screens and auth state.
type Handler struct {
	actions  SessionActions
	registry *authstate.Registry
	guard    *guard.Guard
	wait     time.Duration
	logger   *zap.Logger

	keepAlive time.Duration
}

// NewHandler creates a web handler. wait bounds how long a request waits for the client's
// auth state to settle.
func NewHandler(actions SessionActions, registry *authstate.Registry, g *guard.Guard, wait time.Duration, logger *zap.Logger) *Handler {
	return &Handler{actions: actions, registry: registry, guard: g, wait: wait, logger: logger.Named("WebHandler")}
}

// RegisterRoutes mounts the screens on router. signInLimiter may be nil.
func (h *Handler) RegisterRoutes(router gin.IRoutes, signInLimiter gin.HandlerFunc) {
	router.GET("/", h.root)
	router.GET("/login", h.loginScreen)
	if signInLimiter != nil {
		router.POST("/login", signInLimiter, h.login)
	} else {
		router.POST("/login", h.login)
	}
	router.POST("/logout", h.logout)
	router.GET("/welcome", h.guard.Pages(role.None), h.welcome)
	router.GET(role.TrainerHome, h.guard.Pages(role.Trainer), h.trainerDashboard)
	router.GET(role.StudentHome, h.guard.Pages(role.Student), h.studentDashboard)
}

// root sends a visitor where they belong: login, the neutral landing or their dashboard.
func (h *Handler) root(c *gin.Context) {
	subject, _ := h.guard.Evaluate(c, role.None)
	// Asking for the trainer area yields the right target for every other state.
	d := guard.Decide(subject.Session, subject.Profile, role.Trainer)
	target := d.Target
	if d.Render() {
		target = role.TrainerHome
	}
	c.Redirect(http.StatusSeeOther, target)
}

func (h *Handler) loginScreen(c *gin.Context) {
	if subject, _ := h.guard.Evaluate(c, role.None); subject.Session != nil {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	c.JSON(http.StatusOK, loginScreen(""))
}

func loginScreen(errMsg string) Screen {
	return Screen{Name: "login", Title: "Sign in", Error: errMsg}
}

// login signs the client in, then waits until its Store reflects the new session so the
// following navigation is decided on it.
func (h *Handler) login(c *gin.Context) {
	var req auth.SignInRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, loginScreen("Enter your email and password."))
		return
	}
	clientID := common.GetClientIDFromContext(c)
	sess, err := h.actions.SignIn(c.Request.Context(), clientID, req.Email, req.Password)
	if err != nil {
		msg := auth.ErrInvalidCredentials.Message
		status := http.StatusUnauthorized
		if apiErr, ok := common.IsAPIError(err); ok {
			msg, status = apiErr.Message, apiErr.StatusCode
		} else {
			h.logger.Warn("Sign-in failed", zap.Error(err))
		}
		c.JSON(status, loginScreen(msg))
		return
	}

	h.awaitStore(c, func(v authstate.View) bool {
		return v.Session != nil && v.Session.ID == sess.ID && v.Status != authstate.StatusResolving
	})
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) logout(c *gin.Context) {
	clientID := common.GetClientIDFromContext(c)
	if err := h.actions.SignOut(c.Request.Context(), clientID); err != nil {
		// Local state is what matters; the session will expire on its own.
		h.logger.Warn("Sign-out failed", zap.String("clientID", clientID), zap.Error(err))
	}
	h.awaitStore(c, func(v authstate.View) bool { return v.Session == nil })
	c.Redirect(http.StatusSeeOther, guard.LoginPath)
}

// awaitStore waits, at most h.wait, for the client's Store to satisfy pred.
func (h *Handler) awaitStore(c *gin.Context, pred func(authstate.View) bool) {
	clientID := common.GetClientIDFromContext(c)
	store, err := h.registry.Get(c.Request.Context(), clientID)
	if err != nil {
		h.logger.Warn("No auth state for client", zap.String("clientID", clientID), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.wait)
	defer cancel()
	if _, err := store.WaitFor(ctx, pred); err != nil {
		h.logger.Debug("Auth state did not settle in time", zap.String("clientID", clientID), zap.Error(err))
	}
}

func (h *Handler) welcome(c *gin.Context) {
	p := guard.ProfileFromContext(c)
	content := gin.H{"email": c.GetString(common.UserEmailKey), "needs_profile": p == nil}
	if p != nil {
		content["name"] = p.Name
		content["dashboard"] = p.Role().Home()
		content["first_login"] = p.IsFirstLogin
	}
	c.JSON(http.StatusOK, Screen{Name: "welcome", Title: "Welcome", Content: content})
}

func (h *Handler) trainerDashboard(c *gin.Context) {
	p := guard.ProfileFromContext(c)
	c.JSON(http.StatusOK, Screen{Name: "trainer_dashboard", Title: "Trainer dashboard", Content: gin.H{
		"name":           p.Name,
		"specialization": p.Specialization,
		"first_login":    p.IsFirstLogin,
	}})
}

func (h *Handler) studentDashboard(c *gin.Context) {
	p := guard.ProfileFromContext(c)
	c.JSON(http.StatusOK, Screen{Name: "student_dashboard", Title: "Student dashboard", Content: gin.H{
		"name":        p.Name,
		"trainer_id":  p.TrainerID,
		"objective":   p.Objective,
		"first_login": p.IsFirstLogin,
	}})
}
