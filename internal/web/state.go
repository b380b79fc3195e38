// File: internal/web/state.go
package web

import (
	"context"
	"io"
	"strings"
	"time"

	"fitcoach_backend/internal/auth"
	"fitcoach_backend/internal/authstate"
	"fitcoach_backend/internal/common"
	"fitcoach_backend/internal/guard"
	"fitcoach_backend/internal/profile"
	"fitcoach_backend/internal/role"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const streamKeepAlive = 15 * time.Second

// StatePayload is the client's auth state plus the decision for the requested role.
type StatePayload struct {
	Status          authstate.Status `json:"status"`
	Generation      uint64           `json:"generation"`
	BootstrapFailed bool             `json:"bootstrap_failed,omitempty"`
	Session         *auth.Session    `json:"session"`
	Profile         *profile.Profile `json:"profile"`
	Role            string           `json:"role"`
	Decision        guard.Decision   `json:"decision"`
}

func newStatePayload(v authstate.View, required role.Role) StatePayload {
	return StatePayload{
		Status:          v.Status,
		Generation:      v.Generation,
		BootstrapFailed: v.BootstrapFailed,
		Session:         v.Session,
		Profile:         v.Profile,
		Role:            role.Of(v.Profile).String(),
		Decision:        guard.Decide(v.Session, v.Profile, required),
	}
}

// RegisterStateRoutes mounts /auth/state and /auth/state/stream under router.
func (h *Handler) RegisterStateRoutes(router *gin.RouterGroup) {
	router.GET("/auth/state", h.state)
	router.GET("/auth/state/stream", h.stream)
}

func parseRequiredRole(c *gin.Context) (role.Role, bool) {
	raw := strings.ToLower(strings.TrimSpace(c.Query("role")))
	if raw == "" {
		return role.None, true
	}
	r := role.Parse(&raw)
	return r, r.Valid()
}

func (h *Handler) clientStore(c *gin.Context) (*authstate.Store, bool) {
	store, err := h.registry.Get(c.Request.Context(), common.GetClientIDFromContext(c))
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("A client id is required."))
		return nil, false
	}
	return store, true
}

func (h *Handler) state(c *gin.Context) {
	required, ok := parseRequiredRole(c)
	if !ok {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("role must be trainer or student."))
		return
	}
	store, ok := h.clientStore(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.wait)
	defer cancel()
	v, _ := store.Await(ctx)
	common.RespondOK(c, "Auth state retrieved.", newStatePayload(v, required))
}

// stream sends a "state" event now and after every change of the client's Store, so an open
// screen learns about a background sign-out without polling.
func (h *Handler) stream(c *gin.Context) {
	required, ok := parseRequiredRole(c)
	if !ok {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("role must be trainer or student."))
		return
	}
	store, ok := h.clientStore(c)
	if !ok {
		return
	}
	clientID := common.GetClientIDFromContext(c)
	keepAlive := h.keepAlive
	if keepAlive <= 0 {
		keepAlive = streamKeepAlive
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	changed := store.Changed()
	pending := true
	c.Stream(func(w io.Writer) bool {
		if pending {
			pending = false
			c.SSEvent("state", newStatePayload(store.View(), required))
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-changed:
			changed = store.Changed()
			c.SSEvent("state", newStatePayload(store.View(), required))
		case <-ticker.C:
			// Touching the registry keeps the store from idling out under an open stream.
			fresh, err := h.registry.Get(ctx, clientID)
			if err != nil {
				return false
			}
			if fresh != store {
				store, changed = fresh, fresh.Changed()
				c.SSEvent("state", newStatePayload(store.View(), required))
				return true
			}
			c.SSEvent("ping", gin.H{"generation": store.View().Generation})
		}
		return true
	})
	h.logger.Debug("Auth state stream closed", zap.String("clientID", clientID))
}
