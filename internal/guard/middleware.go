// File: internal/guard/middleware.go
package guard

import (
	"net/http"

	"fitcoach_backend/internal/auth"
	"fitcoach_backend/internal/common"
	"fitcoach_backend/internal/platform/metrics"
	"fitcoach_backend/internal/profile"
	"fitcoach_backend/internal/role"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// API rejections for guarded JSON routes.
var (
	ErrLoginRequired         = common.ErrUnauthorized.WithMessage("Sign in to continue.")
	ErrProfileNotProvisioned = common.NewAPIError(http.StatusForbidden, "PROFILE_NOT_PROVISIONED", "Complete your profile to continue.")
	ErrRoleMismatch          = common.NewAPIError(http.StatusForbidden, "ROLE_MISMATCH", "This area belongs to a different role.")
)

// Subject is who is navigating: a session, and the profile resolved for it if any.
type Subject struct {
	Session *auth.Session
	Profile *profile.Profile
}

// Resolver finds the Subject of a request.
type Resolver interface {
	Resolve(c *gin.Context) (Subject, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(c *gin.Context) (Subject, error)

func (f ResolverFunc) Resolve(c *gin.Context) (Subject, error) { return f(c) }

// Guard turns Decide into gin middleware. Requests with a bearer token go through tokens,
// everything else through sessions (the per-client auth state).
type Guard struct {
	sessions Resolver
	tokens   Resolver
	metrics  metrics.Recorder
	logger   *zap.Logger
}

// New creates a Guard. tokens may be nil to disable bearer access.
func New(sessions, tokens Resolver, rec metrics.Recorder, logger *zap.Logger) *Guard {
	if rec == nil {
		rec = metrics.Nop()
	}
	return &Guard{sessions: sessions, tokens: tokens, metrics: rec, logger: logger.Named("Guard")}
}

func (g *Guard) resolve(c *gin.Context) Subject {
	r := g.sessions
	if g.tokens != nil && common.GetTokenFromContext(c) != "" {
		r = g.tokens
	}
	subject, err := r.Resolve(c)
	if err != nil {
		// Any resolution failure is treated as signed out.
		g.logger.Debug("Could not resolve subject", zap.String("path", c.Request.URL.Path), zap.Error(err))
		return Subject{}
	}
	return subject
}

// Evaluate resolves the caller, decides, records the decision and, when a session exists,
// publishes the caller's identity on the context.
func (g *Guard) Evaluate(c *gin.Context, required role.Role) (Subject, Decision) {
	subject := g.resolve(c)
	decision := Decide(subject.Session, subject.Profile, required)
	g.metrics.RecordGuardDecision(string(decision.State))

	if s := subject.Session; s != nil {
		c.Set(common.UserIDKey, s.UserID)
		c.Set(common.UserEmailKey, s.Email)
		c.Set(common.SessionIDKey, s.ID)
		if subject.Profile != nil {
			c.Set(common.ProfileKey, subject.Profile)
		}
		c.Set(common.UserRoleKey, role.Of(subject.Profile).String())
	}
	return subject, decision
}

// Pages guards server-driven screens: denied navigations get a 303 to the decision target.
func (g *Guard) Pages(required role.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, d := g.Evaluate(c, required)
		if d.Render() {
			c.Next()
			return
		}
		c.Redirect(http.StatusSeeOther, d.Target)
		c.Abort()
	}
}

// API guards JSON routes, mapping redirects onto error responses.
func (g *Guard) API(required role.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, d := g.Evaluate(c, required)
		if d.Render() {
			c.Next()
			return
		}
		common.RespondWithError(c, APIError(d))
	}
}

// APIError is the error an API route answers with for a denied decision.
func APIError(d Decision) *common.APIError {
	switch d.State {
	case StateNoSession:
		return ErrLoginRequired
	case StateSessionNoRole:
		return ErrProfileNotProvisioned.WithDetails(gin.H{"redirect_to": d.Target})
	default:
		return ErrRoleMismatch.WithDetails(gin.H{"redirect_to": d.Target})
	}
}

// ProfileFromContext returns the profile Evaluate stored, or nil.
func ProfileFromContext(c *gin.Context) *profile.Profile {
	if v, ok := c.Get(common.ProfileKey); ok {
		if p, ok := v.(*profile.Profile); ok {
			return p
		}
	}
	return nil
}
