// File: internal/guard/token.go
package guard

import (
	"context"
	"time"

	"fitcoach_backend/internal/auth"
	"fitcoach_backend/internal/common"
	"fitcoach_backend/internal/profile"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenSessions resolves bearer tokens.
type TokenSessions interface {
	SessionFromToken(ctx context.Context, accessToken string) (*auth.Session, error)
}

// ProfileFetcher looks a profile up; (nil, nil) means there is none.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, id uuid.UUID) (*profile.Profile, error)
}

// TokenResolver serves API clients that present an access token instead of a client id.
type TokenResolver struct {
	sessions     TokenSessions
	profiles     ProfileFetcher
	fetchTimeout time.Duration
	logger       *zap.Logger
}

// NewTokenResolver creates a TokenResolver. Profile lookups are bounded by fetchTimeout.
func NewTokenResolver(sessions TokenSessions, profiles ProfileFetcher, fetchTimeout time.Duration, logger *zap.Logger) *TokenResolver {
	return &TokenResolver{sessions: sessions, profiles: profiles, fetchTimeout: fetchTimeout, logger: logger.Named("TokenResolver")}
}

func (r *TokenResolver) Resolve(c *gin.Context) (Subject, error) {
	token := common.GetTokenFromContext(c)
	if token == "" {
		return Subject{}, nil
	}
	sess, err := r.sessions.SessionFromToken(c.Request.Context(), token)
	if err != nil {
		return Subject{}, err
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), r.fetchTimeout)
	defer cancel()
	p, err := r.profiles.FetchProfile(ctx, sess.UserID)
	if err != nil {
		// Session without a role: the guard sends the caller to the neutral landing.
		r.logger.Warn("Profile fetch failed for bearer session", zap.String("userID", sess.UserID.String()), zap.Error(err))
		p = nil
	}
	return Subject{Session: sess, Profile: p}, nil
}
