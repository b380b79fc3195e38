// File: internal/auth/provider.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fitcoach_backend/internal/common"
	"fitcoach_backend/internal/config"
	"fitcoach_backend/internal/platform/metrics"
	"fitcoach_backend/internal/platform/pubsub"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Provider is the auth collaborator: it owns session creation and destruction and reports every
// change as an Event on the client's subscription.
type Provider interface {
	// CurrentSession returns the client's persisted session, or nil when there is none.
	CurrentSession(ctx context.Context, clientID string) (*Session, error)
	SignIn(ctx context.Context, clientID, email, password string) (*Session, error)
	SignUp(ctx context.Context, clientID, email, password string) (*Session, error)
	// SignOut always succeeds for a known client and always emits SIGNED_OUT.
	SignOut(ctx context.Context, clientID string) error
	Refresh(ctx context.Context, clientID string) (*Session, error)
	Subscribe(clientID string) (*Subscription, error)
	// SessionFromToken resolves a bearer access token to its live session.
	SessionFromToken(ctx context.Context, accessToken string) (*Session, error)
}

// LocalProvider implements Provider on the service's own database.
type LocalProvider struct {
	repo      Repository
	signer    *TokenSigner
	broker    pubsub.Broker
	publisher *EventPublisher
	metrics   metrics.Recorder
	ttl       time.Duration
	minPwLen  int
	logger    *zap.Logger
	now       func() time.Time
}

// NewLocalProvider wires a LocalProvider.
func NewLocalProvider(repo Repository, signer *TokenSigner, broker pubsub.Broker, cfg *config.Config, rec metrics.Recorder, logger *zap.Logger) *LocalProvider {
	if rec == nil {
		rec = metrics.Nop()
	}
	l := logger.Named("AuthProvider")
	minLen := cfg.MinPasswordLength
	if minLen <= 0 {
		minLen = 6
	}
	return &LocalProvider{
		repo:      repo,
		signer:    signer,
		broker:    broker,
		publisher: NewEventPublisher(broker, l),
		metrics:   rec,
		ttl:       cfg.SessionTTL,
		minPwLen:  minLen,
		logger:    l,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// announce publishes one event. When the broker refuses it, a RESYNC is sent instead so the
// client's state re-reads its session. The error is non-nil only if both were refused.
func (p *LocalProvider) announce(ctx context.Context, kind EventKind, clientID string, sess *Session) error {
	err := p.publisher.Publish(ctx, kind, clientID, sess)
	if err == nil {
		return nil
	}
	p.metrics.RecordPublishFailure(string(kind))
	if kind == EventResync {
		return err
	}
	if rerr := p.publisher.Publish(ctx, EventResync, clientID, nil); rerr != nil {
		p.metrics.RecordPublishFailure(string(EventResync))
		return errors.Join(err, rerr)
	}
	return nil
}

func validClientID(clientID string) error {
	if strings.TrimSpace(clientID) == "" {
		return ErrMissingClientID
	}
	return nil
}

func (p *LocalProvider) CurrentSession(ctx context.Context, clientID string) (*Session, error) {
	if err := validClientID(clientID); err != nil {
		return nil, err
	}
	rec, err := p.repo.FindClientSession(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("find client session: %w", err)
	}
	if rec == nil || !p.now().Before(rec.ExpiresAt) {
		return nil, nil
	}
	return p.signer.toSession(rec)
}

func (p *LocalProvider) SignIn(ctx context.Context, clientID, email, password string) (*Session, error) {
	if err := validClientID(clientID); err != nil {
		return nil, err
	}
	cred, err := p.repo.FindCredentialByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// Same answer as a wrong password so accounts cannot be enumerated.
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}
	if !common.CheckPasswordHash(password, cred.PasswordHash) {
		p.logger.Info("Sign-in rejected", zap.String("email", cred.Email))
		return nil, ErrInvalidCredentials
	}

	sess, err := p.openSession(ctx, clientID, cred)
	if err != nil {
		return nil, err
	}
	if err := p.repo.TouchSignIn(ctx, cred.ID, p.now()); err != nil {
		p.logger.Warn("Could not record last sign-in", zap.String("userID", cred.ID.String()), zap.Error(err))
	}
	if err := p.announce(ctx, EventSignedIn, clientID, sess); err != nil {
		p.logger.Warn("Sign-in not announced, client state catches up on its next read", zap.String("clientID", clientID))
	}
	p.logger.Info("User signed in", zap.String("userID", cred.ID.String()), zap.String("clientID", clientID))
	return sess, nil
}

func (p *LocalProvider) SignUp(ctx context.Context, clientID, email, password string) (*Session, error) {
	if err := validClientID(clientID); err != nil {
		return nil, err
	}
	cred, err := p.createCredential(ctx, email, password)
	if err != nil {
		return nil, err
	}
	sess, err := p.openSession(ctx, clientID, cred)
	if err != nil {
		return nil, err
	}
	if err := p.announce(ctx, EventSignedIn, clientID, sess); err != nil {
		p.logger.Warn("Sign-up not announced, client state catches up on its next read", zap.String("clientID", clientID))
	}
	p.logger.Info("User signed up", zap.String("userID", cred.ID.String()), zap.String("clientID", clientID))
	return sess, nil
}

// CreateAccount registers credentials without opening a session. Trainers use it to enrol students.
func (p *LocalProvider) CreateAccount(ctx context.Context, email, password string) (uuid.UUID, error) {
	cred, err := p.createCredential(ctx, email, password)
	if err != nil {
		return uuid.Nil, err
	}
	p.logger.Info("Account created", zap.String("userID", cred.ID.String()))
	return cred.ID, nil
}

func (p *LocalProvider) createCredential(ctx context.Context, email, password string) (*Credential, error) {
	if len(password) < p.minPwLen {
		return nil, ErrWeakPassword.WithDetails(fmt.Sprintf("Use at least %d characters.", p.minPwLen))
	}
	hash, err := common.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	cred := &Credential{Email: email, PasswordHash: hash}
	if err := p.repo.CreateCredential(ctx, cred); err != nil {
		return nil, err
	}
	return cred, nil
}

func (p *LocalProvider) openSession(ctx context.Context, clientID string, cred *Credential) (*Session, error) {
	now := p.now().Truncate(time.Second)
	rec := &SessionRecord{
		ID:        uuid.New(),
		UserID:    cred.ID,
		Email:     cred.Email,
		ClientID:  clientID,
		CreatedAt: now,
		ExpiresAt: now.Add(p.ttl),
	}
	if err := p.repo.ReplaceClientSession(ctx, rec); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return p.signer.toSession(rec)
}

func (p *LocalProvider) SignOut(ctx context.Context, clientID string) error {
	if err := validClientID(clientID); err != nil {
		return err
	}
	n, err := p.repo.DeleteClientSessions(ctx, clientID)
	if err != nil {
		return fmt.Errorf("delete client sessions: %w", err)
	}
	p.logger.Info("Client signed out", zap.String("clientID", clientID), zap.Int64("sessionsRemoved", n))
	return p.announce(ctx, EventSignedOut, clientID, nil)
}

func (p *LocalProvider) Refresh(ctx context.Context, clientID string) (*Session, error) {
	if err := validClientID(clientID); err != nil {
		return nil, err
	}
	rec, err := p.repo.FindClientSession(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("find client session: %w", err)
	}
	now := p.now().Truncate(time.Second)
	if rec == nil {
		return nil, ErrSessionNotFound
	}
	if !now.Before(rec.ExpiresAt) {
		return nil, ErrSessionExpired
	}

	rec.RefreshedAt = &now
	rec.ExpiresAt = now.Add(p.ttl)
	if err := p.repo.UpdateSessionExpiry(ctx, rec.ID, rec.ExpiresAt, now); err != nil {
		return nil, err
	}
	sess, err := p.signer.toSession(rec)
	if err != nil {
		return nil, err
	}
	if err := p.announce(ctx, EventTokenRefreshed, clientID, sess); err != nil {
		p.logger.Warn("Refresh not announced", zap.String("clientID", clientID))
	}
	return sess, nil
}

func (p *LocalProvider) Subscribe(clientID string) (*Subscription, error) {
	if err := validClientID(clientID); err != nil {
		return nil, err
	}
	return NewSubscription(p.broker.Subscribe(Topic(clientID)), p.logger), nil
}

func (p *LocalProvider) SessionFromToken(ctx context.Context, accessToken string) (*Session, error) {
	claims, err := p.signer.Parse(accessToken)
	if err != nil {
		return nil, err
	}
	rec, err := p.repo.FindSession(ctx, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if rec == nil {
		return nil, ErrSessionNotFound
	}
	if !p.now().Before(rec.ExpiresAt) {
		return nil, ErrSessionExpired
	}
	// A refresh re-issues the token; older tokens of the same session stop working.
	if claims.ExpiresAt == nil || claims.ExpiresAt.Unix() != rec.ExpiresAt.Unix() {
		return nil, ErrInvalidToken.WithDetails("Token has been superseded.")
	}
	return p.signer.toSession(rec)
}

// NotifyUserUpdated emits USER_UPDATED to every client currently signed in as userID.
func (p *LocalProvider) NotifyUserUpdated(ctx context.Context, userID uuid.UUID) error {
	recs, err := p.repo.ListUserSessions(ctx, userID)
	if err != nil {
		return fmt.Errorf("list user sessions: %w", err)
	}
	var firstErr error
	for i := range recs {
		sess, err := p.signer.toSession(&recs[i])
		if err != nil {
			return err
		}
		if err := p.announce(ctx, EventUserUpdated, recs[i].ClientID, sess); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ExpireSessions removes every session expired at now and signs its client out. The count is
// of removed sessions; the error reports clients that could not be told.
func (p *LocalProvider) ExpireSessions(ctx context.Context, now time.Time) (int, error) {
	expired, err := p.repo.DeleteExpiredSessions(ctx, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	unannounced := 0
	for i := range expired {
		if err := p.announce(ctx, EventSignedOut, expired[i].ClientID, nil); err != nil {
			unannounced++
		}
	}
	if unannounced > 0 {
		return len(expired), fmt.Errorf("sign-out not announced to %d of %d clients", unannounced, len(expired))
	}
	return len(expired), nil
}
