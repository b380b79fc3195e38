// File: internal/auth/repository.go
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"fitcoach_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence for credentials and sessions.
type Repository interface {
	CreateCredential(ctx context.Context, cred *Credential) error
	FindCredentialByEmail(ctx context.Context, email string) (*Credential, error)
	TouchSignIn(ctx context.Context, id uuid.UUID, at time.Time) error

	// ReplaceClientSession atomically drops whatever session the client held and stores rec.
	ReplaceClientSession(ctx context.Context, rec *SessionRecord) error
	// FindClientSession returns (nil, nil) when the client holds no session.
	FindClientSession(ctx context.Context, clientID string) (*SessionRecord, error)
	FindSession(ctx context.Context, id uuid.UUID) (*SessionRecord, error)
	UpdateSessionExpiry(ctx context.Context, id uuid.UUID, expiresAt, refreshedAt time.Time) error
	DeleteClientSessions(ctx context.Context, clientID string) (int64, error)
	ListUserSessions(ctx context.Context, userID uuid.UUID) ([]SessionRecord, error)
	// DeleteExpiredSessions removes sessions expired at now and returns them.
	DeleteExpiredSessions(ctx context.Context, now time.Time) ([]SessionRecord, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM auth repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *gormRepository) CreateCredential(ctx context.Context, cred *Credential) error {
	cred.Email = normalizeEmail(cred.Email)
	if err := r.db.WithContext(ctx).Create(cred).Error; err != nil {
		if common.IsUniqueViolation(err) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *gormRepository) FindCredentialByEmail(ctx context.Context, email string) (*Credential, error) {
	var cred Credential
	err := r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&cred).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("No account with this email.")
		}
		return nil, err
	}
	return &cred, nil
}

func (r *gormRepository) TouchSignIn(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&Credential{}).Where("id = ?", id).Update("last_sign_in_at", at).Error
}

func (r *gormRepository) ReplaceClientSession(ctx context.Context, rec *SessionRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("client_id = ?", rec.ClientID).Delete(&SessionRecord{}).Error; err != nil {
			return err
		}
		return tx.Create(rec).Error
	})
}

func (r *gormRepository) FindClientSession(ctx context.Context, clientID string) (*SessionRecord, error) {
	var rec SessionRecord
	err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *gormRepository) FindSession(ctx context.Context, id uuid.UUID) (*SessionRecord, error) {
	var rec SessionRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *gormRepository) UpdateSessionExpiry(ctx context.Context, id uuid.UUID, expiresAt, refreshedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&SessionRecord{}).Where("id = ?", id).Updates(map[string]interface{}{
		"expires_at":   expiresAt,
		"refreshed_at": refreshedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *gormRepository) DeleteClientSessions(ctx context.Context, clientID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("client_id = ?", clientID).Delete(&SessionRecord{})
	return res.RowsAffected, res.Error
}

func (r *gormRepository) ListUserSessions(ctx context.Context, userID uuid.UUID) ([]SessionRecord, error) {
	var recs []SessionRecord
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&recs).Error
	return recs, err
}

func (r *gormRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) ([]SessionRecord, error) {
	var expired []SessionRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("expires_at <= ?", now).Find(&expired).Error; err != nil {
			return err
		}
		if len(expired) == 0 {
			return nil
		}
		ids := make([]string, len(expired))
		for i := range expired {
			ids[i] = expired[i].ID.String()
		}
		return tx.Where("id IN ?", ids).Delete(&SessionRecord{}).Error
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}
