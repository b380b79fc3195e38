// File: internal/profile/service.go
package profile

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"fitcoach_backend/internal/common"
	"fitcoach_backend/internal/platform/crypto"
	"fitcoach_backend/internal/role"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrProfileNotFound = common.ErrNotFound.WithMessage("User profile not found.")
	ErrProfileExists   = common.ErrConflict.WithMessage("A profile already exists for this user.")
	ErrStudentNotFound = common.ErrNotFound.WithMessage("Student not found in your roster.")
)

const temporaryPasswordLength = 12

// AccountCreator registers auth credentials for a new user.
type AccountCreator interface {
	CreateAccount(ctx context.Context, email, password string) (uuid.UUID, error)
}

// ChangeNotifier tells signed-in clients that a user's profile changed.
type ChangeNotifier interface {
	NotifyUserUpdated(ctx context.Context, userID uuid.UUID) error
}

// AvatarStore persists avatar images.
type AvatarStore interface {
	SaveAvatar(userID uuid.UUID, fileHeader *multipart.FileHeader) (string, error)
	DeleteAvatar(userID uuid.UUID) error
}

// Service defines profile and roster operations.
type Service interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error)
	FetchProfile(ctx context.Context, id uuid.UUID) (*Profile, error)
	Provision(ctx context.Context, userID uuid.UUID, email string, in ProvisionInput) (*Profile, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*Profile, error)
	CompleteFirstLogin(ctx context.Context, id uuid.UUID) (*Profile, error)
	UploadAvatar(ctx context.Context, id uuid.UUID, fileHeader *multipart.FileHeader) (*Profile, error)
	RemoveAvatar(ctx context.Context, id uuid.UUID) (*Profile, error)

	ListStudents(ctx context.Context, trainerID uuid.UUID) ([]Profile, error)
	AddStudent(ctx context.Context, trainerID uuid.UUID, req AddStudentRequest) (*AddStudentResponse, error)
	GetStudentForTrainer(ctx context.Context, trainerID, studentID uuid.UUID) (*Profile, error)
	RemoveStudent(ctx context.Context, trainerID, studentID uuid.UUID) error
}

// ServiceImplementation implements Service.
type ServiceImplementation struct {
	repo     Repository
	accounts AccountCreator
	notifier ChangeNotifier
	avatars  AvatarStore
	logger   *zap.Logger
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a new profile service.
func NewService(repo Repository, accounts AccountCreator, notifier ChangeNotifier, avatars AvatarStore, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		repo:     repo,
		accounts: accounts,
		notifier: notifier,
		avatars:  avatars,
		logger:   logger.Named("ProfileService"),
	}
}

// FetchProfile is the lookup used while resolving auth state: a missing row is (nil, nil).
func (s *ServiceImplementation) FetchProfile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find profile %s: %w", id, err)
	}
	return p, nil
}

func (s *ServiceImplementation) GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	p, err := s.FetchProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

func (s *ServiceImplementation) Provision(ctx context.Context, userID uuid.UUID, email string, in ProvisionInput) (*Profile, error) {
	r := role.Parse(&in.UserType)
	if !r.Valid() {
		return nil, common.NewValidationAPIError(map[string]string{"UserType": "The user_type field must be one of the following values: trainer student."})
	}
	p := &Profile{
		ID:        userID,
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		UserType:  &in.UserType,
		Objective: in.Objective,
	}
	switch r {
	case role.Trainer:
		p.Specialization = in.Specialization
	case role.Student:
		p.Height = in.Height
		p.Weight = in.Weight
	}

	if err := s.repo.Create(ctx, p); err != nil {
		s.logger.Error("Failed to provision profile", zap.String("userID", userID.String()), zap.Error(err))
		return nil, err
	}
	s.logger.Info("Profile provisioned", zap.String("userID", userID.String()), zap.String("role", r.String()))
	s.notify(ctx, userID)
	return p, nil
}

func (s *ServiceImplementation) UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*Profile, error) {
	p, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Objective != nil {
		p.Objective = req.Objective
	}
	// Role-specific fields only apply to that role.
	switch p.Role() {
	case role.Trainer:
		if req.Specialization != nil {
			p.Specialization = req.Specialization
		}
	case role.Student:
		if req.Height != nil {
			p.Height = req.Height
		}
		if req.Weight != nil {
			p.Weight = req.Weight
		}
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	s.notify(ctx, id)
	return p, nil
}

func (s *ServiceImplementation) CompleteFirstLogin(ctx context.Context, id uuid.UUID) (*Profile, error) {
	p, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsFirstLogin {
		return p, nil
	}
	p.IsFirstLogin = false
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	s.notify(ctx, id)
	return p, nil
}

func (s *ServiceImplementation) UploadAvatar(ctx context.Context, id uuid.UUID, fileHeader *multipart.FileHeader) (*Profile, error) {
	p, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	url, err := s.avatars.SaveAvatar(id, fileHeader)
	if err != nil {
		return nil, err
	}
	// Cache-bust: the stored path is stable per user.
	versioned := fmt.Sprintf("%s?v=%d", url, time.Now().Unix())
	p.AvatarURL = &versioned
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	s.notify(ctx, id)
	return p, nil
}

func (s *ServiceImplementation) RemoveAvatar(ctx context.Context, id uuid.UUID) (*Profile, error) {
	p, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.avatars.DeleteAvatar(id); err != nil {
		return nil, err
	}
	p.AvatarURL = nil
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	s.notify(ctx, id)
	return p, nil
}

func (s *ServiceImplementation) ListStudents(ctx context.Context, trainerID uuid.UUID) ([]Profile, error) {
	students, err := s.repo.ListStudents(ctx, trainerID)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

func (s *ServiceImplementation) AddStudent(ctx context.Context, trainerID uuid.UUID, req AddStudentRequest) (*AddStudentResponse, error) {
	resp := &AddStudentResponse{}
	password := req.Password
	if password == "" {
		generated, err := crypto.TemporaryPassword(temporaryPasswordLength)
		if err != nil {
			return nil, fmt.Errorf("generate temporary password: %w", err)
		}
		password = generated
		resp.TemporaryPassword = generated
	}

	userID, err := s.accounts.CreateAccount(ctx, req.Email, password)
	if err != nil {
		return nil, err
	}

	studentType := string(role.Student)
	startDate := req.StartDate
	if startDate == nil {
		now := time.Now().UTC()
		startDate = &now
	}
	p := &Profile{
		ID:           userID,
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		UserType:     &studentType,
		TrainerID:    &trainerID,
		Height:       req.Height,
		Weight:       req.Weight,
		Objective:    req.Objective,
		StartDate:    startDate,
		IsFirstLogin: true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		s.logger.Error("Account created but student profile insert failed",
			zap.String("userID", userID.String()), zap.String("trainerID", trainerID.String()), zap.Error(err))
		return nil, err
	}
	s.logger.Info("Student enrolled", zap.String("studentID", userID.String()), zap.String("trainerID", trainerID.String()))
	resp.Student = p
	return resp, nil
}

func (s *ServiceImplementation) GetStudentForTrainer(ctx context.Context, trainerID, studentID uuid.UUID) (*Profile, error) {
	p, err := s.FetchProfile(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if p == nil || p.Role() != role.Student || !p.CoachedBy(trainerID) {
		return nil, ErrStudentNotFound
	}
	return p, nil
}

func (s *ServiceImplementation) RemoveStudent(ctx context.Context, trainerID, studentID uuid.UUID) error {
	ok, err := s.repo.ClearTrainer(ctx, studentID, trainerID)
	if err != nil {
		return fmt.Errorf("unassign student: %w", err)
	}
	if !ok {
		return ErrStudentNotFound
	}
	s.logger.Info("Student removed from roster", zap.String("studentID", studentID.String()), zap.String("trainerID", trainerID.String()))
	s.notify(ctx, studentID)
	return nil
}

// notify is best effort; the write already succeeded.
func (s *ServiceImplementation) notify(ctx context.Context, userID uuid.UUID) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyUserUpdated(ctx, userID); err != nil {
		s.logger.Warn("Failed to announce profile change", zap.String("userID", userID.String()), zap.Error(err))
	}
}
