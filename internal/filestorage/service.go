// File: internal/filestorage/service.go
package filestorage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"fitcoach_backend/internal/common"
	"fitcoach_backend/internal/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxAvatarBytes caps avatar uploads.
const MaxAvatarBytes = 5 << 20

const avatarDir = "avatars"

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ErrUnsupportedFile is returned for uploads that are not images or are too large.
var ErrUnsupportedFile = common.ErrUnprocessableEntity.WithMessage("Unsupported file. Upload a JPEG, PNG, GIF or WebP image up to 5 MB.")

// FileStorageService stores avatar images on local disk and maps them to public URLs.
type FileStorageService struct {
	storagePath   string
	publicBaseURL string
	logger        *zap.Logger
}

// NewFileStorageService creates the storage root if needed.
func NewFileStorageService(cfg *config.Config, logger *zap.Logger) (*FileStorageService, error) {
	if cfg.AvatarStoragePath == "" {
		return nil, fmt.Errorf("storage path cannot be empty")
	}
	if err := os.MkdirAll(cfg.AvatarStoragePath, 0o755); err != nil {
		logger.Error("Failed to create storage path directory", zap.String("path", cfg.AvatarStoragePath), zap.Error(err))
		return nil, fmt.Errorf("failed to create storage path %s: %w", cfg.AvatarStoragePath, err)
	}
	logger.Info("FileStorageService initialized", zap.String("storagePath", cfg.AvatarStoragePath))
	return &FileStorageService{
		storagePath:   cfg.AvatarStoragePath,
		publicBaseURL: strings.TrimRight(cfg.AvatarPublicBaseURL, "/"),
		logger:        logger.Named("FileStorage"),
	}, nil
}

// StoragePath is the directory served under PublicBaseURL.
func (s *FileStorageService) StoragePath() string { return s.storagePath }

// PublicBaseURL is the URL prefix avatars are served from.
func (s *FileStorageService) PublicBaseURL() string { return s.publicBaseURL }

func extensionFor(fileHeader *multipart.FileHeader) (string, bool) {
	if ext, ok := allowedImageTypes[fileHeader.Header.Get("Content-Type")]; ok {
		return ext, true
	}
	switch strings.ToLower(filepath.Ext(fileHeader.Filename)) {
	case ".jpg", ".jpeg":
		return ".jpg", true
	case ".png", ".gif", ".webp":
		return strings.ToLower(filepath.Ext(fileHeader.Filename)), true
	}
	return "", false
}

// SaveAvatar writes the user's avatar to avatars/<userID>/avatar.<ext>, replacing any previous
// one, and returns its public URL.
func (s *FileStorageService) SaveAvatar(userID uuid.UUID, fileHeader *multipart.FileHeader) (string, error) {
	if fileHeader == nil {
		return "", fmt.Errorf("fileHeader cannot be nil")
	}
	if fileHeader.Size > MaxAvatarBytes {
		return "", ErrUnsupportedFile
	}
	ext, ok := extensionFor(fileHeader)
	if !ok {
		return "", ErrUnsupportedFile
	}

	src, err := fileHeader.Open()
	if err != nil {
		s.logger.Error("Failed to open uploaded file", zap.Error(err))
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	userDir := filepath.Join(s.storagePath, avatarDir, userID.String())
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", userDir, err)
	}
	// Only one avatar per user; drop copies with other extensions.
	if err := s.removeAvatarFiles(userDir); err != nil {
		return "", err
	}

	filename := "avatar" + ext
	destination := filepath.Join(userDir, filename)
	dst, err := os.Create(destination)
	if err != nil {
		s.logger.Error("Failed to create destination file", zap.String("path", destination), zap.Error(err))
		return "", fmt.Errorf("failed to create file %s: %w", destination, err)
	}
	defer dst.Close()

	if _, err = io.Copy(dst, io.LimitReader(src, MaxAvatarBytes+1)); err != nil {
		os.Remove(destination)
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	s.logger.Info("Avatar saved", zap.String("userID", userID.String()), zap.String("path", destination))
	return s.publicURL(path.Join(avatarDir, userID.String(), filename)), nil
}

// DeleteAvatar removes the user's avatar. A missing avatar is not an error.
func (s *FileStorageService) DeleteAvatar(userID uuid.UUID) error {
	userDir := filepath.Join(s.storagePath, avatarDir, userID.String())
	if err := s.removeAvatarFiles(userDir); err != nil {
		return err
	}
	s.logger.Info("Avatar deleted", zap.String("userID", userID.String()))
	return nil
}

func (s *FileStorageService) removeAvatarFiles(userDir string) error {
	matches, err := filepath.Glob(filepath.Join(userDir, "avatar.*"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			s.logger.Error("Failed to delete file", zap.String("path", m), zap.Error(err))
			return fmt.Errorf("failed to delete file %s: %w", m, err)
		}
	}
	return nil
}

func (s *FileStorageService) publicURL(relative string) string {
	return s.publicBaseURL + "/" + relative
}
