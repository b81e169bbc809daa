package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dosecerta/dosecerta-backend/internal/repository/ports"
)

var (
	ErrImageTooLarge      = errors.New("image exceeds the maximum allowed size")
	ErrUnsupportedImage   = errors.New("unsupported image type")
	ErrStorageUnavailable = errors.New("object storage unavailable")
)

const defaultMaxAvatarBytes = int64(5 * 1024 * 1024)

var defaultAvatarMIMEs = []string{
	"image/jpeg",
	"image/png",
	"image/webp",
}

type StorageServiceConfig struct {
	Bucket        string
	PublicBaseURL string
	MaxBytes      int64
	AllowedMIMEs  []string
}

// StorageService owns avatar uploads: validation, object naming, and the
// public URL handed back to clients.
type StorageService struct {
	storage ports.ObjectStorage

	bucket       string
	publicBase   string
	maxBytes     int64
	allowedMIMEs map[string]struct{}
	now          func() time.Time
}

func NewStorageService(storage ports.ObjectStorage, cfg StorageServiceConfig) *StorageService {
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxAvatarBytes
	}
	allowed := cfg.AllowedMIMEs
	if len(allowed) == 0 {
		allowed = defaultAvatarMIMEs
	}
	mimeSet := make(map[string]struct{}, len(allowed))
	for _, mt := range allowed {
		mimeSet[strings.ToLower(strings.TrimSpace(mt))] = struct{}{}
	}
	return &StorageService{
		storage:      storage,
		bucket:       cfg.Bucket,
		publicBase:   strings.TrimRight(cfg.PublicBaseURL, "/"),
		maxBytes:     maxBytes,
		allowedMIMEs: mimeSet,
		now:          time.Now,
	}
}

type AvatarUpload struct {
	Reader      io.Reader
	Size        int64
	FileName    string
	ContentType string
}

func (s *StorageService) UploadAvatar(ctx context.Context, userID uuid.UUID, upload AvatarUpload) (string, error) {
	if upload.Size <= 0 {
		return "", fmt.Errorf("%w: empty upload", ErrUnsupportedImage)
	}
	if upload.Size > s.maxBytes {
		return "", ErrImageTooLarge
	}
	contentType := strings.ToLower(strings.TrimSpace(upload.ContentType))
	if _, ok := s.allowedMIMEs[contentType]; !ok {
		return "", ErrUnsupportedImage
	}

	ext := strings.ToLower(filepath.Ext(upload.FileName))
	if ext == "" {
		ext = extensionFor(contentType)
	}
	objectName := fmt.Sprintf("avatars/%s/%d%s", userID, s.now().UnixNano(), ext)

	key, err := s.storage.Upload(ctx, s.bucket, objectName, contentType, upload.Reader, upload.Size)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if s.publicBase == "" {
		return key, nil
	}
	return s.publicBase + "/" + s.bucket + "/" + key, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
