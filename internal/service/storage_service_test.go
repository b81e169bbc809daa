package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
)

type fakeObjectStorage struct {
	bucket      string
	objectName  string
	contentType string
	err         error
}

func (f *fakeObjectStorage) Upload(ctx context.Context, bucket, objectName, contentType string, reader io.Reader, size int64) (string, error) {
	f.bucket = bucket
	f.objectName = objectName
	f.contentType = contentType
	if f.err != nil {
		return "", f.err
	}
	return objectName, nil
}

func TestUploadAvatar(t *testing.T) {
	storage := &fakeObjectStorage{}
	svc := NewStorageService(storage, StorageServiceConfig{
		Bucket:        "dosecerta-avatars",
		PublicBaseURL: "https://cdn.dosecerta.app/",
	})

	userID := uuid.New()
	url, err := svc.UploadAvatar(context.Background(), userID, AvatarUpload{
		Reader:      bytes.NewReader([]byte("png-bytes")),
		Size:        9,
		FileName:    "me.PNG",
		ContentType: "image/png",
	})
	if err != nil {
		t.Fatalf("UploadAvatar returned error: %v", err)
	}
	if !strings.HasPrefix(url, "https://cdn.dosecerta.app/dosecerta-avatars/avatars/"+userID.String()+"/") {
		t.Fatalf("unexpected url %q", url)
	}
	if !strings.HasSuffix(storage.objectName, ".png") {
		t.Fatalf("expected .png object name, got %q", storage.objectName)
	}
	if storage.bucket != "dosecerta-avatars" {
		t.Fatalf("unexpected bucket %q", storage.bucket)
	}
}

func TestUploadAvatarValidation(t *testing.T) {
	svc := NewStorageService(&fakeObjectStorage{}, StorageServiceConfig{Bucket: "b", MaxBytes: 10})
	userID := uuid.New()

	if _, err := svc.UploadAvatar(context.Background(), userID, AvatarUpload{Reader: bytes.NewReader(nil), Size: 0, ContentType: "image/png"}); !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("expected ErrUnsupportedImage for empty upload, got %v", err)
	}
	if _, err := svc.UploadAvatar(context.Background(), userID, AvatarUpload{Reader: bytes.NewReader(make([]byte, 20)), Size: 20, ContentType: "image/png"}); !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("expected ErrImageTooLarge, got %v", err)
	}
	if _, err := svc.UploadAvatar(context.Background(), userID, AvatarUpload{Reader: bytes.NewReader([]byte("x")), Size: 1, ContentType: "application/pdf"}); !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("expected ErrUnsupportedImage for disallowed type, got %v", err)
	}
}

func TestUploadAvatarStorageFailure(t *testing.T) {
	svc := NewStorageService(&fakeObjectStorage{err: errors.New("connection reset")}, StorageServiceConfig{Bucket: "b"})
	if _, err := svc.UploadAvatar(context.Background(), uuid.New(), AvatarUpload{Reader: bytes.NewReader([]byte("x")), Size: 1, ContentType: "image/jpeg"}); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}
