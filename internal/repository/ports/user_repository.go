package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/dosecerta/dosecerta-backend/internal/domain"
)

type UserRepository interface {
	CreateConfirmedUser(ctx context.Context, email string, passwordHash, passwordSalt []byte, fullName *string) (*domain.User, error)
	UpsertGoogleUser(ctx context.Context, email string, fullName *string, imageURL *string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	ConfirmEmail(ctx context.Context, id uuid.UUID) error
	UpdateProfile(ctx context.Context, id uuid.UUID, fullName *string, imageURL *string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash, passwordSalt []byte) error
}
