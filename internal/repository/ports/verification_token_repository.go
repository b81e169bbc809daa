package ports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/dosecerta/dosecerta-backend/internal/domain"
)

type VerificationTokenRepository interface {
	Create(ctx context.Context, email, tokenHash string, purpose domain.TokenPurpose, payload json.RawMessage, expiresAt time.Time) (*domain.VerificationToken, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (*domain.VerificationToken, error)
	// Consume sets consumed_at iff it is still unset and reports whether this
	// call won the transition. Racing consumers see false.
	Consume(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	// InvalidatePrior consumes every unconsumed token for an (email, purpose)
	// pair, used when a fresh token is issued.
	InvalidatePrior(ctx context.Context, email string, purpose domain.TokenPurpose, now time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
