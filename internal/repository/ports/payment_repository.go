package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/dosecerta/dosecerta-backend/internal/domain"
)

type PaymentRepository interface {
	Create(ctx context.Context, userID uuid.UUID, plan domain.PlanType, providerChargeID string, amountCents int64) (*domain.Payment, error)
	FindByProviderChargeID(ctx context.Context, providerChargeID string) (*domain.Payment, error)
	// MarkSucceeded flips a pending payment to succeeded and reports whether
	// this call performed the transition. Webhook replays see false.
	MarkSucceeded(ctx context.Context, id uuid.UUID) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID) error
}
