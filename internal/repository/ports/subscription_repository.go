package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dosecerta/dosecerta-backend/internal/domain"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, userID uuid.UUID, plan domain.PlanType, status domain.SubscriptionStatus, periodEnd time.Time) (*domain.Subscription, error)
	FindActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) (*domain.Subscription, error)
	// CancelActiveByUser cancels every subscription currently in a
	// still-granting status for the user and returns how many were affected.
	CancelActiveByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}
