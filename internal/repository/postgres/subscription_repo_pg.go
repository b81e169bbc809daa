package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/dosecerta/dosecerta-backend/internal/domain"
)

type SubscriptionRepository struct {
	db *sqlx.DB
}

func NewSubscriptionRepo(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `id, user_id, plan, status, current_period_end, created_at, updated_at`

// grantingStatuses are the statuses that still entitle the user to access and
// must therefore be closed out before a new active subscription is created.
var grantingStatuses = []string{
	string(domain.SubscriptionActive),
	string(domain.SubscriptionTrialing),
	string(domain.SubscriptionPastDue),
}

func (r *SubscriptionRepository) Create(ctx context.Context, userID uuid.UUID, plan domain.PlanType, status domain.SubscriptionStatus, periodEnd time.Time) (*domain.Subscription, error) {
	const query = `
        INSERT INTO subscription (user_id, plan, status, current_period_end)
        VALUES ($1, $2, $3, $4)
        RETURNING ` + subscriptionColumns + `
    `
	row := r.db.QueryRowxContext(ctx, query, userID, plan, status, periodEnd)
	var sub domain.Subscription
	if err := row.StructScan(&sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) FindActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) (*domain.Subscription, error) {
	const query = `
        SELECT ` + subscriptionColumns + `
        FROM subscription
        WHERE user_id = $1 AND status = $2 AND current_period_end > $3
        ORDER BY created_at DESC
        LIMIT 1
    `
	var sub domain.Subscription
	if err := r.db.GetContext(ctx, &sub, query, userID, domain.SubscriptionActive, now); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) CancelActiveByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	const query = `
        UPDATE subscription
        SET status = $3,
            updated_at = NOW()
        WHERE user_id = $1 AND status = ANY($2)
    `
	res, err := r.db.ExecContext(ctx, query, userID, pq.Array(grantingStatuses), domain.SubscriptionCanceled)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
