package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dosecerta/dosecerta-backend/internal/domain"
)

type PaymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepo(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, user_id, plan, provider_charge_id, amount_cents, status, created_at, updated_at`

func (r *PaymentRepository) Create(ctx context.Context, userID uuid.UUID, plan domain.PlanType, providerChargeID string, amountCents int64) (*domain.Payment, error) {
	const query = `
        INSERT INTO payment (user_id, plan, provider_charge_id, amount_cents, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING ` + paymentColumns + `
    `
	row := r.db.QueryRowxContext(ctx, query, userID, plan, providerChargeID, amountCents, domain.PaymentPending)
	var payment domain.Payment
	if err := row.StructScan(&payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) FindByProviderChargeID(ctx context.Context, providerChargeID string) (*domain.Payment, error) {
	const query = `
        SELECT ` + paymentColumns + `
        FROM payment
        WHERE provider_charge_id = $1
    `
	var payment domain.Payment
	if err := r.db.GetContext(ctx, &payment, query, providerChargeID); err != nil {
		return nil, err
	}
	return &payment, nil
}

// MarkSucceeded is guarded on the pending status so a replayed webhook cannot
// transition the same payment twice.
func (r *PaymentRepository) MarkSucceeded(ctx context.Context, id uuid.UUID) (bool, error) {
	const query = `
        UPDATE payment
        SET status = $2,
            updated_at = NOW()
        WHERE id = $1 AND status = $3
    `
	res, err := r.db.ExecContext(ctx, query, id, domain.PaymentSucceeded, domain.PaymentPending)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *PaymentRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	const query = `
        UPDATE payment
        SET status = $2,
            updated_at = NOW()
        WHERE id = $1 AND status = $3
    `
	_, err := r.db.ExecContext(ctx, query, id, domain.PaymentFailed, domain.PaymentPending)
	return err
}
