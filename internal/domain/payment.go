package domain

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment tracks one charge at the provider. ProviderChargeID is unique and is
// the idempotency anchor for webhook replays.
type Payment struct {
	ID               uuid.UUID     `db:"id" json:"id"`
	UserID           uuid.UUID     `db:"user_id" json:"user_id"`
	Plan             PlanType      `db:"plan" json:"plan"`
	ProviderChargeID string        `db:"provider_charge_id" json:"provider_charge_id"`
	AmountCents      int64         `db:"amount_cents" json:"amount_cents"`
	Status           PaymentStatus `db:"status" json:"status"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}
