package domain

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	SubscriptionActive     SubscriptionStatus = "active"
	SubscriptionCanceled   SubscriptionStatus = "canceled"
	SubscriptionPastDue    SubscriptionStatus = "past_due"
	SubscriptionTrialing   SubscriptionStatus = "trialing"
	SubscriptionIncomplete SubscriptionStatus = "incomplete"
)

type PlanType string

const (
	PlanMonthly PlanType = "monthly"
	PlanAnnual  PlanType = "annual"
)

// Interval is the billing period a successful charge buys.
func (p PlanType) Interval() time.Duration {
	if p == PlanAnnual {
		return 365 * 24 * time.Hour
	}
	return 30 * 24 * time.Hour
}

func (p PlanType) Valid() bool {
	return p == PlanMonthly || p == PlanAnnual
}

// Subscription grants access until CurrentPeriodEnd. At most one active
// subscription may exist per user; the webhook path enforces this since no
// database constraint is assumed.
type Subscription struct {
	ID               uuid.UUID          `db:"id" json:"id"`
	UserID           uuid.UUID          `db:"user_id" json:"user_id"`
	Plan             PlanType           `db:"plan" json:"plan"`
	Status           SubscriptionStatus `db:"status" json:"status"`
	CurrentPeriodEnd time.Time          `db:"current_period_end" json:"current_period_end"`
	CreatedAt        time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `db:"updated_at" json:"updated_at"`
}
