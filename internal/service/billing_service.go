package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dosecerta/dosecerta-backend/internal/domain"
	"github.com/dosecerta/dosecerta-backend/internal/repository/ports"
	"github.com/dosecerta/dosecerta-backend/internal/transport/payment"
)

var (
	ErrUnknownPlan         = errors.New("unknown plan type")
	ErrPaymentNotFound     = errors.New("payment not found for charge")
	ErrProviderUnavailable = errors.New("payment provider unavailable")
)

// ChargeCreator is the narrow slice of the provider the billing service uses.
type ChargeCreator interface {
	CreateCharge(ctx context.Context, req payment.ChargeRequest) (*payment.ChargeHandle, error)
}

type BillingServiceConfig struct {
	// PlanPrices maps plan type to the charge amount in cents.
	PlanPrices map[domain.PlanType]int64
}

type BillingService struct {
	payments      ports.PaymentRepository
	subscriptions ports.SubscriptionRepository
	provider      ChargeCreator

	planPrices map[domain.PlanType]int64
	now        func() time.Time
}

var defaultPlanPrices = map[domain.PlanType]int64{
	domain.PlanMonthly: 1990,
	domain.PlanAnnual:  19900,
}

func NewBillingService(payments ports.PaymentRepository, subscriptions ports.SubscriptionRepository, provider ChargeCreator, cfg BillingServiceConfig) *BillingService {
	prices := cfg.PlanPrices
	if len(prices) == 0 {
		prices = defaultPlanPrices
	}
	return &BillingService{
		payments:      payments,
		subscriptions: subscriptions,
		provider:      provider,
		planPrices:    prices,
		now:           time.Now,
	}
}

type CheckoutResult struct {
	Payment      *domain.Payment
	BRCode       string
	BRCodeBase64 string
	ExpiresAt    time.Time
}

func (s *BillingService) Checkout(ctx context.Context, user *domain.User, plan domain.PlanType) (*CheckoutResult, error) {
	if !plan.Valid() {
		return nil, ErrUnknownPlan
	}
	amount, ok := s.planPrices[plan]
	if !ok {
		return nil, ErrUnknownPlan
	}

	handle, err := s.provider.CreateCharge(ctx, payment.ChargeRequest{
		AmountCents:       amount,
		Description:       fmt.Sprintf("Dose Certa - plano %s", plan),
		ExternalReference: ExternalReference(user.ID, plan),
		CustomerEmail:     user.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	record, err := s.payments.Create(ctx, user.ID, plan, handle.ProviderChargeID, amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &CheckoutResult{
		Payment:      record,
		BRCode:       handle.BRCode,
		BRCodeBase64: handle.BRCodeBase64,
		ExpiresAt:    handle.ExpiresAt,
	}, nil
}

// ExternalReference encodes (user, plan) into the opaque reference that
// round-trips through the provider and back in the webhook.
func ExternalReference(userID uuid.UUID, plan domain.PlanType) string {
	return userID.String() + ":" + string(plan)
}

func parseExternalReference(ref string) (uuid.UUID, domain.PlanType, error) {
	parts := strings.SplitN(ref, ":", 2)
	if len(parts) != 2 {
		return uuid.Nil, "", fmt.Errorf("malformed external reference %q", ref)
	}
	userID, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("malformed user id in external reference: %w", err)
	}
	plan := domain.PlanType(parts[1])
	if !plan.Valid() {
		return uuid.Nil, "", fmt.Errorf("unknown plan in external reference %q", ref)
	}
	return userID, plan, nil
}

// HandlePaidEvent processes a settled-charge webhook idempotently: the guarded
// payment transition decides a single winner, prior granting subscriptions are
// canceled, and exactly one new active subscription is created. Replays of an
// already-processed event are acknowledged without touching subscriptions.
func (s *BillingService) HandlePaidEvent(ctx context.Context, event *payment.WebhookEvent) error {
	if event.Event != payment.EventBillingPaid {
		return nil
	}

	record, err := s.payments.FindByProviderChargeID(ctx, event.ProviderChargeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrPaymentNotFound, event.ProviderChargeID)
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if record.Status == domain.PaymentSucceeded {
		return nil
	}
	if event.ExternalReference != "" {
		userID, plan, err := parseExternalReference(event.ExternalReference)
		if err != nil {
			return err
		}
		if userID != record.UserID || plan != record.Plan {
			return fmt.Errorf("external reference %q does not match payment %s", event.ExternalReference, record.ID)
		}
	}

	claimed, err := s.payments.MarkSucceeded(ctx, record.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !claimed {
		// Lost the race against a duplicate delivery that is creating the
		// subscription right now.
		return nil
	}

	if _, err := s.subscriptions.CancelActiveByUser(ctx, record.UserID); err != nil {
		return fmt.Errorf("%w: cancel prior subscriptions: %v", ErrStoreUnavailable, err)
	}

	periodEnd := s.now().Add(record.Plan.Interval())
	if _, err := s.subscriptions.Create(ctx, record.UserID, record.Plan, domain.SubscriptionActive, periodEnd); err != nil {
		return fmt.Errorf("%w: create subscription: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// ActiveSubscription returns the user's current active subscription, or nil
// when none exists.
func (s *BillingService) ActiveSubscription(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	sub, err := s.subscriptions.FindActiveByUser(ctx, userID, s.now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return sub, nil
}
