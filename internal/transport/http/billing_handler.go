package http

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dosecerta/dosecerta-backend/internal/domain"
	"github.com/dosecerta/dosecerta-backend/internal/service"
	"github.com/dosecerta/dosecerta-backend/internal/transport/payment"
	"github.com/dosecerta/dosecerta-backend/internal/util"
)

const maxWebhookBody = 64 * 1024

type BillingHandler struct {
	billing       *service.BillingService
	webhookSecret string
}

func RegisterBilling(e *echo.Echo, auth *service.AuthService, billing *service.BillingService, webhookSecret string) {
	handler := &BillingHandler{billing: billing, webhookSecret: webhookSecret}

	protected := e.Group("/api/v1/billing", RequireAuth(auth))
	protected.POST("/checkout", handler.checkout)
	protected.GET("/subscription", handler.subscription)

	// Provider callback, authenticated by the shared secret instead of a
	// bearer token.
	e.POST("/api/v1/billing/webhook", handler.webhook)
}

func (h *BillingHandler) checkout(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}

	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	result, err := h.billing.Checkout(c.Request().Context(), user, domain.PlanType(req.Plan))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownPlan):
			return c.JSON(http.StatusBadRequest, util.Error("plan must be monthly or annual"))
		case errors.Is(err, service.ErrProviderUnavailable):
			return c.JSON(http.StatusServiceUnavailable, util.Error("payment provider unavailable, try again later"))
		default:
			return c.JSON(http.StatusInternalServerError, util.Error("could not start checkout"))
		}
	}

	response := CheckoutResponse{
		PaymentID:    result.Payment.ID.String(),
		Plan:         string(result.Payment.Plan),
		AmountCents:  result.Payment.AmountCents,
		BRCode:       result.BRCode,
		BRCodeBase64: result.BRCodeBase64,
	}
	if !result.ExpiresAt.IsZero() {
		response.ExpiresAt = result.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return c.JSON(http.StatusCreated, response)
}

func (h *BillingHandler) subscription(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}

	sub, err := h.billing.ActiveSubscription(c.Request().Context(), user.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, util.Error("could not load subscription"))
	}
	if sub == nil {
		return c.JSON(http.StatusOK, SubscriptionResponse{Active: false})
	}
	return c.JSON(http.StatusOK, SubscriptionResponse{
		Active:           true,
		Plan:             string(sub.Plan),
		Status:           string(sub.Status),
		CurrentPeriodEnd: sub.CurrentPeriodEnd.UTC().Format(time.RFC3339),
	})
}

// webhook acknowledges duplicate deliveries with 200 so the provider stops
// retrying; only transient store failures are reported as errors.
func (h *BillingHandler) webhook(c echo.Context) error {
	if !h.authorizedWebhook(c) {
		return c.JSON(http.StatusUnauthorized, util.Error("invalid webhook secret"))
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("could not read webhook body"))
	}

	event, err := payment.ParseWebhook(body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("malformed webhook payload"))
	}

	if err := h.billing.HandlePaidEvent(c.Request().Context(), event); err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			return c.JSON(http.StatusNotFound, util.Error("no payment for this charge"))
		}
		return c.JSON(http.StatusInternalServerError, util.Error("could not process the event"))
	}
	return c.JSON(http.StatusOK, util.Message("event processed"))
}

func (h *BillingHandler) authorizedWebhook(c echo.Context) bool {
	if h.webhookSecret == "" {
		return false
	}
	provided := c.QueryParam("webhookSecret")
	if provided == "" {
		provided = c.Request().Header.Get("X-Webhook-Secret")
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(h.webhookSecret)) == 1
}
