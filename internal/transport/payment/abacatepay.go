package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.abacatepay.com/v1"
	defaultTimeout = 15 * time.Second
)

// ChargeRequest is everything the provider needs to mint a PIX charge.
type ChargeRequest struct {
	AmountCents       int64
	Description       string
	ExternalReference string
	CustomerEmail     string
}

// ChargeHandle identifies the created charge and carries the PIX payload the
// frontend renders.
type ChargeHandle struct {
	ProviderChargeID string
	BRCode           string
	BRCodeBase64     string
	ExpiresAt        time.Time
}

// WebhookEvent is the provider callback after a charge settles. The
// ExternalReference round-trips whatever was sent on charge creation.
type WebhookEvent struct {
	Event             string
	ProviderChargeID  string
	Status            string
	ExternalReference string
}

const EventBillingPaid = "billing.paid"

// Client is the single payment-provider integration, an AbacatePay PIX REST
// client. All calls are bounded by the HTTP client timeout; no automatic
// retries.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

func (c *Client) CreateCharge(ctx context.Context, req ChargeRequest) (*ChargeHandle, error) {
	if c.apiKey == "" {
		return nil, errors.New("payment provider api key not configured")
	}
	if req.AmountCents <= 0 {
		return nil, errors.New("charge amount must be positive")
	}

	payload := struct {
		Amount      int64  `json:"amount"`
		ExpiresIn   int64  `json:"expiresIn"`
		Description string `json:"description"`
		Metadata    struct {
			ExternalID string `json:"externalId"`
			Email      string `json:"email,omitempty"`
		} `json:"metadata"`
	}{
		Amount:      req.AmountCents,
		ExpiresIn:   int64((30 * time.Minute).Seconds()),
		Description: req.Description,
	}
	payload.Metadata.ExternalID = req.ExternalReference
	payload.Metadata.Email = req.CustomerEmail

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pixQrCode/create", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("create charge: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("create charge: provider returned %d: %s", res.StatusCode, strings.TrimSpace(string(detail)))
	}

	var decoded struct {
		Data struct {
			ID           string    `json:"id"`
			BRCode       string    `json:"brCode"`
			BRCodeBase64 string    `json:"brCodeBase64"`
			ExpiresAt    time.Time `json:"expiresAt"`
		} `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("create charge: decode response: %w", err)
	}
	if decoded.Data.ID == "" {
		return nil, errors.New("create charge: provider response missing charge id")
	}

	return &ChargeHandle{
		ProviderChargeID: decoded.Data.ID,
		BRCode:           decoded.Data.BRCode,
		BRCodeBase64:     decoded.Data.BRCodeBase64,
		ExpiresAt:        decoded.Data.ExpiresAt,
	}, nil
}

// ParseWebhook decodes a provider callback body. Authentication of the
// callback (shared webhook secret) is the transport handler's concern.
func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var decoded struct {
		Event string `json:"event"`
		Data  struct {
			PixQrCode struct {
				ID       string `json:"id"`
				Status   string `json:"status"`
				Metadata struct {
					ExternalID string `json:"externalId"`
				} `json:"metadata"`
			} `json:"pixQrCode"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("parse webhook: %w", err)
	}
	if decoded.Event == "" {
		return nil, errors.New("parse webhook: missing event type")
	}
	if decoded.Data.PixQrCode.ID == "" {
		return nil, errors.New("parse webhook: missing charge id")
	}
	return &WebhookEvent{
		Event:             decoded.Event,
		ProviderChargeID:  decoded.Data.PixQrCode.ID,
		Status:            decoded.Data.PixQrCode.Status,
		ExternalReference: decoded.Data.PixQrCode.Metadata.ExternalID,
	}, nil
}
