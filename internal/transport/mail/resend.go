package mail

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
	resendEndpoint       = "https://api.resend.com/emails"
	defaultResendTimeout = 10 * time.Second
)

// ResendMailer delivers through the Resend transactional-email HTTP API. It is
// the highest-fidelity channel and therefore first in the chain.
type ResendMailer struct {
	apiKey   string
	from     string
	endpoint string
	client   *http.Client
}

func NewResendMailer(apiKey, from string) *ResendMailer {
	return &ResendMailer{
		apiKey:   strings.TrimSpace(apiKey),
		from:     strings.TrimSpace(from),
		endpoint: resendEndpoint,
		client:   &http.Client{Timeout: defaultResendTimeout},
	}
}

func (m *ResendMailer) Name() string { return "resend" }

func (m *ResendMailer) Degraded() bool { return false }

func (m *ResendMailer) Send(ctx context.Context, msg Message) error {
	if m == nil || m.apiKey == "" || m.from == "" {
		return errors.New("resend mailer missing configuration")
	}

	payload := struct {
		From    string   `json:"from"`
		To      []string `json:"to"`
		Subject string   `json:"subject"`
		Text    string   `json:"text"`
	}{
		From:    m.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Text:    msg.Body,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("resend request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("resend returned %d: %s", res.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
