package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TokenPurpose is the class of action a verification token authorizes. The
// purpose determines both the TTL and the shape of the associated payload.
type TokenPurpose string

const (
	PurposeEmailVerification TokenPurpose = "email_verification"
	PurposePasswordReset     TokenPurpose = "password_reset"
)

func (p TokenPurpose) Valid() bool {
	return p == PurposeEmailVerification || p == PurposePasswordReset
}

// VerificationToken is a one-time grant to complete a pending action. Only the
// SHA-256 of the opaque token is stored; the raw value exists solely in the
// delivery channel. A token is usable iff ConsumedAt is nil and the expiry has
// not passed.
type VerificationToken struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	Email      string          `db:"email" json:"email"`
	TokenHash  string          `db:"token_hash" json:"-"`
	Purpose    TokenPurpose    `db:"purpose" json:"purpose"`
	Payload    json.RawMessage `db:"payload" json:"-"`
	ExpiresAt  time.Time       `db:"expires_at" json:"expires_at"`
	ConsumedAt *time.Time      `db:"consumed_at" json:"consumed_at,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

func (t *VerificationToken) Usable(now time.Time) bool {
	return t.ConsumedAt == nil && now.Before(t.ExpiresAt)
}

func (t *VerificationToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// SignupPayload carries the pending credentials for the deferred-creation
// signup flow: the account row is written only once the token is verified.
type SignupPayload struct {
	PasswordHash []byte  `json:"password_hash"`
	PasswordSalt []byte  `json:"password_salt"`
	FullName     *string `json:"full_name,omitempty"`
}

func (t *VerificationToken) SignupPayload() (*SignupPayload, error) {
	if len(t.Payload) == 0 {
		return &SignupPayload{}, nil
	}
	var p SignupPayload
	if err := json.Unmarshal(t.Payload, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
