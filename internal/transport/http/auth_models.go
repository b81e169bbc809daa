package http

import (
	"time"

	"github.com/dosecerta/dosecerta-backend/internal/domain"
)

// ErrorResponse represents a generic error payload.
type ErrorResponse struct {
	Error string `json:"error" example:"invalid credentials"`
}

// AuthUser models the sanitized user representation returned by auth endpoints.
type AuthUser struct {
	ID             string    `json:"id" example:"9fd13fd2-63c5-4f29-a210-4a1a8e285f74"`
	Email          string    `json:"email" example:"user@example.com"`
	FullName       *string   `json:"full_name,omitempty" example:"Maria Souza"`
	UserImageURL   *string   `json:"user_image_url,omitempty" example:"https://cdn.example.com/avatar.png"`
	EmailConfirmed bool      `json:"email_confirmed" example:"true"`
	CreatedAt      time.Time `json:"created_at" example:"2026-01-01T12:00:00Z"`
	UpdatedAt      time.Time `json:"updated_at" example:"2026-01-02T09:30:00Z"`
}

// AuthTokenResponse is returned by endpoints that issue JWT tokens.
type AuthTokenResponse struct {
	Token     string   `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	ExpiresAt string   `json:"expires_at" example:"2026-01-02T09:30:00Z"`
	User      AuthUser `json:"user"`
}

// AuthUserResponse wraps a user object.
type AuthUserResponse struct {
	User AuthUser `json:"user"`
}

// MessageResponse denotes an acknowledged request.
type MessageResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"verification email sent"`
}

// RegisterRequest carries email registration fields.
type RegisterRequest struct {
	Email    string  `json:"email" example:"user@example.com"`
	Password string  `json:"password" example:"Abc12345!"`
	FullName *string `json:"full_name,omitempty" example:"Maria Souza"`
}

// DeliveryInfo reports which channel carried the verification email. Degraded
// means every real channel failed and the message only reached a fallback, so
// the user may never see it.
type DeliveryInfo struct {
	Method   string `json:"method" example:"resend"`
	Degraded bool   `json:"degraded" example:"false"`
}

// RegisterResponse reports the pending verification created for a signup.
type RegisterResponse struct {
	Success   bool          `json:"success" example:"true"`
	Message   string        `json:"message" example:"verification email sent"`
	ExpiresAt string        `json:"expires_at" example:"2026-01-02T09:30:00Z"`
	Delivery  *DeliveryInfo `json:"delivery,omitempty"`
}

// VerifyTokenRequest carries a one-time token back to the API. Purpose selects
// the pending action; new_password is required only for password resets.
type VerifyTokenRequest struct {
	Token       string `json:"token" example:"0yD1bJkPLHgq7Wc..."`
	Purpose     string `json:"purpose" example:"email_verification"`
	NewPassword string `json:"new_password,omitempty" example:"NewPass123"`
}

// LoginRequest carries email login fields.
type LoginRequest struct {
	Email    string `json:"email" example:"user@example.com"`
	Password string `json:"password" example:"Abc12345!"`
}

// GoogleLoginRequest carries the Google ID token for login.
type GoogleLoginRequest struct {
	IDToken string `json:"id_token" example:"eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// ForgotPasswordRequest asks for a password-reset email.
type ForgotPasswordRequest struct {
	Email string `json:"email" example:"user@example.com"`
}

// CheckEmailRequest probes whether a verification email can be re-sent.
type CheckEmailRequest struct {
	Email string `json:"email" example:"user@example.com"`
}

// UpdateProfileRequest carries the editable profile fields.
type UpdateProfileRequest struct {
	FullName *string `json:"full_name,omitempty" example:"Maria Souza"`
}

// CheckoutRequest selects the plan being purchased.
type CheckoutRequest struct {
	Plan string `json:"plan" example:"monthly"`
}

// CheckoutResponse carries the PIX charge the client must settle.
type CheckoutResponse struct {
	PaymentID    string `json:"payment_id" example:"1a2b3c4d-0000-0000-0000-000000000000"`
	Plan         string `json:"plan" example:"monthly"`
	AmountCents  int64  `json:"amount_cents" example:"1990"`
	BRCode       string `json:"br_code" example:"00020126580014br.gov.bcb.pix..."`
	BRCodeBase64 string `json:"br_code_base64,omitempty" example:"iVBORw0KGgo..."`
	ExpiresAt    string `json:"expires_at,omitempty" example:"2026-01-01T12:30:00Z"`
}

// SubscriptionResponse describes the caller's current subscription, if any.
type SubscriptionResponse struct {
	Active           bool   `json:"active" example:"true"`
	Plan             string `json:"plan,omitempty" example:"monthly"`
	Status           string `json:"status,omitempty" example:"active"`
	CurrentPeriodEnd string `json:"current_period_end,omitempty" example:"2026-02-01T12:00:00Z"`
}

func toAuthUser(user *domain.User) AuthUser {
	return AuthUser{
		ID:             user.ID.String(),
		Email:          user.Email,
		FullName:       user.FullName,
		UserImageURL:   user.ImageURL,
		EmailConfirmed: user.EmailConfirmed,
		CreatedAt:      user.CreatedAt,
		UpdatedAt:      user.UpdatedAt,
	}
}
