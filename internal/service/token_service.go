package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dosecerta/dosecerta-backend/internal/domain"
	"github.com/dosecerta/dosecerta-backend/internal/repository/ports"
	"github.com/dosecerta/dosecerta-backend/internal/util"
)

var (
	ErrInvalidEmail         = errors.New("invalid email address")
	ErrStoreUnavailable     = errors.New("token store unavailable")
	ErrTokenNotFound        = errors.New("token not found")
	ErrTokenExpired         = errors.New("token expired")
	ErrTokenAlreadyConsumed = errors.New("token already used")
	ErrPasswordRequired     = errors.New("new password is required")
	ErrWeakPassword         = errors.New("password does not meet requirements")
	ErrDownstreamAction     = errors.New("could not complete verified action")
)

// Token TTLs, one deliberate value per purpose.
const (
	EmailVerificationTTL = 24 * time.Hour
	PasswordResetTTL     = time.Hour
)

type TokenServiceConfig struct {
	EmailVerificationTTL time.Duration
	PasswordResetTTL     time.Duration
}

// TokenService owns the verification-token lifecycle: issuance with a
// per-purpose TTL, and the single-use consume transition with its downstream
// side effect.
type TokenService struct {
	tokens ports.VerificationTokenRepository
	users  ports.UserRepository

	verificationTTL time.Duration
	resetTTL        time.Duration
	now             func() time.Time
}

func NewTokenService(tokens ports.VerificationTokenRepository, users ports.UserRepository, cfg TokenServiceConfig) *TokenService {
	verificationTTL := cfg.EmailVerificationTTL
	if verificationTTL <= 0 {
		verificationTTL = EmailVerificationTTL
	}
	resetTTL := cfg.PasswordResetTTL
	if resetTTL <= 0 {
		resetTTL = PasswordResetTTL
	}
	return &TokenService{
		tokens:          tokens,
		users:           users,
		verificationTTL: verificationTTL,
		resetTTL:        resetTTL,
		now:             time.Now,
	}
}

type IssuedToken struct {
	Token     *domain.VerificationToken
	RawToken  string
	ExpiresAt time.Time
}

func (s *TokenService) ttlFor(purpose domain.TokenPurpose) time.Duration {
	if purpose == domain.PurposePasswordReset {
		return s.resetTTL
	}
	return s.verificationTTL
}

// Issue mints a fresh token for (email, purpose). Prior unconsumed tokens for
// the same pair are invalidated so at most one token is live at a time.
func (s *TokenService) Issue(ctx context.Context, email string, purpose domain.TokenPurpose, payload json.RawMessage) (*IssuedToken, error) {
	email = util.NormalizeEmail(email)
	if err := util.ValidateEmail(email); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEmail, err)
	}
	if !purpose.Valid() {
		return nil, fmt.Errorf("unknown token purpose %q", purpose)
	}

	raw, err := util.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	now := s.now()
	if _, err := s.tokens.DeleteExpired(ctx, now); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := s.tokens.InvalidatePrior(ctx, email, purpose, now); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	expiresAt := now.Add(s.ttlFor(purpose))
	token, err := s.tokens.Create(ctx, email, util.HashToken(raw), purpose, payload, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return &IssuedToken{Token: token, RawToken: raw, ExpiresAt: expiresAt}, nil
}

type VerifyResult struct {
	Email       string
	UserCreated bool
}

// Verify runs the consume state machine: lookup, expiry check, downstream
// side effect, then the guarded consume transition. The token is marked
// consumed only after the side effect succeeds, and the conditional update
// guarantees at most one caller ever gets a success for a given token.
func (s *TokenService) Verify(ctx context.Context, rawToken string, purpose domain.TokenPurpose, newPassword string) (*VerifyResult, error) {
	token, err := s.tokens.FindByTokenHash(ctx, util.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	// A token presented for the wrong purpose is indistinguishable from a
	// wrong token.
	if token.Purpose != purpose {
		return nil, ErrTokenNotFound
	}
	if token.ConsumedAt != nil {
		return nil, ErrTokenAlreadyConsumed
	}

	now := s.now()
	if token.Expired(now) {
		_ = s.tokens.Delete(ctx, token.ID)
		return nil, ErrTokenExpired
	}

	result := &VerifyResult{Email: token.Email}
	switch purpose {
	case domain.PurposeEmailVerification:
		created, err := s.confirmOrCreateAccount(ctx, token)
		if err != nil {
			return nil, err
		}
		result.UserCreated = created
	case domain.PurposePasswordReset:
		if err := s.applyNewPassword(ctx, token.Email, newPassword); err != nil {
			return nil, err
		}
	default:
		return nil, ErrTokenNotFound
	}

	claimed, err := s.tokens.Consume(ctx, token.ID, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !claimed {
		return nil, ErrTokenAlreadyConsumed
	}
	return result, nil
}

// confirmOrCreateAccount executes exactly one of the two downstream paths for
// email verification: deferred account creation from the token payload, or
// confirming an account that already exists.
func (s *TokenService) confirmOrCreateAccount(ctx context.Context, token *domain.VerificationToken) (created bool, err error) {
	user, err := s.users.FindByEmail(ctx, token.Email)
	switch {
	case err == nil:
		if user.EmailConfirmed {
			return false, nil
		}
		if err := s.users.ConfirmEmail(ctx, user.ID); err != nil {
			return false, fmt.Errorf("%w: confirm account: %v", ErrDownstreamAction, err)
		}
		return false, nil
	case errors.Is(err, sql.ErrNoRows):
		payload, err := token.SignupPayload()
		if err != nil {
			return false, fmt.Errorf("%w: decode signup payload: %v", ErrDownstreamAction, err)
		}
		if len(payload.PasswordHash) == 0 || len(payload.PasswordSalt) == 0 {
			return false, fmt.Errorf("%w: signup payload missing credentials", ErrDownstreamAction)
		}
		if _, err := s.users.CreateConfirmedUser(ctx, token.Email, payload.PasswordHash, payload.PasswordSalt, payload.FullName); err != nil {
			return false, fmt.Errorf("%w: create account: %v", ErrDownstreamAction, err)
		}
		return true, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

func (s *TokenService) applyNewPassword(ctx context.Context, email, newPassword string) error {
	if newPassword == "" {
		return ErrPasswordRequired
	}
	if err := util.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: no account for email", ErrDownstreamAction)
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	hash, salt, err := util.DerivePassword(newPassword)
	if err != nil {
		return fmt.Errorf("%w: derive password: %v", ErrDownstreamAction, err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, salt); err != nil {
		return fmt.Errorf("%w: update password: %v", ErrDownstreamAction, err)
	}
	return nil
}
