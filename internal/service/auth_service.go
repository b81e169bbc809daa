package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"google.golang.org/api/idtoken"

	"github.com/dosecerta/dosecerta-backend/internal/domain"
	"github.com/dosecerta/dosecerta-backend/internal/repository/ports"
	"github.com/dosecerta/dosecerta-backend/internal/transport/mail"
	"github.com/dosecerta/dosecerta-backend/internal/util"
)

var (
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotConfirmed  = errors.New("email address not confirmed")
	ErrSessionInvalid     = errors.New("session is no longer valid")
	ErrGoogleToken        = errors.New("invalid google token")
)

// Deliverer is the delivery-dispatcher contract the auth flows depend on.
type Deliverer interface {
	Deliver(ctx context.Context, msg mail.Message) (*mail.Result, error)
}

type AuthServiceConfig struct {
	GoogleAudience  string
	FrontendBaseURL string
	SessionTTL      time.Duration
}

type AuthService struct {
	users      ports.UserRepository
	sessions   ports.SessionRepository
	tokens     *TokenService
	dispatcher Deliverer
	jwt        *util.JWTManager

	googleAud    string
	frontendBase string
	sessionTTL   time.Duration

	validateGoogleToken func(ctx context.Context, idTok, audience string) (*idtoken.Payload, error)
	now                 func() time.Time
}

func NewAuthService(
	users ports.UserRepository,
	sessions ports.SessionRepository,
	tokens *TokenService,
	dispatcher Deliverer,
	jwtManager *util.JWTManager,
	cfg AuthServiceConfig,
) *AuthService {
	sessionTTL := cfg.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &AuthService{
		users:               users,
		sessions:            sessions,
		tokens:              tokens,
		dispatcher:          dispatcher,
		jwt:                 jwtManager,
		googleAud:           cfg.GoogleAudience,
		frontendBase:        cfg.FrontendBaseURL,
		sessionTTL:          sessionTTL,
		validateGoogleToken: idtoken.Validate,
		now:                 time.Now,
	}
}

type RegisterResult struct {
	ExpiresAt time.Time
	Delivery  *mail.Result
}

// Register starts the deferred-creation signup: credentials are hashed into
// the token payload and the account row is written only when the token is
// verified.
func (s *AuthService) Register(ctx context.Context, email, password string, fullName *string) (*RegisterResult, error) {
	email = util.NormalizeEmail(email)
	if err := util.ValidateEmail(email); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEmail, err)
	}
	if err := util.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}

	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.EmailConfirmed {
			return nil, ErrEmailTaken
		}
		// Unconfirmed account: fall through and re-issue, the new token
		// confirms it in place.
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	hash, salt, err := util.DerivePassword(password)
	if err != nil {
		return nil, fmt.Errorf("derive password: %w", err)
	}
	payload, err := json.Marshal(domain.SignupPayload{
		PasswordHash: hash,
		PasswordSalt: salt,
		FullName:     fullName,
	})
	if err != nil {
		return nil, fmt.Errorf("encode signup payload: %w", err)
	}

	issued, err := s.tokens.Issue(ctx, email, domain.PurposeEmailVerification, payload)
	if err != nil {
		return nil, err
	}

	delivery, err := s.dispatcher.Deliver(ctx, mail.Message{
		To:      email,
		Subject: "Confirme seu email no Dose Certa",
		Body: fmt.Sprintf(
			"Confirme seu cadastro acessando o link abaixo. O link expira em %s.\n\n%s\n\nSe você não criou esta conta, ignore este email.",
			formatTTL(issued.ExpiresAt.Sub(s.now())),
			s.frontendBase+"/verificar-email?token="+issued.RawToken,
		),
		Token: issued.RawToken,
	})
	if err != nil {
		return nil, err
	}
	return &RegisterResult{ExpiresAt: issued.ExpiresAt, Delivery: delivery}, nil
}

// VerifyToken completes a pending action. For password resets newPassword is
// required; for email verification it is ignored.
func (s *AuthService) VerifyToken(ctx context.Context, rawToken string, purpose domain.TokenPurpose, newPassword string) (*VerifyResult, error) {
	return s.tokens.Verify(ctx, rawToken, purpose, newPassword)
}

type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = util.NormalizeEmail(email)
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !user.HasPassword() || !util.VerifyPassword(password, user.PasswordSalt, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !user.EmailConfirmed {
		return nil, ErrEmailNotConfirmed
	}
	return s.openSession(ctx, user)
}

func (s *AuthService) LoginWithGoogle(ctx context.Context, idTok string) (*AuthResult, error) {
	payload, err := s.validateGoogleToken(ctx, idTok, s.googleAud)
	if err != nil {
		return nil, ErrGoogleToken
	}
	email, _ := payload.Claims["email"].(string)
	email = util.NormalizeEmail(email)
	if err := util.ValidateEmail(email); err != nil {
		return nil, ErrGoogleToken
	}

	var fullName, imageURL *string
	if name, ok := payload.Claims["name"].(string); ok && name != "" {
		fullName = &name
	}
	if picture, ok := payload.Claims["picture"].(string); ok && picture != "" {
		imageURL = &picture
	}

	user, err := s.users.UpsertGoogleUser(ctx, email, fullName, imageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return s.openSession(ctx, user)
}

func (s *AuthService) openSession(ctx context.Context, user *domain.User) (*AuthResult, error) {
	token, expiresAt, err := s.jwt.Generate(user.ID, user.Email, user.EmailConfirmed)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	if _, err := s.sessions.CreateSession(ctx, user.ID, token, expiresAt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &AuthResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.DeactivateSession(ctx, token)
}

// Authenticate resolves a bearer token to a user. The JWT must parse and the
// backing session row must still be active, so logout revokes access even
// before the JWT expires.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.jwt.Parse(token)
	if err != nil {
		return nil, ErrSessionInvalid
	}
	if _, err := s.sessions.FindActiveSession(ctx, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return user, nil
}

// ForgotPassword issues a reset token when the account exists and reports
// nothing either way, so the endpoint cannot be used to probe for accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = util.NormalizeEmail(email)
	if err := util.ValidateEmail(email); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEmail, err)
	}

	if _, err := s.users.FindByEmail(ctx, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	issued, err := s.tokens.Issue(ctx, email, domain.PurposePasswordReset, nil)
	if err != nil {
		return err
	}

	_, err = s.dispatcher.Deliver(ctx, mail.Message{
		To:      email,
		Subject: "Redefinição de senha - Dose Certa",
		Body: fmt.Sprintf(
			"Recebemos um pedido para redefinir sua senha. O link expira em %s.\n\n%s\n\nSe você não pediu a redefinição, ignore este email.",
			formatTTL(issued.ExpiresAt.Sub(s.now())),
			s.frontendBase+"/redefinir-senha?token="+issued.RawToken,
		),
		Token: issued.RawToken,
	})
	return err
}

func formatTTL(d time.Duration) string {
	if d >= 24*time.Hour {
		return fmt.Sprintf("%d horas", int(d.Hours()))
	}
	if d >= time.Hour {
		return fmt.Sprintf("%d hora(s)", int(d.Hours()))
	}
	return fmt.Sprintf("%d minutos", int(d.Minutes()))
}
