package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dosecerta/dosecerta-backend/internal/domain"
	"github.com/dosecerta/dosecerta-backend/internal/util"
)

type fakeTokenRepo struct {
	rows map[uuid.UUID]*domain.VerificationToken

	createErr  error
	consumeErr error
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{rows: make(map[uuid.UUID]*domain.VerificationToken)}
}

func (f *fakeTokenRepo) Create(ctx context.Context, email, tokenHash string, purpose domain.TokenPurpose, payload json.RawMessage, expiresAt time.Time) (*domain.VerificationToken, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	token := &domain.VerificationToken{
		ID:        uuid.New(),
		Email:     email,
		TokenHash: tokenHash,
		Purpose:   purpose,
		Payload:   payload,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	f.rows[token.ID] = token
	return token, nil
}

func (f *fakeTokenRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*domain.VerificationToken, error) {
	for _, row := range f.rows {
		if row.TokenHash == tokenHash {
			copied := *row
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeTokenRepo) Consume(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	if f.consumeErr != nil {
		return false, f.consumeErr
	}
	row, ok := f.rows[id]
	if !ok || row.ConsumedAt != nil {
		return false, nil
	}
	consumedAt := now
	row.ConsumedAt = &consumedAt
	return true, nil
}

func (f *fakeTokenRepo) InvalidatePrior(ctx context.Context, email string, purpose domain.TokenPurpose, now time.Time) error {
	for _, row := range f.rows {
		if row.Email == email && row.Purpose == purpose && row.ConsumedAt == nil {
			consumedAt := now
			row.ConsumedAt = &consumedAt
		}
	}
	return nil
}

func (f *fakeTokenRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.rows, id)
	return nil
}

func (f *fakeTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var deleted int64
	for id, row := range f.rows {
		if !now.Before(row.ExpiresAt) {
			delete(f.rows, id)
			deleted++
		}
	}
	return deleted, nil
}

type fakeUserRepo struct {
	byEmail map[string]*domain.User

	confirmCalls  int
	createCalls   int
	createErr     error
	updatePwCalls int
	lastPwHash    []byte
	lastPwSalt    []byte
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]*domain.User)}
}

func (f *fakeUserRepo) CreateConfirmedUser(ctx context.Context, email string, passwordHash, passwordSalt []byte, fullName *string) (*domain.User, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	now := time.Now()
	user := &domain.User{
		ID:             uuid.New(),
		Email:          email,
		FullName:       fullName,
		PasswordHash:   append([]byte(nil), passwordHash...),
		PasswordSalt:   append([]byte(nil), passwordSalt...),
		EmailConfirmed: true,
		ConfirmedAt:    &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f.byEmail[email] = user
	return user, nil
}

func (f *fakeUserRepo) UpsertGoogleUser(ctx context.Context, email string, fullName *string, imageURL *string) (*domain.User, error) {
	if existing, ok := f.byEmail[email]; ok {
		existing.EmailConfirmed = true
		return existing, nil
	}
	now := time.Now()
	user := &domain.User{ID: uuid.New(), Email: email, FullName: fullName, ImageURL: imageURL, EmailConfirmed: true, ConfirmedAt: &now}
	f.byEmail[email] = user
	return user, nil
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, ok := f.byEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, user := range f.byEmail {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) ConfirmEmail(ctx context.Context, id uuid.UUID) error {
	f.confirmCalls++
	for _, user := range f.byEmail {
		if user.ID == id {
			user.EmailConfirmed = true
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeUserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, fullName *string, imageURL *string) (*domain.User, error) {
	for _, user := range f.byEmail {
		if user.ID == id {
			if fullName != nil {
				user.FullName = fullName
			}
			if imageURL != nil {
				user.ImageURL = imageURL
			}
			copied := *user
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash, passwordSalt []byte) error {
	f.updatePwCalls++
	for _, user := range f.byEmail {
		if user.ID == id {
			user.PasswordHash = append([]byte(nil), passwordHash...)
			user.PasswordSalt = append([]byte(nil), passwordSalt...)
			f.lastPwHash = user.PasswordHash
			f.lastPwSalt = user.PasswordSalt
			return nil
		}
	}
	return sql.ErrNoRows
}

func newTokenServiceForTest(tokens *fakeTokenRepo, users *fakeUserRepo) *TokenService {
	return NewTokenService(tokens, users, TokenServiceConfig{})
}

func TestIssueRejectsInvalidEmail(t *testing.T) {
	svc := newTokenServiceForTest(newFakeTokenRepo(), newFakeUserRepo())
	if _, err := svc.Issue(context.Background(), "not-an-email", domain.PurposeEmailVerification, nil); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
}

func TestIssueSetsPurposeTTL(t *testing.T) {
	tokens := newFakeTokenRepo()
	svc := newTokenServiceForTest(tokens, newFakeUserRepo())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	verification, err := svc.Issue(context.Background(), "user@example.com", domain.PurposeEmailVerification, nil)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if got := verification.ExpiresAt.Sub(base); got != EmailVerificationTTL {
		t.Fatalf("verification TTL = %v, want %v", got, EmailVerificationTTL)
	}

	reset, err := svc.Issue(context.Background(), "user@example.com", domain.PurposePasswordReset, nil)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if got := reset.ExpiresAt.Sub(base); got != PasswordResetTTL {
		t.Fatalf("reset TTL = %v, want %v", got, PasswordResetTTL)
	}
}

func TestIssueInvalidatesPriorTokensForSamePurpose(t *testing.T) {
	tokens := newFakeTokenRepo()
	svc := newTokenServiceForTest(tokens, newFakeUserRepo())

	first, err := svc.Issue(context.Background(), "user@example.com", domain.PurposePasswordReset, nil)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if _, err := svc.Issue(context.Background(), "user@example.com", domain.PurposePasswordReset, nil); err != nil {
		t.Fatalf("second Issue returned error: %v", err)
	}

	row := tokens.rows[first.Token.ID]
	if row == nil || row.ConsumedAt == nil {
		t.Fatalf("expected the first token to be invalidated on re-issue")
	}
}

func TestIssueStoreFailure(t *testing.T) {
	tokens := newFakeTokenRepo()
	tokens.createErr = errors.New("connection refused")
	svc := newTokenServiceForTest(tokens, newFakeUserRepo())

	if _, err := svc.Issue(context.Background(), "user@example.com", domain.PurposeEmailVerification, nil); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestVerifyCreatesDeferredAccount(t *testing.T) {
	tokens := newFakeTokenRepo()
	users := newFakeUserRepo()
	svc := newTokenServiceForTest(tokens, users)

	hash, salt, err := util.DerivePassword("Abc12345!")
	if err != nil {
		t.Fatalf("DerivePassword returned error: %v", err)
	}
	name := "Maria Souza"
	payload, _ := json.Marshal(domain.SignupPayload{PasswordHash: hash, PasswordSalt: salt, FullName: &name})

	issued, err := svc.Issue(context.Background(), "maria@example.com", domain.PurposeEmailVerification, payload)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	result, err := svc.Verify(context.Background(), issued.RawToken, domain.PurposeEmailVerification, "")
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !result.UserCreated {
		t.Fatalf("expected deferred account creation")
	}
	if result.Email != "maria@example.com" {
		t.Fatalf("unexpected email %q", result.Email)
	}

	user, err := users.FindByEmail(context.Background(), "maria@example.com")
	if err != nil {
		t.Fatalf("expected account to exist: %v", err)
	}
	if !user.EmailConfirmed {
		t.Fatalf("account should be confirmed")
	}
	if !util.VerifyPassword("Abc12345!", user.PasswordSalt, user.PasswordHash) {
		t.Fatalf("pending credentials should carry over to the account")
	}
}

func TestVerifyConfirmsExistingAccountInPlace(t *testing.T) {
	tokens := newFakeTokenRepo()
	users := newFakeUserRepo()
	existing, _ := users.CreateConfirmedUser(context.Background(), "user@example.com", []byte{1}, []byte{2}, nil)
	existing = users.byEmail["user@example.com"]
	existing.EmailConfirmed = false
	svc := newTokenServiceForTest(tokens, users)

	issued, err := svc.Issue(context.Background(), "user@example.com", domain.PurposeEmailVerification, nil)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	result, err := svc.Verify(context.Background(), issued.RawToken, domain.PurposeEmailVerification, "")
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if result.UserCreated {
		t.Fatalf("existing account must be confirmed in place, not recreated")
	}
	if users.createCalls != 1 {
		t.Fatalf("expected no extra account creation, got %d calls", users.createCalls)
	}
	if users.confirmCalls != 1 {
		t.Fatalf("expected one confirm call, got %d", users.confirmCalls)
	}
}

func TestVerifySucceedsAtMostOnce(t *testing.T) {
	tokens := newFakeTokenRepo()
	users := newFakeUserRepo()
	users.CreateConfirmedUser(context.Background(), "user@example.com", []byte{1}, []byte{2}, nil)
	svc := newTokenServiceForTest(tokens, users)

	issued, err := svc.Issue(context.Background(), "user@example.com", domain.PurposePasswordReset, nil)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	result, err := svc.Verify(context.Background(), issued.RawToken, domain.PurposePasswordReset, "Abc12345!")
	if err != nil {
		t.Fatalf("first Verify returned error: %v", err)
	}
	if result.Email != "user@example.com" {
		t.Fatalf("unexpected email %q", result.Email)
	}

	if _, err := svc.Verify(context.Background(), issued.RawToken, domain.PurposePasswordReset, "Abc12345!"); !errors.Is(err, ErrTokenAlreadyConsumed) {
		t.Fatalf("second Verify should report ErrTokenAlreadyConsumed, got %v", err)
	}
}

func TestVerifyExpiredTokenIsDeleted(t *testing.T) {
	tokens := newFakeTokenRepo()
	users := newFakeUserRepo()
	svc := newTokenServiceForTest(tokens, users)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	issued, err := svc.Issue(context.Background(), "user@example.com", domain.PurposePasswordReset, nil)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	svc.now = func() time.Time { return base.Add(PasswordResetTTL + time.Second) }
	if _, err := svc.Verify(context.Background(), issued.RawToken, domain.PurposePasswordReset, "Abc12345!"); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	// The hygiene delete makes the token unretrievable afterwards.
	if _, err := svc.Verify(context.Background(), issued.RawToken, domain.PurposePasswordReset, "Abc12345!"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound after expiry cleanup, got %v", err)
	}
}

func TestVerifyWrongTokenAndWrongPurpose(t *testing.T) {
	tokens := newFakeTokenRepo()
	users := newFakeUserRepo()
	users.CreateConfirmedUser(context.Background(), "user@example.com", []byte{1}, []byte{2}, nil)
	svc := newTokenServiceForTest(tokens, users)

	if _, err := svc.Verify(context.Background(), "no-such-token", domain.PurposeEmailVerification, ""); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound for unknown token, got %v", err)
	}

	issued, err := svc.Issue(context.Background(), "user@example.com", domain.PurposePasswordReset, nil)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if _, err := svc.Verify(context.Background(), issued.RawToken, domain.PurposeEmailVerification, ""); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("purpose mismatch must look like an unknown token, got %v", err)
	}
}

func TestVerifyPasswordResetRequiresPassword(t *testing.T) {
	tokens := newFakeTokenRepo()
	users := newFakeUserRepo()
	users.CreateConfirmedUser(context.Background(), "user@example.com", []byte{1}, []byte{2}, nil)
	svc := newTokenServiceForTest(tokens, users)

	issued, err := svc.Issue(context.Background(), "user@example.com", domain.PurposePasswordReset, nil)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := svc.Verify(context.Background(), issued.RawToken, domain.PurposePasswordReset, ""); !errors.Is(err, ErrPasswordRequired) {
		t.Fatalf("expected ErrPasswordRequired, got %v", err)
	}
	if _, err := svc.Verify(context.Background(), issued.RawToken, domain.PurposePasswordReset, "weak"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}

	// Failed downstream actions must not consume the token.
	if _, err := svc.Verify(context.Background(), issued.RawToken, domain.PurposePasswordReset, "Abc12345!"); err != nil {
		t.Fatalf("token should still be usable after failed attempts: %v", err)
	}
	if users.updatePwCalls != 1 {
		t.Fatalf("expected exactly one password update, got %d", users.updatePwCalls)
	}
}

func TestVerifyDownstreamFailureLeavesTokenUnconsumed(t *testing.T) {
	tokens := newFakeTokenRepo()
	users := newFakeUserRepo()
	users.createErr = errors.New("insert rejected")
	svc := newTokenServiceForTest(tokens, users)

	hash, salt, _ := util.DerivePassword("Abc12345!")
	payload, _ := json.Marshal(domain.SignupPayload{PasswordHash: hash, PasswordSalt: salt})
	issued, err := svc.Issue(context.Background(), "user@example.com", domain.PurposeEmailVerification, payload)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := svc.Verify(context.Background(), issued.RawToken, domain.PurposeEmailVerification, ""); !errors.Is(err, ErrDownstreamAction) {
		t.Fatalf("expected ErrDownstreamAction, got %v", err)
	}

	row := tokens.rows[issued.Token.ID]
	if row == nil || row.ConsumedAt != nil {
		t.Fatalf("token must remain unconsumed after downstream failure")
	}
}

func TestIssueThenVerifyRoundTrip(t *testing.T) {
	tokens := newFakeTokenRepo()
	users := newFakeUserRepo()
	users.CreateConfirmedUser(context.Background(), "user@example.com", []byte{1}, []byte{2}, nil)
	svc := newTokenServiceForTest(tokens, users)

	issued, err := svc.Issue(context.Background(), "user@example.com", domain.PurposePasswordReset, nil)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	result, err := svc.Verify(context.Background(), issued.RawToken, domain.PurposePasswordReset, "Abc12345!")
	if err != nil {
		t.Fatalf("immediate Verify should succeed: %v", err)
	}
	if result.Email != "user@example.com" {
		t.Fatalf("unexpected email %q", result.Email)
	}
	if !util.VerifyPassword("Abc12345!", users.lastPwSalt, users.lastPwHash) {
		t.Fatalf("new password should be applied to the account")
	}
}
