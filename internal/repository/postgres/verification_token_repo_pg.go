package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dosecerta/dosecerta-backend/internal/domain"
)

type VerificationTokenRepository struct {
	db *sqlx.DB
}

func NewVerificationTokenRepo(db *sqlx.DB) *VerificationTokenRepository {
	return &VerificationTokenRepository{db: db}
}

const tokenColumns = `id, email, token_hash, purpose, payload, expires_at, consumed_at, created_at`

func (r *VerificationTokenRepository) Create(ctx context.Context, email, tokenHash string, purpose domain.TokenPurpose, payload json.RawMessage, expiresAt time.Time) (*domain.VerificationToken, error) {
	const query = `
        INSERT INTO verification_token (email, token_hash, purpose, payload, expires_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING ` + tokenColumns + `
    `
	row := r.db.QueryRowxContext(ctx, query, email, tokenHash, purpose, payload, expiresAt)
	var token domain.VerificationToken
	if err := row.StructScan(&token); err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *VerificationTokenRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*domain.VerificationToken, error) {
	const query = `
        SELECT ` + tokenColumns + `
        FROM verification_token
        WHERE token_hash = $1
    `
	var token domain.VerificationToken
	if err := r.db.GetContext(ctx, &token, query, tokenHash); err != nil {
		return nil, err
	}
	return &token, nil
}

// Consume is the guarded state transition: the WHERE clause ensures only one
// caller ever observes a row count of 1 for a given token.
func (r *VerificationTokenRepository) Consume(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	const query = `
        UPDATE verification_token
        SET consumed_at = $2
        WHERE id = $1 AND consumed_at IS NULL
    `
	res, err := r.db.ExecContext(ctx, query, id, now)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *VerificationTokenRepository) InvalidatePrior(ctx context.Context, email string, purpose domain.TokenPurpose, now time.Time) error {
	const query = `
        UPDATE verification_token
        SET consumed_at = $3
        WHERE email = $1 AND purpose = $2 AND consumed_at IS NULL
    `
	_, err := r.db.ExecContext(ctx, query, email, purpose, now)
	return err
}

func (r *VerificationTokenRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM verification_token WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *VerificationTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM verification_token WHERE expires_at <= $1`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
