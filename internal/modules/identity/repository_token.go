package identity

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// CreateVerificationToken inserts a new one-time token.
func (r *repository) CreateVerificationToken(ctx context.Context, token *VerificationToken) error {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	query, args, err := r.psql.Insert("verification_tokens").
		Columns("token", "identifier", "purpose", "expires_at", "created_at").
		Values(token.Token, token.Identifier, string(token.Purpose), token.ExpiresAt, token.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, query, args...)
	return err
}

// DeleteVerificationTokens removes all live tokens for an identifier/purpose
// pair, enforcing the single-active-token model before a new insert.
func (r *repository) DeleteVerificationTokens(ctx context.Context, identifier string, purpose TokenPurpose) error {
	query, args, err := r.psql.Delete("verification_tokens").
		Where(squirrel.Eq{"identifier": identifier, "purpose": string(purpose)}).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, query, args...)
	return err
}

// ConsumeVerificationToken atomically deletes the token row and returns it.
// The returned row is the proof of single-use consumption: ErrNotFound means
// the token never existed or was already used.
func (r *repository) ConsumeVerificationToken(ctx context.Context, token string) (*VerificationToken, error) {
	query := `
		DELETE FROM verification_tokens
		WHERE token = $1
		RETURNING token, identifier, purpose, expires_at, created_at
	`

	var vt VerificationToken
	err := r.db.QueryRow(ctx, query, token).Scan(&vt.Token, &vt.Identifier, &vt.Purpose, &vt.ExpiresAt, &vt.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound.WithCause(err)
		}
		return nil, err
	}

	return &vt, nil
}
