package identity

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

// InsertOAuthState inserts a new OAuth state record into the database.
func (r *repository) InsertOAuthState(ctx context.Context, state *OAuthState) error {
	state.CreatedAt = time.Now()
	state.UpdatedAt = time.Now()

	query, args, err := r.psql.Insert("oauth_states").
		Columns("state", "provider", "user_id", "verifier", "redirect_to", "expires_at", "created_at", "updated_at").
		Values(state.State, state.Provider, state.UserID, state.Verifier, state.RedirectTo, state.ExpiresAt, state.CreatedAt, state.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, query, args...)
	return err
}

// GetOAuthStateByState retrieves an OAuth state record by its state string.
func (r *repository) GetOAuthStateByState(ctx context.Context, state string) (*OAuthState, error) {
	query, args, err := r.psql.Select("state", "provider", "user_id", "verifier", "redirect_to", "expires_at", "created_at", "updated_at").
		From("oauth_states").
		Where(squirrel.Eq{"state": state}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var oauthState OAuthState
	err = pgxscan.Get(ctx, r.db, &oauthState, query, args...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound.WithCause(err)
		}
		return nil, err
	}

	return &oauthState, nil
}

// DeleteOAuthState removes an OAuth state record from the database.
func (r *repository) DeleteOAuthState(ctx context.Context, state string) error {
	query, args, err := r.psql.Delete("oauth_states").
		Where(squirrel.Eq{"state": state}).
		ToSql()
	if err != nil {
		return err
	}

	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpiredOAuthStates removes all OAuth state records that have expired.
// This should be called periodically as a cleanup operation.
func (r *repository) DeleteExpiredOAuthStates(ctx context.Context) error {
	query, args, err := r.psql.Delete("oauth_states").
		Where(squirrel.Lt{"expires_at": time.Now()}).
		ToSql()
	if err != nil {
		return err
	}

	// Deleting zero rows is normal here; there may be nothing to clean up.
	_, err = r.db.Exec(ctx, query, args...)
	return err
}
