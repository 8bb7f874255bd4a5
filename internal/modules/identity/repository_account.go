package identity

import (
	"context"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

const accountColumns = "id, user_id, provider, provider_account_id, access_token, refresh_token, expires_at, token_type, scope, id_token"

// CreateAccount inserts a new OAuth account link. The (provider,
// provider_account_id) uniqueness is enforced by the database.
func (r *repository) CreateAccount(ctx context.Context, account *Account) error {
	query, args, err := r.psql.Insert("accounts").
		Columns("id", "user_id", "provider", "provider_account_id", "access_token", "refresh_token", "expires_at", "token_type", "scope", "id_token").
		Values(account.ID, account.UserID, account.Provider, account.ProviderAccountID, account.AccessToken, account.RefreshToken, account.ExpiresAt, account.TokenType, account.Scope, account.IDToken).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, query, args...)
	return err
}

// FindAccount retrieves an account link by its composite provider key.
func (r *repository) FindAccount(ctx context.Context, provider, providerAccountID string) (*Account, error) {
	query, args, err := r.psql.Select(accountColumns).
		From("accounts").
		Where(squirrel.Eq{"provider": provider, "provider_account_id": providerAccountID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var account Account
	err = pgxscan.Get(ctx, r.db, &account, query, args...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound.WithCause(err)
		}
		return nil, err
	}

	return &account, nil
}

// DeleteAccount removes one account link by its composite provider key.
func (r *repository) DeleteAccount(ctx context.Context, provider, providerAccountID string) error {
	query, args, err := r.psql.Delete("accounts").
		Where(squirrel.Eq{"provider": provider, "provider_account_id": providerAccountID}).
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

// DeleteAccountsByUser removes all account links owned by a user. Deleting
// zero rows is not an error; users without OAuth links are common.
func (r *repository) DeleteAccountsByUser(ctx context.Context, userID string) error {
	query, args, err := r.psql.Delete("accounts").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, query, args...)
	return err
}
