package identity

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

const sessionColumns = "id, session_token, user_id, expires"

// CreateSession inserts a new server-side session record.
func (r *repository) CreateSession(ctx context.Context, session *Session) error {
	query, args, err := r.psql.Insert("sessions").
		Columns("id", "session_token", "user_id", "expires").
		Values(session.ID, session.SessionToken, session.UserID, session.Expires).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, query, args...)
	return err
}

// FindSessionByToken retrieves a session by its opaque token. Expiry is not
// checked here; the adapter compares it against the current time on every read.
func (r *repository) FindSessionByToken(ctx context.Context, sessionToken string) (*Session, error) {
	query, args, err := r.psql.Select(sessionColumns).
		From("sessions").
		Where(squirrel.Eq{"session_token": sessionToken}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var session Session
	err = pgxscan.Get(ctx, r.db, &session, query, args...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound.WithCause(err)
		}
		return nil, err
	}

	return &session, nil
}

// UpdateSessionExpiry sets a new expiry on a session and returns the updated row.
func (r *repository) UpdateSessionExpiry(ctx context.Context, sessionToken string, expires time.Time) (*Session, error) {
	query, args, err := r.psql.Update("sessions").
		Set("expires", expires).
		Where(squirrel.Eq{"session_token": sessionToken}).
		ToSql()
	if err != nil {
		return nil, err
	}

	ct, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	return r.FindSessionByToken(ctx, sessionToken)
}

// DeleteSessionByToken removes a session from the database by its token.
func (r *repository) DeleteSessionByToken(ctx context.Context, sessionToken string) error {
	query, args, err := r.psql.Delete("sessions").
		Where(squirrel.Eq{"session_token": sessionToken}).
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

// DeleteSessionsByUser removes all sessions belonging to a user.
func (r *repository) DeleteSessionsByUser(ctx context.Context, userID string) error {
	query, args, err := r.psql.Delete("sessions").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, query, args...)
	return err
}
