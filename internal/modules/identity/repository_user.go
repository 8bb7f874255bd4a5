package identity

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

const userColumns = "id, email, name, username, image, hashed_password, email_verified, created_at"

// CreateUser inserts a new user record into the database.
func (r *repository) CreateUser(ctx context.Context, user *User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	query, args, err := r.psql.Insert("users").
		Columns("id", "email", "name", "username", "image", "hashed_password", "email_verified", "created_at").
		Values(user.ID, user.Email, user.Name, user.Username, user.Image, user.HashedPassword, user.EmailVerified, user.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, query, args...)
	return err
}

// FindUserByID retrieves a user by their unique ID.
// It returns ErrNotFound if no user is found.
func (r *repository) FindUserByID(ctx context.Context, id string) (*User, error) {
	return r.findUser(ctx, squirrel.Eq{"id": id})
}

// FindUserByEmail retrieves a user by their email address.
func (r *repository) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.findUser(ctx, squirrel.Eq{"email": email})
}

// FindUserByUsername retrieves a user by their username.
func (r *repository) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	return r.findUser(ctx, squirrel.Eq{"username": username})
}

func (r *repository) findUser(ctx context.Context, condition squirrel.Sqlizer) (*User, error) {
	query, args, err := r.psql.Select(userColumns).
		From("users").
		Where(condition).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var user User
	err = pgxscan.Get(ctx, r.db, &user, query, args...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound.WithCause(err)
		}
		return nil, err
	}

	return &user, nil
}

// UpdateUserPartial forwards only the non-nil whitelisted fields to storage.
func (r *repository) UpdateUserPartial(ctx context.Context, id string, patch UserPatch) error {
	builder := r.psql.Update("users").Where(squirrel.Eq{"id": id})

	changed := false
	if patch.Email != nil {
		builder = builder.Set("email", *patch.Email)
		changed = true
	}
	if patch.Name != nil {
		builder = builder.Set("name", *patch.Name)
		changed = true
	}
	if patch.Image != nil {
		builder = builder.Set("image", *patch.Image)
		changed = true
	}
	if patch.EmailVerified != nil {
		builder = builder.Set("email_verified", *patch.EmailVerified)
		changed = true
	}
	if !changed {
		return nil
	}

	query, args, err := builder.ToSql()
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

// UpdateUserPassword sets a new password hash for a user.
func (r *repository) UpdateUserPassword(ctx context.Context, userID string, hashedPassword string) error {
	query, args, err := r.psql.Update("users").
		Set("hashed_password", hashedPassword).
		Where(squirrel.Eq{"id": userID}).
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

// UpdateUserUsername sets a new username on the users table only. The profile
// copy is updated separately by the username-change flow.
func (r *repository) UpdateUserUsername(ctx context.Context, userID string, username string) error {
	query, args, err := r.psql.Update("users").
		Set("username", username).
		Where(squirrel.Eq{"id": userID}).
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

// DeleteUser removes the user row. Dependent accounts and sessions are deleted
// first by the adapter; no storage-level cascade is assumed.
func (r *repository) DeleteUser(ctx context.Context, id string) error {
	query, args, err := r.psql.Delete("users").
		Where(squirrel.Eq{"id": id}).
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
