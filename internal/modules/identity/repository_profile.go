package identity

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
)

const profileColumns = "id, user_id, username, avatar_url, bio, is_admin, created_at, updated_at"

// CreateProfile inserts a new profile record. Callers must handle a
// unique-violation on user_id or username (lazy and eager creation race).
func (r *repository) CreateProfile(ctx context.Context, profile *Profile) error {
	now := time.Now()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	query, args, err := r.psql.Insert("profiles").
		Columns("id", "user_id", "username", "avatar_url", "bio", "is_admin", "created_at", "updated_at").
		Values(profile.ID, profile.UserID, profile.Username, profile.AvatarURL, profile.Bio, profile.IsAdmin, profile.CreatedAt, profile.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, query, args...)
	return err
}

// FindProfileByUserID retrieves the profile belonging to a user.
func (r *repository) FindProfileByUserID(ctx context.Context, userID string) (*Profile, error) {
	return r.findProfile(ctx, squirrel.Eq{"user_id": userID})
}

// FindProfileByUsername retrieves a profile by its public username.
func (r *repository) FindProfileByUsername(ctx context.Context, username string) (*Profile, error) {
	return r.findProfile(ctx, squirrel.Eq{"username": username})
}

func (r *repository) findProfile(ctx context.Context, condition squirrel.Sqlizer) (*Profile, error) {
	query, args, err := r.psql.Select(profileColumns).
		From("profiles").
		Where(condition).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var profile Profile
	err = pgxscan.Get(ctx, r.db, &profile, query, args...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound.WithCause(err)
		}
		return nil, err
	}

	return &profile, nil
}

// UpdateProfile forwards the non-nil profile fields to storage.
func (r *repository) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) error {
	builder := r.psql.Update("profiles").
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"user_id": userID})

	if patch.Bio != nil {
		builder = builder.Set("bio", *patch.Bio)
	}
	if patch.AvatarURL != nil {
		builder = builder.Set("avatar_url", *patch.AvatarURL)
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

// UpdateProfileUsername sets a new username on the profiles table only.
func (r *repository) UpdateProfileUsername(ctx context.Context, userID string, username string) error {
	query, args, err := r.psql.Update("profiles").
		Set("username", username).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"user_id": userID}).
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
