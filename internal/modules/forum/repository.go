package forum

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/quietriver/insighthub/internal/database"
)

// threadColumns joins the author's live username so renames show up without a
// backfill over old threads.
const threadColumns = "t.id, t.author_id, u.username AS author_username, t.title, t.body, t.created_at, t.updated_at"

// Repository is thin row access to the forum_threads table.
type Repository interface {
	Create(ctx context.Context, thread *Thread) error
	FindByID(ctx context.Context, id string) (*Thread, error)
	List(ctx context.Context, limit, offset uint64) ([]*Thread, error)
	Delete(ctx context.Context, id string) error
}

type repository struct {
	db   database.DBTX
	psql squirrel.StatementBuilderType
}

// NewRepository creates a new forum repository.
func NewRepository(db database.DBTX) Repository {
	return &repository{
		db:   db,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new thread row.
func (r *repository) Create(ctx context.Context, thread *Thread) error {
	now := time.Now()
	if thread.CreatedAt.IsZero() {
		thread.CreatedAt = now
	}
	thread.UpdatedAt = now

	query, args, err := r.psql.Insert("forum_threads").
		Columns("id", "author_id", "title", "body", "created_at", "updated_at").
		Values(thread.ID, thread.AuthorID, thread.Title, thread.Body, thread.CreatedAt, thread.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, query, args...)
	return err
}

// FindByID retrieves a thread with its author's current username.
func (r *repository) FindByID(ctx context.Context, id string) (*Thread, error) {
	query, args, err := r.psql.Select(threadColumns).
		From("forum_threads t").
		Join("users u ON u.id = t.author_id").
		Where(squirrel.Eq{"t.id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var thread Thread
	err = pgxscan.Get(ctx, r.db, &thread, query, args...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &thread, nil
}

// List returns threads newest first.
func (r *repository) List(ctx context.Context, limit, offset uint64) ([]*Thread, error) {
	query, args, err := r.psql.Select(threadColumns).
		From("forum_threads t").
		Join("users u ON u.id = t.author_id").
		OrderBy("t.created_at DESC").
		Limit(limit).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, err
	}

	var threads []*Thread
	if err := pgxscan.Select(ctx, r.db, &threads, query, args...); err != nil {
		return nil, err
	}
	return threads, nil
}

// Delete removes a thread row.
func (r *repository) Delete(ctx context.Context, id string) error {
	query, args, err := r.psql.Delete("forum_threads").
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
