package insight

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/quietriver/insighthub/internal/database"
)

const insightColumns = "id, author_id, title, slug, summary, content, cover_image, published, published_at, created_at, updated_at"

// Repository is thin row access to the insights table. Absence is reported as
// ErrNotFound; slug collisions surface as the driver's unique-violation error.
type Repository interface {
	Create(ctx context.Context, ins *Insight) error
	FindByID(ctx context.Context, id string) (*Insight, error)
	FindBySlug(ctx context.Context, slug string) (*Insight, error)
	ListPublished(ctx context.Context, limit, offset uint64) ([]*Insight, error)
	ListAll(ctx context.Context, limit, offset uint64) ([]*Insight, error)
	Update(ctx context.Context, id string, patch Patch) error
	Delete(ctx context.Context, id string) error
}

type repository struct {
	db   database.DBTX
	psql squirrel.StatementBuilderType
}

// NewRepository creates a new insight repository.
func NewRepository(db database.DBTX) Repository {
	return &repository{
		db:   db,
		psql: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// IsUniqueViolation reports whether an error is a Postgres unique-constraint
// violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create inserts a new insight row.
func (r *repository) Create(ctx context.Context, ins *Insight) error {
	now := time.Now()
	if ins.CreatedAt.IsZero() {
		ins.CreatedAt = now
	}
	ins.UpdatedAt = now

	query, args, err := r.psql.Insert("insights").
		Columns("id", "author_id", "title", "slug", "summary", "content", "cover_image", "published", "published_at", "created_at", "updated_at").
		Values(ins.ID, ins.AuthorID, ins.Title, ins.Slug, ins.Summary, ins.Content, ins.CoverImage, ins.Published, ins.PublishedAt, ins.CreatedAt, ins.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, query, args...)
	return err
}

// FindByID retrieves an insight by ID, published or not.
func (r *repository) FindByID(ctx context.Context, id string) (*Insight, error) {
	return r.findOne(ctx, squirrel.Eq{"id": id})
}

// FindBySlug retrieves an insight by its slug, published or not.
func (r *repository) FindBySlug(ctx context.Context, slug string) (*Insight, error) {
	return r.findOne(ctx, squirrel.Eq{"slug": slug})
}

func (r *repository) findOne(ctx context.Context, condition squirrel.Sqlizer) (*Insight, error) {
	query, args, err := r.psql.Select(insightColumns).
		From("insights").
		Where(condition).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	var ins Insight
	err = pgxscan.Get(ctx, r.db, &ins, query, args...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &ins, nil
}

// ListPublished returns published insights, newest publication first.
func (r *repository) ListPublished(ctx context.Context, limit, offset uint64) ([]*Insight, error) {
	return r.list(ctx, squirrel.Eq{"published": true}, "published_at DESC", limit, offset)
}

// ListAll returns every insight, newest first. Admin-only callers.
func (r *repository) ListAll(ctx context.Context, limit, offset uint64) ([]*Insight, error) {
	return r.list(ctx, nil, "created_at DESC", limit, offset)
}

func (r *repository) list(ctx context.Context, condition squirrel.Sqlizer, order string, limit, offset uint64) ([]*Insight, error) {
	builder := r.psql.Select(insightColumns).
		From("insights").
		OrderBy(order).
		Limit(limit).
		Offset(offset)
	if condition != nil {
		builder = builder.Where(condition)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	var insights []*Insight
	if err := pgxscan.Select(ctx, r.db, &insights, query, args...); err != nil {
		return nil, err
	}
	return insights, nil
}

// Update applies the non-nil patch fields. A patch with nothing set is a
// no-op that still reports whether the row exists.
func (r *repository) Update(ctx context.Context, id string, patch Patch) error {
	builder := r.psql.Update("insights").Where(squirrel.Eq{"id": id})

	changed := false
	if patch.Title != nil {
		builder = builder.Set("title", *patch.Title)
		changed = true
	}
	if patch.Slug != nil {
		builder = builder.Set("slug", *patch.Slug)
		changed = true
	}
	if patch.Summary != nil {
		builder = builder.Set("summary", *patch.Summary)
		changed = true
	}
	if patch.Content != nil {
		builder = builder.Set("content", *patch.Content)
		changed = true
	}
	if patch.CoverImage != nil {
		builder = builder.Set("cover_image", *patch.CoverImage)
		changed = true
	}
	if patch.Published != nil {
		builder = builder.Set("published", *patch.Published)
		if *patch.Published {
			builder = builder.Set("published_at", time.Now())
		} else {
			builder = builder.Set("published_at", nil)
		}
		changed = true
	}
	if !changed {
		_, err := r.FindByID(ctx, id)
		return err
	}
	builder = builder.Set("updated_at", time.Now())

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

// Delete removes an insight row.
func (r *repository) Delete(ctx context.Context, id string) error {
	query, args, err := r.psql.Delete("insights").
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
