package insight

import (
	"errors"
	"time"
)

// Insight is an admin-authored article. Slug is unique and derived from the
// title at creation unless supplied explicitly. Unpublished insights are
// visible only through the admin routes.
type Insight struct {
	ID          string     `db:"id"`
	AuthorID    string     `db:"author_id"`
	Title       string     `db:"title"`
	Slug        string     `db:"slug"`
	Summary     *string    `db:"summary"`
	Content     string     `db:"content"`
	CoverImage  *string    `db:"cover_image"`
	Published   bool       `db:"published"`
	PublishedAt *time.Time `db:"published_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

var (
	// ErrNotFound is returned when no insight matches the lookup.
	ErrNotFound = errors.New("insight not found")
	// ErrSlugExists is returned when a create or update collides with an
	// existing slug.
	ErrSlugExists = errors.New("an insight with this slug already exists")
)

// Patch carries the mutable fields of an insight. Nil fields are left
// untouched.
type Patch struct {
	Title      *string
	Slug       *string
	Summary    *string
	Content    *string
	CoverImage *string
	Published  *bool
}
