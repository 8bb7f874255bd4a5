package forum

import (
	"errors"
	"time"
)

// Thread is one forum post. Plain row CRUD: no nesting, no reply trees.
type Thread struct {
	ID             string    `db:"id"`
	AuthorID       string    `db:"author_id"`
	AuthorUsername string    `db:"author_username"`
	Title          string    `db:"title"`
	Body           string    `db:"body"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

var (
	// ErrNotFound is returned when no thread matches the lookup.
	ErrNotFound = errors.New("thread not found")
	// ErrForbidden is returned when a non-author, non-admin tries to delete
	// a thread.
	ErrForbidden = errors.New("not allowed to modify this thread")
)
