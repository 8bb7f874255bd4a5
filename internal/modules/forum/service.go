package forum

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// AdminChecker reports whether a user holds admin standing. Satisfied by the
// identity service.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// Service is the forum module's business logic.
type Service interface {
	List(ctx context.Context, limit, offset uint64) ([]*Thread, error)
	Get(ctx context.Context, id string) (*Thread, error)
	Create(ctx context.Context, authorID, title, body string) (*Thread, error)
	// Delete removes a thread if the requester authored it or is an admin.
	Delete(ctx context.Context, requesterID, threadID string) error
}

type service struct {
	repo   Repository
	admins AdminChecker
	logger *slog.Logger
}

// NewService creates a new forum service.
func NewService(repo Repository, admins AdminChecker, logger *slog.Logger) Service {
	return &service{repo: repo, admins: admins, logger: logger}
}

const defaultListLimit = 20
const maxListLimit = 100

// List returns threads newest first.
func (s *service) List(ctx context.Context, limit, offset uint64) ([]*Thread, error) {
	if limit == 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.repo.List(ctx, limit, offset)
}

// Get returns a single thread.
func (s *service) Get(ctx context.Context, id string) (*Thread, error) {
	return s.repo.FindByID(ctx, id)
}

// Create stores a new thread authored by the given user.
func (s *service) Create(ctx context.Context, authorID, title, body string) (*Thread, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	thread := &Thread{
		ID:       id.String(),
		AuthorID: authorID,
		Title:    strings.TrimSpace(title),
		Body:     body,
	}
	if err := s.repo.Create(ctx, thread); err != nil {
		s.logger.Error("failed to create thread", "author_id", authorID, "error", err)
		return nil, err
	}

	s.logger.Info("thread created", "thread_id", thread.ID, "author_id", authorID)
	// Re-read so the view carries the author's username from the join.
	return s.repo.FindByID(ctx, thread.ID)
}

// Delete enforces the author-or-admin rule before removing a thread. The admin
// flag is read from the profile row per request.
func (s *service) Delete(ctx context.Context, requesterID, threadID string) error {
	thread, err := s.repo.FindByID(ctx, threadID)
	if err != nil {
		return err
	}

	if thread.AuthorID != requesterID {
		isAdmin, err := s.admins.IsAdmin(ctx, requesterID)
		if err != nil {
			return err
		}
		if !isAdmin {
			return ErrForbidden
		}
	}

	if err := s.repo.Delete(ctx, threadID); err != nil {
		return err
	}
	s.logger.Info("thread deleted", "thread_id", threadID, "requester_id", requesterID)
	return nil
}
