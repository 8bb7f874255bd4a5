package insight

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Service is the insight module's business logic. Admin checks happen in the
// handlers; the service assumes its mutating callers were already authorized.
type Service interface {
	ListPublished(ctx context.Context, limit, offset uint64) ([]*Insight, error)
	GetPublishedBySlug(ctx context.Context, slug string) (*Insight, error)

	// Admin operations
	ListAll(ctx context.Context, limit, offset uint64) ([]*Insight, error)
	Get(ctx context.Context, id string) (*Insight, error)
	Create(ctx context.Context, authorID string, draft Draft) (*Insight, error)
	Update(ctx context.Context, id string, patch Patch) (*Insight, error)
	Delete(ctx context.Context, id string) error
}

// Draft holds the author-supplied fields for a new insight.
type Draft struct {
	Title      string
	Slug       string
	Summary    *string
	Content    string
	CoverImage *string
	Published  bool
}

type service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new insight service.
func NewService(repo Repository, logger *slog.Logger) Service {
	return &service{repo: repo, logger: logger}
}

const defaultListLimit = 20
const maxListLimit = 100

func clampLimit(limit uint64) uint64 {
	if limit == 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// ListPublished returns the public feed, newest publication first.
func (s *service) ListPublished(ctx context.Context, limit, offset uint64) ([]*Insight, error) {
	return s.repo.ListPublished(ctx, clampLimit(limit), offset)
}

// GetPublishedBySlug returns a published insight. Unpublished insights read as
// absent so drafts never leak through the public route.
func (s *service) GetPublishedBySlug(ctx context.Context, slug string) (*Insight, error) {
	ins, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !ins.Published {
		return nil, ErrNotFound
	}
	return ins, nil
}

// ListAll returns every insight including drafts.
func (s *service) ListAll(ctx context.Context, limit, offset uint64) ([]*Insight, error) {
	return s.repo.ListAll(ctx, clampLimit(limit), offset)
}

// Get returns an insight by ID, published or not.
func (s *service) Get(ctx context.Context, id string) (*Insight, error) {
	return s.repo.FindByID(ctx, id)
}

// Create stores a new insight. An empty slug is derived from the title. Slug
// uniqueness is enforced by the database constraint, not by a pre-check.
func (s *service) Create(ctx context.Context, authorID string, draft Draft) (*Insight, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	slug := strings.TrimSpace(draft.Slug)
	if slug == "" {
		slug = Slugify(draft.Title)
	}

	ins := &Insight{
		ID:         id.String(),
		AuthorID:   authorID,
		Title:      strings.TrimSpace(draft.Title),
		Slug:       slug,
		Summary:    draft.Summary,
		Content:    draft.Content,
		CoverImage: draft.CoverImage,
		Published:  draft.Published,
	}
	if draft.Published {
		now := time.Now()
		ins.PublishedAt = &now
	}

	if err := s.repo.Create(ctx, ins); err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrSlugExists
		}
		s.logger.Error("failed to create insight", "slug", slug, "error", err)
		return nil, err
	}

	s.logger.Info("insight created", "insight_id", ins.ID, "slug", ins.Slug, "published", ins.Published)
	return ins, nil
}

// Update patches an insight and returns the stored row.
func (s *service) Update(ctx context.Context, id string, patch Patch) (*Insight, error) {
	if patch.Slug != nil {
		normalized := Slugify(*patch.Slug)
		patch.Slug = &normalized
	}
	if err := s.repo.Update(ctx, id, patch); err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrSlugExists
		}
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

// Delete removes an insight.
func (s *service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("insight deleted", "insight_id", id)
	return nil
}

// Slugify lowercases a title and collapses every non-alphanumeric run into a
// single hyphen.
func Slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
