package insight

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo is an in-memory Repository enforcing slug uniqueness.
type fakeRepo struct {
	mu   sync.Mutex
	rows map[string]*Insight
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: make(map[string]*Insight)}
}

func (f *fakeRepo) Create(_ context.Context, ins *Insight) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.Slug == ins.Slug {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	now := time.Now()
	if ins.CreatedAt.IsZero() {
		ins.CreatedAt = now
	}
	ins.UpdatedAt = now
	cp := *ins
	f.rows[ins.ID] = &cp
	return nil
}

func (f *fakeRepo) FindByID(_ context.Context, id string) (*Insight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.rows[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (f *fakeRepo) FindBySlug(_ context.Context, slug string) (*Insight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.Slug == slug {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeRepo) ListPublished(_ context.Context, limit, offset uint64) ([]*Insight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Insight
	for _, r := range f.rows {
		if r.Published {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.After(*out[j].PublishedAt) })
	return page(out, limit, offset), nil
}

func (f *fakeRepo) ListAll(_ context.Context, limit, offset uint64) ([]*Insight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Insight
	for _, r := range f.rows {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

func page(rows []*Insight, limit, offset uint64) []*Insight {
	if offset >= uint64(len(rows)) {
		return nil
	}
	rows = rows[offset:]
	if limit < uint64(len(rows)) {
		rows = rows[:limit]
	}
	return rows
}

func (f *fakeRepo) Update(_ context.Context, id string, patch Patch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return ErrNotFound
	}
	if patch.Slug != nil {
		for otherID, other := range f.rows {
			if otherID != id && other.Slug == *patch.Slug {
				return &pgconn.PgError{Code: "23505"}
			}
		}
		r.Slug = *patch.Slug
	}
	if patch.Title != nil {
		r.Title = *patch.Title
	}
	if patch.Summary != nil {
		r.Summary = patch.Summary
	}
	if patch.Content != nil {
		r.Content = *patch.Content
	}
	if patch.CoverImage != nil {
		r.CoverImage = patch.CoverImage
	}
	if patch.Published != nil {
		r.Published = *patch.Published
		if *patch.Published {
			now := time.Now()
			r.PublishedAt = &now
		} else {
			r.PublishedAt = nil
		}
	}
	r.UpdatedAt = time.Now()
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

func newTestService() (Service, *fakeRepo) {
	repo := newFakeRepo()
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil))), repo
}

func TestSlugify(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Hello World":                "hello-world",
		"  Go Generics, Revisited ":  "go-generics-revisited",
		"Already-Slugged":            "already-slugged",
		"Multiple   Spaces -- Here!": "multiple-spaces-here",
		"Ünïcode Läuft":              "ünïcode-läuft",
		"!!!":                        "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), "input %q", in)
	}
}

func TestInsightCreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("derives slug from title", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService()

		ins, err := svc.Create(ctx, "admin-1", Draft{Title: "Go Generics, Revisited", Content: "body", Published: true})
		require.NoError(t, err)
		assert.Equal(t, "go-generics-revisited", ins.Slug)
		assert.Equal(t, "admin-1", ins.AuthorID)
		require.NotNil(t, ins.PublishedAt)
	})

	t.Run("draft has no publication time", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService()

		ins, err := svc.Create(ctx, "admin-1", Draft{Title: "Draft Piece", Content: "body"})
		require.NoError(t, err)
		assert.False(t, ins.Published)
		assert.Nil(t, ins.PublishedAt)
	})

	t.Run("slug collision is a conflict", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestService()

		_, err := svc.Create(ctx, "admin-1", Draft{Title: "Same Title", Content: "a"})
		require.NoError(t, err)
		_, err = svc.Create(ctx, "admin-1", Draft{Title: "Same Title", Content: "b"})
		assert.ErrorIs(t, err, ErrSlugExists)
	})
}

func TestInsightPublishedVisibility(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService()

	published, err := svc.Create(ctx, "admin-1", Draft{Title: "Public Piece", Content: "body", Published: true})
	require.NoError(t, err)
	draft, err := svc.Create(ctx, "admin-1", Draft{Title: "Hidden Draft", Content: "body"})
	require.NoError(t, err)

	t.Run("public list excludes drafts", func(t *testing.T) {
		list, err := svc.ListPublished(ctx, 0, 0)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, published.ID, list[0].ID)
	})

	t.Run("public slug lookup hides drafts", func(t *testing.T) {
		_, err := svc.GetPublishedBySlug(ctx, draft.Slug)
		assert.ErrorIs(t, err, ErrNotFound)

		got, err := svc.GetPublishedBySlug(ctx, published.Slug)
		require.NoError(t, err)
		assert.Equal(t, published.ID, got.ID)
	})

	t.Run("admin list includes drafts", func(t *testing.T) {
		list, err := svc.ListAll(ctx, 0, 0)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("publishing a draft stamps publication time", func(t *testing.T) {
		yes := true
		updated, err := svc.Update(ctx, draft.ID, Patch{Published: &yes})
		require.NoError(t, err)
		assert.True(t, updated.Published)
		require.NotNil(t, updated.PublishedAt)
	})
}

func TestInsightUpdateAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService()

	ins, err := svc.Create(ctx, "admin-1", Draft{Title: "First Title", Content: "body"})
	require.NoError(t, err)

	t.Run("patch title", func(t *testing.T) {
		title := "Second Title"
		updated, err := svc.Update(ctx, ins.ID, Patch{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, "Second Title", updated.Title)
		assert.Equal(t, ins.Slug, updated.Slug, "slug only changes when patched explicitly")
	})

	t.Run("slug patch is normalized", func(t *testing.T) {
		raw := "New Slug Here"
		updated, err := svc.Update(ctx, ins.ID, Patch{Slug: &raw})
		require.NoError(t, err)
		assert.Equal(t, "new-slug-here", updated.Slug)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := svc.Update(ctx, "missing", Patch{})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, svc.Delete(ctx, "missing"), ErrNotFound)
	})

	t.Run("delete removes the row", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, ins.ID))
		_, err := svc.Get(ctx, ins.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
