package insight

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/quietriver/insighthub/internal/contextx"
	"github.com/quietriver/insighthub/internal/validation"
)

// AdminChecker reports whether a user holds admin standing. Satisfied by the
// identity service; consulted on every admin request, never cached.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// Handler holds the dependencies for the insight module's HTTP handlers.
type Handler struct {
	service Service
	admins  AdminChecker
	logger  *slog.Logger
}

// NewHandler creates a new handler for the insight module.
func NewHandler(service Service, admins AdminChecker, logger *slog.Logger) *Handler {
	return &Handler{service: service, admins: admins, logger: logger}
}

// RegisterRoutes sets up the insight routes. The admin routes additionally
// take the session middleware; the per-request admin check happens in the
// handlers.
func (h *Handler) RegisterRoutes(api huma.API, sessionAuth func(huma.Context, func(huma.Context))) {
	huma.Register(api, huma.Operation{
		OperationID: "list-insights",
		Method:      http.MethodGet,
		Path:        "/api/insights",
		Summary:     "List published insights",
	}, h.ListHandler)

	huma.Register(api, huma.Operation{
		OperationID: "get-insight",
		Method:      http.MethodGet,
		Path:        "/api/insights/{slug}",
		Summary:     "Get a published insight by slug",
	}, h.GetHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-list-insights",
		Method:      http.MethodGet,
		Path:        "/api/admin/insights",
		Summary:     "List all insights including drafts",
		Middlewares: huma.Middlewares{sessionAuth},
	}, h.AdminListHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-create-insight",
		Method:      http.MethodPost,
		Path:        "/api/admin/insights",
		Summary:     "Create an insight",
		Middlewares: huma.Middlewares{sessionAuth},
	}, h.CreateHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-update-insight",
		Method:      http.MethodPatch,
		Path:        "/api/admin/insights/{id}",
		Summary:     "Update an insight",
		Middlewares: huma.Middlewares{sessionAuth},
	}, h.UpdateHandler)

	huma.Register(api, huma.Operation{
		OperationID: "admin-delete-insight",
		Method:      http.MethodDelete,
		Path:        "/api/admin/insights/{id}",
		Summary:     "Delete an insight",
		Middlewares: huma.Middlewares{sessionAuth},
	}, h.DeleteHandler)
}

// requireAdmin resolves the session user and checks admin standing against the
// profile row.
func (h *Handler) requireAdmin(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(contextx.UserIDKey).(string)
	if !ok || userID == "" {
		return "", huma.Error401Unauthorized("authentication required")
	}
	isAdmin, err := h.admins.IsAdmin(ctx, userID)
	if err != nil {
		h.logger.Error("failed to check admin standing", "user_id", userID, "error", err)
		return "", huma.Error500InternalServerError("could not verify permissions")
	}
	if !isAdmin {
		return "", huma.Error403Forbidden("admin access required")
	}
	return userID, nil
}

// --- DTOs ---

// InsightView is the JSON projection of an insight.
type InsightView struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Summary     *string    `json:"summary,omitempty"`
	Content     string     `json:"content"`
	CoverImage  *string    `json:"coverImage,omitempty"`
	Published   bool       `json:"published"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func toView(ins *Insight) InsightView {
	return InsightView{
		ID:          ins.ID,
		Title:       ins.Title,
		Slug:        ins.Slug,
		Summary:     ins.Summary,
		Content:     ins.Content,
		CoverImage:  ins.CoverImage,
		Published:   ins.Published,
		PublishedAt: ins.PublishedAt,
		CreatedAt:   ins.CreatedAt,
		UpdatedAt:   ins.UpdatedAt,
	}
}

func toViews(insights []*Insight) []InsightView {
	views := make([]InsightView, 0, len(insights))
	for _, ins := range insights {
		views = append(views, toView(ins))
	}
	return views
}

// ListRequest carries pagination for the list endpoints.
type ListRequest struct {
	Limit  uint64 `query:"limit"`
	Offset uint64 `query:"offset"`
}

// ListResponse is a page of insights.
type ListResponse struct {
	Body struct {
		Insights []InsightView `json:"insights"`
	}
}

// GetRequest names an insight by slug.
type GetRequest struct {
	Slug string `path:"slug"`
}

// GetResponse is a single insight.
type GetResponse struct {
	Body InsightView
}

// CreateRequest is the admin create payload.
type CreateRequest struct {
	Body struct {
		Title      string  `json:"title" validate:"required,min=3,max=200"`
		Slug       string  `json:"slug,omitempty" validate:"omitempty,max=200"`
		Summary    *string `json:"summary,omitempty" validate:"omitempty,max=500"`
		Content    string  `json:"content" validate:"required"`
		CoverImage *string `json:"coverImage,omitempty" validate:"omitempty,url"`
		Published  bool    `json:"published,omitempty"`
	}
}

// UpdateRequest is the admin patch payload; absent fields are untouched.
type UpdateRequest struct {
	ID   string `path:"id"`
	Body struct {
		Title      *string `json:"title,omitempty" validate:"omitempty,min=3,max=200"`
		Slug       *string `json:"slug,omitempty" validate:"omitempty,max=200"`
		Summary    *string `json:"summary,omitempty" validate:"omitempty,max=500"`
		Content    *string `json:"content,omitempty"`
		CoverImage *string `json:"coverImage,omitempty" validate:"omitempty,url"`
		Published  *bool   `json:"published,omitempty"`
	}
}

// DeleteRequest names an insight by ID.
type DeleteRequest struct {
	ID string `path:"id"`
}

// DeleteResponse is an empty successful response.
type DeleteResponse struct{}

// --- Handlers ---

// ListHandler returns the public feed of published insights.
func (h *Handler) ListHandler(ctx context.Context, input *ListRequest) (*ListResponse, error) {
	insights, err := h.service.ListPublished(ctx, input.Limit, input.Offset)
	if err != nil {
		h.logger.Error("failed to list insights", "error", err)
		return nil, huma.Error500InternalServerError("failed to list insights")
	}

	resp := &ListResponse{}
	resp.Body.Insights = toViews(insights)
	return resp, nil
}

// GetHandler returns one published insight by slug.
func (h *Handler) GetHandler(ctx context.Context, input *GetRequest) (*GetResponse, error) {
	ins, err := h.service.GetPublishedBySlug(ctx, input.Slug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, huma.Error404NotFound("insight not found")
		}
		h.logger.Error("failed to get insight", "slug", input.Slug, "error", err)
		return nil, huma.Error500InternalServerError("failed to get insight")
	}

	return &GetResponse{Body: toView(ins)}, nil
}

// AdminListHandler returns every insight including drafts.
func (h *Handler) AdminListHandler(ctx context.Context, input *ListRequest) (*ListResponse, error) {
	if _, err := h.requireAdmin(ctx); err != nil {
		return nil, err
	}

	insights, err := h.service.ListAll(ctx, input.Limit, input.Offset)
	if err != nil {
		h.logger.Error("failed to list insights", "error", err)
		return nil, huma.Error500InternalServerError("failed to list insights")
	}

	resp := &ListResponse{}
	resp.Body.Insights = toViews(insights)
	return resp, nil
}

// CreateHandler stores a new insight authored by the requesting admin.
func (h *Handler) CreateHandler(ctx context.Context, input *CreateRequest) (*GetResponse, error) {
	userID, err := h.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateStruct(input.Body); err != nil {
		return nil, err
	}

	ins, err := h.service.Create(ctx, userID, Draft{
		Title:      input.Body.Title,
		Slug:       input.Body.Slug,
		Summary:    input.Body.Summary,
		Content:    input.Body.Content,
		CoverImage: input.Body.CoverImage,
		Published:  input.Body.Published,
	})
	if err != nil {
		if errors.Is(err, ErrSlugExists) {
			return nil, huma.Error409Conflict("an insight with this slug already exists")
		}
		return nil, huma.Error500InternalServerError("failed to create insight")
	}

	return &GetResponse{Body: toView(ins)}, nil
}

// UpdateHandler patches an insight.
func (h *Handler) UpdateHandler(ctx context.Context, input *UpdateRequest) (*GetResponse, error) {
	if _, err := h.requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := validation.ValidateStruct(input.Body); err != nil {
		return nil, err
	}

	ins, err := h.service.Update(ctx, input.ID, Patch{
		Title:      input.Body.Title,
		Slug:       input.Body.Slug,
		Summary:    input.Body.Summary,
		Content:    input.Body.Content,
		CoverImage: input.Body.CoverImage,
		Published:  input.Body.Published,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return nil, huma.Error404NotFound("insight not found")
		case errors.Is(err, ErrSlugExists):
			return nil, huma.Error409Conflict("an insight with this slug already exists")
		default:
			h.logger.Error("failed to update insight", "insight_id", input.ID, "error", err)
			return nil, huma.Error500InternalServerError("failed to update insight")
		}
	}

	return &GetResponse{Body: toView(ins)}, nil
}

// DeleteHandler removes an insight.
func (h *Handler) DeleteHandler(ctx context.Context, input *DeleteRequest) (*DeleteResponse, error) {
	if _, err := h.requireAdmin(ctx); err != nil {
		return nil, err
	}

	if err := h.service.Delete(ctx, input.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, huma.Error404NotFound("insight not found")
		}
		h.logger.Error("failed to delete insight", "insight_id", input.ID, "error", err)
		return nil, huma.Error500InternalServerError("failed to delete insight")
	}
	return &DeleteResponse{}, nil
}
