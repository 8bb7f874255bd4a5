package forum

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

// Handler holds the dependencies for the forum module's HTTP handlers.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// NewHandler creates a new handler for the forum module.
func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes sets up the forum routes. Reading is public; creating and
// deleting require a session.
func (h *Handler) RegisterRoutes(api huma.API, sessionAuth func(huma.Context, func(huma.Context))) {
	huma.Register(api, huma.Operation{
		OperationID: "list-threads",
		Method:      http.MethodGet,
		Path:        "/api/forum/threads",
		Summary:     "List forum threads",
	}, h.ListHandler)

	huma.Register(api, huma.Operation{
		OperationID: "get-thread",
		Method:      http.MethodGet,
		Path:        "/api/forum/threads/{id}",
		Summary:     "Get a forum thread",
	}, h.GetHandler)

	huma.Register(api, huma.Operation{
		OperationID: "create-thread",
		Method:      http.MethodPost,
		Path:        "/api/forum/threads",
		Summary:     "Create a forum thread",
		Middlewares: huma.Middlewares{sessionAuth},
	}, h.CreateHandler)

	huma.Register(api, huma.Operation{
		OperationID: "delete-thread",
		Method:      http.MethodDelete,
		Path:        "/api/forum/threads/{id}",
		Summary:     "Delete a forum thread",
		Middlewares: huma.Middlewares{sessionAuth},
	}, h.DeleteHandler)
}

// --- DTOs ---

// ThreadView is the JSON projection of a thread.
type ThreadView struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

func toView(t *Thread) ThreadView {
	return ThreadView{
		ID:        t.ID,
		Author:    t.AuthorUsername,
		Title:     t.Title,
		Body:      t.Body,
		CreatedAt: t.CreatedAt,
	}
}

// ListRequest carries pagination.
type ListRequest struct {
	Limit  uint64 `query:"limit"`
	Offset uint64 `query:"offset"`
}

// ListResponse is a page of threads.
type ListResponse struct {
	Body struct {
		Threads []ThreadView `json:"threads"`
	}
}

// GetRequest names a thread by ID.
type GetRequest struct {
	ID string `path:"id"`
}

// GetResponse is a single thread.
type GetResponse struct {
	Body ThreadView
}

// CreateRequest is the new-thread payload.
type CreateRequest struct {
	Body struct {
		Title string `json:"title" validate:"required,min=3,max=200"`
		Body  string `json:"body" validate:"required,max=10000"`
	}
}

// DeleteRequest names a thread by ID.
type DeleteRequest struct {
	ID string `path:"id"`
}

// DeleteResponse is an empty successful response.
type DeleteResponse struct{}

// --- Handlers ---

// ListHandler returns the thread feed, newest first.
func (h *Handler) ListHandler(ctx context.Context, input *ListRequest) (*ListResponse, error) {
	threads, err := h.service.List(ctx, input.Limit, input.Offset)
	if err != nil {
		h.logger.Error("failed to list threads", "error", err)
		return nil, huma.Error500InternalServerError("failed to list threads")
	}

	resp := &ListResponse{}
	resp.Body.Threads = make([]ThreadView, 0, len(threads))
	for _, t := range threads {
		resp.Body.Threads = append(resp.Body.Threads, toView(t))
	}
	return resp, nil
}

// GetHandler returns one thread.
func (h *Handler) GetHandler(ctx context.Context, input *GetRequest) (*GetResponse, error) {
	thread, err := h.service.Get(ctx, input.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, huma.Error404NotFound("thread not found")
		}
		h.logger.Error("failed to get thread", "thread_id", input.ID, "error", err)
		return nil, huma.Error500InternalServerError("failed to get thread")
	}

	return &GetResponse{Body: toView(thread)}, nil
}

// CreateHandler stores a new thread authored by the session user.
func (h *Handler) CreateHandler(ctx context.Context, input *CreateRequest) (*GetResponse, error) {
	if err := validation.ValidateStruct(input.Body); err != nil {
		return nil, err
	}
	userID, ok := ctx.Value(contextx.UserIDKey).(string)
	if !ok || userID == "" {
		return nil, huma.Error401Unauthorized("authentication required")
	}

	thread, err := h.service.Create(ctx, userID, input.Body.Title, input.Body.Body)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to create thread")
	}

	return &GetResponse{Body: toView(thread)}, nil
}

// DeleteHandler removes a thread; only its author or an admin may do so.
func (h *Handler) DeleteHandler(ctx context.Context, input *DeleteRequest) (*DeleteResponse, error) {
	userID, ok := ctx.Value(contextx.UserIDKey).(string)
	if !ok || userID == "" {
		return nil, huma.Error401Unauthorized("authentication required")
	}

	if err := h.service.Delete(ctx, userID, input.ID); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return nil, huma.Error404NotFound("thread not found")
		case errors.Is(err, ErrForbidden):
			return nil, huma.Error403Forbidden("only the author or an admin may delete this thread")
		default:
			h.logger.Error("failed to delete thread", "thread_id", input.ID, "error", err)
			return nil, huma.Error500InternalServerError("failed to delete thread")
		}
	}
	return &DeleteResponse{}, nil
}
