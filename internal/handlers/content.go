package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/havenhome/storefront-api/internal/domain"
	"github.com/havenhome/storefront-api/internal/platform/auth"
	"github.com/havenhome/storefront-api/internal/platform/httpx"
	"github.com/havenhome/storefront-api/internal/repositories"
	"github.com/havenhome/storefront-api/internal/services"
)

const maxContentBodySize = 1 << 20

// ContentHandlers exposes homepage section content endpoints.
type ContentHandlers struct {
	content services.ContentService
}

// NewContentHandlers constructs the content endpoints.
func NewContentHandlers(content services.ContentService) *ContentHandlers {
	return &ContentHandlers{content: content}
}

// PublicRoutes registers the read-only content endpoints.
func (h *ContentHandlers) PublicRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/content", h.listSections)
	r.Get("/content/{sectionKey}", h.getSection)
}

// AdminRoutes registers the editing endpoints, mounted behind authentication.
func (h *ContentHandlers) AdminRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/content", h.saveSection)
	r.Post("/content:batch", h.saveSections)
	r.Post("/content:refresh", h.refresh)
	r.Post("/content/{sectionKey}/items", h.appendItem)
	r.Delete("/content/{sectionKey}/items/{index}", h.removeItem)
	r.Post("/content/{sectionKey}/items/{index}/field", h.updateItemField)
}

func (h *ContentHandlers) listSections(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		writeContentUnavailable(ctx, w)
		return
	}

	sections, err := h.content.ListSections(ctx)
	if err != nil {
		writeContentError(ctx, w, err)
		return
	}
	content := make(map[string]any, len(sections))
	for _, section := range sections {
		content[section.Key] = section.Content
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"content": content})
}

func (h *ContentHandlers) getSection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		writeContentUnavailable(ctx, w)
		return
	}

	sectionKey := strings.TrimSpace(chi.URLParam(r, "sectionKey"))
	section, err := h.content.GetSection(ctx, sectionKey)
	if err != nil {
		writeContentError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, section)
}

func (h *ContentHandlers) saveSection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		writeContentUnavailable(ctx, w)
		return
	}

	body, err := readLimitedBody(r, maxContentBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var section domain.Section
	if err := json.Unmarshal(body, &section); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	if err := h.content.SaveSection(ctx, section, actorFromContext(ctx)); err != nil {
		writeContentError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":     "saved",
		"sectionKey": section.Key,
	})
}

type batchSaveRequest struct {
	Sections []domain.Section `json:"sections"`
}

func (h *ContentHandlers) saveSections(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		writeContentUnavailable(ctx, w)
		return
	}

	body, err := readLimitedBody(r, maxContentBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req batchSaveRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}
	if len(req.Sections) == 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "sections is required", http.StatusBadRequest))
		return
	}

	err = h.content.SaveSections(ctx, req.Sections, actorFromContext(ctx))

	var partial *services.PartialFailureError
	switch {
	case err == nil:
		writeJSONResponse(w, http.StatusOK, map[string]any{
			"status": "saved",
			"total":  len(req.Sections),
		})
	case errors.As(err, &partial):
		// Saved siblings stay persisted; report which keys need a retry.
		httpx.WriteError(ctx, w, httpx.NewError("batch_partial_failure", partial.Error(), http.StatusMultiStatus).
			WithDetails(map[string]any{
				"failed_keys": partial.FailedKeys(),
				"total":       partial.Total,
			}))
	default:
		writeContentError(ctx, w, err)
	}
}

func (h *ContentHandlers) refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		writeContentUnavailable(ctx, w)
		return
	}

	if err := h.content.Refresh(ctx); err != nil {
		writeContentError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"status": "refreshed"})
}

func (h *ContentHandlers) appendItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		writeContentUnavailable(ctx, w)
		return
	}

	// The body seeds the new item and may be omitted entirely.
	var seed domain.CollectionItem
	body, err := readLimitedBody(r, maxContentBodySize)
	switch {
	case errors.Is(err, errEmptyBody):
	case err != nil:
		writeBodyError(ctx, w, err)
		return
	default:
		if err := json.Unmarshal(body, &seed); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be a JSON object", http.StatusBadRequest))
			return
		}
	}

	sectionKey := strings.TrimSpace(chi.URLParam(r, "sectionKey"))
	item, err := h.content.AppendItem(ctx, sectionKey, seed)
	if err != nil {
		writeContentError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"item": item})
}

func (h *ContentHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		writeContentUnavailable(ctx, w)
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "index must be an integer", http.StatusBadRequest))
		return
	}

	sectionKey := strings.TrimSpace(chi.URLParam(r, "sectionKey"))
	if err := h.content.RemoveItem(ctx, sectionKey, index); err != nil {
		writeContentError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"status": "removed"})
}

type updateItemFieldRequest struct {
	FieldPath string `json:"fieldPath"`
	Value     any    `json:"value"`
}

func (h *ContentHandlers) updateItemField(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		writeContentUnavailable(ctx, w)
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "index must be an integer", http.StatusBadRequest))
		return
	}

	body, err := readLimitedBody(r, maxContentBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req updateItemFieldRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	sectionKey := strings.TrimSpace(chi.URLParam(r, "sectionKey"))
	if err := h.content.UpdateItemField(ctx, sectionKey, index, req.FieldPath, req.Value); err != nil {
		writeContentError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"status": "updated"})
}

func writeContentError(ctx context.Context, w http.ResponseWriter, err error) {
	var repoErr repositories.RepositoryError
	switch {
	case errors.Is(err, services.ErrUnknownSection):
		httpx.WriteError(ctx, w, httpx.NewError("unknown_section", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrInvalidSection):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrEphemeralContent):
		httpx.WriteError(ctx, w, httpx.NewError("ephemeral_reference", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrNotACollection),
		errors.Is(err, services.ErrIndexOutOfRange),
		errors.Is(err, services.ErrEmptyFieldPath):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.As(err, &repoErr) && repoErr.IsUnavailable():
		httpx.WriteError(ctx, w, httpx.NewError("content_store_unavailable", "content store is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("content_error", err.Error(), http.StatusBadGateway))
	}
}

func writeContentUnavailable(ctx context.Context, w http.ResponseWriter) {
	httpx.WriteError(ctx, w, httpx.NewError("content_service_unavailable", "content service is unavailable", http.StatusServiceUnavailable))
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, errBodyTooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), status))
}

func actorFromContext(ctx context.Context) string {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		return ""
	}
	if identity.Email != "" {
		return identity.Email
	}
	return identity.UID
}
