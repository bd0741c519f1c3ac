package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/havenhome/storefront-api/internal/domain"
	"github.com/havenhome/storefront-api/internal/platform/httpx"
	"github.com/havenhome/storefront-api/internal/services"
)

const (
	maxUploadMemory     = 8 << 20
	maxAssetRequestBody = 4 * 1024
	uploadFormField     = "file"
)

// AssetHandlers exposes endpoints for uploading and releasing content images.
type AssetHandlers struct {
	assets services.AssetService
}

// NewAssetHandlers constructs the asset endpoints.
func NewAssetHandlers(assets services.AssetService) *AssetHandlers {
	return &AssetHandlers{assets: assets}
}

// AdminRoutes registers the asset endpoints, mounted behind authentication.
func (h *AssetHandlers) AdminRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/assets", h.upload)
	r.Delete("/assets", h.release)
}

// upload receives a multipart file, pushes it to the asset store, and
// returns the durable URL the caller persists in section content.
func (h *AssetHandlers) upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.assets == nil {
		writeAssetUnavailable(ctx, w)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "multipart form is required", http.StatusBadRequest))
		return
	}
	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "file field is required", http.StatusBadRequest))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	local, err := h.assets.ChooseFile(ctx, header.Filename, contentType, header.Size)
	if err != nil {
		writeAssetError(ctx, w, err)
		return
	}

	remote, err := h.assets.CommitUpload(ctx, local, services.AssetPayload{
		Filename:    header.Filename,
		ContentType: contentType,
		Body:        file,
	})
	if err != nil {
		writeAssetError(ctx, w, err)
		return
	}

	url, err := remote.PersistableURL()
	if err != nil {
		writeAssetError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"url":      url,
		"filename": header.Filename,
		"size":     header.Size,
	})
}

type releaseAssetRequest struct {
	URL string `json:"url"`
}

// release resets a field's image to the placeholder and removes the stored
// object when it belongs to this service.
func (h *AssetHandlers) release(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.assets == nil {
		writeAssetUnavailable(ctx, w)
		return
	}

	body, err := readLimitedBody(r, maxAssetRequestBody)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req releaseAssetRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "url is required", http.StatusBadRequest))
		return
	}

	placeholder, err := h.assets.DeleteAsset(ctx, domain.RemoteAsset(req.URL))
	if err != nil {
		writeAssetError(ctx, w, err)
		return
	}
	url, err := placeholder.PersistableURL()
	if err != nil {
		writeAssetError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"url": url})
}

func writeAssetError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrAssetNameRequired),
		errors.Is(err, services.ErrAssetPayloadEmpty),
		errors.Is(err, services.ErrAssetNotLocal),
		errors.Is(err, services.ErrUnknownAssetHandle):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, domain.ErrEphemeralReference):
		httpx.WriteError(ctx, w, httpx.NewError("ephemeral_reference", err.Error(), http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("asset_error", err.Error(), http.StatusBadGateway))
	}
}

func writeAssetUnavailable(ctx context.Context, w http.ResponseWriter) {
	httpx.WriteError(ctx, w, httpx.NewError("asset_service_unavailable", "asset service is unavailable", http.StatusServiceUnavailable))
}
