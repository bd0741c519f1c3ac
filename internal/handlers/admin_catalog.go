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
	"github.com/havenhome/storefront-api/internal/repositories"
	"github.com/havenhome/storefront-api/internal/services"
)

const maxProductBodySize = 1 << 20

// CatalogHandlers exposes product listing and admin editing endpoints.
type CatalogHandlers struct {
	catalog services.CatalogService
}

// NewCatalogHandlers constructs the catalog endpoints.
func NewCatalogHandlers(catalog services.CatalogService) *CatalogHandlers {
	return &CatalogHandlers{catalog: catalog}
}

// PublicRoutes registers the read-only product endpoints.
func (h *CatalogHandlers) PublicRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/products", h.listProducts)
}

// AdminRoutes registers the editing endpoints, mounted behind authentication.
func (h *CatalogHandlers) AdminRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/products", h.upsertProduct)
	r.Delete("/products", h.deleteProduct)
}

func (h *CatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeCatalogUnavailable(ctx, w)
		return
	}

	category := strings.TrimSpace(r.URL.Query().Get("category"))
	products, err := h.catalog.ListProducts(ctx, category)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"category": category,
		"products": products,
	})
}

func (h *CatalogHandlers) upsertProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeCatalogUnavailable(ctx, w)
		return
	}

	body, err := readLimitedBody(r, maxProductBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var product domain.Product
	if err := json.Unmarshal(body, &product); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	saved, err := h.catalog.UpsertProduct(ctx, product)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, saved)
}

func (h *CatalogHandlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeCatalogUnavailable(ctx, w)
		return
	}

	productID := strings.TrimSpace(r.URL.Query().Get("id"))
	category := strings.TrimSpace(r.URL.Query().Get("category"))

	if err := h.catalog.DeleteProduct(ctx, category, productID); err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status": "deleted",
		"id":     productID,
	})
}

func writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	var (
		validationErr *domain.ValidationError
		repoErr       repositories.RepositoryError
	)
	switch {
	case errors.As(err, &validationErr):
		httpx.WriteError(ctx, w, httpx.NewError("validation_failed", validationErr.Message, http.StatusBadRequest).
			WithDetails(map[string]any{"field": validationErr.Field}))
	case errors.Is(err, services.ErrCategoryRequired), errors.Is(err, services.ErrProductIDRequired):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrEphemeralContent):
		httpx.WriteError(ctx, w, httpx.NewError("ephemeral_reference", err.Error(), http.StatusBadRequest))
	case errors.As(err, &repoErr) && repoErr.IsNotFound():
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.As(err, &repoErr) && repoErr.IsUnavailable():
		httpx.WriteError(ctx, w, httpx.NewError("catalog_store_unavailable", "catalog store is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_error", err.Error(), http.StatusBadGateway))
	}
}

func writeCatalogUnavailable(ctx context.Context, w http.ResponseWriter) {
	httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
}
