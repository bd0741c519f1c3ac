package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/havenhome/storefront-api/internal/domain"
	"github.com/havenhome/storefront-api/internal/services"
)

type stubCatalogService struct {
	products  []domain.Product
	listErr   error
	upsertErr error
	deleteErr error
	deleted   []string
}

func (s *stubCatalogService) ListProducts(_ context.Context, category string) ([]domain.Product, error) {
	if category == "" {
		return nil, services.ErrCategoryRequired
	}
	return s.products, s.listErr
}

func (s *stubCatalogService) UpsertProduct(_ context.Context, product domain.Product) (domain.Product, error) {
	if s.upsertErr != nil {
		return domain.Product{}, s.upsertErr
	}
	if err := product.Validate(); err != nil {
		return domain.Product{}, err
	}
	if product.ID == "" {
		product.ID = "01HZXW5S3NJ8F0QDM2V7R4T9KA"
	}
	return product, nil
}

func (s *stubCatalogService) DeleteProduct(_ context.Context, category string, productID string) error {
	if category == "" {
		return services.ErrCategoryRequired
	}
	if productID == "" {
		return services.ErrProductIDRequired
	}
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, productID)
	return nil
}

func newCatalogRouter(svc services.CatalogService) http.Handler {
	h := NewCatalogHandlers(svc)
	return NewRouter(
		WithCatalogRoutes(h.PublicRoutes),
		WithAdminRoutes(h.AdminRoutes),
	)
}

func TestListProducts(t *testing.T) {
	svc := &stubCatalogService{products: []domain.Product{
		{ID: "p1", Name: "Cloud Hybrid Mattress", Category: "mattresses"},
	}}
	router := newCatalogRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?category=mattresses", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	products, ok := body["products"].([]any)
	if !ok || len(products) != 1 {
		t.Fatalf("expected 1 product, got %v", body["products"])
	}
}

func TestListProductsRequiresCategoryParam(t *testing.T) {
	router := newCatalogRouter(&stubCatalogService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestUpsertProduct(t *testing.T) {
	router := newCatalogRouter(&stubCatalogService{})

	payload := `{
		"name": "Cloud Hybrid Mattress",
		"brand_id": "brand-haven",
		"category_id": "cat-mattresses",
		"category": "mattresses",
		"current_price": 899,
		"main_image": "/img/main.png",
		"images": ["/img/1.png"]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", strings.NewReader(payload))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["id"] == "" || body["id"] == nil {
		t.Fatalf("expected minted id, got %v", body["id"])
	}
}

func TestUpsertProductValidationFailure(t *testing.T) {
	router := newCatalogRouter(&stubCatalogService{})

	payload := `{"name":"Mattress","brand_id":"b","category_id":"c","current_price":0}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", strings.NewReader(payload))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["error"] != "validation_failed" {
		t.Fatalf("expected validation_failed code, got %v", body["error"])
	}
	if body["field"] != "current_price" {
		t.Fatalf("expected current_price field, got %v", body["field"])
	}
}

func TestDeleteProduct(t *testing.T) {
	svc := &stubCatalogService{}
	router := newCatalogRouter(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/products?id=p1&category=mattresses", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(svc.deleted) != 1 || svc.deleted[0] != "p1" {
		t.Fatalf("expected p1 deleted, got %v", svc.deleted)
	}
}

func TestDeleteProductRequiresCategory(t *testing.T) {
	router := newCatalogRouter(&stubCatalogService{})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/products?id=p1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestDeleteProductNotFound(t *testing.T) {
	router := newCatalogRouter(&stubCatalogService{deleteErr: notFoundErr{}})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/products?id=missing&category=mattresses", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

type notFoundErr struct{}

func (notFoundErr) Error() string       { return "not found" }
func (notFoundErr) IsNotFound() bool    { return true }
func (notFoundErr) IsConflict() bool    { return false }
func (notFoundErr) IsUnavailable() bool { return false }
