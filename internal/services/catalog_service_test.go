package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havenhome/storefront-api/internal/domain"
	"github.com/havenhome/storefront-api/internal/repositories"
)

type stubCatalogRepository struct {
	products  map[string]domain.Product
	listErr   error
	upsertErr error
	deleteErr error
	upserts   int
}

func newStubCatalogRepository() *stubCatalogRepository {
	return &stubCatalogRepository{products: make(map[string]domain.Product)}
}

func (s *stubCatalogRepository) ListByCategory(_ context.Context, category string) ([]domain.Product, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.Product
	for _, p := range s.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubCatalogRepository) Upsert(_ context.Context, product domain.Product) (domain.Product, error) {
	s.upserts++
	if s.upsertErr != nil {
		return domain.Product{}, s.upsertErr
	}
	s.products[product.ID] = product
	return product, nil
}

func (s *stubCatalogRepository) Delete(_ context.Context, category string, productID string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	p, ok := s.products[productID]
	if !ok || p.Category != category {
		return errNotFound{}
	}
	delete(s.products, productID)
	return nil
}

func validProduct() domain.Product {
	return domain.Product{
		Name:         "Cloud Hybrid Mattress",
		BrandID:      "brand-haven",
		CategoryID:   "cat-mattresses",
		Category:     "mattresses",
		CurrentPrice: 899,
		MainImage:    "https://cdn.havenhome.example/havenhome-assets-dev/content/a/main.png",
		Images:       []string{"https://cdn.havenhome.example/havenhome-assets-dev/content/a/1.png"},
	}
}

func newCatalogService(t *testing.T, repo repositories.CatalogRepository, publisher ContentEventPublisher, sanitize bool) CatalogService {
	t.Helper()
	svc, err := NewCatalogService(CatalogServiceDeps{
		Repository:   repo,
		Publisher:    publisher,
		Clock:        func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) },
		SanitizeHTML: sanitize,
	})
	require.NoError(t, err)
	return svc
}

func TestUpsertProductMintsID(t *testing.T) {
	repo := newStubCatalogRepository()
	svc := newCatalogService(t, repo, nil, false)

	saved, err := svc.UpsertProduct(context.Background(), validProduct())
	require.NoError(t, err)

	assert.NotEmpty(t, saved.ID)
	assert.Len(t, saved.ID, 26)
	assert.Equal(t, 1, repo.upserts)
}

func TestUpsertProductKeepsExistingID(t *testing.T) {
	repo := newStubCatalogRepository()
	svc := newCatalogService(t, repo, nil, false)

	product := validProduct()
	product.ID = "existing-id"
	saved, err := svc.UpsertProduct(context.Background(), product)
	require.NoError(t, err)

	assert.Equal(t, "existing-id", saved.ID)
}

func TestUpsertProductValidationGateOrder(t *testing.T) {
	repo := newStubCatalogRepository()
	svc := newCatalogService(t, repo, nil, false)

	cases := []struct {
		name      string
		mutate    func(*domain.Product)
		wantField string
	}{
		{"missing name", func(p *domain.Product) { p.Name = " " }, "name"},
		{"missing brand", func(p *domain.Product) { p.BrandID = "" }, "brand_id"},
		{"missing category", func(p *domain.Product) { p.CategoryID = "" }, "category_id"},
		{"zero price", func(p *domain.Product) { p.CurrentPrice = 0 }, "current_price"},
		{"negative price", func(p *domain.Product) { p.CurrentPrice = -5 }, "current_price"},
		{"missing main image", func(p *domain.Product) { p.MainImage = "" }, "main_image"},
		{"blank images", func(p *domain.Product) { p.Images = []string{"  "} }, "images"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			product := validProduct()
			tc.mutate(&product)

			_, err := svc.UpsertProduct(context.Background(), product)

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.wantField, verr.Field)
		})
	}
	// The gate runs before any repository call.
	assert.Zero(t, repo.upserts)
}

func TestUpsertProductReportsFirstFailureOnly(t *testing.T) {
	repo := newStubCatalogRepository()
	svc := newCatalogService(t, repo, nil, false)

	product := validProduct()
	product.Name = ""
	product.CurrentPrice = 0

	_, err := svc.UpsertProduct(context.Background(), product)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
}

func TestUpsertProductSanitizesRichText(t *testing.T) {
	repo := newStubCatalogRepository()
	svc := newCatalogService(t, repo, nil, true)

	product := validProduct()
	product.Description = `Great mattress<script>alert("x")</script> for side sleepers`

	saved, err := svc.UpsertProduct(context.Background(), product)
	require.NoError(t, err)

	assert.NotContains(t, saved.Description, "<script>")
	assert.Contains(t, saved.Description, "Great mattress")
}

func TestUpsertProductRejectsEphemeralImages(t *testing.T) {
	repo := newStubCatalogRepository()
	svc := newCatalogService(t, repo, nil, false)

	product := validProduct()
	product.MainImage = "local:handle-3"

	_, err := svc.UpsertProduct(context.Background(), product)
	assert.ErrorIs(t, err, ErrEphemeralContent)
	assert.Zero(t, repo.upserts)
}

func TestUpsertProductPublishesEvent(t *testing.T) {
	repo := newStubCatalogRepository()
	publisher := &stubPublisher{}
	svc := newCatalogService(t, repo, publisher, false)

	_, err := svc.UpsertProduct(context.Background(), validProduct())
	require.NoError(t, err)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, ActionProductUpserted, publisher.events[0].Action)
}

func TestListProductsRequiresCategory(t *testing.T) {
	svc := newCatalogService(t, newStubCatalogRepository(), nil, false)

	_, err := svc.ListProducts(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrCategoryRequired)
}

func TestDeleteProductRequiresIdentifiers(t *testing.T) {
	svc := newCatalogService(t, newStubCatalogRepository(), nil, false)

	assert.ErrorIs(t, svc.DeleteProduct(context.Background(), "", "id"), ErrCategoryRequired)
	assert.ErrorIs(t, svc.DeleteProduct(context.Background(), "mattresses", " "), ErrProductIDRequired)
}

func TestDeleteProductPublishesEvent(t *testing.T) {
	repo := newStubCatalogRepository()
	publisher := &stubPublisher{}
	svc := newCatalogService(t, repo, publisher, false)

	saved, err := svc.UpsertProduct(context.Background(), validProduct())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(context.Background(), saved.Category, saved.ID))
	require.Len(t, publisher.events, 2)
	assert.Equal(t, ActionProductDeleted, publisher.events[1].Action)
}

func TestDeleteProductWrapsRepositoryError(t *testing.T) {
	repo := newStubCatalogRepository()
	repo.deleteErr = errors.New("unavailable")
	svc := newCatalogService(t, repo, nil, false)

	err := svc.DeleteProduct(context.Background(), "mattresses", "id-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id-1")
}

func TestNewCatalogServiceRequiresRepository(t *testing.T) {
	_, err := NewCatalogService(CatalogServiceDeps{})
	assert.ErrorIs(t, err, ErrCatalogRepoMissing)
}
