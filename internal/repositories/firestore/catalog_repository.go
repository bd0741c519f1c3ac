package firestore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/havenhome/storefront-api/internal/domain"
	pfirestore "github.com/havenhome/storefront-api/internal/platform/firestore"
	"github.com/havenhome/storefront-api/internal/repositories"
)

const catalogCollection = "products"

// CatalogRepository persists products in a single collection filtered by category.
type CatalogRepository struct {
	base  *pfirestore.BaseRepository[domain.Product]
	clock func() time.Time
}

// NewCatalogRepository constructs a Firestore-backed catalog repository.
func NewCatalogRepository(provider *pfirestore.Provider) (*CatalogRepository, error) {
	if provider == nil {
		return nil, errors.New("catalog repository requires firestore provider")
	}
	return &CatalogRepository{
		base:  pfirestore.NewBaseRepository[domain.Product](provider, catalogCollection, nil, nil),
		clock: func() time.Time { return time.Now().UTC() },
	}, nil
}

// ListByCategory returns the products of a category ordered by creation time.
func (r *CatalogRepository) ListByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, errors.New("catalog repository: category is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("category", "==", category)
	})
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		product := doc.Data
		if product.ID == "" {
			product.ID = doc.ID
		}
		products = append(products, product)
	}
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].CreatedAt.Before(products[j].CreatedAt)
	})
	return products, nil
}

// Upsert stores the product under its ID, stamping timestamps.
func (r *CatalogRepository) Upsert(ctx context.Context, product domain.Product) (domain.Product, error) {
	if strings.TrimSpace(product.ID) == "" {
		return domain.Product{}, errors.New("catalog repository: product id is required")
	}

	now := r.clock()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	if _, err := r.base.Set(ctx, product.ID, product); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

// Delete removes the product after verifying it belongs to the category.
func (r *CatalogRepository) Delete(ctx context.Context, category string, productID string) error {
	category = strings.TrimSpace(category)
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return errors.New("catalog repository: product id is required")
	}

	doc, err := r.base.Get(ctx, productID)
	if err != nil {
		return err
	}
	if category != "" && doc.Data.Category != category {
		return pfirestore.WrapError("products.delete",
			status.Errorf(codes.NotFound, "product %s not in category %s", productID, category))
	}

	return r.base.Delete(ctx, productID)
}

// Ensure interface compliance.
var _ repositories.CatalogRepository = (*CatalogRepository)(nil)
