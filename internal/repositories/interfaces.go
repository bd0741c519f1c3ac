package repositories

import (
	"context"

	"github.com/havenhome/storefront-api/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// ContentRepository persists section content documents keyed by section key.
// Save is an idempotent upsert: replaying the same payload converges on the
// same stored document.
type ContentRepository interface {
	Load(ctx context.Context, sectionKey string) (domain.Section, error)
	LoadAll(ctx context.Context, sectionKeys []string) (map[string]domain.Section, error)
	Save(ctx context.Context, section domain.Section) error
}

// CatalogRepository persists products grouped by category.
type CatalogRepository interface {
	ListByCategory(ctx context.Context, category string) ([]domain.Product, error)
	Upsert(ctx context.Context, product domain.Product) (domain.Product, error)
	Delete(ctx context.Context, category string, productID string) error
}
