package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	"github.com/havenhome/storefront-api/internal/domain"
	"github.com/havenhome/storefront-api/internal/repositories"
)

// Catalog service sentinel errors.
var (
	ErrCatalogRepoMissing = errors.New("catalog service: catalog repository is not configured")
	ErrCategoryRequired   = errors.New("catalog service: category is required")
	ErrProductIDRequired  = errors.New("catalog service: product id is required")
)

// CatalogServiceDeps groups constructor parameters for the catalog service.
type CatalogServiceDeps struct {
	Repository repositories.CatalogRepository
	// Publisher is optional; events are best-effort.
	Publisher ContentEventPublisher
	Logger    Logger
	Clock     func() time.Time
	// SanitizeHTML strips unsafe markup from rich text fields before save.
	SanitizeHTML bool
}

type catalogService struct {
	repo      repositories.CatalogRepository
	publisher ContentEventPublisher
	log       Logger
	clock     func() time.Time
	policy    *bluemonday.Policy
}

// NewCatalogService constructs the catalog service with the supplied dependencies.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Repository == nil {
		return nil, ErrCatalogRepoMissing
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	log := deps.Logger
	if log == nil {
		log = func(context.Context, string, map[string]any) {}
	}
	var policy *bluemonday.Policy
	if deps.SanitizeHTML {
		policy = bluemonday.UGCPolicy()
	}
	return &catalogService{
		repo:      deps.Repository,
		publisher: deps.Publisher,
		log:       log,
		clock:     func() time.Time { return clock().UTC() },
		policy:    policy,
	}, nil
}

func (s *catalogService) ListProducts(ctx context.Context, category string) ([]domain.Product, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, ErrCategoryRequired
	}
	return s.repo.ListByCategory(ctx, category)
}

// UpsertProduct runs the validation gate before touching the repository.
// The first failing check aborts; nothing is written on failure.
func (s *catalogService) UpsertProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	if err := product.Validate(); err != nil {
		return domain.Product{}, err
	}
	if err := rejectEphemeralImages(product); err != nil {
		return domain.Product{}, err
	}

	if strings.TrimSpace(product.ID) == "" {
		product.ID = s.mintID()
	}
	product.Description = s.sanitizeText(product.Description)
	product.ShortDescription = s.sanitizeText(product.ShortDescription)
	product.WarrantyInfo = s.sanitizeText(product.WarrantyInfo)

	saved, err := s.repo.Upsert(ctx, product)
	if err != nil {
		return domain.Product{}, fmt.Errorf("catalog service: upsert %s: %w", product.ID, err)
	}

	s.publish(ctx, ContentEvent{
		SectionKey: saved.Category,
		Action:     ActionProductUpserted,
		OccurredAt: s.clock(),
	})
	s.log(ctx, "catalog.product_upserted", map[string]any{
		"product_id": saved.ID,
		"category":   saved.Category,
	})
	return saved, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, category string, productID string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return ErrCategoryRequired
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return ErrProductIDRequired
	}

	if err := s.repo.Delete(ctx, category, productID); err != nil {
		return fmt.Errorf("catalog service: delete %s: %w", productID, err)
	}

	s.publish(ctx, ContentEvent{
		SectionKey: category,
		Action:     ActionProductDeleted,
		OccurredAt: s.clock(),
	})
	s.log(ctx, "catalog.product_deleted", map[string]any{
		"product_id": productID,
		"category":   category,
	})
	return nil
}

// rejectEphemeralImages refuses image URLs that are still local previews.
func rejectEphemeralImages(product domain.Product) error {
	if strings.HasPrefix(product.MainImage, "local:") {
		return fmt.Errorf("%w: main_image", ErrEphemeralContent)
	}
	for _, img := range product.Images {
		if strings.HasPrefix(img, "local:") {
			return fmt.Errorf("%w: images", ErrEphemeralContent)
		}
	}
	return nil
}

// mintID issues a lexicographically sortable product id.
func (s *catalogService) mintID() string {
	return ulid.MustNew(ulid.Timestamp(s.clock()), rand.Reader).String()
}

func (s *catalogService) sanitizeText(text string) string {
	if s.policy == nil || text == "" {
		return text
	}
	return s.policy.Sanitize(text)
}

func (s *catalogService) publish(ctx context.Context, event ContentEvent) {
	if s.publisher == nil {
		return
	}
	if _, err := s.publisher.PublishContentEvent(ctx, event); err != nil {
		s.log(ctx, "catalog.event_publish_failed", map[string]any{
			"action": event.Action,
			"error":  err.Error(),
		})
	}
}
