package services

import (
	"context"
	"io"
	"time"

	"github.com/havenhome/storefront-api/internal/domain"
)

// Logger is the event logging hook injected into services. Implementations
// must tolerate nil field maps.
type Logger func(ctx context.Context, event string, fields map[string]any)

// ContentService exposes homepage section content and its persistence flow.
type ContentService interface {
	// GetSection returns the current content for the section key, falling
	// back to the built-in seed when nothing is stored.
	GetSection(ctx context.Context, sectionKey string) (domain.Section, error)
	// ListSections returns every known section fully populated.
	ListSections(ctx context.Context) ([]domain.Section, error)
	// SaveSection upserts a single section and refreshes the in-memory copy.
	SaveSection(ctx context.Context, section domain.Section, actor string) error
	// SaveSections persists the batch concurrently. Sections that saved
	// before a failure stay persisted; the caller receives one aggregate
	// *PartialFailureError describing every failed key.
	SaveSections(ctx context.Context, sections []domain.Section, actor string) error
	// AppendItem adds one item to the section's collection, seeded from
	// the given fields, and assigns the next id. In-memory until saved.
	AppendItem(ctx context.Context, sectionKey string, seed domain.CollectionItem) (domain.CollectionItem, error)
	// RemoveItem deletes the item at index, preserving order. In-memory
	// until saved.
	RemoveItem(ctx context.Context, sectionKey string, index int) error
	// UpdateItemField deep-sets a dotted path on one item. In-memory
	// until saved.
	UpdateItemField(ctx context.Context, sectionKey string, index int, path domain.FieldPath, value any) error
	// Refresh discards in-memory state and reloads from the repository.
	Refresh(ctx context.Context) error
}

// CatalogService manages product listings behind the storefront admin surface.
type CatalogService interface {
	ListProducts(ctx context.Context, category string) ([]domain.Product, error)
	// UpsertProduct runs the validation gate before any repository call.
	// Products without an id receive a newly minted one.
	UpsertProduct(ctx context.Context, product domain.Product) (domain.Product, error)
	DeleteProduct(ctx context.Context, category string, productID string) error
}

// AssetService turns chosen files into references displayable by the storefront.
type AssetService interface {
	// ChooseFile registers uploaded bytes under an ephemeral local handle.
	// The returned reference is displayable but must not be persisted.
	ChooseFile(ctx context.Context, filename, contentType string, size int64) (domain.AssetReference, error)
	// CommitUpload pushes the file behind a local reference to the asset
	// store and returns the durable remote reference.
	CommitUpload(ctx context.Context, ref domain.AssetReference, payload AssetPayload) (domain.AssetReference, error)
	// DeleteAsset resets a field to the placeholder reference.
	DeleteAsset(ctx context.Context, ref domain.AssetReference) (domain.AssetReference, error)
}

// AssetPayload carries the bytes and metadata of a file being uploaded.
type AssetPayload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// ContentEvent describes a persisted content change for downstream consumers.
type ContentEvent struct {
	SectionKey string    `json:"section_key"`
	Action     string    `json:"action"`
	Actor      string    `json:"actor,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Content event actions.
const (
	ActionSectionSaved    = "section.saved"
	ActionBatchSaved      = "section.batch_saved"
	ActionProductUpserted = "product.upserted"
	ActionProductDeleted  = "product.deleted"
)

// ContentEventPublisher emits content change events. Publishing is
// best-effort; failures must not fail the originating save.
type ContentEventPublisher interface {
	PublishContentEvent(ctx context.Context, event ContentEvent) (string, error)
}
