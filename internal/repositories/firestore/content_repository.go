package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/havenhome/storefront-api/internal/domain"
	pfirestore "github.com/havenhome/storefront-api/internal/platform/firestore"
	"github.com/havenhome/storefront-api/internal/repositories"
)

const contentCollection = "content_sections"

type sectionDocument struct {
	SectionKey string    `firestore:"sectionKey"`
	Content    any       `firestore:"content"`
	UpdatedAt  time.Time `firestore:"updatedAt"`
}

// ContentRepository persists section content documents keyed by section key.
type ContentRepository struct {
	base  *pfirestore.BaseRepository[sectionDocument]
	clock func() time.Time
}

// NewContentRepository constructs a Firestore-backed content repository.
func NewContentRepository(provider *pfirestore.Provider) (*ContentRepository, error) {
	if provider == nil {
		return nil, errors.New("content repository requires firestore provider")
	}
	return &ContentRepository{
		base:  pfirestore.NewBaseRepository[sectionDocument](provider, contentCollection, nil, nil),
		clock: func() time.Time { return time.Now().UTC() },
	}, nil
}

// Load fetches a single section document. Missing sections surface as a
// not-found RepositoryError so callers can fall back to defaults.
func (r *ContentRepository) Load(ctx context.Context, sectionKey string) (domain.Section, error) {
	sectionKey = strings.TrimSpace(sectionKey)
	if sectionKey == "" {
		return domain.Section{}, errors.New("content repository: section key is required")
	}

	doc, err := r.base.Get(ctx, sectionKey)
	if err != nil {
		return domain.Section{}, err
	}
	return domain.Section{Key: sectionKey, Content: doc.Data.Content}, nil
}

// LoadAll fetches the requested sections, omitting keys with no stored document.
func (r *ContentRepository) LoadAll(ctx context.Context, sectionKeys []string) (map[string]domain.Section, error) {
	sections := make(map[string]domain.Section, len(sectionKeys))
	for _, key := range sectionKeys {
		section, err := r.Load(ctx, key)
		if err != nil {
			var repoErr repositories.RepositoryError
			if errors.As(err, &repoErr) && repoErr.IsNotFound() {
				continue
			}
			return nil, fmt.Errorf("load section %s: %w", key, err)
		}
		sections[section.Key] = section
	}
	return sections, nil
}

// Save upserts the section document. Replaying the same section converges on
// the same stored content.
func (r *ContentRepository) Save(ctx context.Context, section domain.Section) error {
	key := strings.TrimSpace(section.Key)
	if key == "" {
		return errors.New("content repository: section key is required")
	}

	doc := sectionDocument{
		SectionKey: key,
		Content:    section.Content,
		UpdatedAt:  r.clock(),
	}
	_, err := r.base.Set(ctx, key, doc)
	return err
}

// Ensure interface compliance.
var _ repositories.ContentRepository = (*ContentRepository)(nil)
