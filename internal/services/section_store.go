package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/havenhome/storefront-api/internal/domain"
	"github.com/havenhome/storefront-api/internal/repositories"
)

// ErrUnknownSection signals a section key outside the known set.
var ErrUnknownSection = errors.New("section store: unknown section key")

// SectionStore holds the current in-memory value of every homepage section.
// It owns the load-reconcile policy: stored content replaces the built-in
// seed wholesale when present ("merge-if-present"), and keys absent from the
// repository keep their seed. All content is normalized once at load so
// readers never see a partially populated structure.
type SectionStore struct {
	repo repositories.ContentRepository
	keys []string

	mu       sync.RWMutex
	sections map[string]any
}

// NewSectionStore constructs a store seeded with the built-in defaults.
func NewSectionStore(repo repositories.ContentRepository) (*SectionStore, error) {
	if repo == nil {
		return nil, errors.New("section store: content repository is required")
	}
	return &SectionStore{
		repo:     repo,
		keys:     domain.SectionKeys(),
		sections: domain.DefaultSections(),
	}, nil
}

// LoadAll reconciles repository content over the defaults. For each known
// key present remotely the in-memory value is replaced; absent keys keep
// their seed. Uncommitted local state is discarded without a dirty guard.
func (s *SectionStore) LoadAll(ctx context.Context) error {
	stored, err := s.repo.LoadAll(ctx, s.keys)
	if err != nil {
		return fmt.Errorf("section store: load all: %w", err)
	}

	next := domain.DefaultSections()
	for key, section := range stored {
		if _, known := next[key]; !known {
			continue
		}
		next[key] = NormalizeContent(section.Content)
	}

	s.mu.Lock()
	s.sections = next
	s.mu.Unlock()
	return nil
}

// Get returns the current content for the key.
func (s *SectionStore) Get(sectionKey string) (domain.Section, error) {
	sectionKey = strings.TrimSpace(sectionKey)

	s.mu.RLock()
	content, ok := s.sections[sectionKey]
	s.mu.RUnlock()
	if !ok {
		return domain.Section{}, fmt.Errorf("%w: %q", ErrUnknownSection, sectionKey)
	}
	return domain.Section{Key: sectionKey, Content: content}, nil
}

// Snapshot returns every section in render order.
func (s *SectionStore) Snapshot() []domain.Section {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Section, 0, len(s.keys))
	for _, key := range s.keys {
		out = append(out, domain.Section{Key: key, Content: s.sections[key]})
	}
	return out
}

// Put replaces the in-memory content for a known key.
func (s *SectionStore) Put(section domain.Section) error {
	key := strings.TrimSpace(section.Key)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sections[key]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSection, key)
	}
	s.sections[key] = NormalizeContent(section.Content)
	return nil
}

// Knows reports whether the key names a known section.
func (s *SectionStore) Knows(sectionKey string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sections[strings.TrimSpace(sectionKey)]
	return ok
}

// NormalizeContent produces a fully populated structure from decoded JSON:
// arrays of objects become []domain.CollectionItem with integer ids, any
// other array keeps its elements (normalized recursively), and scalar
// values pass through.
func NormalizeContent(content any) any {
	switch v := content.(type) {
	case []domain.CollectionItem:
		items := make([]domain.CollectionItem, 0, len(v))
		for _, item := range v {
			items = append(items, normalizeItem(item))
		}
		return items
	case []any:
		if items, ok := collectionItems(v); ok {
			return items
		}
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = NormalizeContent(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, value := range v {
			switch value.(type) {
			case []any, []domain.CollectionItem, map[string]any:
				out[key] = NormalizeContent(value)
			default:
				out[key] = value
			}
		}
		return out
	default:
		return content
	}
}

// collectionItems converts a decoded slice into a normalized collection when
// every element is an object. Scalar and mixed slices are plain arrays, not
// collections, and must survive normalization verbatim.
func collectionItems(values []any) ([]domain.CollectionItem, bool) {
	items := make([]domain.CollectionItem, 0, len(values))
	for _, raw := range values {
		item, ok := raw.(map[string]any)
		if !ok {
			return nil, false
		}
		items = append(items, normalizeItem(item))
	}
	return items, true
}

func normalizeItem(item domain.CollectionItem) domain.CollectionItem {
	out := make(domain.CollectionItem, len(item))
	for key, value := range item {
		switch value.(type) {
		case []any, []domain.CollectionItem, map[string]any:
			out[key] = NormalizeContent(value)
		default:
			out[key] = value
		}
	}
	if _, ok := out["id"]; ok {
		out["id"] = domain.ItemID(out)
	}
	return out
}
