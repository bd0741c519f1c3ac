package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/havenhome/storefront-api/internal/domain"
	"github.com/havenhome/storefront-api/internal/repositories"
)

// Content service sentinel errors.
var (
	ErrSectionStoreMissing = errors.New("content service: section store is not configured")
	ErrContentRepoMissing  = errors.New("content service: content repository is not configured")
	// ErrEphemeralContent signals a save payload still holding a local
	// asset reference. Uploads must complete before anything persists.
	ErrEphemeralContent = errors.New("services: payload holds an ephemeral asset reference")
	// ErrNotACollection signals an item operation on a section whose
	// content holds no item collection.
	ErrNotACollection = errors.New("content service: section holds no item collection")
)

// ContentServiceDeps groups constructor parameters for the content service.
type ContentServiceDeps struct {
	Store      *SectionStore
	Repository repositories.ContentRepository
	Saver      *BatchSaver
	// Publisher is optional; events are best-effort.
	Publisher ContentEventPublisher
	// Edits is optional; when wired, a refresh discards the edit tree.
	Edits  *EditState
	Logger Logger
	Clock  func() time.Time
	// SanitizeHTML strips unsafe markup from string fields before they
	// are persisted.
	SanitizeHTML bool
}

type contentService struct {
	store     *SectionStore
	repo      repositories.ContentRepository
	saver     *BatchSaver
	publisher ContentEventPublisher
	edits     *EditState
	log       Logger
	clock     func() time.Time
	policy    *bluemonday.Policy
}

// NewContentService constructs the content service with the supplied dependencies.
func NewContentService(deps ContentServiceDeps) (ContentService, error) {
	if deps.Store == nil {
		return nil, ErrSectionStoreMissing
	}
	if deps.Repository == nil {
		return nil, ErrContentRepoMissing
	}
	saver := deps.Saver
	if saver == nil {
		var err error
		saver, err = NewBatchSaver(deps.Repository, 1)
		if err != nil {
			return nil, err
		}
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
	return &contentService{
		store:     deps.Store,
		repo:      deps.Repository,
		saver:     saver,
		publisher: deps.Publisher,
		edits:     deps.Edits,
		log:       log,
		clock:     func() time.Time { return clock().UTC() },
		policy:    policy,
	}, nil
}

func (s *contentService) GetSection(_ context.Context, sectionKey string) (domain.Section, error) {
	return s.store.Get(sectionKey)
}

func (s *contentService) ListSections(_ context.Context) ([]domain.Section, error) {
	return s.store.Snapshot(), nil
}

func (s *contentService) SaveSection(ctx context.Context, section domain.Section, actor string) error {
	if !section.Valid() {
		return ErrInvalidSection
	}
	if !s.store.Knows(section.Key) {
		return fmt.Errorf("%w: %s", ErrUnknownSection, section.Key)
	}

	content, err := resolveAssetContent(section.Content)
	if err != nil {
		return err
	}
	section.Content = NormalizeContent(s.sanitize(content))
	if err := s.repo.Save(ctx, section); err != nil {
		return fmt.Errorf("content service: save %s: %w", section.Key, err)
	}
	if err := s.store.Put(section); err != nil {
		return err
	}

	s.publish(ctx, ContentEvent{
		SectionKey: section.Key,
		Action:     ActionSectionSaved,
		Actor:      actor,
		OccurredAt: s.clock(),
	})
	s.log(ctx, "content.section_saved", map[string]any{
		"section": section.Key,
		"actor":   actor,
	})
	return nil
}

func (s *contentService) SaveSections(ctx context.Context, sections []domain.Section, actor string) error {
	if len(sections) == 0 {
		return nil
	}
	prepared := make([]domain.Section, 0, len(sections))
	for _, section := range sections {
		if !section.Valid() {
			return ErrInvalidSection
		}
		if !s.store.Knows(section.Key) {
			return fmt.Errorf("%w: %s", ErrUnknownSection, section.Key)
		}
		content, err := resolveAssetContent(section.Content)
		if err != nil {
			return err
		}
		section.Content = NormalizeContent(s.sanitize(content))
		prepared = append(prepared, section)
	}

	err := s.saver.SaveAll(ctx, prepared)

	// Sections that persisted stay visible even when siblings failed.
	failed := make(map[string]bool)
	var partial *PartialFailureError
	if errors.As(err, &partial) {
		for _, f := range partial.Failures {
			failed[f.SectionKey] = true
		}
	}
	for _, section := range prepared {
		if err != nil && (partial == nil || failed[section.Key]) {
			continue
		}
		if putErr := s.store.Put(section); putErr != nil {
			s.log(ctx, "content.store_put_failed", map[string]any{
				"section": section.Key,
				"error":   putErr.Error(),
			})
		}
	}

	if err != nil {
		s.log(ctx, "content.batch_save_failed", map[string]any{
			"total": len(prepared),
			"error": err.Error(),
		})
		return err
	}

	s.publish(ctx, ContentEvent{
		Action:     ActionBatchSaved,
		Actor:      actor,
		OccurredAt: s.clock(),
	})
	s.log(ctx, "content.batch_saved", map[string]any{
		"total": len(prepared),
		"actor": actor,
	})
	return nil
}

// AppendItem adds one item to the section's collection, assigning the next
// session-local id. The change lives in the store until the section is saved.
func (s *contentService) AppendItem(ctx context.Context, sectionKey string, seed domain.CollectionItem) (domain.CollectionItem, error) {
	var appended domain.CollectionItem
	err := s.editItems(sectionKey, func(c *CollectionController) error {
		appended = c.Append(func() domain.CollectionItem {
			item := make(domain.CollectionItem, len(seed))
			for key, value := range seed {
				item[key] = value
			}
			return item
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log(ctx, "content.item_appended", map[string]any{
		"section": sectionKey,
		"item_id": appended["id"],
	})
	return appended, nil
}

// RemoveItem deletes the item at index, preserving the order of the rest.
// The change lives in the store until the section is saved.
func (s *contentService) RemoveItem(ctx context.Context, sectionKey string, index int) error {
	err := s.editItems(sectionKey, func(c *CollectionController) error {
		return c.RemoveAt(index)
	})
	if err != nil {
		return err
	}
	s.log(ctx, "content.item_removed", map[string]any{
		"section": sectionKey,
		"index":   index,
	})
	return nil
}

// UpdateItemField deep-sets a dotted path on the item at index. The change
// lives in the store until the section is saved.
func (s *contentService) UpdateItemField(ctx context.Context, sectionKey string, index int, path domain.FieldPath, value any) error {
	err := s.editItems(sectionKey, func(c *CollectionController) error {
		return c.UpdateField(index, path, value)
	})
	if err != nil {
		return err
	}
	s.log(ctx, "content.item_field_updated", map[string]any{
		"section": sectionKey,
		"index":   index,
		"path":    path,
	})
	return nil
}

// editItems runs one collection mutation over a copy of the stored section
// and writes the result back. The stored content is never mutated in place.
func (s *contentService) editItems(sectionKey string, mutate func(*CollectionController) error) error {
	section, err := s.store.Get(sectionKey)
	if err != nil {
		return err
	}
	content := NormalizeContent(section.Content)
	items, rebuild, ok := sectionItems(content)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotACollection, sectionKey)
	}
	controller := NewCollectionController(items)
	if err := mutate(controller); err != nil {
		return err
	}
	section.Content = rebuild(controller.Items())
	return s.store.Put(section)
}

// sectionItems locates the item collection inside section content: either
// the content itself or the first collection-valued field of an object.
func sectionItems(content any) ([]domain.CollectionItem, func([]domain.CollectionItem) any, bool) {
	switch v := content.(type) {
	case []domain.CollectionItem:
		return v, func(items []domain.CollectionItem) any { return items }, true
	case map[string]any:
		for _, field := range sortedKeys(v) {
			items, ok := v[field].([]domain.CollectionItem)
			if !ok {
				continue
			}
			name := field
			return items, func(items []domain.CollectionItem) any {
				out := make(map[string]any, len(v))
				for key, value := range v {
					out[key] = value
				}
				out[name] = items
				return out
			}, true
		}
	}
	return nil, nil, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Refresh reloads every section and discards the edit tree. Uncommitted
// drafts do not survive a refresh.
func (s *contentService) Refresh(ctx context.Context) error {
	if err := s.store.LoadAll(ctx); err != nil {
		return err
	}
	if s.edits != nil {
		s.edits.Reset()
	}
	return nil
}

// resolveAssetContent replaces asset reference values with their durable
// URLs and rejects any reference still local. Runs before sanitising so the
// persistence path never sees an ephemeral handle.
func resolveAssetContent(content any) (any, error) {
	switch v := content.(type) {
	case domain.AssetReference:
		url, err := v.PersistableURL()
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrEphemeralContent, v.Handle())
		}
		return url, nil
	case string:
		if strings.HasPrefix(v, "local:") {
			return nil, fmt.Errorf("%w: %s", ErrEphemeralContent, v)
		}
		return v, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			resolved, err := resolveAssetContent(val)
			if err != nil {
				return nil, err
			}
			out[key] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			resolved, err := resolveAssetContent(val)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	case []domain.CollectionItem:
		out := make([]domain.CollectionItem, len(v))
		for i, item := range v {
			resolved, err := resolveAssetContent(map[string]any(item))
			if err != nil {
				return nil, err
			}
			out[i] = resolved.(map[string]any)
		}
		return out, nil
	default:
		return content, nil
	}
}

// sanitize strips unsafe markup from every string in the content tree.
func (s *contentService) sanitize(content any) any {
	if s.policy == nil {
		return content
	}
	return sanitizeValue(s.policy, content)
}

func sanitizeValue(policy *bluemonday.Policy, value any) any {
	switch v := value.(type) {
	case string:
		return policy.Sanitize(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			out[key] = sanitizeValue(policy, val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = sanitizeValue(policy, val)
		}
		return out
	case []domain.CollectionItem:
		out := make([]domain.CollectionItem, len(v))
		for i, item := range v {
			out[i] = sanitizeValue(policy, map[string]any(item)).(map[string]any)
		}
		return out
	default:
		return value
	}
}

func (s *contentService) publish(ctx context.Context, event ContentEvent) {
	if s.publisher == nil {
		return
	}
	if _, err := s.publisher.PublishContentEvent(ctx, event); err != nil {
		s.log(ctx, "content.event_publish_failed", map[string]any{
			"action": event.Action,
			"error":  err.Error(),
		})
	}
}
