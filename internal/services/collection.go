package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/havenhome/storefront-api/internal/domain"
)

var (
	// ErrIndexOutOfRange signals an item index outside the collection bounds.
	ErrIndexOutOfRange = errors.New("collection: index out of range")
	// ErrEmptyFieldPath signals an update with no field path.
	ErrEmptyFieldPath = errors.New("collection: field path is required")
)

// CollectionController manages an ordered, repeatable item list. Display
// order is strictly insertion order; there is no reorder operation. Item ids
// are session-local coordinates assigned max(existing)+1 and are never
// reconciled against stored ids after a reload.
type CollectionController struct {
	mu    sync.Mutex
	items []domain.CollectionItem
}

// NewCollectionController constructs a controller over a copy of the items.
func NewCollectionController(items []domain.CollectionItem) *CollectionController {
	copied := make([]domain.CollectionItem, len(items))
	copy(copied, items)
	return &CollectionController{items: copied}
}

// Append creates an item via the factory, assigns the next id, and appends
// it at the end. The stored item is returned.
func (c *CollectionController) Append(factory func() domain.CollectionItem) domain.CollectionItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	var item domain.CollectionItem
	if factory != nil {
		item = factory()
	}
	if item == nil {
		item = domain.CollectionItem{}
	}
	item["id"] = domain.NextItemID(c.items)
	c.items = append(c.items, item)
	return item
}

// RemoveAt removes the item at index, shifting the rest down. Relative order
// is preserved; there is no undo.
func (c *CollectionController) RemoveAt(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.items) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(c.items))
	}
	c.items = append(c.items[:index], c.items[index+1:]...)
	return nil
}

// UpdateField deep-sets a dotted path on one item, creating intermediate
// objects as needed ("dimensions.height", "labels.2").
func (c *CollectionController) UpdateField(index int, path domain.FieldPath, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.items) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(c.items))
	}
	segments := splitFieldPath(path)
	if len(segments) == 0 {
		return ErrEmptyFieldPath
	}
	return setPath(c.items[index], segments, value)
}

// Items returns a copy of the collection in display order.
func (c *CollectionController) Items() []domain.CollectionItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.CollectionItem, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of items.
func (c *CollectionController) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// IDs returns the item ids in display order.
func (c *CollectionController) IDs() []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]int, 0, len(c.items))
	for _, item := range c.items {
		out = append(out, domain.ItemID(item))
	}
	return out
}

func splitFieldPath(path domain.FieldPath) []string {
	raw := strings.Split(strings.TrimSpace(path), ".")
	segments := make([]string, 0, len(raw))
	for _, segment := range raw {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		segments = append(segments, segment)
	}
	return segments
}

func setPath(target map[string]any, segments []string, value any) error {
	head := segments[0]
	if len(segments) == 1 {
		target[head] = value
		return nil
	}

	rest := segments[1:]
	switch child := target[head].(type) {
	case map[string]any:
		return setPath(child, rest, value)
	case []any:
		return setSlicePath(child, rest, value)
	case nil:
		next := make(map[string]any)
		target[head] = next
		return setPath(next, rest, value)
	default:
		return fmt.Errorf("collection: path segment %q addresses a scalar", head)
	}
}

func setSlicePath(target []any, segments []string, value any) error {
	idx, err := strconv.Atoi(segments[0])
	if err != nil {
		return fmt.Errorf("collection: %q is not a valid array index", segments[0])
	}
	if idx < 0 || idx >= len(target) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, idx, len(target))
	}
	if len(segments) == 1 {
		target[idx] = value
		return nil
	}
	switch child := target[idx].(type) {
	case map[string]any:
		return setPath(child, segments[1:], value)
	case []any:
		return setSlicePath(child, segments[1:], value)
	default:
		return fmt.Errorf("collection: path segment %q addresses a scalar", segments[0])
	}
}
