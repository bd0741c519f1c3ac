package domain

import "strings"

// Section is a named, independently persisted block of homepage content.
// Content is an arbitrary JSON value: an object for singleton blocks, an
// array for repeatable card collections.
type Section struct {
	Key     string `json:"sectionKey" firestore:"sectionKey"`
	Content any    `json:"content" firestore:"content"`
}

// Valid reports whether the section carries a usable key.
func (s Section) Valid() bool {
	return strings.TrimSpace(s.Key) != ""
}

// FieldPath addresses a nested field inside a section or entity, using
// dotted notation ("dimensions.height", "cards.2.title").
type FieldPath = string

// FieldRef identifies a single editable field: a section key plus the
// dotted path of the field inside that section's content.
type FieldRef struct {
	Section string
	Path    FieldPath
}

// CollectionItem is one entry of a repeatable content collection. Items are
// heterogeneous JSON records; the "id" key, when present, holds a numeric
// identifier assigned client-side and valid only for the current session.
type CollectionItem = map[string]any

// ItemID extracts the numeric id of a collection item, returning 0 when the
// item has none or the value is not numeric.
func ItemID(item CollectionItem) int {
	if item == nil {
		return 0
	}
	switch v := item["id"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// NextItemID returns the id a newly appended item receives: one past the
// highest existing id, or 1 for an empty collection.
func NextItemID(items []CollectionItem) int {
	max := 0
	for _, item := range items {
		if id := ItemID(item); id > max {
			max = id
		}
	}
	return max + 1
}
