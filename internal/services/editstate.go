package services

import (
	"strconv"
	"strings"
	"sync"

	"github.com/havenhome/storefront-api/internal/domain"
)

// FieldKind selects the commit policy for a field.
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldNumeric
	FieldImage
)

type fieldState struct {
	kind    FieldKind
	value   any
	draft   any
	editing bool
}

// EditState is the explicit edit state tree keyed by (section key, field
// path). Any number of fields may be in the editing state at once; there is
// no global edit lock. Edit flags are process-local and never persisted.
type EditState struct {
	mu     sync.RWMutex
	fields map[domain.FieldRef]*fieldState
}

// NewEditState constructs an empty edit state tree.
func NewEditState() *EditState {
	return &EditState{fields: make(map[domain.FieldRef]*fieldState)}
}

// BeginEdit marks the field as editing and seeds the draft from the current value.
func (e *EditState) BeginEdit(ref domain.FieldRef, current any, kind FieldKind) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fields[ref] = &fieldState{
		kind:    kind,
		value:   current,
		draft:   current,
		editing: true,
	}
}

// SetDraft updates the draft only. Calls for fields not in the editing state
// are ignored.
func (e *EditState) SetDraft(ref domain.FieldRef, draft any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	field, ok := e.fields[ref]
	if !ok || !field.editing {
		return
	}
	field.draft = draft
}

// Commit promotes the draft to the value and ends editing. For numeric
// fields with an unparsable draft the whole commit is a no-op: the prior
// value is retained and the field stays in the editing state. The second
// return reports whether the commit took effect.
func (e *EditState) Commit(ref domain.FieldRef) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	field, ok := e.fields[ref]
	if !ok || !field.editing {
		return nil, false
	}

	committed := field.draft
	if field.kind == FieldNumeric {
		parsed, ok := parseNumericDraft(field.draft)
		if !ok {
			return field.value, false
		}
		committed = parsed
	}

	field.value = committed
	field.draft = nil
	field.editing = false
	return committed, true
}

// Cancel discards the draft and ends editing without touching the value.
func (e *EditState) Cancel(ref domain.FieldRef) {
	e.mu.Lock()
	defer e.mu.Unlock()
	field, ok := e.fields[ref]
	if !ok {
		return
	}
	field.draft = nil
	field.editing = false
}

// Editing reports whether the field is currently in the editing state.
func (e *EditState) Editing(ref domain.FieldRef) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	field, ok := e.fields[ref]
	return ok && field.editing
}

// Value returns the last committed value for the field.
func (e *EditState) Value(ref domain.FieldRef) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	field, ok := e.fields[ref]
	if !ok {
		return nil, false
	}
	return field.value, true
}

// Reset discards the whole edit tree, drafts included. A content refresh
// calls this so stale edits never survive a reload.
func (e *EditState) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fields = make(map[domain.FieldRef]*fieldState)
}

// EditingCount returns how many fields are currently being edited.
func (e *EditState) EditingCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	count := 0
	for _, field := range e.fields {
		if field.editing {
			count++
		}
	}
	return count
}

func parseNumericDraft(draft any) (float64, bool) {
	switch v := draft.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
