package services

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havenhome/storefront-api/internal/domain"
)

func seedItems(ids ...int) []domain.CollectionItem {
	items := make([]domain.CollectionItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, domain.CollectionItem{"id": id, "title": "item"})
	}
	return items
}

func TestAppendAssignsNextID(t *testing.T) {
	ctl := NewCollectionController(seedItems(1, 2, 7))

	item := ctl.Append(func() domain.CollectionItem {
		return domain.CollectionItem{"title": "New banner"}
	})

	assert.Equal(t, 8, domain.ItemID(item))
	assert.Equal(t, "New banner", item["title"])
	assert.Equal(t, []int{1, 2, 7, 8}, ctl.IDs())
}

func TestAppendToEmptyStartsAtOne(t *testing.T) {
	ctl := NewCollectionController(nil)

	item := ctl.Append(nil)

	assert.Equal(t, 1, domain.ItemID(item))
	assert.Equal(t, 1, ctl.Len())
}

func TestRemoveAtPreservesOrder(t *testing.T) {
	ctl := NewCollectionController(seedItems(1, 2, 3, 4))

	require.NoError(t, ctl.RemoveAt(1))

	assert.Equal(t, []int{1, 3, 4}, ctl.IDs())
}

func TestRemoveAtOutOfRange(t *testing.T) {
	ctl := NewCollectionController(seedItems(1, 2))

	assert.ErrorIs(t, ctl.RemoveAt(2), ErrIndexOutOfRange)
	assert.ErrorIs(t, ctl.RemoveAt(-1), ErrIndexOutOfRange)
	assert.Equal(t, 2, ctl.Len())
}

func TestUpdateFieldTopLevel(t *testing.T) {
	ctl := NewCollectionController(seedItems(1))

	require.NoError(t, ctl.UpdateField(0, "title", "Linen duvet"))

	assert.Equal(t, "Linen duvet", ctl.Items()[0]["title"])
}

func TestUpdateFieldNestedPath(t *testing.T) {
	ctl := NewCollectionController([]domain.CollectionItem{{
		"id": 1,
		"dimensions": map[string]any{
			"width": 200,
		},
	}})

	require.NoError(t, ctl.UpdateField(0, "dimensions.height", 140))

	dims := ctl.Items()[0]["dimensions"].(map[string]any)
	assert.Equal(t, 140, dims["height"])
	assert.Equal(t, 200, dims["width"])
}

func TestUpdateFieldCreatesIntermediateObjects(t *testing.T) {
	ctl := NewCollectionController(seedItems(1))

	require.NoError(t, ctl.UpdateField(0, "cta.link.href", "/sale"))

	cta := ctl.Items()[0]["cta"].(map[string]any)
	link := cta["link"].(map[string]any)
	assert.Equal(t, "/sale", link["href"])
}

func TestUpdateFieldArrayIndex(t *testing.T) {
	ctl := NewCollectionController([]domain.CollectionItem{{
		"id":     1,
		"labels": []any{"new", "featured"},
	}})

	require.NoError(t, ctl.UpdateField(0, "labels.1", "bestseller"))

	labels := ctl.Items()[0]["labels"].([]any)
	assert.Equal(t, []any{"new", "bestseller"}, labels)
}

func TestUpdateFieldRejectsScalarTraversal(t *testing.T) {
	ctl := NewCollectionController(seedItems(1))

	err := ctl.UpdateField(0, "title.inner", "x")

	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrIndexOutOfRange))
}

func TestUpdateFieldEmptyPath(t *testing.T) {
	ctl := NewCollectionController(seedItems(1))

	assert.ErrorIs(t, ctl.UpdateField(0, "  ", "x"), ErrEmptyFieldPath)
}

func TestCollectionProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4242)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("append grows by one and id exceeds every existing id", prop.ForAll(
		func(ids []int) bool {
			ctl := NewCollectionController(seedItems(ids...))
			before := ctl.Len()

			item := ctl.Append(nil)

			if ctl.Len() != before+1 {
				return false
			}
			assigned := domain.ItemID(item)
			if len(ids) == 0 {
				return assigned == 1
			}
			max := ids[0]
			for _, id := range ids {
				if id > max {
					max = id
				}
			}
			return assigned == max+1
		},
		gen.SliceOf(gen.IntRange(1, 500)),
	))

	properties.Property("removeAt shrinks by one and preserves relative order", prop.ForAll(
		func(ids []int, pick int) bool {
			if len(ids) == 0 {
				return true
			}
			index := pick % len(ids)
			ctl := NewCollectionController(seedItems(ids...))

			if err := ctl.RemoveAt(index); err != nil {
				return false
			}

			want := make([]int, 0, len(ids)-1)
			want = append(want, ids[:index]...)
			want = append(want, ids[index+1:]...)
			got := ctl.IDs()
			if len(got) != len(want) {
				return false
			}
			for i := range want {
				if got[i] != want[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(1, 500)),
		gen.IntRange(0, 1<<20),
	))

	properties.TestingRun(t)
}
