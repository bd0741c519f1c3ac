package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havenhome/storefront-api/internal/domain"
)

func TestBatchSaveAllSucceeds(t *testing.T) {
	repo := newStubContentRepository()
	saver, err := NewBatchSaver(repo, 4)
	require.NoError(t, err)

	batch := []domain.Section{
		{Key: "hero", Content: map[string]any{"title": "Fall sale"}},
		{Key: "features", Content: []any{}},
		{Key: "announcements", Content: map[string]any{"text": "Free shipping"}},
	}
	require.NoError(t, saver.SaveAll(context.Background(), batch))

	assert.Equal(t, 3, repo.saveCount())
	for _, section := range batch {
		saved, ok := repo.savedSection(section.Key)
		require.True(t, ok, section.Key)
		assert.Equal(t, section.Content, saved.Content)
	}
}

func TestBatchSaveAllReportsSingleAggregateFailure(t *testing.T) {
	repo := newStubContentRepository()
	repo.saveErr = map[string]error{
		"features":      errors.New("write timed out"),
		"announcements": errors.New("write timed out"),
	}
	saver, err := NewBatchSaver(repo, 4)
	require.NoError(t, err)

	batch := []domain.Section{
		{Key: "hero", Content: map[string]any{}},
		{Key: "features", Content: []any{}},
		{Key: "announcements", Content: map[string]any{}},
	}
	err = saver.SaveAll(context.Background(), batch)

	var partial *PartialFailureError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 3, partial.Total)
	assert.Equal(t, []string{"announcements", "features"}, partial.FailedKeys())

	// The succeeding section stays persisted; nothing is rolled back.
	_, ok := repo.savedSection("hero")
	assert.True(t, ok)
}

func TestBatchSaveAllIsIdempotentOnRetry(t *testing.T) {
	repo := newStubContentRepository()
	repo.saveErr = map[string]error{"features": errors.New("unavailable")}
	saver, err := NewBatchSaver(repo, 2)
	require.NoError(t, err)

	batch := []domain.Section{
		{Key: "hero", Content: map[string]any{"title": "v1"}},
		{Key: "features", Content: []any{}},
	}
	require.Error(t, saver.SaveAll(context.Background(), batch))

	repo.saveErr = nil
	require.NoError(t, saver.SaveAll(context.Background(), batch))

	saved, ok := repo.savedSection("hero")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"title": "v1"}, saved.Content)
	_, ok = repo.savedSection("features")
	assert.True(t, ok)
}

func TestBatchSaveAllEmptyBatch(t *testing.T) {
	repo := newStubContentRepository()
	saver, err := NewBatchSaver(repo, 4)
	require.NoError(t, err)

	require.NoError(t, saver.SaveAll(context.Background(), nil))
	assert.Zero(t, repo.saveCount())
}

func TestBatchSaveAllRejectsBlankKey(t *testing.T) {
	repo := newStubContentRepository()
	saver, err := NewBatchSaver(repo, 4)
	require.NoError(t, err)

	err = saver.SaveAll(context.Background(), []domain.Section{{Key: "  "}})
	assert.ErrorIs(t, err, ErrInvalidSection)
	assert.Zero(t, repo.saveCount())
}

func TestNewBatchSaverRequiresRepository(t *testing.T) {
	_, err := NewBatchSaver(nil, 4)
	assert.Error(t, err)
}

func TestNewBatchSaverClampsConcurrency(t *testing.T) {
	repo := newStubContentRepository()
	saver, err := NewBatchSaver(repo, 0)
	require.NoError(t, err)

	require.NoError(t, saver.SaveAll(context.Background(), []domain.Section{
		{Key: "hero", Content: map[string]any{}},
	}))
	assert.Equal(t, 1, repo.saveCount())
}
