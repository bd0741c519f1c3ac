package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/havenhome/storefront-api/internal/domain"
	"github.com/havenhome/storefront-api/internal/repositories"
)

// ErrInvalidSection signals a section without a usable key.
var ErrInvalidSection = errors.New("services: section key is required")

// SaveFailure records one section that failed to persist during a batch.
type SaveFailure struct {
	SectionKey string
	Err        error
}

// PartialFailureError aggregates every failed key of a batch save. Sections
// that saved before or alongside the failures stay persisted; there is no
// rollback. Re-invoking the batch is safe because saves are idempotent
// upserts keyed by section.
type PartialFailureError struct {
	Failures []SaveFailure
	Total    int
}

func (e *PartialFailureError) Error() string {
	keys := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		keys = append(keys, f.SectionKey)
	}
	return fmt.Sprintf("services: %d of %d sections failed to save: %s",
		len(e.Failures), e.Total, strings.Join(keys, ", "))
}

// FailedKeys returns the failed section keys in deterministic order.
func (e *PartialFailureError) FailedKeys() []string {
	keys := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		keys = append(keys, f.SectionKey)
	}
	sort.Strings(keys)
	return keys
}

// BatchSaver fans section upserts out to the repository with bounded
// concurrency. Each section is an independent write; the batch is
// deliberately non-atomic and nothing is retried.
type BatchSaver struct {
	repo        repositories.ContentRepository
	concurrency int
}

// NewBatchSaver constructs a saver. Concurrency values below one collapse
// to serial execution.
func NewBatchSaver(repo repositories.ContentRepository, concurrency int) (*BatchSaver, error) {
	if repo == nil {
		return nil, errors.New("services: content repository is required")
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &BatchSaver{repo: repo, concurrency: concurrency}, nil
}

// SaveAll persists every section concurrently and returns nil when all
// writes succeed, or a single *PartialFailureError naming each failed key.
func (s *BatchSaver) SaveAll(ctx context.Context, sections []domain.Section) error {
	if len(sections) == 0 {
		return nil
	}
	for _, section := range sections {
		if !section.Valid() {
			return ErrInvalidSection
		}
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []SaveFailure
	)
	sem := make(chan struct{}, s.concurrency)

	for _, section := range sections {
		wg.Add(1)
		sem <- struct{}{}
		go func(section domain.Section) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := s.repo.Save(ctx, section); err != nil {
				mu.Lock()
				failures = append(failures, SaveFailure{SectionKey: section.Key, Err: err})
				mu.Unlock()
			}
		}(section)
	}
	wg.Wait()

	if len(failures) == 0 {
		return nil
	}
	sort.Slice(failures, func(i, j int) bool {
		return failures[i].SectionKey < failures[j].SectionKey
	})
	return &PartialFailureError{Failures: failures, Total: len(sections)}
}
