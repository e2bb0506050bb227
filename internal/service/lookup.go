package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/newsblog-api/internal/relevance"
	"github.com/newsblog-api/internal/repository"
	"github.com/newsblog-api/internal/resolver"
)

// referenceLookup adapts the reference repository to the relevance
// builder and the resolver.
type referenceLookup struct {
	refs          repository.ReferenceRepository
	defaultMedium string

	mu       sync.Mutex
	mediumID int64
}

var (
	_ relevance.Lookup   = (*referenceLookup)(nil)
	_ resolver.Directory = (*referenceLookup)(nil)
)

func newReferenceLookup(refs repository.ReferenceRepository, defaultMedium string) *referenceLookup {
	return &referenceLookup{refs: refs, defaultMedium: defaultMedium}
}

// DefaultMediumID returns the sentinel medium id, creating the sentinel
// on first use. ok is false when no sentinel title is configured.
func (l *referenceLookup) DefaultMediumID(ctx context.Context) (int64, bool, error) {
	if l.defaultMedium == "" {
		return 0, false, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.mediumID != 0 {
		return l.mediumID, true, nil
	}
	m, err := l.refs.EnsureMedium(ctx, l.defaultMedium)
	if err != nil {
		return 0, false, fmt.Errorf("default medium: %w", err)
	}
	l.mediumID = m.ID
	return m.ID, true, nil
}

func (l *referenceLookup) ServiceIDsInSections(ctx context.Context, serviceSectionIDs []int64) ([]int64, error) {
	return l.refs.ServiceIDsInSections(ctx, serviceSectionIDs)
}

func (l *referenceLookup) CategorySlug(ctx context.Context, id int64) (string, error) {
	return l.refs.CategorySlug(ctx, id)
}

func (l *referenceLookup) PersonSlug(ctx context.Context, id int64) (string, error) {
	return l.refs.PersonSlug(ctx, id)
}
