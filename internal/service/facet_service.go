package service

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/newsblog-api/internal/filters"
	"github.com/newsblog-api/internal/repository"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// facetService is the concrete implementation of FacetService
type facetService struct {
	sectionRepo repository.SectionRepository
	facets      *filters.Facets
	log         zerolog.Logger
}

func newFacetService(sectionRepo repository.SectionRepository, facets *filters.Facets, log zerolog.Logger) *facetService {
	return &facetService{
		sectionRepo: sectionRepo,
		facets:      facets,
		log:         log.With().Str("service", "facets").Logger(),
	}
}

func (s *facetService) request(ctx context.Context, namespace, locale string, args url.Values) (filters.FacetRequest, error) {
	section, err := s.sectionRepo.GetByNamespace(ctx, namespace)
	if err != nil {
		return filters.FacetRequest{}, fmt.Errorf("section %s: %w", namespace, err)
	}
	return filters.FacetRequest{Section: section, Locale: locale, Args: args}, nil
}

func (s *facetService) compute(ctx context.Context, name string, req filters.FacetRequest) (interface{}, error) {
	switch name {
	case filters.FacetServices:
		return s.facets.Services(ctx, req)
	case filters.FacetAuthors:
		return s.facets.Authors(ctx, req)
	case filters.FacetCategories:
		return s.facets.Categories(ctx, req)
	case filters.FacetArchive:
		return s.facets.Archive(ctx, req)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFacet, name)
}

// Facet implements FacetService
func (s *facetService) Facet(ctx context.Context, namespace, name, locale string, args url.Values) (interface{}, error) {
	req, err := s.request(ctx, namespace, locale, args)
	if err != nil {
		return nil, err
	}
	return s.compute(ctx, name, req)
}

// All implements FacetService. Facets are computed concurrently; the
// first failure cancels the rest.
func (s *facetService) All(ctx context.Context, namespace, locale string, args url.Values) (map[string]interface{}, error) {
	req, err := s.request(ctx, namespace, locale, args)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	out := make(map[string]interface{}, len(filters.FacetNames))
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range filters.FacetNames {
		name := name
		g.Go(func() error {
			v, err := s.compute(gctx, name, req)
			if err != nil {
				return err
			}
			mu.Lock()
			out[name] = v
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Warn().Err(err).Str("namespace", namespace).Msg("Facet computation failed")
		return nil, err
	}
	return out, nil
}
