package mocks

import (
	"context"
	"net/url"

	"github.com/newsblog-api/internal/filters"
	"github.com/newsblog-api/internal/models"
	"github.com/newsblog-api/internal/resolver"
	"github.com/newsblog-api/internal/service"
)

// MockRelatedService is a mock implementation of RelatedService
type MockRelatedService struct {
	Result      *resolver.Result
	QueryResult *service.QueryResult
	Err         error
	// Requests records every ForWidget call
	Requests []service.WidgetRequest
	Queries  []service.QueryRequest
}

var _ service.RelatedService = (*MockRelatedService)(nil)

func NewMockRelatedService() *MockRelatedService {
	return &MockRelatedService{
		Result:      &resolver.Result{Items: []resolver.Item{}, AllImages: true, Strategy: resolver.StrategyNone},
		QueryResult: &service.QueryResult{Items: []resolver.Item{}, AllImages: true, Valid: true, Template: "related"},
	}
}

func (m *MockRelatedService) ForWidget(ctx context.Context, req service.WidgetRequest) (*resolver.Result, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}

func (m *MockRelatedService) Query(ctx context.Context, req service.QueryRequest) (*service.QueryResult, error) {
	m.Queries = append(m.Queries, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.QueryResult, nil
}

// MockArticleService is a mock implementation of ArticleService
type MockArticleService struct {
	DetailResult *service.Detail
	Saved        *models.Article
	Err          error
	SaveErr      error
	Requests     []service.DetailRequest
	Inputs       []*models.ArticleInput
}

var _ service.ArticleService = (*MockArticleService)(nil)

func NewMockArticleService() *MockArticleService {
	return &MockArticleService{DetailResult: &service.Detail{Outcome: service.NotFound}}
}

func (m *MockArticleService) Detail(ctx context.Context, req service.DetailRequest) (*service.Detail, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.DetailResult, nil
}

func (m *MockArticleService) Save(ctx context.Context, id int64, in *models.ArticleInput) (*models.Article, error) {
	m.Inputs = append(m.Inputs, in)
	if m.SaveErr != nil {
		return nil, m.SaveErr
	}
	if m.Saved != nil {
		return m.Saved, nil
	}
	return &models.Article{ID: id, SectionID: in.SectionID}, nil
}

// MockListingService is a mock implementation of ListingService
type MockListingService struct {
	SectionList []*models.Section
	Page        *service.Page
	BrowsePage  *service.BrowsePage
	ChoiceList  []filters.Choice
	Err         error
	Lists       []service.ListRequest
	Searches    []service.SearchRequest
	Browses     []service.BrowseRequest
}

var _ service.ListingService = (*MockListingService)(nil)

func NewMockListingService() *MockListingService {
	page := &service.Page{Items: []*models.Article{}, Page: 1, PageSize: 10, NumPages: 1, Valid: true}
	return &MockListingService{
		SectionList: []*models.Section{},
		Page:        page,
		BrowsePage:  &service.BrowsePage{Page: page, ActiveType: "all", ActiveCategory: "all"},
		ChoiceList:  []filters.Choice{},
	}
}

func (m *MockListingService) Sections(ctx context.Context) ([]*models.Section, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.SectionList, nil
}

func (m *MockListingService) List(ctx context.Context, req service.ListRequest) (*service.Page, error) {
	m.Lists = append(m.Lists, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Page, nil
}

func (m *MockListingService) Search(ctx context.Context, req service.SearchRequest) (*service.Page, error) {
	m.Searches = append(m.Searches, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Page, nil
}

func (m *MockListingService) Browse(ctx context.Context, req service.BrowseRequest) (*service.BrowsePage, error) {
	m.Browses = append(m.Browses, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.BrowsePage, nil
}

func (m *MockListingService) Choices(ctx context.Context, namespace string, values url.Values) ([]filters.Choice, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.ChoiceList, nil
}

// MockFacetService is a mock implementation of FacetService
type MockFacetService struct {
	Values map[string]interface{}
	Err    error
	// Args records the filter arguments of the last call
	Args url.Values
}

var _ service.FacetService = (*MockFacetService)(nil)

func NewMockFacetService() *MockFacetService {
	return &MockFacetService{Values: map[string]interface{}{}}
}

func (m *MockFacetService) Facet(ctx context.Context, namespace, name, locale string, args url.Values) (interface{}, error) {
	m.Args = args
	if m.Err != nil {
		return nil, m.Err
	}
	v, ok := m.Values[name]
	if !ok {
		return nil, service.ErrUnknownFacet
	}
	return v, nil
}

func (m *MockFacetService) All(ctx context.Context, namespace, locale string, args url.Values) (map[string]interface{}, error) {
	m.Args = args
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Values, nil
}

// NewMockServices bundles fresh service mocks
func NewMockServices() (*service.Services, *MockRelatedService, *MockArticleService, *MockListingService, *MockFacetService) {
	related := NewMockRelatedService()
	articles := NewMockArticleService()
	listing := NewMockListingService()
	facets := NewMockFacetService()
	return &service.Services{
		Related:  related,
		Articles: articles,
		Listing:  listing,
		Facets:   facets,
	}, related, articles, listing, facets
}
