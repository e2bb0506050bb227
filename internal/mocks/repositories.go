package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/newsblog-api/internal/models"
	"github.com/newsblog-api/internal/predicate"
	"github.com/newsblog-api/internal/repository"
)

// MockArticleRepository is an in-memory ArticleRepository that evaluates
// predicates with Match
type MockArticleRepository struct {
	Articles  map[int64]*models.Article
	NextID    int64
	FindError error
	SaveError error
	FindCalls int
	SaveCalls int
}

// Verify interface compliance
var _ repository.ArticleRepository = (*MockArticleRepository)(nil)

func NewMockArticleRepository(articles ...*models.Article) *MockArticleRepository {
	m := &MockArticleRepository{Articles: make(map[int64]*models.Article)}
	for _, a := range articles {
		m.Articles[a.ID] = a
		if a.ID >= m.NextID {
			m.NextID = a.ID
		}
	}
	return m
}

func (m *MockArticleRepository) all() []*models.Article {
	out := make([]*models.Article, 0, len(m.Articles))
	for _, a := range m.Articles {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MockArticleRepository) GetByID(ctx context.Context, id int64) (*models.Article, error) {
	a, ok := m.Articles[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return a, nil
}

func (m *MockArticleRepository) GetByIDs(ctx context.Context, ids []int64) ([]*models.Article, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}
	out := []*models.Article{}
	for _, id := range ids {
		if a, ok := m.Articles[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MockArticleRepository) GetBySlug(ctx context.Context, sectionID int64, slug string, locales []string) (*models.Article, error) {
	for _, locale := range locales {
		for _, a := range m.all() {
			if a.SectionID != sectionID {
				continue
			}
			if t, ok := a.Translation(locale); ok && t.Slug == slug {
				return a, nil
			}
		}
	}
	return nil, models.ErrNotFound
}

func (m *MockArticleRepository) Find(ctx context.Context, q predicate.Query) ([]*models.Article, error) {
	m.FindCalls++
	if m.FindError != nil {
		return nil, m.FindError
	}
	return q.Apply(m.all()), nil
}

func (m *MockArticleRepository) Count(ctx context.Context, where predicate.Predicate) (int, error) {
	if m.FindError != nil {
		return 0, m.FindError
	}
	return len(predicate.Query{Where: where}.Apply(m.all())), nil
}

func (m *MockArticleRepository) Save(ctx context.Context, article *models.Article) error {
	m.SaveCalls++
	if m.SaveError != nil {
		return m.SaveError
	}
	if article.ID == 0 {
		m.NextID++
		article.ID = m.NextID
	} else if _, ok := m.Articles[article.ID]; !ok {
		return models.ErrNotFound
	}
	m.Articles[article.ID] = article
	return nil
}

func (m *MockArticleRepository) CountByRelation(ctx context.Context, where predicate.Predicate, rel models.Relation) (map[int64]int, error) {
	out := map[int64]int{}
	for _, a := range (predicate.Query{Where: where}).Apply(m.all()) {
		for _, id := range a.RelationIDs(rel) {
			out[id]++
		}
	}
	return out, nil
}

func (m *MockArticleRepository) CountByAuthor(ctx context.Context, where predicate.Predicate, translated bool, locale string) (map[int64]int, error) {
	out := map[int64]int{}
	for _, a := range (predicate.Query{Where: where}).Apply(m.all()) {
		if primary := a.AuthorSlots(locale, translated)[0]; primary != nil {
			out[*primary]++
		}
	}
	return out, nil
}

func (m *MockArticleRepository) CountByMonth(ctx context.Context, where predicate.Predicate) ([]models.ArchiveMonth, error) {
	buckets := map[[2]int]int{}
	for _, a := range (predicate.Query{Where: where}).Apply(m.all()) {
		buckets[[2]int{a.PublishingDate.Year(), int(a.PublishingDate.Month())}]++
	}
	out := make([]models.ArchiveMonth, 0, len(buckets))
	for k, n := range buckets {
		out = append(out, models.ArchiveMonth{Year: k[0], Month: k[1], Label: fmt.Sprintf("%s %d", time.Month(k[1]), k[0]), Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out, nil
}

// MockSectionRepository is an in-memory SectionRepository
type MockSectionRepository struct {
	Sections map[int64]*models.Section
	NextID   int64
}

var _ repository.SectionRepository = (*MockSectionRepository)(nil)

func NewMockSectionRepository(sections ...*models.Section) *MockSectionRepository {
	m := &MockSectionRepository{Sections: make(map[int64]*models.Section)}
	for _, s := range sections {
		m.Sections[s.ID] = s
		if s.ID >= m.NextID {
			m.NextID = s.ID
		}
	}
	return m
}

func (m *MockSectionRepository) GetByID(ctx context.Context, id int64) (*models.Section, error) {
	s, ok := m.Sections[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return s, nil
}

func (m *MockSectionRepository) GetByNamespace(ctx context.Context, namespace string) (*models.Section, error) {
	for _, s := range m.Sections {
		if s.Namespace == namespace {
			return s, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *MockSectionRepository) List(ctx context.Context) ([]*models.Section, error) {
	out := make([]*models.Section, 0, len(m.Sections))
	for _, s := range m.Sections {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Namespace < out[j].Namespace })
	return out, nil
}

func (m *MockSectionRepository) IDsWithFlag(ctx context.Context, flag models.SectionFlag) ([]int64, error) {
	ids := []int64{}
	for id, s := range m.Sections {
		if s.HasFlag(flag) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *MockSectionRepository) Create(ctx context.Context, section *models.Section) error {
	if _, err := m.GetByNamespace(ctx, section.Namespace); err == nil {
		return fmt.Errorf("namespace %q already exists", section.Namespace)
	}
	m.NextID++
	section.ID = m.NextID
	m.Sections[section.ID] = section
	return nil
}

func (m *MockSectionRepository) EnsureDefault(ctx context.Context) (*models.Section, error) {
	if s, err := m.GetByNamespace(ctx, models.DefaultNamespace); err == nil {
		return s, nil
	}
	s := models.NewDefaultSection()
	return s, m.Create(ctx, s)
}

// MockReferenceRepository is an in-memory ReferenceRepository
type MockReferenceRepository struct {
	MediumList          []*models.Medium
	CategoryList        []*models.Category
	ServiceSectionList  []*models.ServiceSection
	ServiceList         []*models.Service
	LocationList        []*models.Location
	CompanyList         []*models.Company
	PersonList          []*models.Person
	Calls               map[string]int
	ServiceSectionError error
	mu                  sync.Mutex
}

var _ repository.ReferenceRepository = (*MockReferenceRepository)(nil)

func NewMockReferenceRepository() *MockReferenceRepository {
	return &MockReferenceRepository{Calls: make(map[string]int)}
}

func (m *MockReferenceRepository) call(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[name]++
}

func (m *MockReferenceRepository) Mediums(ctx context.Context) ([]*models.Medium, error) {
	m.call("mediums")
	return m.MediumList, nil
}

func (m *MockReferenceRepository) MediumByTitle(ctx context.Context, title string) (*models.Medium, error) {
	for _, md := range m.MediumList {
		if md.Title == title {
			return md, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *MockReferenceRepository) EnsureMedium(ctx context.Context, title string) (*models.Medium, error) {
	m.call("ensure_medium")
	if md, err := m.MediumByTitle(ctx, title); err == nil {
		return md, nil
	}
	var next int64 = 1
	for _, md := range m.MediumList {
		if md.ID >= next {
			next = md.ID + 1
		}
	}
	md := &models.Medium{ID: next, Title: title, Slug: title}
	m.MediumList = append(m.MediumList, md)
	return md, nil
}

func (m *MockReferenceRepository) Categories(ctx context.Context) ([]*models.Category, error) {
	m.call("categories")
	return m.CategoryList, nil
}

func (m *MockReferenceRepository) CategoryChildren(ctx context.Context, parentSlug string) ([]*models.Category, error) {
	var parent *models.Category
	for _, c := range m.CategoryList {
		if c.Slug == parentSlug {
			parent = c
		}
	}
	out := []*models.Category{}
	if parent == nil {
		return out, nil
	}
	for _, c := range m.CategoryList {
		if c.ParentID != nil && *c.ParentID == parent.ID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MockReferenceRepository) CategorySlug(ctx context.Context, id int64) (string, error) {
	for _, c := range m.CategoryList {
		if c.ID == id {
			return c.Slug, nil
		}
	}
	return "", models.ErrNotFound
}

func (m *MockReferenceRepository) CategoryNames(ctx context.Context, ids []int64) ([]string, error) {
	out := []string{}
	for _, c := range m.CategoryList {
		if containsID(ids, c.ID) {
			out = append(out, c.Name)
		}
	}
	return out, nil
}

func (m *MockReferenceRepository) ServiceSections(ctx context.Context) ([]*models.ServiceSection, error) {
	return m.ServiceSectionList, nil
}

func (m *MockReferenceRepository) Services(ctx context.Context) ([]*models.Service, error) {
	m.call("services")
	return m.ServiceList, nil
}

func (m *MockReferenceRepository) ServiceTitles(ctx context.Context, ids []int64) ([]string, error) {
	out := []string{}
	for _, s := range m.ServiceList {
		if containsID(ids, s.ID) {
			out = append(out, s.Title)
		}
	}
	return out, nil
}

func (m *MockReferenceRepository) ServiceIDsInSections(ctx context.Context, serviceSectionIDs []int64) ([]int64, error) {
	if m.ServiceSectionError != nil {
		return nil, m.ServiceSectionError
	}
	out := []int64{}
	for _, s := range m.ServiceList {
		for _, sec := range s.SectionIDs {
			if containsID(serviceSectionIDs, sec) {
				out = append(out, s.ID)
				break
			}
		}
	}
	return out, nil
}

func (m *MockReferenceRepository) Locations(ctx context.Context) ([]*models.Location, error) {
	return m.LocationList, nil
}

func (m *MockReferenceRepository) Companies(ctx context.Context) ([]*models.Company, error) {
	return m.CompanyList, nil
}

func (m *MockReferenceRepository) Persons(ctx context.Context, ids []int64) ([]*models.Person, error) {
	m.call("persons")
	if ids == nil {
		return m.PersonList, nil
	}
	out := []*models.Person{}
	for _, p := range m.PersonList {
		if containsID(ids, p.ID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockReferenceRepository) PersonSlug(ctx context.Context, id int64) (string, error) {
	for _, p := range m.PersonList {
		if p.ID == id {
			return p.Slug, nil
		}
	}
	return "", models.ErrNotFound
}

func (m *MockReferenceRepository) PersonByUserID(ctx context.Context, userID int64) (*models.Person, error) {
	for _, p := range m.PersonList {
		if p.UserID != nil && *p.UserID == userID {
			return p, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *MockReferenceRepository) CreatePerson(ctx context.Context, person *models.Person) error {
	person.ID = int64(len(m.PersonList) + 1000)
	m.PersonList = append(m.PersonList, person)
	return nil
}

// MockWidgetRepository is an in-memory WidgetRepository
type MockWidgetRepository struct {
	Widgets map[int64]*models.RelatedWidget
	NextID  int64
}

var _ repository.WidgetRepository = (*MockWidgetRepository)(nil)

func NewMockWidgetRepository(widgets ...*models.RelatedWidget) *MockWidgetRepository {
	m := &MockWidgetRepository{Widgets: make(map[int64]*models.RelatedWidget)}
	for _, w := range widgets {
		m.Widgets[w.ID] = w
		if w.ID >= m.NextID {
			m.NextID = w.ID
		}
	}
	return m
}

func (m *MockWidgetRepository) GetByID(ctx context.Context, id int64) (*models.RelatedWidget, error) {
	w, ok := m.Widgets[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return w, nil
}

func (m *MockWidgetRepository) Save(ctx context.Context, w *models.RelatedWidget) error {
	if w.ID == 0 {
		m.NextID++
		w.ID = m.NextID
	}
	m.Widgets[w.ID] = w
	return nil
}

// NewMockRepositories bundles empty in-memory repositories
func NewMockRepositories() (*repository.Repositories, *MockArticleRepository, *MockSectionRepository, *MockReferenceRepository, *MockWidgetRepository) {
	articles := NewMockArticleRepository()
	sections := NewMockSectionRepository()
	refs := NewMockReferenceRepository()
	widgets := NewMockWidgetRepository()
	return &repository.Repositories{
		Article:   articles,
		Section:   sections,
		Reference: refs,
		Widget:    widgets,
	}, articles, sections, refs, widgets
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
