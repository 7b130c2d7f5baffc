package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-registrar/internal/middleware"
	"github.com/noah-isme/course-registrar/internal/models"
	"github.com/noah-isme/course-registrar/internal/service"
	appErrors "github.com/noah-isme/course-registrar/pkg/errors"
)

type sectionServiceMock struct {
	lastFilter  models.SectionFilter
	catalog     *models.CatalogPage
	cacheHit    bool
	timeslotReq service.CreateTimeslotRequest
	timeslotErr error
}

func (m *sectionServiceMock) List(ctx context.Context, actor *models.Identity, filter models.SectionFilter) ([]models.SectionDetail, *models.Pagination, error) {
	m.lastFilter = filter
	return []models.SectionDetail{}, models.NewPagination(1, 10, 0), nil
}

func (m *sectionServiceMock) TeachingSections(ctx context.Context, actor *models.Identity, filter models.SectionFilter) ([]models.SectionDetail, *models.Pagination, error) {
	m.lastFilter = filter
	return []models.SectionDetail{}, models.NewPagination(1, 10, 0), nil
}

func (m *sectionServiceMock) Catalog(ctx context.Context, actor *models.Identity, filter models.SectionFilter) (*models.CatalogPage, bool, error) {
	m.lastFilter = filter
	return m.catalog, m.cacheHit, nil
}

func (m *sectionServiceMock) Get(ctx context.Context, actor *models.Identity, id string) (*models.SectionDetail, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
}

func (m *sectionServiceMock) Create(ctx context.Context, actor *models.Identity, req service.CreateSectionRequest) (*models.SectionDetail, error) {
	return &models.SectionDetail{}, nil
}

func (m *sectionServiceMock) Delete(ctx context.Context, actor *models.Identity, id string) error {
	return nil
}

func (m *sectionServiceMock) AddTimeslot(ctx context.Context, actor *models.Identity, sectionID string, req service.CreateTimeslotRequest) (*models.Timeslot, error) {
	m.timeslotReq = req
	if m.timeslotErr != nil {
		return nil, m.timeslotErr
	}
	return &models.Timeslot{ID: "ts-1", SectionID: sectionID, Weekday: req.Weekday}, nil
}

func (m *sectionServiceMock) DeleteTimeslot(ctx context.Context, actor *models.Identity, id string) error {
	return nil
}

func TestSectionHandlerListParsesListingQuery(t *testing.T) {
	mockSvc := &sectionServiceMock{}
	handler := NewSectionHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/sections?q=%20algo%20&term=2025S&sort=cap&order=desc&page=3&per_page=25", nil, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "algo", mockSvc.lastFilter.Search)
	assert.Equal(t, "2025S", mockSvc.lastFilter.Term)
	assert.Equal(t, "cap", mockSvc.lastFilter.SortBy)
	assert.Equal(t, "desc", mockSvc.lastFilter.SortOrder)
	assert.Equal(t, 3, mockSvc.lastFilter.Page)
	assert.Equal(t, 25, mockSvc.lastFilter.PageSize)
}

func TestSectionHandlerListIgnoresBadNumbers(t *testing.T) {
	mockSvc := &sectionServiceMock{}
	handler := NewSectionHandler(mockSvc)

	c, _ := newTestContext(http.MethodGet, "/sections?page=abc&per_page=xyz", nil, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})
	handler.List(c)

	assert.Equal(t, 0, mockSvc.lastFilter.Page)
	assert.Equal(t, 0, mockSvc.lastFilter.PageSize)
}

func TestSectionHandlerCatalogReportsCacheHit(t *testing.T) {
	mockSvc := &sectionServiceMock{
		catalog: &models.CatalogPage{
			Items:       []models.SectionDetail{{Section: models.Section{ID: "sec-1", Capacity: 30}, EnrolledCount: 12}},
			Pagination:  *models.NewPagination(1, 10, 1),
			EnrolledIDs: []string{"sec-1"},
		},
		cacheHit: true,
	}
	handler := NewSectionHandler(mockSvc)

	c, w := newTestContext(http.MethodGet, "/catalog/sections?term=2025S", nil, studentClaims())
	handler.Catalog(c)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeEnvelope(t, w)
	meta := body["meta"].(map[string]interface{})
	assert.Equal(t, true, meta["cache_hit"])
	pagination := body["pagination"].(map[string]interface{})
	assert.Equal(t, float64(1), pagination["total_pages"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, []interface{}{"sec-1"}, data["enrolled_section_ids"])
	assert.Equal(t, true, middleware.ExtractMeta(c)["cache_hit"])
}

func TestSectionHandlerGetNotFound(t *testing.T) {
	handler := NewSectionHandler(&sectionServiceMock{})

	c, w := newTestContext(http.MethodGet, "/sections/missing", nil, studentClaims())
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	handler.Get(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSectionHandlerAddTimeslot(t *testing.T) {
	mockSvc := &sectionServiceMock{}
	handler := NewSectionHandler(mockSvc)

	c, w := newTestContext(http.MethodPost, "/sections/sec-1/timeslots", []byte(`{"weekday":3,"start_time":"09:00","end_time":"10:30","room":"B201"}`), &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})
	c.Params = gin.Params{{Key: "id", Value: "sec-1"}}
	handler.AddTimeslot(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 3, mockSvc.timeslotReq.Weekday)
	assert.Equal(t, "09:00", mockSvc.timeslotReq.StartTime)
	assert.Equal(t, "B201", mockSvc.timeslotReq.Room)
}
