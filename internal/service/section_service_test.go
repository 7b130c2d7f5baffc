package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-registrar/internal/models"
	appErrors "github.com/noah-isme/course-registrar/pkg/errors"
)

type sectionCatalogStore struct {
	sections   map[string]models.SectionDetail
	timeslots  map[string][]models.Timeslot
	enrolled   map[string][]string
	lastFilter models.SectionFilter
	listCalls  int
	seq        int
}

func newSectionCatalogStore() *sectionCatalogStore {
	return &sectionCatalogStore{
		sections:  map[string]models.SectionDetail{},
		timeslots: map[string][]models.Timeslot{},
		enrolled:  map[string][]string{},
	}
}

func (s *sectionCatalogStore) List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, int, error) {
	s.listCalls++
	s.lastFilter = filter
	if filter.TeacherID == malformedID {
		return nil, 0, invalidUUIDError()
	}
	var out []models.SectionDetail
	for _, d := range s.sections {
		if filter.TeacherID != "" && d.TeacherID != filter.TeacherID {
			continue
		}
		out = append(out, d)
	}
	return out, len(out), nil
}

func (s *sectionCatalogStore) FindByID(ctx context.Context, id string) (*models.Section, error) {
	d, ok := s.sections[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &d.Section, nil
}

func (s *sectionCatalogStore) FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	d, ok := s.sections[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &d, nil
}

func (s *sectionCatalogStore) Create(ctx context.Context, section *models.Section) error {
	s.seq++
	section.ID = fmt.Sprintf("sec-%d", s.seq)
	s.sections[section.ID] = models.SectionDetail{Section: *section}
	return nil
}

func (s *sectionCatalogStore) Delete(ctx context.Context, id string) error {
	if _, ok := s.sections[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.sections, id)
	return nil
}

type fakeTimeslotRepo struct{ *sectionCatalogStore }

func (r fakeTimeslotRepo) ListBySection(ctx context.Context, sectionID string) ([]models.Timeslot, error) {
	return r.timeslots[sectionID], nil
}

func (r fakeTimeslotRepo) ListBySections(ctx context.Context, sectionIDs []string) (map[string][]models.Timeslot, error) {
	out := map[string][]models.Timeslot{}
	for _, id := range sectionIDs {
		if slots, ok := r.timeslots[id]; ok {
			out[id] = slots
		}
	}
	return out, nil
}

func (r fakeTimeslotRepo) Create(ctx context.Context, slot *models.Timeslot) error {
	slot.ID = fmt.Sprintf("ts-%d", len(r.timeslots[slot.SectionID])+1)
	r.timeslots[slot.SectionID] = append(r.timeslots[slot.SectionID], *slot)
	return nil
}

func (r fakeTimeslotRepo) Delete(ctx context.Context, id string) error {
	return sql.ErrNoRows
}

func (s *sectionCatalogStore) EnrolledSectionIDs(ctx context.Context, studentID string, sectionIDs []string) ([]string, error) {
	return s.enrolled[studentID], nil
}

type stubCourseReader map[string]bool

func (r stubCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if !r[id] {
		return nil, sql.ErrNoRows
	}
	return &models.Course{ID: id}, nil
}

type stubTeacherReader map[string]bool

func (r stubTeacherReader) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if !r[id] {
		return nil, sql.ErrNoRows
	}
	return &models.Teacher{ID: id}, nil
}

func newSectionServiceFixture(store *sectionCatalogStore, cache *CacheService) *SectionService {
	return NewSectionService(store, fakeTimeslotRepo{store}, stubCourseReader{"c1": true}, stubTeacherReader{"t1": true}, store, cache, nil, nil)
}

func TestSectionCreateDefaultsAndValidation(t *testing.T) {
	store := newSectionCatalogStore()
	svc := newSectionServiceFixture(store, nil)
	ctx := context.Background()

	detail, err := svc.Create(ctx, adminActor, CreateSectionRequest{CourseID: "c1", TeacherID: "t1", Term: " 2025S "})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSectionCapacity, detail.Capacity)
	assert.Equal(t, "2025S", detail.Term)

	zero := 0
	_, err = svc.Create(ctx, adminActor, CreateSectionRequest{CourseID: "c1", TeacherID: "t1", Term: "2025S", Capacity: &zero})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))

	_, err = svc.Create(ctx, adminActor, CreateSectionRequest{CourseID: "c1", TeacherID: "t1"})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))

	_, err = svc.Create(ctx, adminActor, CreateSectionRequest{CourseID: "nope", TeacherID: "t1", Term: "2025S"})
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))

	_, err = svc.Create(ctx, adminActor, CreateSectionRequest{CourseID: "c1", TeacherID: "nope", Term: "2025S"})
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))

	_, err = svc.Create(ctx, teacherActor, CreateSectionRequest{CourseID: "c1", TeacherID: "t1", Term: "2025S"})
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(err))

	assert.Len(t, store.sections, 1)
}

func TestSectionAddTimeslotValidation(t *testing.T) {
	store := newSectionCatalogStore()
	store.sections["sec-1"] = models.SectionDetail{Section: models.Section{ID: "sec-1"}}
	svc := newSectionServiceFixture(store, nil)
	ctx := context.Background()

	slot, err := svc.AddTimeslot(ctx, adminActor, "sec-1", CreateTimeslotRequest{Weekday: 2, StartTime: "08:00", EndTime: "09:40", Room: "A101"})
	require.NoError(t, err)
	assert.Equal(t, models.MustClockTime("09:40"), slot.EndTime)

	cases := []CreateTimeslotRequest{
		{Weekday: 0, StartTime: "08:00", EndTime: "09:00"},
		{Weekday: 8, StartTime: "08:00", EndTime: "09:00"},
		{Weekday: 1, StartTime: "8am", EndTime: "09:00"},
		{Weekday: 1, StartTime: "09:00", EndTime: "09:00"},
		{Weekday: 1, StartTime: "10:00", EndTime: "09:00"},
	}
	for _, req := range cases {
		_, err := svc.AddTimeslot(ctx, adminActor, "sec-1", req)
		assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err), "%+v", req)
	}

	_, err = svc.AddTimeslot(ctx, adminActor, "missing", CreateTimeslotRequest{Weekday: 1, StartTime: "08:00", EndTime: "09:00"})
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))
	assert.Len(t, store.timeslots["sec-1"], 1)
}

func TestSectionCatalogUsesCacheAndFreshEnrollment(t *testing.T) {
	store := newSectionCatalogStore()
	store.sections["sec-1"] = models.SectionDetail{Section: models.Section{ID: "sec-1", Capacity: 30}, CourseName: "Algorithms"}
	store.timeslots["sec-1"] = []models.Timeslot{{ID: "ts-1", SectionID: "sec-1", Weekday: 1, StartTime: models.MustClockTime("09:00"), EndTime: models.MustClockTime("10:00")}}
	store.enrolled["stu-1"] = []string{"sec-1"}
	cache := NewCacheService(newMemoryCacheRepo(), nil, 0, nil, true)
	svc := newSectionServiceFixture(store, cache)
	ctx := context.Background()

	page, hit, err := svc.Catalog(ctx, studentActor("stu-1"), models.SectionFilter{ListFilter: models.ListFilter{SortBy: "term"}})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "course", store.lastFilter.SortBy)
	assert.Equal(t, "asc", store.lastFilter.SortOrder)
	require.Len(t, page.Items, 1)
	assert.Len(t, page.Items[0].Timeslots, 1)
	assert.Equal(t, []string{"sec-1"}, page.EnrolledIDs)
	assert.Equal(t, 1, page.Pagination.TotalPages)

	page, hit, err = svc.Catalog(ctx, studentActor("stu-2"), models.SectionFilter{ListFilter: models.ListFilter{SortBy: "bogus"}})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, store.listCalls)
	assert.Empty(t, page.EnrolledIDs)
	assert.Equal(t, models.MustClockTime("10:00"), page.Items[0].Timeslots[0].EndTime)

	_, err = svc.Create(ctx, adminActor, CreateSectionRequest{CourseID: "c1", TeacherID: "t1", Term: "2025S"})
	require.NoError(t, err)
	_, hit, err = svc.Catalog(ctx, studentActor("stu-1"), models.SectionFilter{})
	require.NoError(t, err)
	assert.False(t, hit, "writes invalidate cached catalog pages")

	_, _, err = svc.Catalog(ctx, adminActor, models.SectionFilter{})
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(err))
}

func TestTeachingSectionsScopesToCaller(t *testing.T) {
	store := newSectionCatalogStore()
	store.sections["sec-1"] = models.SectionDetail{Section: models.Section{ID: "sec-1", TeacherID: "t1"}}
	store.sections["sec-2"] = models.SectionDetail{Section: models.Section{ID: "sec-2", TeacherID: "t2"}}
	svc := newSectionServiceFixture(store, nil)

	items, pagination, err := svc.TeachingSections(context.Background(), teacherActor, models.SectionFilter{TeacherID: "t2"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "sec-1", items[0].ID)
	assert.Empty(t, items[0].Timeslots)
	assert.Equal(t, 1, pagination.TotalCount)

	_, _, err = svc.TeachingSections(context.Background(), &models.Identity{UserID: "u", Role: models.RoleTeacher}, models.SectionFilter{})
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(err))
}

func TestSectionListMalformedTeacherFilterIsEmpty(t *testing.T) {
	store := newSectionCatalogStore()
	store.sections["sec-1"] = models.SectionDetail{Section: models.Section{ID: "sec-1", TeacherID: "t1"}}
	svc := newSectionServiceFixture(store, nil)

	items, pagination, err := svc.List(context.Background(), adminActor, models.SectionFilter{TeacherID: malformedID})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 0, pagination.TotalCount)
	assert.Equal(t, 1, pagination.TotalPages)
}

func TestSectionDeleteAndGet(t *testing.T) {
	store := newSectionCatalogStore()
	store.sections["sec-1"] = models.SectionDetail{Section: models.Section{ID: "sec-1"}}
	svc := newSectionServiceFixture(store, nil)
	ctx := context.Background()

	detail, err := svc.Get(ctx, studentActor("stu-1"), "sec-1")
	require.NoError(t, err)
	assert.Equal(t, "sec-1", detail.ID)

	require.NoError(t, svc.Delete(ctx, adminActor, "sec-1"))
	err = svc.Delete(ctx, adminActor, "sec-1")
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))

	err = svc.DeleteTimeslot(ctx, adminActor, "ts-404")
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))
}

func TestCourseWriteErrorMapsUniqueViolation(t *testing.T) {
	err := courseWriteError(fmt.Errorf("create course: %w", &pq.Error{Code: "23505", Constraint: "courses_code_key"}), "failed")
	assert.Equal(t, appErrors.ErrDuplicateCode.Code, errorCode(err))
}
