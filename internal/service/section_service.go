package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/course-registrar/internal/models"
	"github.com/noah-isme/course-registrar/pkg/database"
	appErrors "github.com/noah-isme/course-registrar/pkg/errors"
)

type sectionRepository interface {
	List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Section, error)
	FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error)
	Create(ctx context.Context, section *models.Section) error
	Delete(ctx context.Context, id string) error
}

type timeslotRepository interface {
	ListBySection(ctx context.Context, sectionID string) ([]models.Timeslot, error)
	ListBySections(ctx context.Context, sectionIDs []string) (map[string][]models.Timeslot, error)
	Create(ctx context.Context, slot *models.Timeslot) error
	Delete(ctx context.Context, id string) error
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type teacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type enrolledSectionReader interface {
	EnrolledSectionIDs(ctx context.Context, studentID string, sectionIDs []string) ([]string, error)
}

var catalogSortKeys = map[string]bool{"course": true, "teacher": true, "cap": true}

// CreateSectionRequest holds payload for opening a section.
type CreateSectionRequest struct {
	CourseID  string `json:"course_id" validate:"required"`
	TeacherID string `json:"teacher_id" validate:"required"`
	Term      string `json:"term" validate:"required,max=32"`
	Capacity  *int   `json:"capacity"`
}

// CreateTimeslotRequest holds a weekly meeting in "HH:MM" form.
type CreateTimeslotRequest struct {
	Weekday   int    `json:"weekday" validate:"required,min=1,max=7"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Room      string `json:"room" validate:"max=64"`
}

// SectionService manages sections, their timeslots and the student catalog.
type SectionService struct {
	sections    sectionRepository
	timeslots   timeslotRepository
	courses     courseReader
	teachers    teacherReader
	enrollments enrolledSectionReader
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewSectionService constructs SectionService.
func NewSectionService(
	sections sectionRepository,
	timeslots timeslotRepository,
	courses courseReader,
	teachers teacherReader,
	enrollments enrolledSectionReader,
	cache *CacheService,
	validate *validator.Validate,
	logger *zap.Logger,
) *SectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SectionService{
		sections:    sections,
		timeslots:   timeslots,
		courses:     courses,
		teachers:    teachers,
		enrollments: enrollments,
		cache:       cache,
		validator:   validate,
		logger:      logger,
	}
}

// List is the admin section listing, newest term first by default.
func (s *SectionService) List(ctx context.Context, actor *models.Identity, filter models.SectionFilter) ([]models.SectionDetail, *models.Pagination, error) {
	if err := Authorize(actor, models.RoleAdmin); err != nil {
		return nil, nil, err
	}
	return s.list(ctx, filter)
}

// TeachingSections lists the sections taught by the calling teacher.
func (s *SectionService) TeachingSections(ctx context.Context, actor *models.Identity, filter models.SectionFilter) ([]models.SectionDetail, *models.Pagination, error) {
	if err := Authorize(actor, models.RoleTeacher); err != nil {
		return nil, nil, err
	}
	if actor.TeacherID == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "account is not linked to a teacher")
	}
	filter.TeacherID = actor.TeacherID
	return s.list(ctx, filter)
}

func (s *SectionService) list(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, *models.Pagination, error) {
	page, size := filter.Normalize()
	items, total, err := s.sections.List(ctx, filter)
	if err != nil {
		// a teacher_id that is not a UUID matches no section
		if database.InvalidTextRepresentation(err) {
			return []models.SectionDetail{}, models.NewPagination(page, size, 0), nil
		}
		return nil, nil, internalError(err, "failed to list sections")
	}
	if err := s.attachTimeslots(ctx, items); err != nil {
		return nil, nil, err
	}
	return items, models.NewPagination(page, size, total), nil
}

// Catalog is the student-facing section listing, sorted by course name unless
// asked otherwise. Pages are served from cache when enabled; the caller's
// enrolled section ids are always read fresh.
func (s *SectionService) Catalog(ctx context.Context, actor *models.Identity, filter models.SectionFilter) (*models.CatalogPage, bool, error) {
	if err := Authorize(actor, models.RoleStudent); err != nil {
		return nil, false, err
	}
	studentID, err := studentOf(actor)
	if err != nil {
		return nil, false, err
	}
	if !catalogSortKeys[filter.SortBy] {
		filter.SortBy = "course"
	}
	if filter.SortOrder == "" {
		filter.SortOrder = "asc"
	}
	filter.TeacherID = ""

	key := catalogCacheKey(filter)
	var page models.CatalogPage
	hit, _ := s.cache.Get(ctx, key, &page)
	if !hit {
		items, pagination, err := s.list(ctx, filter)
		if err != nil {
			return nil, false, err
		}
		page = models.CatalogPage{Items: items, Pagination: *pagination}
		_ = s.cache.Set(ctx, key, page, 0)
	}

	ids := make([]string, 0, len(page.Items))
	for _, item := range page.Items {
		ids = append(ids, item.ID)
	}
	page.EnrolledIDs = []string{}
	if len(ids) > 0 {
		enrolled, err := s.enrollments.EnrolledSectionIDs(ctx, studentID, ids)
		if err != nil {
			return nil, false, internalError(err, "failed to load enrolled sections")
		}
		page.EnrolledIDs = enrolled
	}
	return &page, hit, nil
}

// Get returns a section with its course, teacher, enrollment count and timeslots.
func (s *SectionService) Get(ctx context.Context, actor *models.Identity, id string) (*models.SectionDetail, error) {
	if err := Authorize(actor, models.RoleAdmin, models.RoleTeacher, models.RoleStudent); err != nil {
		return nil, err
	}
	detail, err := s.sections.FindDetailByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "section not found", "failed to load section")
	}
	slots, err := s.timeslots.ListBySection(ctx, id)
	if err != nil {
		return nil, internalError(err, "failed to load timeslots")
	}
	detail.Timeslots = slots
	return detail, nil
}

// Create opens a new section of an existing course taught by an existing teacher.
func (s *SectionService) Create(ctx context.Context, actor *models.Identity, req CreateSectionRequest) (*models.SectionDetail, error) {
	if err := Authorize(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	req.Term = strings.TrimSpace(req.Term)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "course, teacher and term are required")
	}
	capacity := models.DefaultSectionCapacity
	if req.Capacity != nil {
		capacity = *req.Capacity
	}
	if capacity <= 0 {
		return nil, validationError("capacity must be greater than 0")
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	if _, err := s.teachers.FindByID(ctx, req.TeacherID); err != nil {
		return nil, lookupError(err, "teacher not found", "failed to load teacher")
	}

	section := &models.Section{CourseID: req.CourseID, TeacherID: req.TeacherID, Term: req.Term, Capacity: capacity}
	if err := s.sections.Create(ctx, section); err != nil {
		if _, ok := database.ForeignKeyViolation(err); ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course or teacher no longer exists")
		}
		return nil, internalError(err, "failed to create section")
	}
	s.cache.InvalidateCatalog(ctx)
	s.logger.Info("section created", zap.String("section_id", section.ID), zap.String("term", section.Term))
	return s.Get(ctx, actor, section.ID)
}

// Delete removes a section; its timeslots, enrollments and assessments cascade.
func (s *SectionService) Delete(ctx context.Context, actor *models.Identity, id string) error {
	if err := Authorize(actor, models.RoleAdmin); err != nil {
		return err
	}
	if err := s.sections.Delete(ctx, id); err != nil {
		return lookupError(err, "section not found", "failed to delete section")
	}
	s.cache.InvalidateCatalog(ctx)
	s.logger.Info("section deleted", zap.String("section_id", id), zap.String("actor", actor.UserID))
	return nil
}

// AddTimeslot attaches a weekly meeting to a section.
func (s *SectionService) AddTimeslot(ctx context.Context, actor *models.Identity, sectionID string, req CreateTimeslotRequest) (*models.Timeslot, error) {
	if err := Authorize(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "weekday must be 1-7 and times are required")
	}
	start, err := models.ParseClockTime(req.StartTime)
	if err != nil {
		return nil, validationError("start_time must be HH:MM")
	}
	end, err := models.ParseClockTime(req.EndTime)
	if err != nil {
		return nil, validationError("end_time must be HH:MM")
	}
	if start >= end {
		return nil, validationError("start_time must be before end_time")
	}
	if _, err := s.sections.FindByID(ctx, sectionID); err != nil {
		return nil, lookupError(err, "section not found", "failed to load section")
	}

	slot := &models.Timeslot{SectionID: sectionID, Weekday: req.Weekday, StartTime: start, EndTime: end, Room: strings.TrimSpace(req.Room)}
	if err := s.timeslots.Create(ctx, slot); err != nil {
		return nil, internalError(err, "failed to create timeslot")
	}
	s.cache.InvalidateCatalog(ctx)
	return slot, nil
}

// DeleteTimeslot removes a weekly meeting.
func (s *SectionService) DeleteTimeslot(ctx context.Context, actor *models.Identity, id string) error {
	if err := Authorize(actor, models.RoleAdmin); err != nil {
		return err
	}
	if err := s.timeslots.Delete(ctx, id); err != nil {
		return lookupError(err, "timeslot not found", "failed to delete timeslot")
	}
	s.cache.InvalidateCatalog(ctx)
	return nil
}

func (s *SectionService) attachTimeslots(ctx context.Context, items []models.SectionDetail) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	grouped, err := s.timeslots.ListBySections(ctx, ids)
	if err != nil {
		return internalError(err, "failed to load timeslots")
	}
	for i := range items {
		items[i].Timeslots = grouped[items[i].ID]
		if items[i].Timeslots == nil {
			items[i].Timeslots = []models.Timeslot{}
		}
	}
	return nil
}
