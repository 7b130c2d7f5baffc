package service

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/course-registrar/internal/models"
	"github.com/noah-isme/course-registrar/pkg/database"
	appErrors "github.com/noah-isme/course-registrar/pkg/errors"
)

type enrollmentRepository interface {
	CountBySection(ctx context.Context, tx *sqlx.Tx, sectionID string) (int, error)
	ScheduledTimeslots(ctx context.Context, tx *sqlx.Tx, studentID, term, excludeSectionID string) ([]models.ScheduledTimeslot, error)
	Exists(ctx context.Context, tx *sqlx.Tx, studentID, sectionID string) (bool, error)
	Create(ctx context.Context, tx *sqlx.Tx, enrollment *models.Enrollment) error
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	Timetable(ctx context.Context, studentID, term string) ([]models.TimetableEntry, error)
	Delete(ctx context.Context, tx *sqlx.Tx, id string) error
}

type sectionLocker interface {
	GetForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.Section, error)
}

type studentLocker interface {
	LockByID(ctx context.Context, tx *sqlx.Tx, id string) error
}

type sectionTimeslotReader interface {
	ListBySectionTx(ctx context.Context, tx *sqlx.Tx, sectionID string) ([]models.Timeslot, error)
}

// EnrollRequest asks to place a student in a section. Students enroll
// themselves; admins must name the student.
type EnrollRequest struct {
	SectionID string `json:"section_id" validate:"required"`
	StudentID string `json:"student_id,omitempty"`
}

// EnrollmentService runs the enroll and drop workflows and the student's own views.
type EnrollmentService struct {
	tx          txProvider
	enrollments enrollmentRepository
	sections    sectionLocker
	students    studentLocker
	timeslots   sectionTimeslotReader
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(
	tx txProvider,
	enrollments enrollmentRepository,
	sections sectionLocker,
	students studentLocker,
	timeslots sectionTimeslotReader,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		tx:          tx,
		enrollments: enrollments,
		sections:    sections,
		students:    students,
		timeslots:   timeslots,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// Enroll places a student in a section. Capacity, schedule conflict and
// duplicate checks run in one transaction holding the section and student row
// locks, so concurrent requests are decided one at a time.
func (s *EnrollmentService) Enroll(ctx context.Context, actor *models.Identity, req EnrollRequest) (*models.EnrollmentDetail, error) {
	start := time.Now()
	detail, err := s.enroll(ctx, actor, req)
	s.metrics.RecordEnrollment("enroll", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	s.cache.InvalidateCatalog(ctx)
	s.logger.Info("student enrolled",
		zap.String("enrollment_id", detail.ID),
		zap.String("student_id", detail.StudentID),
		zap.String("section_id", detail.SectionID),
		zap.String("actor", actor.UserID),
	)
	return detail, nil
}

func (s *EnrollmentService) enroll(ctx context.Context, actor *models.Identity, req EnrollRequest) (result *models.EnrollmentDetail, err error) {
	if err := Authorize(actor, models.RoleStudent, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "section_id is required")
	}
	studentID, err := s.enrollee(actor, req.StudentID)
	if err != nil {
		return nil, err
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, internalError(err, "failed to start transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	section, err := s.sections.GetForUpdate(ctx, tx, req.SectionID)
	if err != nil {
		return nil, lookupError(err, "section not found", "failed to load section")
	}
	if err = s.students.LockByID(ctx, tx, studentID); err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}

	count, err := s.enrollments.CountBySection(ctx, tx, section.ID)
	if err != nil {
		return nil, internalError(err, "failed to count enrollments")
	}
	if count >= section.Capacity {
		return nil, appErrors.Clone(appErrors.ErrSectionFull, "section is full")
	}

	candidate, err := s.timeslots.ListBySectionTx(ctx, tx, section.ID)
	if err != nil {
		return nil, internalError(err, "failed to load section timeslots")
	}
	existing, err := s.enrollments.ScheduledTimeslots(ctx, tx, studentID, section.Term, section.ID)
	if err != nil {
		return nil, internalError(err, "failed to load student schedule")
	}
	if conflict := FindScheduleConflict(existing, candidate); conflict != nil {
		return nil, appErrors.WithDetails(appErrors.ErrScheduleConflict, conflict.Message(), conflict)
	}

	exists, err := s.enrollments.Exists(ctx, tx, studentID, section.ID)
	if err != nil {
		return nil, internalError(err, "failed to check enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, "already enrolled in this section")
	}

	enrollment := &models.Enrollment{StudentID: studentID, SectionID: section.ID, Status: models.EnrollmentStatusEnrolled}
	if err = s.enrollments.Create(ctx, tx, enrollment); err != nil {
		if _, ok := database.UniqueViolation(err); ok {
			return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, "already enrolled in this section")
		}
		return nil, internalError(err, "failed to create enrollment")
	}
	if err = tx.Commit(); err != nil {
		return nil, internalError(err, "failed to commit enrollment")
	}

	detail, lookupErr := s.enrollments.FindDetailByID(ctx, enrollment.ID)
	if lookupErr != nil {
		return nil, internalError(lookupErr, "failed to load enrollment detail")
	}
	return detail, nil
}

// enrollee resolves whose enrollment the actor is asking for.
func (s *EnrollmentService) enrollee(actor *models.Identity, requested string) (string, error) {
	if actor.Role == models.RoleAdmin {
		if requested == "" {
			return "", validationError("student_id is required")
		}
		return requested, nil
	}
	own, err := studentOf(actor)
	if err != nil {
		return "", err
	}
	if requested != "" && requested != own {
		return "", appErrors.Clone(appErrors.ErrForbidden, "students may only enroll themselves")
	}
	return own, nil
}

// Drop removes an enrollment. Students may drop only their own enrollments;
// grades recorded for it are removed with it.
func (s *EnrollmentService) Drop(ctx context.Context, actor *models.Identity, enrollmentID string) error {
	err := s.drop(ctx, actor, enrollmentID)
	s.metrics.RecordEnrollment("drop", err, 0)
	if err != nil {
		return err
	}
	s.cache.InvalidateCatalog(ctx)
	s.logger.Info("enrollment dropped", zap.String("enrollment_id", enrollmentID), zap.String("actor", actor.UserID))
	return nil
}

func (s *EnrollmentService) drop(ctx context.Context, actor *models.Identity, enrollmentID string) (err error) {
	if err := Authorize(actor, models.RoleStudent, models.RoleAdmin); err != nil {
		return err
	}
	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		return lookupError(err, "enrollment not found", "failed to load enrollment")
	}
	if actor.Role == models.RoleStudent && enrollment.StudentID != actor.StudentID {
		return appErrors.Clone(appErrors.ErrForbidden, "enrollment belongs to another student")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return internalError(err, "failed to start transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.enrollments.Delete(ctx, tx, enrollment.ID); err != nil {
		return lookupError(err, "enrollment not found", "failed to delete enrollment")
	}
	if err = tx.Commit(); err != nil {
		return internalError(err, "failed to commit drop")
	}
	return nil
}

// MyEnrollments lists the caller's enrollments with course and teacher details.
func (s *EnrollmentService) MyEnrollments(ctx context.Context, actor *models.Identity) ([]models.EnrollmentDetail, error) {
	if err := Authorize(actor, models.RoleStudent); err != nil {
		return nil, err
	}
	studentID, err := studentOf(actor)
	if err != nil {
		return nil, err
	}
	items, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, internalError(err, "failed to list enrollments")
	}
	return items, nil
}

// MyTimetable returns seven weekday buckets, Monday first, each ordered by
// start time. An empty term covers every term.
func (s *EnrollmentService) MyTimetable(ctx context.Context, actor *models.Identity, term string) ([]models.TimetableDay, error) {
	if err := Authorize(actor, models.RoleStudent); err != nil {
		return nil, err
	}
	studentID, err := studentOf(actor)
	if err != nil {
		return nil, err
	}
	entries, err := s.enrollments.Timetable(ctx, studentID, term)
	if err != nil {
		return nil, internalError(err, "failed to load timetable")
	}
	return buildTimetable(entries), nil
}

func buildTimetable(entries []models.TimetableEntry) []models.TimetableDay {
	days := make([]models.TimetableDay, 7)
	for i := range days {
		days[i] = models.TimetableDay{Weekday: i + 1, Entries: []models.TimetableEntry{}}
	}
	for _, entry := range entries {
		if entry.Weekday < 1 || entry.Weekday > 7 {
			continue
		}
		days[entry.Weekday-1].Entries = append(days[entry.Weekday-1].Entries, entry)
	}
	for i := range days {
		sort.SliceStable(days[i].Entries, func(a, b int) bool {
			return days[i].Entries[a].StartTime < days[i].Entries[b].StartTime
		})
	}
	return days
}
