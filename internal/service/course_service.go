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

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

// CreateCourseRequest holds payload for creating courses.
type CreateCourseRequest struct {
	Code    string `json:"code" validate:"required,max=32"`
	Name    string `json:"name" validate:"required,max=128"`
	Credits *int   `json:"credits" validate:"omitempty,min=0"`
}

// UpdateCourseRequest holds a partial course update.
type UpdateCourseRequest struct {
	Code    *string `json:"code" validate:"omitempty,min=1,max=32"`
	Name    *string `json:"name" validate:"omitempty,min=1,max=128"`
	Credits *int    `json:"credits" validate:"omitempty,min=0"`
}

// CourseService handles course catalog administration.
type CourseService struct {
	repo      courseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs the course service.
func NewCourseService(repo courseRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, validator: validate, logger: logger}
}

// List returns courses and pagination metadata.
func (s *CourseService) List(ctx context.Context, actor *models.Identity, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	if err := Authorize(actor, models.RoleAdmin); err != nil {
		return nil, nil, err
	}
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list courses")
	}
	page, size := filter.Normalize()
	return courses, models.NewPagination(page, size, total), nil
}

// Create registers a new course.
func (s *CourseService) Create(ctx context.Context, actor *models.Identity, req CreateCourseRequest) (*models.Course, error) {
	if err := Authorize(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	req.Code = strings.TrimSpace(req.Code)
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course := &models.Course{Code: req.Code, Name: req.Name, Credits: models.DefaultCourseCredits}
	if req.Credits != nil {
		course.Credits = *req.Credits
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, courseWriteError(err, "failed to create course")
	}
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("code", course.Code))
	return course, nil
}

// Update applies a partial update to a course.
func (s *CourseService) Update(ctx context.Context, actor *models.Identity, id string, req UpdateCourseRequest) (*models.Course, error) {
	if err := Authorize(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "course not found", "failed to load course")
	}
	if req.Code != nil {
		course.Code = strings.TrimSpace(*req.Code)
	}
	if req.Name != nil {
		course.Name = strings.TrimSpace(*req.Name)
	}
	if req.Credits != nil {
		course.Credits = *req.Credits
	}
	if course.Code == "" || course.Name == "" {
		return nil, validationError("code and name must not be blank")
	}
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, courseWriteError(err, "failed to update course")
	}
	return course, nil
}

// Delete removes a course that no section references.
func (s *CourseService) Delete(ctx context.Context, actor *models.Identity, id string) error {
	if err := Authorize(actor, models.RoleAdmin); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if _, ok := database.ForeignKeyViolation(err); ok {
			return appErrors.Clone(appErrors.ErrConflict, "course still has sections")
		}
		return lookupError(err, "course not found", "failed to delete course")
	}
	s.logger.Info("course deleted", zap.String("course_id", id), zap.String("actor", actor.UserID))
	return nil
}

func courseWriteError(err error, failed string) error {
	if _, ok := database.UniqueViolation(err); ok {
		return appErrors.Clone(appErrors.ErrDuplicateCode, "course code must be unique")
	}
	return lookupError(err, "course not found", failed)
}
