package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/course-registrar/internal/models"
	"github.com/noah-isme/course-registrar/pkg/database"
	appErrors "github.com/noah-isme/course-registrar/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, tx *sqlx.Tx, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

type accountWriter interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, user *models.User) error
}

// CreateStudentRequest holds payload for creating students. The login
// account uses the student number as username.
type CreateStudentRequest struct {
	StudentNo  string `json:"student_no" validate:"required,max=32"`
	Name       string `json:"name" validate:"required,max=128"`
	Major      string `json:"major" validate:"max=128"`
	GradeYear  *int   `json:"grade_year" validate:"omitempty,min=1"`
	EnrollYear *int   `json:"enroll_year" validate:"omitempty,min=1900"`
	Password   string `json:"password" validate:"omitempty,min=6"`
}

// UpdateStudentRequest holds a partial student update. The login username
// is not changed.
type UpdateStudentRequest struct {
	StudentNo  *string `json:"student_no" validate:"omitempty,min=1,max=32"`
	Name       *string `json:"name" validate:"omitempty,min=1,max=128"`
	Major      *string `json:"major" validate:"omitempty,max=128"`
	GradeYear  *int    `json:"grade_year" validate:"omitempty,min=1"`
	EnrollYear *int    `json:"enroll_year" validate:"omitempty,min=1900"`
}

// StudentService handles student records and their login accounts.
type StudentService struct {
	tx              txProvider
	repo            studentRepository
	accounts        accountWriter
	cache           *CacheService
	defaultPassword string
	validator       *validator.Validate
	logger          *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(tx txProvider, repo studentRepository, accounts accountWriter, cache *CacheService, defaultPassword string, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{tx: tx, repo: repo, accounts: accounts, cache: cache, defaultPassword: defaultPassword, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, actor *models.Identity, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	if err := Authorize(actor, models.RoleAdmin); err != nil {
		return nil, nil, err
	}
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list students")
	}
	page, size := filter.Normalize()
	return students, models.NewPagination(page, size, total), nil
}

// Create registers a student together with a student login account.
func (s *StudentService) Create(ctx context.Context, actor *models.Identity, req CreateStudentRequest) (result *models.Student, err error) {
	if err := Authorize(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	req.StudentNo = strings.TrimSpace(req.StudentNo)
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	password := req.Password
	if password == "" {
		password = s.defaultPassword
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, internalError(err, "failed to hash password")
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

	student := &models.Student{
		StudentNo:  req.StudentNo,
		Name:       req.Name,
		Major:      strings.TrimSpace(req.Major),
		GradeYear:  req.GradeYear,
		EnrollYear: req.EnrollYear,
	}
	if err = s.repo.Create(ctx, tx, student); err != nil {
		return nil, numberWriteError(err, "student", "failed to create student")
	}
	account := &models.User{Username: student.StudentNo, PasswordHash: hash, Role: models.RoleStudent, StudentID: &student.ID}
	if err = s.accounts.CreateTx(ctx, tx, account); err != nil {
		return nil, numberWriteError(err, "student", "failed to create student account")
	}
	if err = tx.Commit(); err != nil {
		return nil, internalError(err, "failed to commit student")
	}
	s.logger.Info("student created", zap.String("student_id", student.ID), zap.String("student_no", student.StudentNo))
	return student, nil
}

// Update applies a partial update to a student.
func (s *StudentService) Update(ctx context.Context, actor *models.Identity, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := Authorize(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}
	if req.StudentNo != nil {
		student.StudentNo = strings.TrimSpace(*req.StudentNo)
	}
	if req.Name != nil {
		student.Name = strings.TrimSpace(*req.Name)
	}
	if req.Major != nil {
		student.Major = strings.TrimSpace(*req.Major)
	}
	if req.GradeYear != nil {
		student.GradeYear = req.GradeYear
	}
	if req.EnrollYear != nil {
		student.EnrollYear = req.EnrollYear
	}
	if student.StudentNo == "" || student.Name == "" {
		return nil, validationError("student_no and name must not be blank")
	}
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, numberWriteError(err, "student", "failed to update student")
	}
	return student, nil
}

// Delete removes a student; enrollments, grades and the login account cascade.
func (s *StudentService) Delete(ctx context.Context, actor *models.Identity, id string) error {
	if err := Authorize(actor, models.RoleAdmin); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "student not found", "failed to delete student")
	}
	s.cache.InvalidateCatalog(ctx)
	s.logger.Info("student deleted", zap.String("student_id", id), zap.String("actor", actor.UserID))
	return nil
}

// numberWriteError maps unique violations on a record number or its login
// username to DuplicateNumber.
func numberWriteError(err error, kind, failed string) error {
	if _, ok := database.UniqueViolation(err); ok {
		return appErrors.Clone(appErrors.ErrDuplicateNumber, kind+" number must be unique")
	}
	return lookupError(err, kind+" not found", failed)
}
