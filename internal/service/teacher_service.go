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

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	Create(ctx context.Context, tx *sqlx.Tx, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Delete(ctx context.Context, id string) error
}

// CreateTeacherRequest holds payload for creating teachers.
type CreateTeacherRequest struct {
	TeacherNo string `json:"teacher_no" validate:"required,max=32"`
	Name      string `json:"name" validate:"required,max=128"`
	Dept      string `json:"dept" validate:"max=128"`
	Title     string `json:"title" validate:"max=64"`
	Password  string `json:"password" validate:"omitempty,min=6"`
}

// UpdateTeacherRequest holds a partial teacher update.
type UpdateTeacherRequest struct {
	TeacherNo *string `json:"teacher_no" validate:"omitempty,min=1,max=32"`
	Name      *string `json:"name" validate:"omitempty,min=1,max=128"`
	Dept      *string `json:"dept" validate:"omitempty,max=128"`
	Title     *string `json:"title" validate:"omitempty,max=64"`
}

// TeacherService handles teacher records and their login accounts.
type TeacherService struct {
	tx              txProvider
	repo            teacherRepository
	accounts        accountWriter
	defaultPassword string
	validator       *validator.Validate
	logger          *zap.Logger
}

// NewTeacherService constructs the teacher service.
func NewTeacherService(tx txProvider, repo teacherRepository, accounts accountWriter, defaultPassword string, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{tx: tx, repo: repo, accounts: accounts, defaultPassword: defaultPassword, validator: validate, logger: logger}
}

// List returns teachers and pagination metadata.
func (s *TeacherService) List(ctx context.Context, actor *models.Identity, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	if err := Authorize(actor, models.RoleAdmin); err != nil {
		return nil, nil, err
	}
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list teachers")
	}
	page, size := filter.Normalize()
	return teachers, models.NewPagination(page, size, total), nil
}

// Create registers a teacher together with a teacher login account.
func (s *TeacherService) Create(ctx context.Context, actor *models.Identity, req CreateTeacherRequest) (result *models.Teacher, err error) {
	if err := Authorize(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	req.TeacherNo = strings.TrimSpace(req.TeacherNo)
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
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

	teacher := &models.Teacher{
		TeacherNo: req.TeacherNo,
		Name:      req.Name,
		Dept:      strings.TrimSpace(req.Dept),
		Title:     strings.TrimSpace(req.Title),
	}
	if err = s.repo.Create(ctx, tx, teacher); err != nil {
		return nil, numberWriteError(err, "teacher", "failed to create teacher")
	}
	account := &models.User{Username: teacher.TeacherNo, PasswordHash: hash, Role: models.RoleTeacher, TeacherID: &teacher.ID}
	if err = s.accounts.CreateTx(ctx, tx, account); err != nil {
		return nil, numberWriteError(err, "teacher", "failed to create teacher account")
	}
	if err = tx.Commit(); err != nil {
		return nil, internalError(err, "failed to commit teacher")
	}
	s.logger.Info("teacher created", zap.String("teacher_id", teacher.ID), zap.String("teacher_no", teacher.TeacherNo))
	return teacher, nil
}

// Update applies a partial update to a teacher.
func (s *TeacherService) Update(ctx context.Context, actor *models.Identity, id string, req UpdateTeacherRequest) (*models.Teacher, error) {
	if err := Authorize(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "teacher not found", "failed to load teacher")
	}
	if req.TeacherNo != nil {
		teacher.TeacherNo = strings.TrimSpace(*req.TeacherNo)
	}
	if req.Name != nil {
		teacher.Name = strings.TrimSpace(*req.Name)
	}
	if req.Dept != nil {
		teacher.Dept = strings.TrimSpace(*req.Dept)
	}
	if req.Title != nil {
		teacher.Title = strings.TrimSpace(*req.Title)
	}
	if teacher.TeacherNo == "" || teacher.Name == "" {
		return nil, validationError("teacher_no and name must not be blank")
	}
	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, numberWriteError(err, "teacher", "failed to update teacher")
	}
	return teacher, nil
}

// Delete removes a teacher who no longer teaches any section.
func (s *TeacherService) Delete(ctx context.Context, actor *models.Identity, id string) error {
	if err := Authorize(actor, models.RoleAdmin); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if _, ok := database.ForeignKeyViolation(err); ok {
			return appErrors.Clone(appErrors.ErrConflict, "teacher still has sections")
		}
		return lookupError(err, "teacher not found", "failed to delete teacher")
	}
	s.logger.Info("teacher deleted", zap.String("teacher_id", id), zap.String("actor", actor.UserID))
	return nil
}
