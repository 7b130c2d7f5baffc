package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-registrar/internal/models"
)

var teacherSorts = sortSpec{
	columns: map[string]string{
		"teacher_no": "teacher_no",
		"name":       "name",
		"dept":       "dept",
		"title":      "title",
	},
	defaultKey:   "teacher_no",
	defaultOrder: "asc",
	tieBreaker:   "id",
}

const teacherColumns = `id, teacher_no, name, dept, title, created_at, updated_at`

// TeacherRepository persists teacher records.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository returns a new repository instance.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// List returns teachers matching the filter together with the total count.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	base := "FROM teachers WHERE 1=1"
	var args []interface{}
	if filter.Search != "" {
		args = append(args, likePattern(filter.Search))
		n := len(args)
		base += fmt.Sprintf(" AND (LOWER(teacher_no) LIKE $%d OR LOWER(name) LIKE $%d OR LOWER(dept) LIKE $%d)", n, n, n)
	}

	limit, _, _ := pageClause(filter.ListFilter)
	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s", teacherColumns, base, teacherSorts.orderBy(filter.SortBy, filter.SortOrder), limit)

	teachers := []models.Teacher{}
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}
	return teachers, total, nil
}

// FindByID fetches a teacher by ID.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, "SELECT "+teacherColumns+" FROM teachers WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// Create inserts a teacher inside tx.
func (r *TeacherRepository) Create(ctx context.Context, tx *sqlx.Tx, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now
	const query = `INSERT INTO teachers (id, teacher_no, name, dept, title, created_at, updated_at)
        VALUES (:id, :teacher_no, :name, :dept, :title, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}

// Update modifies an existing teacher.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	teacher.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teachers SET teacher_no = :teacher_no, name = :name, dept = :dept, title = :title, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, teacher)
	if err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	return expectAffected(res)
}

// Delete removes a teacher. Sections still taught by the teacher block the delete.
func (r *TeacherRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM teachers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}
	return expectAffected(res)
}
