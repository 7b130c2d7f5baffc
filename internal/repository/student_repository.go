package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-registrar/internal/models"
)

var studentSorts = sortSpec{
	columns: map[string]string{
		"student_no": "student_no",
		"name":       "name",
		"major":      "major",
		"year":       "grade_year",
		"enroll":     "enroll_year",
	},
	defaultKey:   "student_no",
	defaultOrder: "asc",
	tieBreaker:   "id",
}

const studentColumns = `id, student_no, name, major, grade_year, enroll_year, created_at, updated_at`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	base := "FROM students WHERE 1=1"
	var args []interface{}
	if filter.Search != "" {
		args = append(args, likePattern(filter.Search))
		n := len(args)
		base += fmt.Sprintf(" AND (LOWER(student_no) LIKE $%d OR LOWER(name) LIKE $%d OR LOWER(major) LIKE $%d)", n, n, n)
	}

	limit, _, _ := pageClause(filter.ListFilter)
	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s", studentColumns, base, studentSorts.orderBy(filter.SortBy, filter.SortOrder), limit)

	students := []models.Student{}
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	var student models.Student
	if err := r.db.GetContext(ctx, &student, "SELECT "+studentColumns+" FROM students WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &student, nil
}

// LockByID locks the student row until tx ends so one student's concurrent
// enrollments are checked one at a time.
func (r *StudentRepository) LockByID(ctx context.Context, tx *sqlx.Tx, id string) error {
	var locked string
	return tx.GetContext(ctx, &locked, `SELECT id FROM students WHERE id = $1 FOR UPDATE`, id)
}

// Create inserts a new student record inside tx.
func (r *StudentRepository) Create(ctx context.Context, tx *sqlx.Tx, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, student_no, name, major, grade_year, enroll_year, created_at, updated_at)
        VALUES (:id, :student_no, :name, :major, :grade_year, :enroll_year, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET student_no = :student_no, name = :name, major = :major, grade_year = :grade_year,
        enroll_year = :enroll_year, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return expectAffected(res)
}

// Delete removes a student; enrollments and the login account cascade.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return expectAffected(res)
}
