package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-registrar/internal/models"
)

const enrollmentDetailQuery = `SELECT e.id, e.student_id, e.section_id, e.status, e.enrolled_at,
        s.term, c.code AS course_code, c.name AS course_name, c.credits, s.teacher_id, t.name AS teacher_name,
        st.student_no, st.name AS student_name
        FROM enrollments e
        JOIN sections s ON s.id = e.section_id
        JOIN courses c ON c.id = s.course_id
        JOIN teachers t ON t.id = s.teacher_id
        JOIN students st ON st.id = e.student_id`

// EnrollmentRepository manages persistence for enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs an EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// CountBySection counts the enrollments of a section inside tx.
func (r *EnrollmentRepository) CountBySection(ctx context.Context, tx *sqlx.Tx, sectionID string) (int, error) {
	var count int
	if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM enrollments WHERE section_id = $1`, sectionID); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return count, nil
}

// ScheduledTimeslots returns the timeslots of every section the student is
// enrolled in for term, excluding excludeSectionID.
func (r *EnrollmentRepository) ScheduledTimeslots(ctx context.Context, tx *sqlx.Tx, studentID, term, excludeSectionID string) ([]models.ScheduledTimeslot, error) {
	const query = `SELECT ts.id, ts.section_id, ts.weekday, ts.start_time, ts.end_time, ts.room,
        c.code AS course_code, c.name AS course_name
        FROM enrollments e
        JOIN sections s ON s.id = e.section_id
        JOIN courses c ON c.id = s.course_id
        JOIN timeslots ts ON ts.section_id = s.id
        WHERE e.student_id = $1 AND s.term = $2 AND s.id <> $3
        ORDER BY ts.weekday, ts.start_time`
	slots := []models.ScheduledTimeslot{}
	if err := tx.SelectContext(ctx, &slots, query, studentID, term, excludeSectionID); err != nil {
		return nil, fmt.Errorf("list scheduled timeslots: %w", err)
	}
	return slots, nil
}

// Exists reports whether the student already holds an enrollment in the section.
func (r *EnrollmentRepository) Exists(ctx context.Context, tx *sqlx.Tx, studentID, sectionID string) (bool, error) {
	var one int
	err := tx.GetContext(ctx, &one, `SELECT 1 FROM enrollments WHERE student_id = $1 AND section_id = $2 LIMIT 1`, studentID, sectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// Create inserts a new enrollment inside tx.
func (r *EnrollmentRepository) Create(ctx context.Context, tx *sqlx.Tx, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusEnrolled
	}
	enrollment.EnrolledAt = time.Now().UTC()
	const query = `INSERT INTO enrollments (id, student_id, section_id, status, enrolled_at)
        VALUES (:id, :student_id, :section_id, :status, :enrolled_at)`
	if _, err := tx.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// FindByID fetches an enrollment by ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	const query = `SELECT id, student_id, section_id, status, enrolled_at FROM enrollments WHERE id = $1`
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID fetches an enrollment joined with its section, course and people.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, enrollmentDetailQuery+" WHERE e.id = $1", id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListByStudent returns a student's enrollments, newest term first.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	details := []models.EnrollmentDetail{}
	query := enrollmentDetailQuery + " WHERE e.student_id = $1 ORDER BY s.term DESC, c.code"
	if err := r.db.SelectContext(ctx, &details, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return details, nil
}

// ListBySection returns the roster of a section ordered by student number.
func (r *EnrollmentRepository) ListBySection(ctx context.Context, sectionID string) ([]models.EnrollmentDetail, error) {
	details := []models.EnrollmentDetail{}
	query := enrollmentDetailQuery + " WHERE e.section_id = $1 ORDER BY st.student_no"
	if err := r.db.SelectContext(ctx, &details, query, sectionID); err != nil {
		return nil, fmt.Errorf("list section roster: %w", err)
	}
	return details, nil
}

// EnrolledSectionIDs returns which of sectionIDs the student is enrolled in.
func (r *EnrollmentRepository) EnrolledSectionIDs(ctx context.Context, studentID string, sectionIDs []string) ([]string, error) {
	ids := []string{}
	if len(sectionIDs) == 0 {
		return ids, nil
	}
	query, args, err := sqlx.In(`SELECT section_id FROM enrollments WHERE student_id = ? AND section_id IN (?)`, studentID, sectionIDs)
	if err != nil {
		return nil, fmt.Errorf("build enrolled sections query: %w", err)
	}
	if err := r.db.SelectContext(ctx, &ids, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list enrolled sections: %w", err)
	}
	return ids, nil
}

// Timetable returns the weekly meetings of a student's sections, optionally for one term.
func (r *EnrollmentRepository) Timetable(ctx context.Context, studentID, term string) ([]models.TimetableEntry, error) {
	query := `SELECT s.id AS section_id, s.term, c.code AS course_code, c.name AS course_name,
        ts.weekday, ts.start_time, ts.end_time, ts.room
        FROM enrollments e
        JOIN sections s ON s.id = e.section_id
        JOIN courses c ON c.id = s.course_id
        JOIN timeslots ts ON ts.section_id = s.id
        WHERE e.student_id = $1`
	args := []interface{}{studentID}
	if term != "" {
		query += " AND s.term = $2"
		args = append(args, term)
	}
	query += " ORDER BY ts.weekday, ts.start_time"

	entries := []models.TimetableEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list timetable: %w", err)
	}
	return entries, nil
}

// Delete removes an enrollment inside tx; its grades cascade.
func (r *EnrollmentRepository) Delete(ctx context.Context, tx *sqlx.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	return expectAffected(res)
}
