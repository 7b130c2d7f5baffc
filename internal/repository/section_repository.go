package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-registrar/internal/models"
)

var sectionSorts = sortSpec{
	columns: map[string]string{
		"term":    "s.term",
		"course":  "c.name",
		"teacher": "t.name",
		"cap":     "s.capacity",
	},
	defaultKey:   "term",
	defaultOrder: "desc",
	tieBreaker:   "s.id",
}

const sectionDetailColumns = `s.id, s.course_id, s.teacher_id, s.term, s.capacity, s.created_at, s.updated_at,
        c.code AS course_code, c.name AS course_name, c.credits, t.name AS teacher_name,
        (SELECT COUNT(*) FROM enrollments e WHERE e.section_id = s.id) AS enrolled_count`

const sectionJoins = `FROM sections s JOIN courses c ON c.id = s.course_id JOIN teachers t ON t.id = s.teacher_id`

// SectionRepository manages persistence for sections.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs a SectionRepository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// List returns section details matching the filter together with the total count.
func (r *SectionRepository) List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, int, error) {
	base := sectionJoins + " WHERE 1=1"
	var args []interface{}
	if filter.Term != "" {
		args = append(args, filter.Term)
		base += fmt.Sprintf(" AND s.term = $%d", len(args))
	}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		base += fmt.Sprintf(" AND s.teacher_id = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, likePattern(filter.Search))
		n := len(args)
		base += fmt.Sprintf(" AND (LOWER(c.name) LIKE $%d OR LOWER(c.code) LIKE $%d OR LOWER(t.name) LIKE $%d)", n, n, n)
	}

	limit, _, _ := pageClause(filter.ListFilter)
	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s",
		sectionDetailColumns, base, sectionSorts.orderBy(filter.SortBy, filter.SortOrder), limit)

	sections := []models.SectionDetail{}
	if err := r.db.SelectContext(ctx, &sections, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sections: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count sections: %w", err)
	}
	return sections, total, nil
}

// FindByID fetches a section by ID.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.Section, error) {
	var section models.Section
	const query = `SELECT id, course_id, teacher_id, term, capacity, created_at, updated_at FROM sections WHERE id = $1`
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// FindDetailByID fetches a section with course, teacher and enrollment count.
func (r *SectionRepository) FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	var detail models.SectionDetail
	query := fmt.Sprintf("SELECT %s %s WHERE s.id = $1", sectionDetailColumns, sectionJoins)
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// GetForUpdate loads a section and locks its row until tx ends. Concurrent
// enrollments and assessment changes on the same section serialise here.
func (r *SectionRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*models.Section, error) {
	var section models.Section
	const query = `SELECT id, course_id, teacher_id, term, capacity, created_at, updated_at FROM sections WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// Create inserts a new section.
func (r *SectionRepository) Create(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	section.CreatedAt = now
	section.UpdatedAt = now
	const query = `INSERT INTO sections (id, course_id, teacher_id, term, capacity, created_at, updated_at)
        VALUES (:id, :course_id, :teacher_id, :term, :capacity, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// Delete removes a section together with its timeslots, enrollments and assessments.
func (r *SectionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete section: %w", err)
	}
	return expectAffected(res)
}
