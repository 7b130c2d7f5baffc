package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-registrar/internal/models"
)

// GradeRepository handles grade persistence.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository creates a new grade repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// Upsert inserts a grade or overwrites the score of the existing
// (enrollment, assessment) pair.
func (r *GradeRepository) Upsert(ctx context.Context, tx *sqlx.Tx, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if grade.CreatedAt.IsZero() {
		grade.CreatedAt = now
	}
	grade.UpdatedAt = now
	const query = `INSERT INTO grades (id, enrollment_id, assessment_id, score, created_at, updated_at)
        VALUES (:id, :enrollment_id, :assessment_id, :score, :created_at, :updated_at)
        ON CONFLICT (enrollment_id, assessment_id)
        DO UPDATE SET score = EXCLUDED.score, updated_at = EXCLUDED.updated_at`
	if _, err := tx.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("upsert grade: %w", err)
	}
	return nil
}

// ListBySection returns every grade recorded for the section's enrollments.
func (r *GradeRepository) ListBySection(ctx context.Context, sectionID string) ([]models.Grade, error) {
	grades := []models.Grade{}
	const query = `SELECT g.id, g.enrollment_id, g.assessment_id, g.score, g.created_at, g.updated_at
        FROM grades g
        JOIN enrollments e ON e.id = g.enrollment_id
        WHERE e.section_id = $1`
	if err := r.db.SelectContext(ctx, &grades, query, sectionID); err != nil {
		return nil, fmt.Errorf("list section grades: %w", err)
	}
	return grades, nil
}

// ListByEnrollment returns the grades of one enrollment.
func (r *GradeRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Grade, error) {
	grades := []models.Grade{}
	const query = `SELECT id, enrollment_id, assessment_id, score, created_at, updated_at FROM grades WHERE enrollment_id = $1`
	if err := r.db.SelectContext(ctx, &grades, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list enrollment grades: %w", err)
	}
	return grades, nil
}
