package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-registrar/internal/models"
)

// AssessmentRepository manages graded components of sections.
type AssessmentRepository struct {
	db *sqlx.DB
}

// NewAssessmentRepository constructs an AssessmentRepository.
func NewAssessmentRepository(db *sqlx.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

// SumWeights returns the total weight already assigned in a section.
func (r *AssessmentRepository) SumWeights(ctx context.Context, tx *sqlx.Tx, sectionID string) (float64, error) {
	var total float64
	if err := tx.GetContext(ctx, &total, `SELECT COALESCE(SUM(weight), 0) FROM assessments WHERE section_id = $1`, sectionID); err != nil {
		return 0, fmt.Errorf("sum assessment weights: %w", err)
	}
	return total, nil
}

// Create inserts an assessment inside tx.
func (r *AssessmentRepository) Create(ctx context.Context, tx *sqlx.Tx, assessment *models.Assessment) error {
	if assessment.ID == "" {
		assessment.ID = uuid.NewString()
	}
	assessment.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO assessments (id, section_id, title, weight, full_score, due_at, created_at)
        VALUES (:id, :section_id, :title, :weight, :full_score, :due_at, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, assessment); err != nil {
		return fmt.Errorf("create assessment: %w", err)
	}
	return nil
}

// FindByID fetches an assessment by ID.
func (r *AssessmentRepository) FindByID(ctx context.Context, id string) (*models.Assessment, error) {
	var assessment models.Assessment
	const query = `SELECT id, section_id, title, weight, full_score, due_at, created_at FROM assessments WHERE id = $1`
	if err := r.db.GetContext(ctx, &assessment, query, id); err != nil {
		return nil, err
	}
	return &assessment, nil
}

// ListBySection returns the assessments of a section in creation order.
func (r *AssessmentRepository) ListBySection(ctx context.Context, sectionID string) ([]models.Assessment, error) {
	assessments := []models.Assessment{}
	const query = `SELECT id, section_id, title, weight, full_score, due_at, created_at FROM assessments
        WHERE section_id = $1 ORDER BY created_at, title`
	if err := r.db.SelectContext(ctx, &assessments, query, sectionID); err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	return assessments, nil
}

// Delete removes an assessment; its grades cascade.
func (r *AssessmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM assessments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete assessment: %w", err)
	}
	return expectAffected(res)
}
