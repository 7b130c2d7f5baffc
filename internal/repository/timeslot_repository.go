package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-registrar/internal/models"
)

const timeslotColumns = `id, section_id, weekday, start_time, end_time, room`

// TimeslotRepository manages the weekly meeting times of sections.
type TimeslotRepository struct {
	db *sqlx.DB
}

// NewTimeslotRepository constructs a TimeslotRepository.
func NewTimeslotRepository(db *sqlx.DB) *TimeslotRepository {
	return &TimeslotRepository{db: db}
}

// ListBySection returns the timeslots of a section ordered by weekday and start.
func (r *TimeslotRepository) ListBySection(ctx context.Context, sectionID string) ([]models.Timeslot, error) {
	return r.listBySection(ctx, r.db, sectionID)
}

// ListBySectionTx is ListBySection inside an open transaction.
func (r *TimeslotRepository) ListBySectionTx(ctx context.Context, tx *sqlx.Tx, sectionID string) ([]models.Timeslot, error) {
	return r.listBySection(ctx, tx, sectionID)
}

func (r *TimeslotRepository) listBySection(ctx context.Context, q sqlx.QueryerContext, sectionID string) ([]models.Timeslot, error) {
	slots := []models.Timeslot{}
	query := fmt.Sprintf("SELECT %s FROM timeslots WHERE section_id = $1 ORDER BY weekday, start_time", timeslotColumns)
	if err := sqlx.SelectContext(ctx, q, &slots, query, sectionID); err != nil {
		return nil, fmt.Errorf("list timeslots: %w", err)
	}
	return slots, nil
}

// ListBySections returns timeslots grouped by section ID.
func (r *TimeslotRepository) ListBySections(ctx context.Context, sectionIDs []string) (map[string][]models.Timeslot, error) {
	grouped := make(map[string][]models.Timeslot, len(sectionIDs))
	if len(sectionIDs) == 0 {
		return grouped, nil
	}
	query, args, err := sqlx.In(fmt.Sprintf("SELECT %s FROM timeslots WHERE section_id IN (?) ORDER BY weekday, start_time", timeslotColumns), sectionIDs)
	if err != nil {
		return nil, fmt.Errorf("build timeslot query: %w", err)
	}
	var slots []models.Timeslot
	if err := r.db.SelectContext(ctx, &slots, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list timeslots by sections: %w", err)
	}
	for _, slot := range slots {
		grouped[slot.SectionID] = append(grouped[slot.SectionID], slot)
	}
	return grouped, nil
}

// Create inserts a timeslot.
func (r *TimeslotRepository) Create(ctx context.Context, slot *models.Timeslot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	const query = `INSERT INTO timeslots (id, section_id, weekday, start_time, end_time, room)
        VALUES (:id, :section_id, :weekday, :start_time, :end_time, :room)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("create timeslot: %w", err)
	}
	return nil
}

// Delete removes a timeslot.
func (r *TimeslotRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM timeslots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete timeslot: %w", err)
	}
	return expectAffected(res)
}
