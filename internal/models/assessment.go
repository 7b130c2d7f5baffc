package models

import "time"

// WeightEpsilon tolerates floating point error when summing assessment weights.
const WeightEpsilon = 1e-6

// Assessment is a graded component of a section.
type Assessment struct {
	ID        string     `db:"id" json:"id"`
	SectionID string     `db:"section_id" json:"section_id"`
	Title     string     `db:"title" json:"title"`
	Weight    float64    `db:"weight" json:"weight"`
	FullScore float64    `db:"full_score" json:"full_score"`
	DueAt     *time.Time `db:"due_at" json:"due_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// AssessmentList is the assessments of a section with their weight total.
type AssessmentList struct {
	SectionID   string       `json:"section_id"`
	Items       []Assessment `json:"items"`
	TotalWeight float64      `json:"total_weight"`
}
