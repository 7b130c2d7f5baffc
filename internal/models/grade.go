package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Grade is the raw score of one enrollment on one assessment.
type Grade struct {
	ID           string    `db:"id" json:"id"`
	EnrollmentID string    `db:"enrollment_id" json:"enrollment_id"`
	AssessmentID string    `db:"assessment_id" json:"assessment_id"`
	Score        float64   `db:"score" json:"score"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// GradebookRow is one student's line in a section gradebook. Scores are keyed
// by assessment id; missing keys mean no grade was recorded.
type GradebookRow struct {
	EnrollmentID string             `json:"enrollment_id"`
	StudentID    string             `json:"student_id"`
	StudentNo    string             `json:"student_no"`
	StudentName  string             `json:"student_name"`
	Scores       map[string]float64 `json:"scores"`
	TotalPercent float64            `json:"total_percent"`
}

// Gradebook is the enrollments by assessments matrix of a section.
type Gradebook struct {
	Section     SectionDetail  `json:"section"`
	Assessments []Assessment   `json:"assessments"`
	Rows        []GradebookRow `json:"rows"`
}

// GradeLine is one assessment entry on a student's report.
type GradeLine struct {
	AssessmentID string   `json:"assessment_id"`
	Title        string   `json:"title"`
	Weight       float64  `json:"weight"`
	FullScore    float64  `json:"full_score"`
	Score        *float64 `json:"score,omitempty"`
}

// GradeReport summarises a student's grades in one enrolled section.
type GradeReport struct {
	Enrollment   EnrollmentDetail `json:"enrollment"`
	Lines        []GradeLine      `json:"lines"`
	TotalPercent float64          `json:"total_percent"`
}

// RawScore is a score cell as typed by a teacher. It accepts a JSON string,
// number or null, and is parsed by the grading service.
type RawScore string

// UnmarshalJSON implements json.Unmarshaler.
func (r *RawScore) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	switch {
	case text == "null":
		*r = ""
	case strings.HasPrefix(text, `"`):
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = RawScore(s)
	default:
		*r = RawScore(text)
	}
	return nil
}

// ScoreEntry is one cell of a bulk score submission.
type ScoreEntry struct {
	EnrollmentID string   `json:"enrollment_id" validate:"required"`
	AssessmentID string   `json:"assessment_id" validate:"required"`
	Raw          RawScore `json:"raw"`
}

// ScoreWarning reports a submitted cell that was not saved.
type ScoreWarning struct {
	Index        int    `json:"index"`
	EnrollmentID string `json:"enrollment_id"`
	AssessmentID string `json:"assessment_id"`
	Raw          string `json:"raw"`
	Message      string `json:"message"`
}

// ScoreRecordResult summarises a bulk score submission. Blank cells count as
// skipped; rejected cells appear in Warnings.
type ScoreRecordResult struct {
	Saved    int            `json:"saved"`
	Skipped  int            `json:"skipped"`
	Warnings []ScoreWarning `json:"warnings"`
}
