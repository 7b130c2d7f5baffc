package models

import "time"

// Student represents an enrolled learner.
type Student struct {
	ID         string    `db:"id" json:"id"`
	StudentNo  string    `db:"student_no" json:"student_no"`
	Name       string    `db:"name" json:"name"`
	Major      string    `db:"major" json:"major"`
	GradeYear  *int      `db:"grade_year" json:"grade_year,omitempty"`
	EnrollYear *int      `db:"enroll_year" json:"enroll_year,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter captures listing options for students.
type StudentFilter struct {
	ListFilter
}
