package models

import "time"

// Course is a catalog entry offered through one or more sections.
type Course struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	Credits   int       `db:"credits" json:"credits"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CourseFilter captures listing options for courses.
type CourseFilter struct {
	ListFilter
}

// DefaultCourseCredits applies when a course is created without credits.
const DefaultCourseCredits = 2
